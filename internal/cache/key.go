package cache

import (
	"crypto/md5" // #nosec G401 -- key fingerprinting only, not security
	"encoding/hex"
	"sort"
	"strings"
)

// keyHashLen is the number of hex characters kept from the digest. Twelve
// characters bound key-space growth while keeping collisions negligible for
// cache purposes.
const keyHashLen = 12

// Key builds a deterministic, namespaced cache key from a parameter set.
// Empty values are dropped and the remaining keys sorted, so two logically
// identical parameter sets always hash to the same key regardless of order
// or absent-vs-empty differences.
func Key(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := md5.Sum([]byte(strings.Join(pairs, "&"))) // #nosec G401
	return prefix + ":" + hex.EncodeToString(sum[:])[:keyHashLen]
}
