package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

const (
	defaultRetryAttempts = 3
	retryBaseWait        = 1 * time.Second
	retryJitterFraction  = 0.25
)

// Engine is an Elasticsearch-backed implementation of the SearchEngine
// interface. All document operations go through the alias; concrete indices
// are only addressed directly during a rebuild.
type Engine struct {
	client *elasticsearch.Client
	logger *slog.Logger
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esGetResponse is the structure used to decode a single-document lookup.
type esGetResponse struct {
	Found  bool            `json:"found"`
	Source domain.Document `json:"_source"`
}

// New creates a new Elasticsearch engine connected to the given URL.
func New(esURL string, logger *slog.Logger) (*Engine, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	return &Engine{
		client: client,
		logger: logger,
	}, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex checks whether the bootstrap index exists and creates it with
// the full mapping if not, then binds the alias to it. Idempotent.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists(
		[]string{DefaultIndexName},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("check index exists: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", DefaultIndexName)
		return nil
	}

	if err := e.createIndex(ctx, DefaultIndexName); err != nil {
		return err
	}

	aliasRes, err := e.client.Indices.PutAlias(
		[]string{DefaultIndexName},
		AliasName,
		e.client.Indices.PutAlias.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("put alias: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = aliasRes.Body.Close() }()

	if aliasRes.IsError() {
		return fmt.Errorf("put alias: %s", e.decodeError(aliasRes))
	}

	e.logger.Info("elasticsearch index created with alias",
		"index", DefaultIndexName,
		"alias", AliasName,
	)
	return nil
}

// createIndex creates a concrete index with the listings mapping.
func (e *Engine) createIndex(ctx context.Context, name string) error {
	res, err := e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("create index %s: %s", name, e.decodeError(res))
	}
	return nil
}

// Index adds or fully replaces a single listing document through the alias.
// Transient transport failures are retried before surfacing.
func (e *Engine) Index(ctx context.Context, doc *domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	err = e.withRetry(ctx, "index", func() (*esapi.Response, error) {
		return e.client.Index(
			AliasName,
			bytes.NewReader(data),
			e.client.Index.WithDocumentID(doc.ID),
			e.client.Index.WithRefresh("true"),
			e.client.Index.WithContext(ctx),
		)
	}, nil)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}

	e.logger.Debug("indexed listing", "id", doc.ID, "title", doc.Title)
	return nil
}

// Update merges the given fields into an existing document. A 404 means the
// listing was removed concurrently and is logged as a benign no-op.
func (e *Engine) Update(ctx context.Context, id string, fields map[string]any) error {
	body, err := json.Marshal(map[string]any{"doc": fields})
	if err != nil {
		return fmt.Errorf("elasticsearch update: marshal fields: %w", err)
	}

	benign404 := func() {
		e.logger.Warn("listing not found in index, skipping update", "id", id)
	}

	err = e.withRetry(ctx, "update", func() (*esapi.Response, error) {
		return e.client.Update(
			AliasName,
			id,
			bytes.NewReader(body),
			e.client.Update.WithRefresh("true"),
			e.client.Update.WithContext(ctx),
		)
	}, benign404)
	if err != nil {
		return fmt.Errorf("elasticsearch update: %w", err)
	}

	return nil
}

// Delete removes a document by ID. A missing target is a benign no-op.
func (e *Engine) Delete(ctx context.Context, id string) error {
	benign404 := func() {
		e.logger.Warn("listing not found in index, skipping delete", "id", id)
	}

	err := e.withRetry(ctx, "delete", func() (*esapi.Response, error) {
		return e.client.Delete(
			AliasName,
			id,
			e.client.Delete.WithRefresh("true"),
			e.client.Delete.WithContext(ctx),
		)
	}, benign404)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}

	e.logger.Debug("deleted listing from index", "id", id)
	return nil
}

// Get fetches a single document by ID through the alias.
func (e *Engine) Get(ctx context.Context, id string) (*domain.Document, error) {
	res, err := e.client.Get(
		AliasName,
		id,
		e.client.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == 404 {
		return nil, apperrors.NotFound("listing", id)
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch get: %s", e.decodeError(res))
	}

	var getResp esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&getResp); err != nil {
		return nil, fmt.Errorf("elasticsearch get: decode response: %w", err)
	}
	if !getResp.Found {
		return nil, apperrors.NotFound("listing", id)
	}

	return &getResp.Source, nil
}

// BulkIndex adds or replaces multiple documents through the alias.
func (e *Engine) BulkIndex(ctx context.Context, docs []domain.Document) (*engine.BulkResult, error) {
	return e.bulkInto(ctx, AliasName, docs)
}

// BulkIndexInto bulk-indexes documents into a specific concrete index,
// bypassing the alias. Used only during a rebuild.
func (e *Engine) BulkIndexInto(ctx context.Context, index string, docs []domain.Document) (*engine.BulkResult, error) {
	return e.bulkInto(ctx, index, docs)
}

// bulkInto performs a bulk NDJSON request against the given index. Per-item
// failures are collected into the result rather than aborting the batch.
func (e *Engine) bulkInto(ctx context.Context, index string, docs []domain.Document) (*engine.BulkResult, error) {
	if len(docs) == 0 {
		return &engine.BulkResult{}, nil
	}

	var buf bytes.Buffer
	for i := range docs {
		action := map[string]any{
			"index": map[string]any{
				"_index": index,
				"_id":    docs[i].ID,
			},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(docs[i]); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch bulk index: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch bulk index: %s", e.decodeError(res))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return nil, fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	result := &engine.BulkResult{}
	for _, item := range bulkResp.Items {
		if item.Index.Error.Type != "" {
			result.Failed = append(result.Failed, engine.ItemError{
				ID:     item.Index.ID,
				Type:   item.Index.Error.Type,
				Reason: item.Index.Error.Reason,
			})
			continue
		}
		result.Indexed++
	}

	if len(result.Failed) > 0 {
		e.logger.Warn("bulk index completed with per-item errors",
			"index", index,
			"indexed", result.Indexed,
			"failed", len(result.Failed),
		)
	} else {
		e.logger.Info("bulk indexed listings", "index", index, "count", result.Indexed)
	}

	return result, nil
}

// BeginRebuild creates a fresh timestamped concrete index for a full reindex.
// The alias keeps serving the previous index until CommitRebuild.
func (e *Engine) BeginRebuild(ctx context.Context) (string, error) {
	name := fmt.Sprintf("%s_v%d", AliasName, time.Now().Unix())
	if err := e.createIndex(ctx, name); err != nil {
		return "", err
	}

	e.logger.Info("rebuild index created", "index", name)
	return name, nil
}

// CommitRebuild atomically repoints the alias at the rebuilt index and drops
// the superseded indices. Readers never observe a half-built index: the swap
// is a single _aliases actions call.
func (e *Engine) CommitRebuild(ctx context.Context, index string) error {
	old, err := e.aliasedIndices(ctx)
	if err != nil {
		return err
	}

	actions := make([]map[string]any, 0, len(old)+1)
	for _, name := range old {
		if name == index {
			continue
		}
		actions = append(actions, map[string]any{
			"remove": map[string]any{"index": name, "alias": AliasName},
		})
	}
	actions = append(actions, map[string]any{
		"add": map[string]any{"index": index, "alias": AliasName},
	})

	body, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("alias swap: marshal actions: %w", err)
	}

	res, err := e.client.Indices.UpdateAliases(
		bytes.NewReader(body),
		e.client.Indices.UpdateAliases.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("alias swap: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("alias swap: %s", e.decodeError(res))
	}

	e.logger.Info("alias swapped to rebuilt index", "alias", AliasName, "index", index)

	// The old indices are no longer reachable through the alias; drop them.
	for _, name := range old {
		if name == index {
			continue
		}
		delRes, err := e.client.Indices.Delete(
			[]string{name},
			e.client.Indices.Delete.WithContext(ctx),
		)
		if err != nil {
			e.logger.Warn("failed to delete superseded index", "index", name, "error", err.Error())
			continue
		}
		_ = delRes.Body.Close()
		if delRes.IsError() && delRes.StatusCode != 404 {
			e.logger.Warn("failed to delete superseded index", "index", name, "status", delRes.Status())
			continue
		}
		e.logger.Info("superseded index deleted", "index", name)
	}

	return nil
}

// aliasedIndices returns the concrete indices currently behind the alias.
func (e *Engine) aliasedIndices(ctx context.Context) ([]string, error) {
	res, err := e.client.Indices.GetAlias(
		e.client.Indices.GetAlias.WithName(AliasName),
		e.client.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get alias: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	// 404 means the alias does not exist yet; nothing to remove.
	if res.StatusCode == 404 {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("get alias: %s", e.decodeError(res))
	}

	var aliasResp map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&aliasResp); err != nil {
		return nil, fmt.Errorf("get alias: decode response: %w", err)
	}

	indices := make([]string, 0, len(aliasResp))
	for name := range aliasResp {
		indices = append(indices, name)
	}
	return indices, nil
}

// withRetry executes an idempotent document operation, retrying transport
// failures with exponential backoff (1s/2s/4s with ±25% jitter). When
// benign404 is non-nil a 404 response is treated as success.
func (e *Engine) withRetry(ctx context.Context, op string, fn func() (*esapi.Response, error), benign404 func()) error {
	var lastErr error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBackoff(attempt - 1)
			e.logger.Warn("elasticsearch operation failed, retrying",
				"op", op,
				"attempt", attempt+1,
				"backoff", wait.String(),
				"error", lastErr.Error(),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", engine.ErrUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}

		res, err := fn()
		if err != nil {
			lastErr = fmt.Errorf("%w: %w", engine.ErrUnavailable, err)
			continue
		}

		if res.StatusCode == 404 && benign404 != nil {
			_ = res.Body.Close()
			benign404()
			return nil
		}

		if res.IsError() {
			msg := e.decodeError(res)
			_ = res.Body.Close()
			return fmt.Errorf("%s", msg)
		}

		_ = res.Body.Close()
		return nil
	}

	return lastErr
}

// retryBackoff returns the backoff for the given attempt (0-indexed).
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := retryBaseWait << attempt
	jitter := time.Duration(float64(base) * retryJitterFraction * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
	return base + jitter
}

// decodeError extracts a readable message from an Elasticsearch error response.
func (e *Engine) decodeError(res *esapi.Response) string {
	var errResp esErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Sprintf("%s — %s", errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Sprintf("unexpected status %s", res.Status())
}
