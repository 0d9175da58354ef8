// Package memory provides an in-memory SearchEngine used by tests and local
// development. It mirrors the Elasticsearch engine's observable behavior:
// unconditional eligibility filtering, featured-first sorting, facet counts
// over the filtered set, and alias-style rebuild staging.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

// Engine is an in-memory implementation of the SearchEngine interface.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu         sync.RWMutex
	docs       map[string]domain.Document
	staging    map[string]map[string]domain.Document
	rebuildSeq int
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		docs:    make(map[string]domain.Document),
		staging: make(map[string]map[string]domain.Document),
	}
}

// EnsureIndex is a no-op for the in-memory engine.
func (e *Engine) EnsureIndex(_ context.Context) error {
	return nil
}

// Index adds or fully replaces a single document.
func (e *Engine) Index(_ context.Context, doc *domain.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.ID] = *doc
	return nil
}

// Update merges the given fields into an existing document. Only the
// relation-independent fields the sync service patches are supported.
// A missing target is a benign no-op, matching the Elasticsearch engine.
func (e *Engine) Update(_ context.Context, id string, fields map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, exists := e.docs[id]
	if !exists {
		return nil
	}

	for field, value := range fields {
		switch field {
		case "views":
			if v, ok := toInt(value); ok {
				doc.Views = v
			}
		case "price":
			if v, ok := toFloat(value); ok {
				doc.Price = v
			}
		case "is_featured":
			if v, ok := value.(bool); ok {
				doc.IsFeatured = v
			}
		case "updated_at":
			if v, ok := value.(time.Time); ok {
				doc.UpdatedAt = v
			}
		}
	}

	e.docs[id] = doc
	return nil
}

// Delete removes a document by its ID. Missing targets are a benign no-op.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// Get fetches a single document by ID.
func (e *Engine) Get(_ context.Context, id string) (*domain.Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, exists := e.docs[id]
	if !exists {
		return nil, apperrors.NotFound("listing", id)
	}
	return &doc, nil
}

// BulkIndex adds or replaces multiple documents.
func (e *Engine) BulkIndex(_ context.Context, docs []domain.Document) (*engine.BulkResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].ID] = docs[i]
	}
	return &engine.BulkResult{Indexed: len(docs)}, nil
}

// Search executes a search request against the in-memory index.
func (e *Engine) Search(_ context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	start := time.Now()
	req.Normalize()

	e.mu.RLock()
	defer e.mu.RUnlock()

	queryLower := strings.ToLower(req.Query)

	matched := make([]domain.Document, 0)
	for _, doc := range e.docs {
		if !matches(doc, req, queryLower) {
			continue
		}
		matched = append(matched, doc)
	}

	// Facets are computed over the filtered set before pagination.
	facets := computeFacets(matched)

	sortDocuments(matched, req.SortBy)

	total := len(matched)
	offset := (req.Page - 1) * req.PerPage
	if offset > total {
		offset = total
	}
	end := offset + req.PerPage
	if end > total {
		end = total
	}

	return &domain.SearchResult{
		Listings: matched[offset:end],
		Total:    total,
		Page:     req.Page,
		PerPage:  req.PerPage,
		TookMs:   time.Since(start).Milliseconds(),
		Facets:   facets,
	}, nil
}

// Facets computes the standalone aggregations, optionally scoped to a
// category slug. Only active documents are counted.
func (e *Engine) Facets(_ context.Context, categorySlug string) (*domain.FacetSet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	matched := make([]domain.Document, 0)
	for _, doc := range e.docs {
		if doc.Status != domain.StatusActive {
			continue
		}
		if categorySlug != "" && doc.CategorySlug != categorySlug {
			continue
		}
		matched = append(matched, doc)
	}

	return computeFacets(matched), nil
}

// Suggest returns autocomplete suggestions via case-insensitive prefix
// matching on title, brand and model words of active documents.
func (e *Engine) Suggest(_ context.Context, prefix string, limit int) (*domain.Suggestions, error) {
	if limit <= 0 {
		limit = 8
	}
	prefixLower := strings.ToLower(prefix)

	e.mu.RLock()
	defer e.mu.RUnlock()

	titles := make(map[string]int)
	brands := make(map[string]int)
	models := make(map[string]int)
	categories := make(map[string]int)

	for _, doc := range e.docs {
		if doc.Status != domain.StatusActive {
			continue
		}
		if !anyWordHasPrefix(doc.Title, prefixLower) &&
			!anyWordHasPrefix(doc.Brand, prefixLower) &&
			!anyWordHasPrefix(doc.Model, prefixLower) {
			continue
		}

		if doc.Title != "" {
			titles[doc.Title]++
		}
		if doc.Brand != "" {
			brands[doc.Brand]++
		}
		if doc.Model != "" {
			models[doc.Model]++
		}
		if doc.CategoryName != "" {
			categories[doc.CategoryName]++
		}
	}

	return &domain.Suggestions{
		Titles:     topBuckets(titles, limit),
		Brands:     topBuckets(brands, 5),
		Models:     topBuckets(models, 5),
		Categories: topBuckets(categories, 5),
	}, nil
}

// BeginRebuild allocates a staging index for a full reindex.
func (e *Engine) BeginRebuild(_ context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rebuildSeq++
	name := fmt.Sprintf("memory_v%d", e.rebuildSeq)
	e.staging[name] = make(map[string]domain.Document)
	return name, nil
}

// BulkIndexInto bulk-indexes documents into a staging index.
func (e *Engine) BulkIndexInto(_ context.Context, index string, docs []domain.Document) (*engine.BulkResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, exists := e.staging[index]
	if !exists {
		return nil, fmt.Errorf("memory engine: unknown rebuild index %q", index)
	}

	for i := range docs {
		target[docs[i].ID] = docs[i]
	}
	return &engine.BulkResult{Indexed: len(docs)}, nil
}

// CommitRebuild atomically replaces the live documents with the staged set.
func (e *Engine) CommitRebuild(_ context.Context, index string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, exists := e.staging[index]
	if !exists {
		return fmt.Errorf("memory engine: unknown rebuild index %q", index)
	}

	e.docs = target
	delete(e.staging, index)
	return nil
}

// matches checks whether a document satisfies the request's filters. The
// active-status constraint applies regardless of user-supplied filters.
func matches(doc domain.Document, req *domain.SearchRequest, queryLower string) bool {
	if doc.Status != domain.StatusActive {
		return false
	}

	if queryLower != "" {
		haystack := strings.ToLower(strings.Join([]string{
			doc.Title, doc.Description, doc.Brand, doc.Model, doc.SellerName, doc.CompanyName,
		}, " "))
		if !strings.Contains(haystack, queryLower) {
			return false
		}
	}

	if req.CategoryID != "" && doc.CategoryID != req.CategoryID {
		return false
	}
	if req.CategorySlug != "" && doc.CategorySlug != req.CategorySlug {
		return false
	}
	if req.Brand != "" && doc.Brand != req.Brand {
		return false
	}
	if req.Model != "" && doc.Model != req.Model {
		return false
	}
	if req.Condition != "" && doc.Condition != req.Condition {
		return false
	}
	if req.Country != "" && doc.Country != req.Country {
		return false
	}
	if req.City != "" && doc.City != req.City {
		return false
	}
	if req.FuelType != "" && doc.FuelType != req.FuelType {
		return false
	}
	if req.Transmission != "" && doc.Transmission != req.Transmission {
		return false
	}
	if req.EmissionClass != "" && doc.EmissionClass != req.EmissionClass {
		return false
	}

	if req.MinPrice != nil && doc.Price < *req.MinPrice {
		return false
	}
	if req.MaxPrice != nil && doc.Price > *req.MaxPrice {
		return false
	}
	if req.MinYear != nil && doc.Year < *req.MinYear {
		return false
	}
	if req.MaxYear != nil && doc.Year > *req.MaxYear {
		return false
	}

	return true
}

// sortDocuments orders documents with featured listings first, then by the
// requested secondary key.
func sortDocuments(docs []domain.Document, sortBy string) {
	less := func(a, b domain.Document) bool {
		if a.IsFeatured != b.IsFeatured {
			return a.IsFeatured
		}
		switch sortBy {
		case domain.SortPriceAsc:
			return a.Price < b.Price
		case domain.SortPriceDesc:
			return a.Price > b.Price
		case domain.SortYearAsc:
			return a.Year < b.Year
		case domain.SortYearDesc:
			return a.Year > b.Year
		case domain.SortOldest:
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			// newest; relevance approximated by recency in memory.
			return a.CreatedAt.After(b.CreatedAt)
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return less(docs[i], docs[j])
	})
}

// computeFacets counts facet buckets over the given documents, including the
// fixed price and year bands.
func computeFacets(docs []domain.Document) *domain.FacetSet {
	categories := make(map[string]int)
	brands := make(map[string]int)
	countries := make(map[string]int)
	conditions := make(map[string]int)
	fuelTypes := make(map[string]int)
	transmissions := make(map[string]int)
	emissionClasses := make(map[string]int)
	priceRanges := make(map[string]int)
	yearRanges := make(map[string]int)

	for _, doc := range docs {
		count(categories, doc.CategoryName)
		count(brands, doc.Brand)
		count(countries, doc.Country)
		count(conditions, doc.Condition)
		count(fuelTypes, doc.FuelType)
		count(transmissions, doc.Transmission)
		count(emissionClasses, doc.EmissionClass)
		priceRanges[priceBand(doc.Price)]++
		yearRanges[yearBand(doc.Year)]++
	}

	return &domain.FacetSet{
		Categories:      toBuckets(categories),
		Brands:          toBuckets(brands),
		Countries:       toBuckets(countries),
		Conditions:      toBuckets(conditions),
		FuelTypes:       toBuckets(fuelTypes),
		Transmissions:   toBuckets(transmissions),
		EmissionClasses: toBuckets(emissionClasses),
		PriceRanges:     toBuckets(priceRanges),
		YearRanges:      toBuckets(yearRanges),
	}
}

func count(m map[string]int, value string) {
	if value != "" {
		m[value]++
	}
}

// priceBand maps a price to its fixed EUR band label.
func priceBand(price float64) string {
	switch {
	case price < 5000:
		return "Under €5,000"
	case price < 15000:
		return "€5,000 - €15,000"
	case price < 30000:
		return "€15,000 - €30,000"
	case price < 50000:
		return "€30,000 - €50,000"
	case price < 100000:
		return "€50,000 - €100,000"
	default:
		return "Over €100,000"
	}
}

// yearBand maps a registration year to its fixed band label.
func yearBand(year int) string {
	switch {
	case year >= 2020:
		return "2020+"
	case year >= 2015:
		return "2015-2019"
	case year >= 2010:
		return "2010-2014"
	default:
		return "Before 2010"
	}
}

// toBuckets converts a count map into facet buckets ordered by count
// descending then value ascending, matching terms aggregation ordering.
func toBuckets(m map[string]int) []domain.FacetBucket {
	buckets := make([]domain.FacetBucket, 0, len(m))
	for value, n := range m {
		buckets = append(buckets, domain.FacetBucket{Value: value, Label: value, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})
	return buckets
}

// topBuckets converts a count map into at most limit suggestion buckets.
func topBuckets(m map[string]int, limit int) []domain.SuggestionBucket {
	buckets := make([]domain.SuggestionBucket, 0, len(m))
	for text, n := range m {
		buckets = append(buckets, domain.SuggestionBucket{Text: text, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Text < buckets[j].Text
	})
	if len(buckets) > limit {
		buckets = buckets[:limit]
	}
	return buckets
}

// anyWordHasPrefix reports whether any whitespace-separated word of s starts
// with the given lowercase prefix.
func anyWordHasPrefix(s, prefixLower string) bool {
	if prefixLower == "" {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(s)) {
		if strings.HasPrefix(word, prefixLower) {
			return true
		}
	}
	return false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
