package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker/v2"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/cache"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

const (
	suggestLRUSize = 512
	suggestLRUTTL  = 30 * time.Second
)

// SearchService implements the read path: cache-wrapped search and facet
// queries plus autocomplete. Engine reads go through a circuit breaker so an
// index outage surfaces as "search temporarily unavailable" instead of
// hammering a dead cluster or faking empty results.
type SearchService struct {
	engine  engine.SearchEngine
	cache   *cache.Cache
	breaker *gobreaker.CircuitBreaker[any]
	suggest *expirable.LRU[string, *domain.Suggestions]
	logger  *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(eng engine.SearchEngine, c *cache.Cache, logger *slog.Logger) *SearchService {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "search-engine",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Only infrastructure failures trip the breaker; a malformed
			// request says nothing about engine health.
			return err == nil || !errors.Is(err, engine.ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &SearchService{
		engine:  eng,
		cache:   c,
		breaker: breaker,
		suggest: expirable.NewLRU[string, *domain.Suggestions](suggestLRUSize, nil, suggestLRUTTL),
		logger:  logger,
	}
}

// Search executes a search request through the read-through cache. The cached
// payload is the serialized result, so repeat hits within the TTL window
// return byte-identical responses.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	req.Normalize()

	key := cache.Key("search", searchParams(req))

	if data, ok := s.cache.Get(ctx, key); ok {
		var result domain.SearchResult
		if err := json.Unmarshal(data, &result); err == nil {
			s.logger.DebugContext(ctx, "search served from cache", slog.String("key", key))
			return &result, nil
		}
		// A corrupt entry falls through to a live query.
	}

	result, err := s.searchEngine(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, data, cache.TTLSearch)
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", req.Query),
		slog.Int("total", result.Total),
		slog.Int64("took_ms", result.TookMs),
	)

	return result, nil
}

// Facets returns the standalone filter aggregations, cached per category
// scope with the aggregation TTL.
func (s *SearchService) Facets(ctx context.Context, categorySlug string) (*domain.FacetSet, error) {
	key := "aggs:all"
	if categorySlug != "" {
		key = "aggs:" + categorySlug
	}

	if data, ok := s.cache.Get(ctx, key); ok {
		var facets domain.FacetSet
		if err := json.Unmarshal(data, &facets); err == nil {
			return &facets, nil
		}
	}

	out, err := s.breaker.Execute(func() (any, error) {
		return s.engine.Facets(ctx, categorySlug)
	})
	if err != nil {
		return nil, s.mapEngineError(err)
	}
	facets := out.(*domain.FacetSet)

	if data, err := json.Marshal(facets); err == nil {
		s.cache.Set(ctx, key, data, cache.TTLAggregations)
	}

	return facets, nil
}

// Suggest returns autocomplete suggestions. Prefix cardinality makes the
// shared cache a poor fit, so results sit in a short-lived in-process LRU
// instead of Redis.
func (s *SearchService) Suggest(ctx context.Context, prefix string, limit int) (*domain.Suggestions, error) {
	if limit <= 0 {
		limit = 8
	}

	lruKey := prefix + "|" + strconv.Itoa(limit)
	if cached, ok := s.suggest.Get(lruKey); ok {
		return cached, nil
	}

	out, err := s.breaker.Execute(func() (any, error) {
		return s.engine.Suggest(ctx, prefix, limit)
	})
	if err != nil {
		return nil, s.mapEngineError(err)
	}
	suggestions := out.(*domain.Suggestions)

	s.suggest.Add(lruKey, suggestions)
	return suggestions, nil
}

// GetDocument fetches a single indexed document by listing ID through the
// read-through cache. Listing writes invalidate the entry, so the detail TTL
// only bounds staleness against out-of-band index changes.
func (s *SearchService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	key := "listing:" + id

	if data, ok := s.cache.Get(ctx, key); ok {
		var doc domain.Document
		if err := json.Unmarshal(data, &doc); err == nil {
			return &doc, nil
		}
	}

	out, err := s.breaker.Execute(func() (any, error) {
		return s.engine.Get(ctx, id)
	})
	if err != nil {
		return nil, s.mapEngineError(err)
	}
	doc := out.(*domain.Document)

	if data, err := json.Marshal(doc); err == nil {
		s.cache.Set(ctx, key, data, cache.TTLListingDetail)
	}

	return doc, nil
}

// searchEngine runs the engine query through the circuit breaker.
func (s *SearchService) searchEngine(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	out, err := s.breaker.Execute(func() (any, error) {
		return s.engine.Search(ctx, req)
	})
	if err != nil {
		return nil, s.mapEngineError(err)
	}
	return out.(*domain.SearchResult), nil
}

// mapEngineError translates engine and breaker failures into typed errors.
// Unreachable-engine conditions become a 503 so callers never mistake an
// outage for zero results.
func (s *SearchService) mapEngineError(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.Unavailable("search", err)
	case errors.Is(err, engine.ErrUnavailable):
		return apperrors.Unavailable("search", err)
	default:
		return err
	}
}

// searchParams flattens a normalized request into the parameter set hashed
// into its cache key. Empty values are dropped by the key builder, so absent
// and empty filters hash identically.
func searchParams(req *domain.SearchRequest) map[string]string {
	params := map[string]string{
		"q":              req.Query,
		"category_id":    req.CategoryID,
		"category_slug":  req.CategorySlug,
		"brand":          req.Brand,
		"model":          req.Model,
		"condition":      req.Condition,
		"country":        req.Country,
		"city":           req.City,
		"fuel_type":      req.FuelType,
		"transmission":   req.Transmission,
		"emission_class": req.EmissionClass,
		"sort":           req.SortBy,
		"page":           strconv.Itoa(req.Page),
		"per_page":       strconv.Itoa(req.PerPage),
	}

	if req.MinPrice != nil {
		params["min_price"] = strconv.FormatFloat(*req.MinPrice, 'f', -1, 64)
	}
	if req.MaxPrice != nil {
		params["max_price"] = strconv.FormatFloat(*req.MaxPrice, 'f', -1, 64)
	}
	if req.MinYear != nil {
		params["min_year"] = strconv.Itoa(*req.MinYear)
	}
	if req.MaxYear != nil {
		params["max_year"] = strconv.Itoa(*req.MaxYear)
	}

	return params
}
