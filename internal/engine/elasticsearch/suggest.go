package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
)

// Suggest returns autocomplete suggestions for the given prefix, bucketed by
// field class. It matches the edge-ngram autocomplete sub-fields of title,
// brand and model over active listings only, then collects distinct values
// via terms aggregations so each suggestion carries its document count.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) (*domain.Suggestions, error) {
	if limit <= 0 {
		limit = 8
	}

	body := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"status": domain.StatusActive}},
				},
				"should": []any{
					map[string]any{"match": map[string]any{"title.autocomplete": map[string]any{"query": prefix, "boost": 3}}},
					map[string]any{"match": map[string]any{"brand.autocomplete": map[string]any{"query": prefix, "boost": 2}}},
					map[string]any{"match": map[string]any{"model.autocomplete": map[string]any{"query": prefix, "boost": 2}}},
				},
				"minimum_should_match": 1,
			},
		},
		"aggs": map[string]any{
			"title_suggestions":    map[string]any{"terms": map[string]any{"field": "title.keyword", "size": limit}},
			"brand_suggestions":    map[string]any{"terms": map[string]any{"field": "brand.keyword", "size": 5}},
			"model_suggestions":    map[string]any{"terms": map[string]any{"field": "model.keyword", "size": 5}},
			"category_suggestions": map[string]any{"terms": map[string]any{"field": "category_name", "size": 5}},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(AliasName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch suggest: %w: %s", engine.ErrUnavailable, e.decodeError(res))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: decode response: %w", err)
	}

	buckets := func(name string) []domain.SuggestionBucket {
		agg, ok := esResp.Aggregations[name]
		if !ok {
			return []domain.SuggestionBucket{}
		}
		out := make([]domain.SuggestionBucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			out = append(out, domain.SuggestionBucket{Text: b.Key, Count: b.DocCount})
		}
		return out
	}

	return &domain.Suggestions{
		Titles:     buckets("title_suggestions"),
		Brands:     buckets("brand_suggestions"),
		Models:     buckets("model_suggestions"),
		Categories: buckets("category_suggestions"),
	}, nil
}
