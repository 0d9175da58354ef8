package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

// esSearchResponse is the structure used to decode Elasticsearch search
// responses, including aggregations.
type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  *float64        `json:"_score"`
			Source domain.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]esAggregation `json:"aggregations"`
}

// esAggregation decodes both terms and range aggregation results; in both
// cases buckets carry a string key and a document count.
type esAggregation struct {
	Buckets []struct {
		Key      string `json:"key"`
		DocCount int    `json:"doc_count"`
	} `json:"buckets"`
}

// Search executes a search request with facet aggregations computed over the
// same filtered set, so facet counts always reflect the applied filters.
func (e *Engine) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	req.Normalize()

	body := buildSearchBody(req)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(AliasName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		msg := e.decodeError(res)
		if res.StatusCode >= 400 && res.StatusCode < 500 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid search request: %s", msg))
		}
		return nil, fmt.Errorf("elasticsearch search: %w: %s", engine.ErrUnavailable, msg)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	listings := make([]domain.Document, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		doc := hit.Source
		if hit.Score != nil {
			doc.Score = *hit.Score
		}
		listings = append(listings, doc)
	}

	return &domain.SearchResult{
		Listings: listings,
		Total:    esResp.Hits.Total.Value,
		Page:     req.Page,
		PerPage:  req.PerPage,
		TookMs:   int64(esResp.Took),
		Facets:   normalizeFacets(esResp.Aggregations),
	}, nil
}

// Facets computes the standalone filter aggregations, optionally scoped to a
// category slug. Only active listings are ever counted.
func (e *Engine) Facets(ctx context.Context, categorySlug string) (*domain.FacetSet, error) {
	filter := []any{
		map[string]any{"term": map[string]any{"status": domain.StatusActive}},
	}
	if categorySlug != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"category_slug": categorySlug}})
	}

	body := map[string]any{
		"size":  0,
		"query": map[string]any{"bool": map[string]any{"filter": filter}},
		"aggs":  buildAggregations(),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch facets: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(AliasName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch facets: %w: %w", engine.ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch facets: %w: %s", engine.ErrUnavailable, e.decodeError(res))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch facets: decode response: %w", err)
	}

	return normalizeFacets(esResp.Aggregations), nil
}

// buildSearchBody constructs the full Elasticsearch request body for a
// normalized search request.
func buildSearchBody(req *domain.SearchRequest) map[string]any {
	// Eligibility is unconditional: only active listings are ever matched,
	// regardless of user-supplied filters.
	must := []any{
		map[string]any{"term": map[string]any{"status": domain.StatusActive}},
	}

	if req.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     req.Query,
				"fields":    []string{"title^3", "description", "brand^2", "model^2", "seller_name", "company_name"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		})
	}

	boolQuery := map[string]any{"must": must}
	if filters := buildFilters(req); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	return map[string]any{
		"from":             (req.Page - 1) * req.PerPage,
		"size":             req.PerPage,
		"query":            map[string]any{"bool": boolQuery},
		"sort":             buildSort(req),
		"aggs":             buildAggregations(),
		"track_total_hits": true,
	}
}

// buildFilters maps each request filter to an exact-match constraint on a
// keyword-typed field. Analyzed text fields filter on their .keyword
// sub-field to avoid false positives from tokenization.
func buildFilters(req *domain.SearchRequest) []any {
	var filters []any

	term := func(field, value string) {
		if value != "" {
			filters = append(filters, map[string]any{"term": map[string]any{field: value}})
		}
	}

	term("category_id", req.CategoryID)
	term("category_slug", req.CategorySlug)
	term("brand.keyword", req.Brand)
	term("model.keyword", req.Model)
	term("condition", req.Condition)
	term("fuel_type", req.FuelType)
	term("transmission", req.Transmission)
	term("emission_class", req.EmissionClass)
	term("country.keyword", req.Country)
	term("city.keyword", req.City)

	if req.MinPrice != nil || req.MaxPrice != nil {
		bounds := map[string]any{}
		if req.MinPrice != nil {
			bounds["gte"] = *req.MinPrice
		}
		if req.MaxPrice != nil {
			bounds["lte"] = *req.MaxPrice
		}
		filters = append(filters, map[string]any{"range": map[string]any{"price": bounds}})
	}

	if req.MinYear != nil || req.MaxYear != nil {
		bounds := map[string]any{}
		if req.MinYear != nil {
			bounds["gte"] = *req.MinYear
		}
		if req.MaxYear != nil {
			bounds["lte"] = *req.MaxYear
		}
		filters = append(filters, map[string]any{"range": map[string]any{"year": bounds}})
	}

	return filters
}

// buildSort constructs the sort clause. Featured listings always rank first;
// the secondary key follows the requested sort option.
func buildSort(req *domain.SearchRequest) []any {
	sort := []any{
		map[string]any{"is_featured": map[string]any{"order": "desc"}},
	}

	switch req.SortBy {
	case domain.SortPriceAsc:
		sort = append(sort, map[string]any{"price": "asc"})
	case domain.SortPriceDesc:
		sort = append(sort, map[string]any{"price": "desc"})
	case domain.SortYearAsc:
		sort = append(sort, map[string]any{"year": "asc"})
	case domain.SortYearDesc:
		sort = append(sort, map[string]any{"year": "desc"})
	case domain.SortOldest:
		sort = append(sort, map[string]any{"created_at": "asc"})
	case domain.SortRelevance:
		// Normalize degrades relevance to newest when no query text exists.
		sort = append(sort, map[string]any{"_score": "desc"})
	default:
		sort = append(sort, map[string]any{"created_at": "desc"})
	}

	return sort
}

// buildAggregations returns the standard facet aggregation set: terms over
// every facetable keyword field plus fixed price and year bands.
func buildAggregations() map[string]any {
	return map[string]any{
		"categories":       map[string]any{"terms": map[string]any{"field": "category_name", "size": 50}},
		"brands":           map[string]any{"terms": map[string]any{"field": "brand.keyword", "size": 50}},
		"countries":        map[string]any{"terms": map[string]any{"field": "country.keyword", "size": 50}},
		"conditions":       map[string]any{"terms": map[string]any{"field": "condition", "size": 5}},
		"fuel_types":       map[string]any{"terms": map[string]any{"field": "fuel_type", "size": 20}},
		"transmissions":    map[string]any{"terms": map[string]any{"field": "transmission", "size": 10}},
		"emission_classes": map[string]any{"terms": map[string]any{"field": "emission_class", "size": 10}},
		"price_ranges": map[string]any{
			"range": map[string]any{
				"field": "price",
				"ranges": []any{
					map[string]any{"key": "Under €5,000", "to": 5000},
					map[string]any{"key": "€5,000 - €15,000", "from": 5000, "to": 15000},
					map[string]any{"key": "€15,000 - €30,000", "from": 15000, "to": 30000},
					map[string]any{"key": "€30,000 - €50,000", "from": 30000, "to": 50000},
					map[string]any{"key": "€50,000 - €100,000", "from": 50000, "to": 100000},
					map[string]any{"key": "Over €100,000", "from": 100000},
				},
			},
		},
		"year_ranges": map[string]any{
			"range": map[string]any{
				"field": "year",
				"ranges": []any{
					map[string]any{"key": "2020+", "from": 2020},
					map[string]any{"key": "2015-2019", "from": 2015, "to": 2020},
					map[string]any{"key": "2010-2014", "from": 2010, "to": 2015},
					map[string]any{"key": "Before 2010", "to": 2010},
				},
			},
		},
	}
}

// normalizeFacets converts raw aggregation results into the stable facet
// shape. Labels are the raw values; the fixed range bands carry their
// display-string keys as both value and label.
func normalizeFacets(aggs map[string]esAggregation) *domain.FacetSet {
	if aggs == nil {
		return nil
	}

	buckets := func(name string) []domain.FacetBucket {
		agg, ok := aggs[name]
		if !ok {
			return []domain.FacetBucket{}
		}
		out := make([]domain.FacetBucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			out = append(out, domain.FacetBucket{
				Value: b.Key,
				Label: b.Key,
				Count: b.DocCount,
			})
		}
		return out
	}

	return &domain.FacetSet{
		Categories:      buckets("categories"),
		Brands:          buckets("brands"),
		Countries:       buckets("countries"),
		Conditions:      buckets("conditions"),
		FuelTypes:       buckets("fuel_types"),
		Transmissions:   buckets("transmissions"),
		EmissionClasses: buckets("emission_classes"),
		PriceRanges:     buckets("price_ranges"),
		YearRanges:      buckets("year_ranges"),
	}
}
