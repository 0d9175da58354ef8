package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/cache"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine/memory"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache() *cache.Cache {
	return cache.New(cache.NewMemoryStore(), newTestLogger())
}

func activeDoc(id, title, brand string, price float64) domain.Document {
	return domain.Document{
		ID:           id,
		Slug:         "slug-" + id,
		Title:        title,
		Brand:        brand,
		Price:        price,
		Currency:     "EUR",
		Condition:    "used",
		Status:       domain.StatusActive,
		Year:         2020,
		Country:      "Germany",
		CategoryID:   "cat-1",
		CategoryName: "Tractor Units",
		CategorySlug: "tractor-units",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestSearchReturnsResults(t *testing.T) {
	eng := memory.New()
	svc := NewSearchService(eng, newTestCache(), newTestLogger())
	ctx := context.Background()

	doc := activeDoc("l1", "Volvo FH 500 Tractor Unit", "Volvo", 45000)
	require.NoError(t, eng.Index(ctx, &doc))

	result, err := svc.Search(ctx, &domain.SearchRequest{Query: "volvo"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Total, 1)
	require.Len(t, result.Listings, 1)
	assert.Equal(t, "l1", result.Listings[0].ID)
}

func TestSearchSecondCallServedFromCache(t *testing.T) {
	eng := memory.New()
	svc := NewSearchService(eng, newTestCache(), newTestLogger())
	ctx := context.Background()

	doc := activeDoc("l1", "Volvo FH 500", "Volvo", 45000)
	require.NoError(t, eng.Index(ctx, &doc))

	first, err := svc.Search(ctx, &domain.SearchRequest{Page: 1, PerPage: 20})
	require.NoError(t, err)

	// A write straight to the engine without invalidation must not be
	// visible inside the TTL window: the second call comes from cache.
	other := activeDoc("l2", "Scania R450", "Scania", 30000)
	require.NoError(t, eng.Index(ctx, &other))

	second, err := svc.Search(ctx, &domain.SearchRequest{Page: 1, PerPage: 20})
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON, "cached payload must be byte-identical")
	assert.Equal(t, 1, second.Total)
}

func TestSearchCacheKeyIgnoresParamOrderAndEmptyFilters(t *testing.T) {
	a := searchParams(&domain.SearchRequest{Query: "volvo", Brand: "", Page: 1, PerPage: 20, SortBy: domain.SortNewest})
	b := searchParams(&domain.SearchRequest{Query: "volvo", Page: 1, PerPage: 20, SortBy: domain.SortNewest})

	assert.Equal(t, cache.Key("search", a), cache.Key("search", b))
}

// downEngine simulates an unreachable search backend.
type downEngine struct {
	*memory.Engine
}

func (d downEngine) Search(context.Context, *domain.SearchRequest) (*domain.SearchResult, error) {
	return nil, engine.ErrUnavailable
}

func (d downEngine) Facets(context.Context, string) (*domain.FacetSet, error) {
	return nil, engine.ErrUnavailable
}

func (d downEngine) Suggest(context.Context, string, int) (*domain.Suggestions, error) {
	return nil, engine.ErrUnavailable
}

func TestSearchOutageIsNotEmptyResults(t *testing.T) {
	svc := NewSearchService(downEngine{memory.New()}, newTestCache(), newTestLogger())

	result, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "volvo"})

	require.Error(t, err)
	assert.Nil(t, result, "an outage must never read as zero results")
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SERVICE_UNAVAILABLE", appErr.Code)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	svc := NewSearchService(downEngine{memory.New()}, newTestCache(), newTestLogger())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := svc.Search(ctx, &domain.SearchRequest{Query: "volvo"})
		require.Error(t, err)
		// Whether the engine failed or the breaker is open, the caller
		// always sees the same unavailable signal.
		assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	}
}

func TestFacetsCached(t *testing.T) {
	eng := memory.New()
	svc := NewSearchService(eng, newTestCache(), newTestLogger())
	ctx := context.Background()

	doc := activeDoc("l1", "Volvo FH 500", "Volvo", 45000)
	require.NoError(t, eng.Index(ctx, &doc))

	first, err := svc.Facets(ctx, "tractor-units")
	require.NoError(t, err)
	require.Len(t, first.Brands, 1)

	// New engine data without invalidation stays invisible within the TTL.
	other := activeDoc("l2", "Scania R450", "Scania", 30000)
	require.NoError(t, eng.Index(ctx, &other))

	second, err := svc.Facets(ctx, "tractor-units")
	require.NoError(t, err)
	assert.Len(t, second.Brands, 1)
}

// countingEngine counts engine reads to observe cache and LRU hits.
type countingEngine struct {
	*memory.Engine
	suggestCalls int
	getCalls     int
}

func (c *countingEngine) Suggest(ctx context.Context, prefix string, limit int) (*domain.Suggestions, error) {
	c.suggestCalls++
	return c.Engine.Suggest(ctx, prefix, limit)
}

func (c *countingEngine) Get(ctx context.Context, id string) (*domain.Document, error) {
	c.getCalls++
	return c.Engine.Get(ctx, id)
}

func TestSuggestUsesInProcessLRU(t *testing.T) {
	eng := &countingEngine{Engine: memory.New()}
	svc := NewSearchService(eng, newTestCache(), newTestLogger())
	ctx := context.Background()

	doc := activeDoc("l1", "Volvo FH 500", "Volvo", 45000)
	require.NoError(t, eng.Index(ctx, &doc))

	first, err := svc.Suggest(ctx, "vol", 8)
	require.NoError(t, err)
	require.NotEmpty(t, first.Brands)

	_, err = svc.Suggest(ctx, "vol", 8)
	require.NoError(t, err)

	assert.Equal(t, 1, eng.suggestCalls, "repeat suggest within the LRU TTL must not hit the engine")

	// A different limit is a different LRU key.
	_, err = svc.Suggest(ctx, "vol", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, eng.suggestCalls)
}

func TestGetDocument(t *testing.T) {
	eng := memory.New()
	svc := NewSearchService(eng, newTestCache(), newTestLogger())
	ctx := context.Background()

	doc := activeDoc("l1", "Volvo FH 500", "Volvo", 45000)
	require.NoError(t, eng.Index(ctx, &doc))

	got, err := svc.GetDocument(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 45000.0, got.Price)

	_, err = svc.GetDocument(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestGetDocumentSecondCallServedFromCache(t *testing.T) {
	eng := &countingEngine{Engine: memory.New()}
	svc := NewSearchService(eng, newTestCache(), newTestLogger())
	ctx := context.Background()

	doc := activeDoc("l1", "Volvo FH 500", "Volvo", 45000)
	require.NoError(t, eng.Index(ctx, &doc))

	first, err := svc.GetDocument(ctx, "l1")
	require.NoError(t, err)

	second, err := svc.GetDocument(ctx, "l1")
	require.NoError(t, err)

	assert.Equal(t, 1, eng.getCalls, "repeat detail read within the TTL must not hit the engine")
	assert.Equal(t, first.Price, second.Price)
}

func TestGetDocumentMissIsNotCached(t *testing.T) {
	eng := &countingEngine{Engine: memory.New()}
	svc := NewSearchService(eng, newTestCache(), newTestLogger())
	ctx := context.Background()

	_, err := svc.GetDocument(ctx, "l1")
	require.Error(t, err)

	// The listing appearing later must be visible immediately.
	doc := activeDoc("l1", "Volvo FH 500", "Volvo", 45000)
	require.NoError(t, eng.Index(ctx, &doc))

	got, err := svc.GetDocument(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "l1", got.ID)
}
