package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/cache"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine/memory"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/service"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/httputil"
)

const testListingID = "4f6c2d9e-8a3b-4c1d-9e2f-0a1b2c3d4e5f"

type response struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

// emptyStore satisfies repository.ListingStore for handlers that never reach
// the record store.
type emptyStore struct{}

func (emptyStore) GetListingWithRelations(_ context.Context, id string) (*domain.Listing, error) {
	return nil, apperrors.NotFound("listing", id)
}

func (emptyStore) ListEligible(context.Context, int, int) ([]domain.Listing, error) {
	return nil, nil
}

func newTestRouter(eng engine.SearchEngine) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(cache.NewMemoryStore(), logger)

	search := service.NewSearchService(eng, c, logger)
	sync := service.NewSyncService(emptyStore{}, eng, c, nil, logger)
	h := NewSearchHandler(search, sync, logger)

	r := chi.NewRouter()
	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", h.Search)
		r.Get("/listings/{id}", h.GetListing)
		r.Get("/facets", h.Facets)
		r.Get("/suggest", h.Suggest)
		r.Post("/reindex", h.Reindex)
	})
	return r
}

func seededEngine(t *testing.T) *memory.Engine {
	t.Helper()
	eng := memory.New()

	doc := domain.Document{
		ID:           testListingID,
		Slug:         "volvo-fh-500",
		Title:        "Volvo FH 500 Tractor Unit",
		Brand:        "Volvo",
		Model:        "FH 500",
		Year:         2020,
		Price:        45000,
		Currency:     "EUR",
		Condition:    "used",
		Status:       domain.StatusActive,
		Country:      "Germany",
		CategoryID:   "cat-1",
		CategoryName: "Tractor Units",
		CategorySlug: "tractor-units",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, eng.Index(context.Background(), &doc))
	return eng
}

func doRequest(router http.Handler, method, target string) (*httptest.ResponseRecorder, response) {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp response
	_ = json.NewDecoder(w.Body).Decode(&resp)
	return w, resp
}

func TestSearch_ReturnsResults(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search?q=volvo")

	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	var result domain.SearchResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Listings, 1)
	assert.Equal(t, testListingID, result.Listings[0].ID)
	assert.NotNil(t, result.Facets)
}

func TestSearch_FiltersApply(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search?brand=Volvo&min_price=40000&max_price=50000&min_year=2019")
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.SearchResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 1, result.Total)

	w, resp = doRequest(router, http.MethodGet, "/api/v1/search?brand=Scania")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 0, result.Total)
}

func TestSearch_InvalidSort(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search?sort=alphabetical")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestSearch_InvalidPriceParams(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	cases := []struct {
		name   string
		target string
	}{
		{"non-numeric min_price", "/api/v1/search?min_price=cheap"},
		{"negative min_price", "/api/v1/search?min_price=-1"},
		{"non-numeric max_price", "/api/v1/search?max_price=lots"},
		{"min above max", "/api/v1/search?min_price=100&max_price=50"},
		{"non-numeric min_year", "/api/v1/search?min_year=recent"},
		{"year out of range", "/api/v1/search?min_year=1200"},
		{"min_year above max_year", "/api/v1/search?min_year=2020&max_year=2010"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := doRequest(router, http.MethodGet, tc.target)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
		})
	}
}

func TestFacets(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search/facets?category=tractor-units")

	require.Equal(t, http.StatusOK, w.Code)

	var facets domain.FacetSet
	require.NoError(t, json.Unmarshal(resp.Data, &facets))
	require.Len(t, facets.Brands, 1)
	assert.Equal(t, "Volvo", facets.Brands[0].Value)
}

func TestSuggest(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search/suggest?q=vol")

	require.Equal(t, http.StatusOK, w.Code)

	var suggestions domain.Suggestions
	require.NoError(t, json.Unmarshal(resp.Data, &suggestions))
	require.NotEmpty(t, suggestions.Brands)
	assert.Equal(t, "Volvo", suggestions.Brands[0].Text)
}

func TestSuggest_ShortPrefixReturnsEmpty(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search/suggest?q=v")

	require.Equal(t, http.StatusOK, w.Code)

	var suggestions domain.Suggestions
	require.NoError(t, json.Unmarshal(resp.Data, &suggestions))
	assert.Empty(t, suggestions.Titles)
	assert.Empty(t, suggestions.Brands)
}

func TestGetListing(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search/listings/"+testListingID)

	require.Equal(t, http.StatusOK, w.Code)

	var doc domain.Document
	require.NoError(t, json.Unmarshal(resp.Data, &doc))
	assert.Equal(t, "volvo-fh-500", doc.Slug)
}

func TestGetListing_InvalidID(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search/listings/not-a-uuid")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestGetListing_NotFound(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search/listings/00000000-0000-0000-0000-000000000000")

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// brokenEngine reports the backend as unreachable.
type brokenEngine struct {
	*memory.Engine
}

func (brokenEngine) Search(context.Context, *domain.SearchRequest) (*domain.SearchResult, error) {
	return nil, engine.ErrUnavailable
}

func TestSearch_EngineDownReturns503(t *testing.T) {
	router := newTestRouter(brokenEngine{memory.New()})

	w, resp := doRequest(router, http.MethodGet, "/api/v1/search?q=volvo")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
}

func TestReindex_Accepted(t *testing.T) {
	router := newTestRouter(seededEngine(t))

	w, resp := doRequest(router, http.MethodPost, "/api/v1/search/reindex")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Nil(t, resp.Error)
}
