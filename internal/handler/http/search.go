package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/service"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/httputil"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/pagination"
)

// SearchHandler handles HTTP requests for the search endpoints.
type SearchHandler struct {
	search *service.SearchService
	sync   *service.SyncService
	logger *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(search *service.SearchService, sync *service.SyncService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		search: search,
		sync:   sync,
		logger: logger,
	}
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseSearchRequest(w, r)
	if !ok {
		return
	}

	result, err := h.search.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Facets handles GET /api/v1/search/facets
func (h *SearchHandler) Facets(w http.ResponseWriter, r *http.Request) {
	categorySlug := strings.TrimSpace(r.URL.Query().Get("category"))

	facets, err := h.search.Facets(r.Context(), categorySlug)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: facets})
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(prefix) < 2 {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: &domain.Suggestions{}})
		return
	}

	limit := 8
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 20 {
			limit = l
		}
	}

	suggestions, err := h.search.Suggest(r.Context(), prefix, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: suggestions})
}

// GetListing handles GET /api/v1/search/listings/{id}
func (h *SearchHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	doc, err := h.search.GetDocument(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: doc})
}

// Reindex handles POST /api/v1/search/reindex. The rebuild runs in the
// background; the request only kicks it off.
func (h *SearchHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx := context.Background()
		summary, err := h.sync.ReindexAll(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "background reindex failed",
				slog.String("error", err.Error()),
				slog.Int("total_processed", summary.TotalProcessed),
			)
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "reindex started"}})
}

// parseSearchRequest builds a SearchRequest from query parameters, writing an
// INVALID_PARAMETER response and returning false on bad input.
func (h *SearchHandler) parseSearchRequest(w http.ResponseWriter, r *http.Request) (*domain.SearchRequest, bool) {
	q := r.URL.Query()

	sortBy := q.Get("sort")
	if sortBy != "" && !domain.IsValidSort(sortBy) {
		writeInvalidParameter(w, "sort must be one of: "+strings.Join(domain.ValidSortOptions(), ", "))
		return nil, false
	}

	params := pagination.FromRequest(r)

	req := &domain.SearchRequest{
		Query:         strings.TrimSpace(q.Get("q")),
		CategoryID:    q.Get("category_id"),
		CategorySlug:  q.Get("category"),
		Brand:         q.Get("brand"),
		Model:         q.Get("model"),
		Condition:     q.Get("condition"),
		Country:       q.Get("country"),
		City:          q.Get("city"),
		FuelType:      q.Get("fuel_type"),
		Transmission:  q.Get("transmission"),
		EmissionClass: q.Get("emission_class"),
		SortBy:        sortBy,
		Page:          params.Page,
		PerPage:       params.PerPage,
	}

	var ok bool
	if req.MinPrice, ok = parsePriceParam(w, q.Get("min_price"), "min_price"); !ok {
		return nil, false
	}
	if req.MaxPrice, ok = parsePriceParam(w, q.Get("max_price"), "max_price"); !ok {
		return nil, false
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		writeInvalidParameter(w, "min_price must not exceed max_price")
		return nil, false
	}

	if req.MinYear, ok = parseYearParam(w, q.Get("min_year"), "min_year"); !ok {
		return nil, false
	}
	if req.MaxYear, ok = parseYearParam(w, q.Get("max_year"), "max_year"); !ok {
		return nil, false
	}
	if req.MinYear != nil && req.MaxYear != nil && *req.MinYear > *req.MaxYear {
		writeInvalidParameter(w, "min_year must not exceed max_year")
		return nil, false
	}

	return req, true
}

func parsePriceParam(w http.ResponseWriter, raw, name string) (*float64, bool) {
	if raw == "" {
		return nil, true
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeInvalidParameter(w, name+" must be a valid number")
		return nil, false
	}
	if price < 0 {
		writeInvalidParameter(w, name+" must not be negative")
		return nil, false
	}
	return &price, true
}

func parseYearParam(w http.ResponseWriter, raw, name string) (*int, bool) {
	if raw == "" {
		return nil, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeInvalidParameter(w, name+" must be a valid year")
		return nil, false
	}
	if year < 1900 || year > 2100 {
		writeInvalidParameter(w, name+" must be between 1900 and 2100")
		return nil, false
	}
	return &year, true
}

func writeInvalidParameter(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}
