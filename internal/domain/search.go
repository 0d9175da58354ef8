package domain

import (
	"time"
)

// GeoPoint is the indexed lat/lon pair for a listing's location.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Document is the flattened listing projection stored in the search index.
// Relation-derived display fields (category name, seller name, thumbnail)
// are denormalized at transform time so queries never join.
type Document struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Condition  string  `json:"condition"`
	Status     string  `json:"status"`
	IsFeatured bool    `json:"is_featured"`
	Views      int     `json:"views"`

	Brand         string   `json:"brand"`
	Model         string   `json:"model"`
	Year          int      `json:"year"`
	Mileage       int      `json:"mileage"`
	FuelType      string   `json:"fuel_type"`
	Transmission  string   `json:"transmission"`
	Power         string   `json:"power"`
	EmissionClass string   `json:"emission_class"`
	Axles         int      `json:"axles"`
	Weight        *float64 `json:"weight,omitempty"`
	Color         string   `json:"color"`

	City     string    `json:"city"`
	Country  string    `json:"country"`
	Location *GeoPoint `json:"location,omitempty"`

	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	CategorySlug string `json:"category_slug"`
	SellerID     string `json:"seller_id"`
	SellerName   string `json:"seller_name"`
	CompanyName  string `json:"company_name"`

	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	Specifications []Specification `json:"specifications,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Score is the relevance score attached to search hits. It is never
	// stored in the index.
	Score float64 `json:"score,omitempty"`
}

// Sort options for search results.
const (
	SortRelevance = "relevance"
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortYearAsc   = "year_asc"
	SortYearDesc  = "year_desc"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortNewest, SortOldest, SortPriceAsc, SortPriceDesc, SortYearAsc, SortYearDesc}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// SearchRequest holds all parameters for a search request. Zero values mean
// "not filtered".
type SearchRequest struct {
	Query string `json:"query"`

	CategoryID    string `json:"category_id,omitempty"`
	CategorySlug  string `json:"category_slug,omitempty"`
	Brand         string `json:"brand,omitempty"`
	Model         string `json:"model,omitempty"`
	Condition     string `json:"condition,omitempty"`
	Country       string `json:"country,omitempty"`
	City          string `json:"city,omitempty"`
	FuelType      string `json:"fuel_type,omitempty"`
	Transmission  string `json:"transmission,omitempty"`
	EmissionClass string `json:"emission_class,omitempty"`

	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	MinYear  *int     `json:"min_year,omitempty"`
	MaxYear  *int     `json:"max_year,omitempty"`

	SortBy  string `json:"sort_by"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// Normalize clamps pagination, defaults the sort, and degrades relevance
// sorting to newest when no query text was supplied.
func (r *SearchRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage < 1 {
		r.PerPage = 20
	}
	if r.PerPage > 100 {
		r.PerPage = 100
	}
	if r.SortBy == "" {
		r.SortBy = SortNewest
	}
	if r.SortBy == SortRelevance && r.Query == "" {
		r.SortBy = SortNewest
	}
}

// SearchResult holds the paginated search response with facet counts
// computed over the same filtered set.
type SearchResult struct {
	Listings []Document `json:"listings"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PerPage  int        `json:"per_page"`
	TookMs   int64      `json:"took_ms"`
	Facets   *FacetSet  `json:"facets,omitempty"`
}

// TotalPages returns the number of pages for the result's total and page size.
func (r *SearchResult) TotalPages() int {
	if r.PerPage <= 0 {
		return 0
	}
	return (r.Total + r.PerPage - 1) / r.PerPage
}

// FacetBucket is one normalized aggregation bucket.
type FacetBucket struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FacetSet groups all facet buckets returned alongside search results.
type FacetSet struct {
	Categories      []FacetBucket `json:"categories"`
	Brands          []FacetBucket `json:"brands"`
	Countries       []FacetBucket `json:"countries"`
	Conditions      []FacetBucket `json:"conditions"`
	FuelTypes       []FacetBucket `json:"fuel_types"`
	Transmissions   []FacetBucket `json:"transmissions"`
	EmissionClasses []FacetBucket `json:"emission_classes"`
	PriceRanges     []FacetBucket `json:"price_ranges"`
	YearRanges      []FacetBucket `json:"year_ranges"`
}

// SuggestionBucket is one autocomplete suggestion with its document count.
type SuggestionBucket struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Suggestions groups autocomplete suggestions by field class.
type Suggestions struct {
	Titles     []SuggestionBucket `json:"titles"`
	Brands     []SuggestionBucket `json:"brands"`
	Models     []SuggestionBucket `json:"models"`
	Categories []SuggestionBucket `json:"categories"`
}
