package engine

import (
	"context"
	"errors"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
)

// ErrUnavailable indicates the search backend could not be reached. Callers
// must surface it as a transient failure, never as an empty result set.
var ErrUnavailable = errors.New("search engine unavailable")

// ItemError describes a single failed document within a bulk operation.
type ItemError struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BulkResult reports the outcome of a bulk indexing call. Per-item failures
// never abort the batch; they are collected here instead.
type BulkResult struct {
	Indexed int         `json:"indexed"`
	Failed  []ItemError `json:"failed,omitempty"`
}

// SearchEngine defines the interface for indexing and searching listings.
// Implementations may use Elasticsearch, in-memory storage, or other backends.
type SearchEngine interface {
	// EnsureIndex creates the backing index and its alias if absent. Idempotent.
	EnsureIndex(ctx context.Context) error

	// Index adds or fully replaces a single listing document.
	Index(ctx context.Context, doc *domain.Document) error

	// Update merges the given fields into an existing document. A missing
	// target is a benign no-op.
	Update(ctx context.Context, id string, fields map[string]any) error

	// Delete removes a document by its ID. A missing target is a benign no-op.
	Delete(ctx context.Context, id string) error

	// BulkIndex adds or replaces multiple documents, collecting per-item errors.
	BulkIndex(ctx context.Context, docs []domain.Document) (*BulkResult, error)

	// Get fetches a single document by ID through the alias.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Search executes a search request and returns matching documents with
	// facet counts computed over the same filtered set.
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error)

	// Facets computes the standalone facet aggregations, optionally scoped
	// to a category slug.
	Facets(ctx context.Context, categorySlug string) (*domain.FacetSet, error)

	// Suggest returns autocomplete suggestions for the given prefix.
	Suggest(ctx context.Context, prefix string, limit int) (*domain.Suggestions, error)

	// BeginRebuild creates a fresh concrete index for a full reindex and
	// returns its name. The alias keeps serving the old index until
	// CommitRebuild swaps it.
	BeginRebuild(ctx context.Context) (string, error)

	// BulkIndexInto bulk-indexes documents into a specific concrete index,
	// bypassing the alias. Used only during a rebuild.
	BulkIndexInto(ctx context.Context, index string, docs []domain.Document) (*BulkResult, error)

	// CommitRebuild atomically repoints the alias at the rebuilt index and
	// removes superseded indices.
	CommitRebuild(ctx context.Context, index string) error
}
