// Package repository defines the read-only record-store access the search
// service needs. Listings are written elsewhere; this service only loads them
// for indexing.
package repository

import (
	"context"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
)

// ListingStore loads listings with their relations from the record store.
type ListingStore interface {
	// GetListingWithRelations fetches one listing with its category, seller,
	// images and specifications loaded. Returns apperrors.ErrNotFound when
	// the listing does not exist.
	GetListingWithRelations(ctx context.Context, id string) (*domain.Listing, error)

	// ListEligible pages through active listings with relations loaded,
	// ordered by creation time. Used only by the bulk reindex path.
	ListEligible(ctx context.Context, offset, limit int) ([]domain.Listing, error)
}
