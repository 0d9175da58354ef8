// Package postgres implements the record-store reads against PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/database"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it
// in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ListingRepository loads listings with their relations from PostgreSQL.
type ListingRepository struct {
	db     DB
	logger *slog.Logger
}

// NewListingRepository creates a new PostgreSQL-backed listing repository.
func NewListingRepository(db DB, logger *slog.Logger) *ListingRepository {
	return &ListingRepository{
		db:     db,
		logger: logger,
	}
}

const listingColumns = `
	l.id, l.slug, l.title, l.description,
	l.brand, l.model, l.year, l.mileage, l.fuel_type, l.transmission,
	l.power, l.emission_class, l.axles, l.weight, l.color, l.vin,
	l.price, l.currency, l.condition, l.status, l.is_featured, l.views,
	l.city, l.country, l.latitude, l.longitude,
	l.category_id, l.seller_id, l.created_at, l.updated_at,
	c.id, c.name, c.slug,
	s.id, s.name, s.company_name`

const getListingQuery = `
	SELECT` + listingColumns + `
	FROM listings l
	LEFT JOIN categories c ON c.id = l.category_id
	LEFT JOIN sellers s ON s.id = l.seller_id
	WHERE l.id = $1`

const listEligibleQuery = `
	SELECT` + listingColumns + `
	FROM listings l
	LEFT JOIN categories c ON c.id = l.category_id
	LEFT JOIN sellers s ON s.id = l.seller_id
	WHERE l.status = $1
	ORDER BY l.created_at ASC, l.id ASC
	OFFSET $2 LIMIT $3`

const listImagesQuery = `
	SELECT listing_id, id, url, thumbnail_url, position
	FROM listing_images
	WHERE listing_id = ANY($1)
	ORDER BY position ASC`

const listSpecificationsQuery = `
	SELECT listing_id, key, value
	FROM listing_specifications
	WHERE listing_id = ANY($1)`

// GetListingWithRelations fetches one listing with its category, seller,
// images and specifications loaded.
func (r *ListingRepository) GetListingWithRelations(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, end := database.TraceQuery(ctx, "GetListingWithRelations", getListingQuery)
	var err error
	defer func() { end(err) }()

	row := r.db.QueryRow(ctx, getListingQuery, id)

	listing, scanErr := scanListing(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			err = apperrors.NotFound("listing", id)
			return nil, err
		}
		err = fmt.Errorf("get listing %s: %w", id, scanErr)
		return nil, err
	}

	if err = r.loadRelations(ctx, []*domain.Listing{listing}); err != nil {
		return nil, err
	}

	return listing, nil
}

// ListEligible pages through active listings with relations loaded.
func (r *ListingRepository) ListEligible(ctx context.Context, offset, limit int) ([]domain.Listing, error) {
	ctx, end := database.TraceQuery(ctx, "ListEligible", listEligibleQuery)
	var err error
	defer func() { end(err) }()

	rows, queryErr := r.db.Query(ctx, listEligibleQuery, domain.StatusActive, offset, limit)
	if queryErr != nil {
		err = fmt.Errorf("list eligible listings: %w", queryErr)
		return nil, err
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		listing, scanErr := scanListing(rows)
		if scanErr != nil {
			err = fmt.Errorf("scan listing: %w", scanErr)
			return nil, err
		}
		listings = append(listings, *listing)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		err = fmt.Errorf("list eligible listings: %w", rowsErr)
		return nil, err
	}

	if len(listings) == 0 {
		return listings, nil
	}

	refs := make([]*domain.Listing, len(listings))
	for i := range listings {
		refs[i] = &listings[i]
	}
	if err = r.loadRelations(ctx, refs); err != nil {
		return nil, err
	}

	return listings, nil
}

// loadRelations batch-loads images and specifications for the given listings.
func (r *ListingRepository) loadRelations(ctx context.Context, listings []*domain.Listing) error {
	ids := make([]string, len(listings))
	byID := make(map[string]*domain.Listing, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
		byID[l.ID] = l
	}

	if err := r.loadImages(ctx, ids, byID); err != nil {
		return err
	}
	return r.loadSpecifications(ctx, ids, byID)
}

func (r *ListingRepository) loadImages(ctx context.Context, ids []string, byID map[string]*domain.Listing) error {
	ctx, end := database.TraceQuery(ctx, "ListListingImages", listImagesQuery)
	var err error
	defer func() { end(err) }()

	rows, queryErr := r.db.Query(ctx, listImagesQuery, ids)
	if queryErr != nil {
		err = fmt.Errorf("load listing images: %w", queryErr)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var listingID string
		var img domain.Image
		if scanErr := rows.Scan(&listingID, &img.ID, &img.URL, &img.ThumbnailURL, &img.Position); scanErr != nil {
			err = fmt.Errorf("scan listing image: %w", scanErr)
			return err
		}
		if l, ok := byID[listingID]; ok {
			l.Images = append(l.Images, img)
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		err = fmt.Errorf("load listing images: %w", rowsErr)
		return err
	}
	return nil
}

func (r *ListingRepository) loadSpecifications(ctx context.Context, ids []string, byID map[string]*domain.Listing) error {
	ctx, end := database.TraceQuery(ctx, "ListListingSpecifications", listSpecificationsQuery)
	var err error
	defer func() { end(err) }()

	rows, queryErr := r.db.Query(ctx, listSpecificationsQuery, ids)
	if queryErr != nil {
		err = fmt.Errorf("load listing specifications: %w", queryErr)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var listingID string
		var spec domain.Specification
		if scanErr := rows.Scan(&listingID, &spec.Key, &spec.Value); scanErr != nil {
			err = fmt.Errorf("scan listing specification: %w", scanErr)
			return err
		}
		if l, ok := byID[listingID]; ok {
			l.Specifications = append(l.Specifications, spec)
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		err = fmt.Errorf("load listing specifications: %w", rowsErr)
		return err
	}
	return nil
}

// scanListing scans one joined listing row. Category and seller come from
// LEFT JOINs, so their columns may be NULL.
func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	var catID, catName, catSlug *string
	var sellerID, sellerName, companyName *string

	err := row.Scan(
		&l.ID, &l.Slug, &l.Title, &l.Description,
		&l.Brand, &l.Model, &l.Year, &l.Mileage, &l.FuelType, &l.Transmission,
		&l.Power, &l.EmissionClass, &l.Axles, &l.Weight, &l.Color, &l.VIN,
		&l.Price, &l.Currency, &l.Condition, &l.Status, &l.IsFeatured, &l.Views,
		&l.City, &l.Country, &l.Latitude, &l.Longitude,
		&l.CategoryID, &l.SellerID, &l.CreatedAt, &l.UpdatedAt,
		&catID, &catName, &catSlug,
		&sellerID, &sellerName, &companyName,
	)
	if err != nil {
		return nil, err
	}

	if catID != nil {
		l.Category = &domain.Category{ID: *catID, Name: deref(catName), Slug: deref(catSlug)}
	}
	if sellerID != nil {
		l.Seller = &domain.Seller{ID: *sellerID, Name: deref(sellerName), CompanyName: deref(companyName)}
	}

	return &l, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
