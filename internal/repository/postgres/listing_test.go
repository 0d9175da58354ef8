package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

var listingRowColumns = []string{
	"id", "slug", "title", "description",
	"brand", "model", "year", "mileage", "fuel_type", "transmission",
	"power", "emission_class", "axles", "weight", "color", "vin",
	"price", "currency", "condition", "status", "is_featured", "views",
	"city", "country", "latitude", "longitude",
	"category_id", "seller_id", "created_at", "updated_at",
	"c_id", "c_name", "c_slug",
	"s_id", "s_name", "s_company_name",
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepo(t *testing.T) (*ListingRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewListingRepository(mock, testLogger()), mock
}

func listingRow(mock pgxmock.PgxPoolIface, id string) *pgxmock.Rows {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	catID, catName, catSlug := "cat-1", "Tractor Units", "tractor-units"
	sellerID, sellerName, companyName := "seller-1", "Hans Mueller", "Mueller Trucks GmbH"

	return mock.NewRows(listingRowColumns).AddRow(
		id, "volvo-fh-500", "Volvo FH 500 Tractor Unit", "Well maintained",
		"Volvo", "FH 500", 2020, 350000, "diesel", "automatic",
		"500 hp", "Euro 6", 2, 18000.0, "white", "VIN123",
		45000.0, "EUR", "used", domain.StatusActive, true, 42,
		"Berlin", "Germany", nil, nil,
		"cat-1", "seller-1", now, now,
		&catID, &catName, &catSlug,
		&sellerID, &sellerName, &companyName,
	)
}

func TestGetListingWithRelations(t *testing.T) {
	repo, mock := newRepo(t)
	const id = "11111111-1111-1111-1111-111111111111"

	mock.ExpectQuery(`SELECT(.+)FROM listings l`).
		WithArgs(id).
		WillReturnRows(listingRow(mock, id))

	mock.ExpectQuery(`SELECT(.+)FROM listing_images`).
		WithArgs([]string{id}).
		WillReturnRows(mock.NewRows([]string{"listing_id", "id", "url", "thumbnail_url", "position"}).
			AddRow(id, "img-1", "https://cdn.example.com/1.jpg", "https://cdn.example.com/1_thumb.jpg", 0).
			AddRow(id, "img-2", "https://cdn.example.com/2.jpg", "https://cdn.example.com/2_thumb.jpg", 1))

	mock.ExpectQuery(`SELECT(.+)FROM listing_specifications`).
		WithArgs([]string{id}).
		WillReturnRows(mock.NewRows([]string{"listing_id", "key", "value"}).
			AddRow(id, "cabin", "Globetrotter XL"))

	listing, err := repo.GetListingWithRelations(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, listing.ID)
	assert.Equal(t, "Volvo FH 500 Tractor Unit", listing.Title)
	assert.Equal(t, 45000.0, listing.Price)
	require.NotNil(t, listing.Category)
	assert.Equal(t, "tractor-units", listing.Category.Slug)
	require.NotNil(t, listing.Seller)
	assert.Equal(t, "Mueller Trucks GmbH", listing.Seller.CompanyName)
	require.Len(t, listing.Images, 2)
	assert.Equal(t, "img-1", listing.Images[0].ID)
	require.Len(t, listing.Specifications, 1)
	assert.Equal(t, "cabin", listing.Specifications[0].Key)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListingWithRelationsNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT(.+)FROM listings l`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetListingWithRelations(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEligible(t *testing.T) {
	repo, mock := newRepo(t)
	const a = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	const b = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"

	rows := listingRow(mock, a)
	now := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	catID, catName, catSlug := "cat-1", "Tractor Units", "tractor-units"
	sellerID, sellerName, companyName := "seller-2", "Eva Kovacs", "Kovacs Kft"
	rows.AddRow(
		b, "scania-r450", "Scania R450 Highline", "Retarder, full air",
		"Scania", "R450", 2018, 510000, "diesel", "automatic",
		"450 hp", "Euro 6", 2, 19000.0, "blue", "VIN456",
		38500.0, "EUR", "used", domain.StatusActive, false, 7,
		"Budapest", "Hungary", nil, nil,
		"cat-1", "seller-2", now, now,
		&catID, &catName, &catSlug,
		&sellerID, &sellerName, &companyName,
	)

	mock.ExpectQuery(`SELECT(.+)FROM listings l`).
		WithArgs(domain.StatusActive, 0, 500).
		WillReturnRows(rows)

	mock.ExpectQuery(`SELECT(.+)FROM listing_images`).
		WithArgs([]string{a, b}).
		WillReturnRows(mock.NewRows([]string{"listing_id", "id", "url", "thumbnail_url", "position"}).
			AddRow(b, "img-3", "https://cdn.example.com/3.jpg", "", 0))

	mock.ExpectQuery(`SELECT(.+)FROM listing_specifications`).
		WithArgs([]string{a, b}).
		WillReturnRows(mock.NewRows([]string{"listing_id", "key", "value"}))

	listings, err := repo.ListEligible(context.Background(), 0, 500)
	require.NoError(t, err)

	require.Len(t, listings, 2)
	assert.Equal(t, a, listings[0].ID)
	assert.Equal(t, b, listings[1].ID)
	assert.Empty(t, listings[0].Images)
	require.Len(t, listings[1].Images, 1)
	assert.Equal(t, "img-3", listings[1].Images[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEligibleEmptyPage(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT(.+)FROM listings l`).
		WithArgs(domain.StatusActive, 1000, 500).
		WillReturnRows(mock.NewRows(listingRowColumns))

	listings, err := repo.ListEligible(context.Background(), 1000, 500)
	require.NoError(t, err)
	assert.Empty(t, listings)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEligibleQueryError(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT(.+)FROM listings l`).
		WithArgs(domain.StatusActive, 0, 500).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListEligible(context.Background(), 0, 500)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
