package transform

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

func sampleListing() *domain.Listing {
	lat, lon := 52.52, 13.405
	return &domain.Listing{
		ID:            "11111111-1111-1111-1111-111111111111",
		Slug:          "volvo-fh-500-tractor-unit",
		Title:         "Volvo FH 500 Tractor Unit",
		Description:   "Well maintained, one owner",
		Brand:         "Volvo",
		Model:         "FH 500",
		Year:          2020,
		Mileage:       350000,
		FuelType:      "diesel",
		Transmission:  "automatic",
		Power:         "500 hp",
		EmissionClass: "Euro 6",
		Axles:         2,
		Weight:        18000,
		Color:         "white",
		Price:         45000,
		Currency:      "EUR",
		Condition:     "used",
		Status:        domain.StatusActive,
		IsFeatured:    true,
		Views:         42,
		City:          "Berlin",
		Country:       "Germany",
		Latitude:      &lat,
		Longitude:     &lon,
		CategoryID:    "cat-1",
		Category:      &domain.Category{ID: "cat-1", Name: "Tractor Units", Slug: "tractor-units"},
		SellerID:      "seller-1",
		Seller:        &domain.Seller{ID: "seller-1", Name: "Hans Mueller", CompanyName: "Mueller Trucks GmbH"},
		Images: []domain.Image{
			{ID: "img-2", URL: "https://cdn.example.com/2.jpg", ThumbnailURL: "https://cdn.example.com/2_thumb.jpg", Position: 1},
			{ID: "img-1", URL: "https://cdn.example.com/1.jpg", ThumbnailURL: "https://cdn.example.com/1_thumb.jpg", Position: 0},
		},
		Specifications: []domain.Specification{
			{Key: "cabin", Value: "Globetrotter XL"},
			{Key: "retarder", Value: "yes"},
		},
		CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestToDocument(t *testing.T) {
	listing := sampleListing()

	doc, err := ToDocument(listing)
	require.NoError(t, err)

	assert.Equal(t, listing.ID, doc.ID)
	assert.Equal(t, "Volvo FH 500 Tractor Unit", doc.Title)
	assert.Equal(t, 45000.0, doc.Price)
	assert.Equal(t, "EUR", doc.Currency)
	assert.Equal(t, 2020, doc.Year)
	assert.Equal(t, domain.StatusActive, doc.Status)
	assert.True(t, doc.IsFeatured)
	assert.Equal(t, 42, doc.Views)
}

func TestToDocumentResolvesRelations(t *testing.T) {
	doc, err := ToDocument(sampleListing())
	require.NoError(t, err)

	assert.Equal(t, "Tractor Units", doc.CategoryName)
	assert.Equal(t, "tractor-units", doc.CategorySlug)
	assert.Equal(t, "Hans Mueller", doc.SellerName)
	assert.Equal(t, "Mueller Trucks GmbH", doc.CompanyName)
}

func TestToDocumentPicksFirstOrderedImage(t *testing.T) {
	doc, err := ToDocument(sampleListing())
	require.NoError(t, err)

	// img-1 has the lowest position even though it is listed second.
	assert.Equal(t, "https://cdn.example.com/1_thumb.jpg", doc.ThumbnailURL)
}

func TestToDocumentFallsBackToFullImageURL(t *testing.T) {
	listing := sampleListing()
	listing.Images = []domain.Image{
		{ID: "img-1", URL: "https://cdn.example.com/1.jpg", Position: 0},
	}

	doc, err := ToDocument(listing)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/1.jpg", doc.ThumbnailURL)
}

func TestToDocumentLocation(t *testing.T) {
	doc, err := ToDocument(sampleListing())
	require.NoError(t, err)

	require.NotNil(t, doc.Location)
	assert.Equal(t, 52.52, doc.Location.Lat)
	assert.Equal(t, 13.405, doc.Location.Lon)
}

func TestToDocumentMissingOptionalsAreZero(t *testing.T) {
	listing := &domain.Listing{
		ID:    "22222222-2222-2222-2222-222222222222",
		Title: "Scania R450",
	}

	doc, err := ToDocument(listing)
	require.NoError(t, err)

	assert.Nil(t, doc.Location)
	assert.Nil(t, doc.Weight)
	assert.Empty(t, doc.CategoryName)
	assert.Empty(t, doc.SellerName)
	assert.Empty(t, doc.ThumbnailURL)
	assert.Nil(t, doc.Specifications)
}

func TestToDocumentMandatoryFields(t *testing.T) {
	_, err := ToDocument(nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = ToDocument(&domain.Listing{Title: "no id"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = ToDocument(&domain.Listing{ID: "id-but-no-title"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestToDocumentIsDeterministic(t *testing.T) {
	listing := sampleListing()

	a, err := ToDocument(listing)
	require.NoError(t, err)
	b, err := ToDocument(listing)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
