// Package transform maps record-store listings to search documents. The
// mapping is pure: relations must already be loaded, nothing is fetched here.
package transform

import (
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
)

// ToDocument flattens a listing and its loaded relations into an index
// document. Missing optional fields map to zero values; only an absent ID or
// title is an error, since those indicate a caller bug rather than bad data.
func ToDocument(l *domain.Listing) (*domain.Document, error) {
	if l == nil {
		return nil, apperrors.InvalidInput("listing is required")
	}
	if l.ID == "" {
		return nil, apperrors.InvalidInput("listing id is required")
	}
	if l.Title == "" {
		return nil, apperrors.InvalidInput("listing title is required")
	}

	doc := &domain.Document{
		ID:          l.ID,
		Slug:        l.Slug,
		Title:       l.Title,
		Description: l.Description,

		Price:      l.Price,
		Currency:   l.Currency,
		Condition:  l.Condition,
		Status:     l.Status,
		IsFeatured: l.IsFeatured,
		Views:      l.Views,

		Brand:         l.Brand,
		Model:         l.Model,
		Year:          l.Year,
		Mileage:       l.Mileage,
		FuelType:      l.FuelType,
		Transmission:  l.Transmission,
		Power:         l.Power,
		EmissionClass: l.EmissionClass,
		Axles:         l.Axles,
		Color:         l.Color,

		City:    l.City,
		Country: l.Country,

		CategoryID: l.CategoryID,
		SellerID:   l.SellerID,

		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}

	if l.Weight > 0 {
		w := l.Weight
		doc.Weight = &w
	}

	if l.Latitude != nil && l.Longitude != nil {
		doc.Location = &domain.GeoPoint{Lat: *l.Latitude, Lon: *l.Longitude}
	}

	if l.Category != nil {
		doc.CategoryName = l.Category.Name
		doc.CategorySlug = l.Category.Slug
	}

	if l.Seller != nil {
		doc.SellerName = l.Seller.Name
		doc.CompanyName = l.Seller.CompanyName
	}

	doc.ThumbnailURL = firstImageURL(l.Images)

	if len(l.Specifications) > 0 {
		specs := make([]domain.Specification, len(l.Specifications))
		copy(specs, l.Specifications)
		doc.Specifications = specs
	}

	return doc, nil
}

// firstImageURL resolves the gallery's first image by lowest position,
// preferring the thumbnail variant over the full-size URL.
func firstImageURL(images []domain.Image) string {
	if len(images) == 0 {
		return ""
	}

	first := images[0]
	for _, img := range images[1:] {
		if img.Position < first.Position {
			first = img
		}
	}

	if first.ThumbnailURL != "" {
		return first.ThumbnailURL
	}
	return first.URL
}
