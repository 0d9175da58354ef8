package domain

import (
	"time"
)

// Listing statuses as stored in the record store. Only active listings are
// ever indexed or searchable.
const (
	StatusActive   = "active"
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusSold     = "sold"
	StatusArchived = "archived"
)

// Category is the taxonomy node a listing belongs to.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Seller is the summary of a listing's seller used for display fields.
type Seller struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
}

// Image is one entry of a listing's ordered image gallery.
type Image struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Position     int    `json:"position"`
}

// Specification is one free-form key/value pair attached to a listing.
type Specification struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Listing is the record-store row with its relations loaded. The search
// service only ever reads listings; the CRUD surface that writes them lives
// elsewhere.
type Listing struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Brand         string  `json:"brand"`
	Model         string  `json:"model"`
	Year          int     `json:"year"`
	Mileage       int     `json:"mileage"`
	FuelType      string  `json:"fuel_type"`
	Transmission  string  `json:"transmission"`
	Power         string  `json:"power"`
	EmissionClass string  `json:"emission_class"`
	Axles         int     `json:"axles"`
	Weight        float64 `json:"weight"`
	Color         string  `json:"color"`
	VIN           string  `json:"vin"`

	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Condition  string  `json:"condition"`
	Status     string  `json:"status"`
	IsFeatured bool    `json:"is_featured"`
	Views      int     `json:"views"`

	City      string   `json:"city"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	CategoryID string    `json:"category_id"`
	Category   *Category `json:"category,omitempty"`
	SellerID   string    `json:"seller_id"`
	Seller     *Seller   `json:"seller,omitempty"`

	Images         []Image         `json:"images,omitempty"`
	Specifications []Specification `json:"specifications,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEligible reports whether the listing should be present in the search
// index. Listings leave the index the moment they transition out of the
// active status.
func (l *Listing) IsEligible() bool {
	return l.Status == StatusActive
}
