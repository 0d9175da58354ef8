// Package main implements a standalone seed script that populates the
// MenonTrucks marketplace with realistic listing data: categories, sellers,
// and active listings with images and specifications, inserted via direct
// SQL. After seeding, trigger a reindex on the search service to make the
// listings searchable:
//
//	curl -X POST http://localhost:8010/api/v1/search/reindex
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("POSTGRES_USER", "menon"),
		getEnv("POSTGRES_PASSWORD", "menon_secret"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("POSTGRES_DB", "menontrucks"),
	)
}

type category struct {
	id   string
	name string
	slug string
}

type seller struct {
	id      string
	name    string
	company string
	country string
	city    string
}

var categories = []category{
	{newUUID(), "Tractor Units", "tractor-units"},
	{newUUID(), "Trailers", "trailers"},
	{newUUID(), "Construction Machinery", "construction-machinery"},
	{newUUID(), "Forklifts", "forklifts"},
	{newUUID(), "Vans", "vans"},
}

var sellers = []seller{
	{newUUID(), "Hans Mueller", "Mueller Trucks GmbH", "Germany", "Berlin"},
	{newUUID(), "Eva Kovacs", "Kovacs Kft", "Hungary", "Budapest"},
	{newUUID(), "Jan de Vries", "De Vries Trucks BV", "Netherlands", "Rotterdam"},
	{newUUID(), "Marek Nowak", "Nowak Transport Sp. z o.o.", "Poland", "Warsaw"},
	{newUUID(), "Luca Rossi", "Rossi Veicoli SRL", "Italy", "Milan"},
}

var brandModels = map[string][]string{
	"Volvo":         {"FH 460", "FH 500", "FM 420", "FMX 460"},
	"Scania":        {"R450", "R500", "S580", "G410"},
	"MAN":           {"TGX 18.480", "TGS 26.440", "TGL 12.220"},
	"Mercedes-Benz": {"Actros 1845", "Actros 1851", "Arocs 3245"},
	"DAF":           {"XF 480", "XG+ 530", "CF 450"},
	"Iveco":         {"S-Way 490", "Stralis 460", "Daily 35S16"},
}

var conditions = []string{"new", "used", "used", "used", "refurbished"}
var fuelTypes = []string{"diesel", "diesel", "diesel", "electric", "lng"}
var transmissions = []string{"automatic", "automatic", "manual", "semi-automatic"}
var emissionClasses = []string{"Euro 6", "Euro 6", "Euro 5", "Euro 4"}
var colors = []string{"white", "red", "blue", "silver", "green"}

func main() {
	count := 500
	if v := os.Getenv("SEED_LISTINGS"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &count); err != nil {
			log.Fatalf("invalid SEED_LISTINGS: %v", err)
		}
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn())
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}

	if err := seedCategories(ctx, pool); err != nil {
		log.Fatalf("seed categories: %v", err)
	}
	if err := seedSellers(ctx, pool); err != nil {
		log.Fatalf("seed sellers: %v", err)
	}
	if err := seedListings(ctx, pool, count); err != nil {
		log.Fatalf("seed listings: %v", err)
	}

	log.Printf("seeded %d categories, %d sellers, %d listings", len(categories), len(sellers), count)
}

func seedCategories(ctx context.Context, pool *pgxpool.Pool) error {
	for _, c := range categories {
		_, err := pool.Exec(ctx, `
			INSERT INTO categories (id, name, slug)
			VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO NOTHING`,
			c.id, c.name, c.slug,
		)
		if err != nil {
			return fmt.Errorf("insert category %s: %w", c.slug, err)
		}
	}
	return nil
}

func seedSellers(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range sellers {
		_, err := pool.Exec(ctx, `
			INSERT INTO sellers (id, name, company_name, country, city)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			s.id, s.name, s.company, s.country, s.city,
		)
		if err != nil {
			return fmt.Errorf("insert seller %s: %w", s.company, err)
		}
	}
	return nil
}

func seedListings(ctx context.Context, pool *pgxpool.Pool, count int) error {
	brands := make([]string, 0, len(brandModels))
	for b := range brandModels {
		brands = append(brands, b)
	}

	batch := &pgx.Batch{}
	for i := 0; i < count; i++ {
		brand := brands[rand.Intn(len(brands))]
		model := brandModels[brand][rand.Intn(len(brandModels[brand]))]
		cat := categories[rand.Intn(len(categories))]
		sel := sellers[rand.Intn(len(sellers))]
		year := 2008 + rand.Intn(18)
		price := float64(15000 + rand.Intn(150000))
		mileage := 50000 + rand.Intn(900000)

		id := newUUID()
		title := fmt.Sprintf("%s %s %s", brand, model, cat.name)
		slug := fmt.Sprintf("%s-%d", slugify(title), i)

		batch.Queue(`
			INSERT INTO listings (
				id, slug, title, description,
				brand, model, year, mileage, fuel_type, transmission,
				power, emission_class, axles, weight, color, vin,
				price, currency, condition, status, is_featured, views,
				city, country, category_id, seller_id, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
				$21, $22, $23, $24, $25, $26, $27, $28
			) ON CONFLICT (slug) DO NOTHING`,
			id, slug, title, fmt.Sprintf("Well maintained %s %s, full service history.", brand, model),
			brand, model, year, mileage, pick(fuelTypes), pick(transmissions),
			fmt.Sprintf("%d hp", 220+rand.Intn(400)), pick(emissionClasses), 2+rand.Intn(3),
			float64(7500+rand.Intn(26000)), pick(colors), fmt.Sprintf("VIN%012d", rand.Int63n(1e12)),
			price, "EUR", pick(conditions), "active", rand.Intn(10) == 0, rand.Intn(500),
			sel.city, sel.country, cat.id, sel.id,
			time.Now().Add(-time.Duration(rand.Intn(365*24))*time.Hour), time.Now(),
		)

		batch.Queue(`
			INSERT INTO listing_images (id, listing_id, url, thumbnail_url, position)
			VALUES ($1, $2, $3, $4, 0)
			ON CONFLICT (id) DO NOTHING`,
			newUUID(), id,
			fmt.Sprintf("https://cdn.menontrucks.example/listings/%s/1.jpg", id),
			fmt.Sprintf("https://cdn.menontrucks.example/listings/%s/1_thumb.jpg", id),
		)

		batch.Queue(`
			INSERT INTO listing_specifications (id, listing_id, key, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING`,
			newUUID(), id, "cabin", pick([]string{"day cab", "sleeper", "Globetrotter XL", "Highline"}),
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert %d: %w", i, err)
		}
	}
	return nil
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "-", ".", "", "+", "plus").Replace(s)
	return s
}

// newUUID generates a random UUID v4 string; not cryptographically secure,
// which is fine for seed data.
func newUUID() string {
	b := make([]byte, 16)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
