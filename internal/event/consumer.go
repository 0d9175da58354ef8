// Package event maps marketplace domain events onto index synchronization.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/service"
	pkgkafka "github.com/abdulsami0103-cmd/MenonTrucks/pkg/kafka"
)

// Kafka topics consumed by the search service.
const (
	TopicListingCreated  = "menontrucks.listing.created"
	TopicListingUpdated  = "menontrucks.listing.updated"
	TopicListingDeleted  = "menontrucks.listing.deleted"
	TopicSellerUpdated   = "menontrucks.seller.updated"
	TopicCategoryUpdated = "menontrucks.category.updated"
)

// Topics returns every topic the search service subscribes to.
func Topics() []string {
	return []string{
		TopicListingCreated,
		TopicListingUpdated,
		TopicListingDeleted,
		TopicSellerUpdated,
		TopicCategoryUpdated,
	}
}

// ListingEventData is the payload of listing domain events. Events carry only
// identity; the handler re-reads the row so stale payloads cannot poison the
// index.
type ListingEventData struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	CategoryID string `json:"category_id"`
	SellerID   string `json:"seller_id"`
	Status     string `json:"status"`
}

// SellerEventData is the payload of seller domain events.
type SellerEventData struct {
	ID string `json:"id"`
}

// ListingSynchronizer is the sync surface the consumer drives. Satisfied by
// service.SyncService.
type ListingSynchronizer interface {
	OnListingWritten(ctx context.Context, change service.ListingChange) error
	OnSellerUpdated(ctx context.Context, sellerID string)
	OnCategoryUpdated(ctx context.Context)
}

// Consumer handles marketplace events that affect the search index.
type Consumer struct {
	sync   ListingSynchronizer
	logger *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(sync ListingSynchronizer, logger *slog.Logger) *Consumer {
	return &Consumer{
		sync:   sync,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicListingCreated:
		return c.handleListingWritten(ctx, event, service.ChangeCreated)
	case TopicListingUpdated:
		return c.handleListingWritten(ctx, event, service.ChangeUpdated)
	case TopicListingDeleted:
		return c.handleListingWritten(ctx, event, service.ChangeDeleted)
	case TopicSellerUpdated:
		return c.handleSellerUpdated(ctx, event)
	case TopicCategoryUpdated:
		c.sync.OnCategoryUpdated(ctx)
		return nil
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleListingWritten forwards a listing write to the sync service.
func (c *Consumer) handleListingWritten(ctx context.Context, event *pkgkafka.Event, kind string) error {
	var data ListingEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal listing.%s payload: %w", kind, err)
	}

	if data.ID == "" {
		c.logger.WarnContext(ctx, "listing event without id, skipping",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	change := service.ListingChange{
		ListingID:  data.ID,
		Kind:       kind,
		Slug:       data.Slug,
		CategoryID: data.CategoryID,
		SellerID:   data.SellerID,
	}

	if err := c.sync.OnListingWritten(ctx, change); err != nil {
		return fmt.Errorf("sync listing from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "listing event processed",
		slog.String("listing_id", data.ID),
		slog.String("event_type", event.EventType),
	)

	return nil
}

// handleSellerUpdated invalidates the seller's cached profile.
func (c *Consumer) handleSellerUpdated(ctx context.Context, event *pkgkafka.Event) error {
	var data SellerEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal seller.updated payload: %w", err)
	}

	if data.ID == "" {
		c.logger.WarnContext(ctx, "seller event without id, skipping",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	c.sync.OnSellerUpdated(ctx, data.ID)
	return nil
}
