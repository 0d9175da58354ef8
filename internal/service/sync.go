package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/cache"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/domain"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/repository"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/transform"
	apperrors "github.com/abdulsami0103-cmd/MenonTrucks/pkg/errors"
	pkgkafka "github.com/abdulsami0103-cmd/MenonTrucks/pkg/kafka"
)

// reindexBatchSize is the page size of the bulk reindex loop.
const reindexBatchSize = 500

// Change kinds for listing write events.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// ListingChange describes a committed listing write. Slug and CategoryID are
// the last-known values carried by the event; on delete the row is gone, so
// they are the only way to target the right cache entries.
type ListingChange struct {
	ListingID  string
	Kind       string
	Slug       string
	CategoryID string
	SellerID   string
}

// ReindexSummary reports the outcome of a full reindex.
type ReindexSummary struct {
	TotalProcessed int `json:"total_processed"`
	BatchFailures  int `json:"batch_failures"`
}

// EventPublisher publishes domain events. Satisfied by pkg/kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// SyncService keeps the search index consistent with the record store. Every
// create/update rebuilds the full document from current state, so replays and
// out-of-order delivery converge on the same result.
type SyncService struct {
	store     repository.ListingStore
	engine    engine.SearchEngine
	cache     *cache.Cache
	publisher EventPublisher
	logger    *slog.Logger
}

// NewSyncService creates a new sync service. The publisher may be nil, in
// which case reindex completion events are not emitted.
func NewSyncService(
	store repository.ListingStore,
	eng engine.SearchEngine,
	c *cache.Cache,
	publisher EventPublisher,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		store:     store,
		engine:    eng,
		cache:     c,
		publisher: publisher,
		logger:    logger,
	}
}

// OnListingWritten is the sole trigger for index synchronization; the CRUD
// layer calls it (via events) after committing a write.
func (s *SyncService) OnListingWritten(ctx context.Context, change ListingChange) error {
	if change.ListingID == "" {
		return apperrors.InvalidInput("listing id is required")
	}

	switch change.Kind {
	case ChangeDeleted:
		return s.remove(ctx, change.ListingID, change.Slug, change.CategoryID)
	case ChangeCreated, ChangeUpdated:
		return s.upsert(ctx, change)
	default:
		return apperrors.InvalidInput(fmt.Sprintf("unknown change kind %q", change.Kind))
	}
}

// upsert fetches the current row and rebuilds the document in full. A listing
// that vanished or became ineligible between enqueue and processing is
// removed from the index instead.
func (s *SyncService) upsert(ctx context.Context, change ListingChange) error {
	listing, err := s.store.GetListingWithRelations(ctx, change.ListingID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "listing gone before sync, removing from index",
				slog.String("listing_id", change.ListingID),
			)
			return s.remove(ctx, change.ListingID, change.Slug, change.CategoryID)
		}
		return fmt.Errorf("sync listing %s: %w", change.ListingID, err)
	}

	if !listing.IsEligible() {
		s.logger.InfoContext(ctx, "listing ineligible, removing from index",
			slog.String("listing_id", listing.ID),
			slog.String("status", listing.Status),
		)
		return s.remove(ctx, listing.ID, listing.Slug, listing.CategoryID)
	}

	doc, err := transform.ToDocument(listing)
	if err != nil {
		return fmt.Errorf("transform listing %s: %w", listing.ID, err)
	}

	if err := s.engine.Index(ctx, doc); err != nil {
		return fmt.Errorf("index listing %s: %w", listing.ID, err)
	}

	s.cache.InvalidateListing(ctx, listing.ID, listing.Slug, listing.CategoryID)

	s.logger.InfoContext(ctx, "listing synced to index",
		slog.String("listing_id", listing.ID),
		slog.String("kind", change.Kind),
	)
	return nil
}

// remove deletes the document and invalidates affected caches using the
// last-known slug and category.
func (s *SyncService) remove(ctx context.Context, id, slug, categoryID string) error {
	if err := s.engine.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete listing %s from index: %w", id, err)
	}

	s.cache.InvalidateListing(ctx, id, slug, categoryID)

	s.logger.InfoContext(ctx, "listing removed from index",
		slog.String("listing_id", id),
	)
	return nil
}

// BumpViews patches the view counter without a full rebuild. The counter is
// the one field that never derives from relations, so a partial update cannot
// leave denormalized fields stale.
func (s *SyncService) BumpViews(ctx context.Context, id string, views int) error {
	if err := s.engine.Update(ctx, id, map[string]any{"views": views}); err != nil {
		return fmt.Errorf("bump views for %s: %w", id, err)
	}
	return nil
}

// OnSellerUpdated invalidates the seller's cached profile.
func (s *SyncService) OnSellerUpdated(ctx context.Context, sellerID string) {
	s.cache.InvalidateSeller(ctx, sellerID)
}

// OnCategoryUpdated invalidates the cached category taxonomy.
func (s *SyncService) OnCategoryUpdated(ctx context.Context) {
	s.cache.InvalidateCategoryList(ctx)
}

// ReindexAll rebuilds the entire index from the record store into a fresh
// concrete index and atomically swaps the alias. A failing batch is logged
// and skipped so one bad page cannot abort the run; coverage is the goal and
// failures surface in the summary. Cancellation is honored between pages,
// leaving committed work in place.
func (s *SyncService) ReindexAll(ctx context.Context) (*ReindexSummary, error) {
	start := time.Now()
	summary := &ReindexSummary{}

	index, err := s.engine.BeginRebuild(ctx)
	if err != nil {
		return summary, fmt.Errorf("begin rebuild: %w", err)
	}

	s.logger.InfoContext(ctx, "full reindex started", slog.String("index", index))

	offset := 0
	for {
		select {
		case <-ctx.Done():
			return summary, fmt.Errorf("reindex canceled after %d listings: %w", summary.TotalProcessed, ctx.Err())
		default:
		}

		listings, err := s.store.ListEligible(ctx, offset, reindexBatchSize)
		if err != nil {
			return summary, fmt.Errorf("list eligible listings at offset %d: %w", offset, err)
		}
		if len(listings) == 0 {
			break
		}

		docs := make([]domain.Document, 0, len(listings))
		for i := range listings {
			doc, err := transform.ToDocument(&listings[i])
			if err != nil {
				s.logger.WarnContext(ctx, "skipping malformed listing during reindex",
					slog.String("listing_id", listings[i].ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			docs = append(docs, *doc)
		}

		result, err := s.engine.BulkIndexInto(ctx, index, docs)
		if err != nil {
			summary.BatchFailures++
			s.logger.ErrorContext(ctx, "reindex batch failed, continuing with next page",
				slog.Int("offset", offset),
				slog.String("error", err.Error()),
			)
		} else {
			summary.TotalProcessed += result.Indexed
			for _, item := range result.Failed {
				s.logger.WarnContext(ctx, "listing failed to index during reindex",
					slog.String("listing_id", item.ID),
					slog.String("reason", item.Reason),
				)
			}
		}

		offset += reindexBatchSize
	}

	if err := s.engine.CommitRebuild(ctx, index); err != nil {
		return summary, fmt.Errorf("commit rebuild: %w", err)
	}

	// Every cached view may be stale after a full rebuild.
	s.cache.InvalidateAll(ctx)

	s.logger.InfoContext(ctx, "full reindex complete",
		slog.Int("total_processed", summary.TotalProcessed),
		slog.Int("batch_failures", summary.BatchFailures),
		slog.Duration("took", time.Since(start)),
	)

	s.publishReindexCompleted(ctx, index, summary)

	return summary, nil
}

// publishReindexCompleted emits a completion event for downstream consumers.
func (s *SyncService) publishReindexCompleted(ctx context.Context, index string, summary *ReindexSummary) {
	if s.publisher == nil {
		return
	}

	topic := pkgkafka.Topic("search", "reindex_completed")
	event, err := pkgkafka.NewEvent(topic, index, "search_index", "search-service", summary)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build reindex event", slog.String("error", err.Error()))
		return
	}

	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish reindex event", slog.String("error", err.Error()))
	}
}
