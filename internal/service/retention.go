package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vacancy_syncer/internal/domain"
)

// RetentionSweeper purges listings that have stayed closed past the retention window.
type RetentionSweeper struct {
	listings  ListingStore
	publisher Publisher
	clock     Clock
	retention time.Duration
	logger    *slog.Logger
}

func NewRetentionSweeper(
	listings ListingStore,
	publisher Publisher,
	clock Clock,
	retention time.Duration,
	logger *slog.Logger,
) *RetentionSweeper {
	return &RetentionSweeper{
		listings:  listings,
		publisher: publisher,
		clock:     clock,
		retention: retention,
		logger:    logger.With("component", "retention_sweeper"),
	}
}

// Sweep hard-deletes the source's closed listings last touched before now minus retention.
func (s *RetentionSweeper) Sweep(ctx context.Context, source domain.Source) (int, error) {
	now := s.clock.Now()
	before := now.Add(-s.retention)

	deleted, err := s.listings.DeleteClosedBefore(ctx, source.ID, before)
	if err != nil {
		return 0, fmt.Errorf("delete closed listings: %w", err)
	}

	if len(deleted) == 0 {
		return 0, nil
	}

	s.logger.Info("purged closed listings",
		"source", source.ID,
		"count", len(deleted),
		"before", before,
	)

	if s.publisher != nil {
		for _, id := range deleted {
			event := domain.ListingEvent{
				Action:    domain.ListingDeleted,
				ListingID: id,
				SourceID:  source.ID,
				Timestamp: now,
			}
			if err := s.publisher.Publish(ctx, event); err != nil {
				s.logger.Warn("publish listing event failed", "listing_id", id, "error", err)
			}
		}
	}

	return len(deleted), nil
}
