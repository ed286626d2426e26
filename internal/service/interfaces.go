package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"vacancy_syncer/internal/domain"
)

type SourceStore interface {
	ListEnabled(ctx context.Context) ([]domain.Source, error)
	// GetEnabled returns domain.ErrNotFound when the source is absent or disabled.
	GetEnabled(ctx context.Context, id string) (*domain.Source, error)
}

type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Finish(ctx context.Context, run *domain.Run) error
	List(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error)
}

type ListingStore interface {
	// GetByKey returns domain.ErrNotFound when no listing carries the key.
	GetByKey(ctx context.Context, key domain.ListingKey) (*domain.Listing, error)
	Create(ctx context.Context, listing *domain.Listing) error
	Update(ctx context.Context, listing *domain.Listing) error
	// UpdateContent writes everything except status and moderation_status.
	UpdateContent(ctx context.Context, listing *domain.Listing) error
	CloseMissing(ctx context.Context, sourceID, externalSource string, seen []string, now time.Time) ([]domain.ClosedListing, error)
	DeleteClosedBefore(ctx context.Context, sourceID string, before time.Time) ([]string, error)
}

type CompanyStore interface {
	// GetByName returns domain.ErrNotFound when no company has exactly this name.
	GetByName(ctx context.Context, name string) (*domain.Company, error)
	// Create returns domain.ErrDuplicate when the name is already taken.
	Create(ctx context.Context, company *domain.Company) error
}

type FeedClient interface {
	Search(ctx context.Context, source domain.Source) ([]domain.ExternalItem, error)
	Detail(ctx context.Context, externalID string) (*domain.ExternalDetail, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event domain.ListingEvent) error
}

// Locker hands out per-source leases. Acquire returns domain.ErrSourceLocked
// when another holder owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string) (domain.Lease, error)
}

type Recorder interface {
	ObserveRun(sourceID string, status domain.RunStatus, tally domain.Tally, elapsed time.Duration)
}

type Clock interface {
	Now() time.Time
}
