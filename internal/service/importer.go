package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"vacancy_syncer/internal/config"
	"vacancy_syncer/internal/domain"
)

// ImportDeps groups the collaborators of ImportService. Publisher, Locker and
// Recorder are optional.
type ImportDeps struct {
	Sources   SourceStore
	Runs      RunStore
	Listings  ListingStore
	Companies CompanyStore
	Feed      FeedClient
	TxManager TransactionManager
	Publisher Publisher
	Locker    Locker
	Recorder  Recorder
	Clock     Clock
	Logger    *slog.Logger
}

// ImportService drives the synchronization of one or all enabled sources.
type ImportService struct {
	sources     SourceStore
	runs        RunStore
	feed        FeedClient
	companies   CompanyStore
	reconciler  *Reconciler
	sweeper     *RetentionSweeper
	locker      Locker
	recorder    Recorder
	clock       Clock
	homeCountry string
	logger      *slog.Logger
}

func NewImportService(deps ImportDeps, feedCfg config.FeedConfig, syncCfg config.SyncConfig) *ImportService {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := deps.Logger.With("component", "importer")

	return &ImportService{
		sources:   deps.Sources,
		runs:      deps.Runs,
		feed:      deps.Feed,
		companies: deps.Companies,
		reconciler: NewReconciler(
			deps.Feed,
			deps.Listings,
			deps.TxManager,
			deps.Publisher,
			clock,
			feedCfg.ExternalSource,
			syncCfg.CutoffMonths,
			deps.Logger,
		),
		sweeper:     NewRetentionSweeper(deps.Listings, deps.Publisher, clock, syncCfg.Retention(), deps.Logger),
		locker:      deps.Locker,
		recorder:    deps.Recorder,
		clock:       clock,
		homeCountry: feedCfg.HomeCountry,
		logger:      logger,
	}
}

// Run synchronizes the source with the given id, or every enabled source when
// sourceID is empty. It returns domain.ErrNoEnabledSources when nothing
// matched. Any other error means the source list itself could not be read.
func (s *ImportService) Run(ctx context.Context, sourceID string) ([]domain.RunSummary, error) {
	sources, err := s.targetSources(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, domain.ErrNoEnabledSources
	}

	s.logger.Info("starting import", "sources", len(sources))

	companies := NewCompanyResolver(s.companies, s.homeCountry, s.logger)
	summaries := make([]domain.RunSummary, 0, len(sources))

	for _, source := range sources {
		summaries = append(summaries, s.runSource(ctx, source, companies))
	}

	return summaries, nil
}

// Runs lists audit records, newest first.
func (s *ImportService) Runs(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (s *ImportService) targetSources(ctx context.Context, sourceID string) ([]domain.Source, error) {
	if sourceID == "" {
		sources, err := s.sources.ListEnabled(ctx)
		if err != nil {
			return nil, fmt.Errorf("list enabled sources: %w", err)
		}
		return sources, nil
	}

	source, err := s.sources.GetEnabled(ctx, sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", sourceID, err)
	}
	return []domain.Source{*source}, nil
}

func (s *ImportService) runSource(ctx context.Context, source domain.Source, companies *CompanyResolver) domain.RunSummary {
	logger := s.logger.With("source", source.ID)
	summary := domain.RunSummary{
		SourceID:   source.ID,
		SourceName: source.Name,
	}

	var leaseErr error
	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, source.ID)
		if errors.Is(err, domain.ErrSourceLocked) {
			logger.Warn("source already being synchronized, skipping")
			summary.Status = domain.RunStatusSkipped
			msg := err.Error()
			summary.Error = &msg
			return summary
		}
		if err != nil {
			leaseErr = fmt.Errorf("acquire lease: %w", err)
		} else {
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("release lease failed", "error", err)
				}
			}()
		}
	}

	started := s.clock.Now()
	run := &domain.Run{
		ID:        uuid.NewString(),
		SourceID:  source.ID,
		StartedAt: started,
		Status:    domain.RunStatusRunning,
	}
	summary.RunID = run.ID

	if err := s.runs.Create(ctx, run); err != nil {
		// without a run row there is nothing to finalize; report and move on
		logger.Error("open run failed", "error", err)
		summary.Status = domain.RunStatusFailed
		msg := fmt.Sprintf("open run: %v", err)
		summary.Error = &msg
		summary.RunID = ""
		return summary
	}

	logger.Info("run started", "run_id", run.ID, "source_name", source.Name)

	var (
		tally domain.Tally
		err   = leaseErr
	)
	if err == nil {
		tally, err = s.pipeline(ctx, source, companies)
	}

	finished := s.clock.Now()
	run.FinishedAt = &finished
	run.ItemsFound = tally.Found
	run.ItemsCreated = tally.Created
	run.ItemsUpdated = tally.Updated
	run.ItemsClosed = tally.Closed
	run.ItemsDeleted = tally.Deleted

	if err != nil {
		run.Status = domain.RunStatusFailed
		msg := err.Error()
		run.ErrorMessage = &msg
		summary.Error = &msg
		logger.Error("run failed", "run_id", run.ID, "error", err)
	} else {
		run.Status = domain.RunStatusSuccess
		logger.Info("run completed",
			"run_id", run.ID,
			"found", tally.Found,
			"created", tally.Created,
			"updated", tally.Updated,
			"closed", tally.Closed,
			"deleted", tally.Deleted,
			"duration", finished.Sub(started),
		)
	}

	if finishErr := s.runs.Finish(context.WithoutCancel(ctx), run); finishErr != nil {
		logger.Error("finalize run failed", "run_id", run.ID, "error", finishErr)
	}

	if s.recorder != nil {
		s.recorder.ObserveRun(source.ID, run.Status, tally, finished.Sub(started))
	}

	summary.Status = run.Status
	summary.ItemsFound = run.ItemsFound
	summary.ItemsCreated = run.ItemsCreated
	summary.ItemsUpdated = run.ItemsUpdated
	summary.ItemsClosed = run.ItemsClosed

	return summary
}

func (s *ImportService) pipeline(ctx context.Context, source domain.Source, companies *CompanyResolver) (tally domain.Tally, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during sync: %v", p)
		}
	}()

	items, err := s.feed.Search(ctx, source)
	if err != nil {
		return tally, fmt.Errorf("fetch feed: %w", err)
	}

	tally, err = s.reconciler.Reconcile(ctx, source, items, companies)
	if err != nil {
		return tally, err
	}

	deleted, err := s.sweeper.Sweep(ctx, source)
	if err != nil {
		return tally, err
	}
	tally.Deleted = deleted

	return tally, nil
}
