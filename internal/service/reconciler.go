package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vacancy_syncer/internal/domain"
	"vacancy_syncer/internal/mapper"
)

// Action is the reconciliation decision for one feed item.
type Action int

const (
	ActionSkipArchived Action = iota
	ActionSkipStale
	ActionSkipTerminal
	ActionUpdateContent
	ActionUpdate
	ActionCreate
	// ActionUnchanged is an update whose mapped fields already match the stored row.
	ActionUnchanged
)

func (a Action) String() string {
	switch a {
	case ActionSkipArchived:
		return "skip_archived"
	case ActionSkipStale:
		return "skip_stale"
	case ActionSkipTerminal:
		return "skip_terminal"
	case ActionUpdateContent:
		return "update_content"
	case ActionUpdate:
		return "update"
	case ActionCreate:
		return "create"
	case ActionUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Screen applies the filters that run before any lookup. It reports the skip
// action and true when the item must not be imported.
func Screen(item domain.ExternalItem, cutoff time.Time) (Action, bool) {
	if item.Archived {
		return ActionSkipArchived, true
	}
	if item.PublishedAt.Before(cutoff) {
		return ActionSkipStale, true
	}
	return 0, false
}

// Decide picks the write for an item given its stored counterpart, nil when unseen.
func Decide(existing *domain.Listing) Action {
	switch {
	case existing == nil:
		return ActionCreate
	case existing.IsTerminal():
		return ActionSkipTerminal
	case existing.ModerationStatus == domain.ModerationPublished:
		return ActionUpdateContent
	default:
		return ActionUpdate
	}
}

// Reconciler turns a feed pull into listing writes for one source.
type Reconciler struct {
	feed           FeedClient
	listings       ListingStore
	txManager      TransactionManager
	publisher      Publisher
	clock          Clock
	externalSource string
	cutoffMonths   int
	logger         *slog.Logger
}

func NewReconciler(
	feed FeedClient,
	listings ListingStore,
	txManager TransactionManager,
	publisher Publisher,
	clock Clock,
	externalSource string,
	cutoffMonths int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		feed:           feed,
		listings:       listings,
		txManager:      txManager,
		publisher:      publisher,
		clock:          clock,
		externalSource: externalSource,
		cutoffMonths:   cutoffMonths,
		logger:         logger.With("component", "reconciler"),
	}
}

// Reconcile processes every item of a pull and then closes listings that
// disappeared from it. Item failures are logged and skipped; only the closing
// pass can fail the whole call.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	source domain.Source,
	items []domain.ExternalItem,
	companies *CompanyResolver,
) (domain.Tally, error) {
	logger := r.logger.With("source", source.ID)
	now := r.clock.Now()
	cutoff := now.AddDate(0, -r.cutoffMonths, 0)

	tally := domain.Tally{Found: len(items)}
	seen := make([]string, 0, len(items))

	for _, item := range items {
		if !item.Archived {
			seen = append(seen, item.ID)
		}

		action, err := r.reconcileItem(ctx, source, item, cutoff, companies)
		if err != nil {
			logger.Warn("item skipped",
				"external_id", item.ID,
				"action", action.String(),
				"error", err,
			)
			continue
		}

		switch action {
		case ActionCreate:
			tally.Created++
		case ActionUpdate, ActionUpdateContent:
			tally.Updated++
		}
	}

	closed, err := r.closeMissing(ctx, source, seen)
	if err != nil {
		return tally, err
	}
	tally.Closed = closed

	return tally, nil
}

// errUnchanged aborts the write transaction of an update with nothing to write.
var errUnchanged = errors.New("unchanged")

func (r *Reconciler) reconcileItem(
	ctx context.Context,
	source domain.Source,
	item domain.ExternalItem,
	cutoff time.Time,
	companies *CompanyResolver,
) (Action, error) {
	if action, skip := Screen(item, cutoff); skip {
		return action, nil
	}

	key := domain.ListingKey{
		ExternalSource: r.externalSource,
		SourceID:       source.ID,
		ExternalID:     item.ID,
	}

	existing, err := r.listings.GetByKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		existing, err = nil, nil
	}
	if err != nil {
		return ActionCreate, fmt.Errorf("lookup listing: %w", err)
	}

	action := Decide(existing)
	if action == ActionSkipTerminal {
		return action, nil
	}

	r.logUnmapped(source, item)
	detail := r.fetchDetail(ctx, source, item)

	var written *domain.Listing
	err = r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		companyID, err := companies.Resolve(txCtx, source, item.EmployerName, item.EmployerLogoURL)
		if err != nil {
			return err
		}

		desired := BuildListing(source, item, detail, companyID, r.externalSource)
		if existing != nil {
			keepStored(desired, existing, detail != nil)
		}
		if err := r.write(txCtx, action, existing, desired); err != nil {
			return err
		}
		written = desired
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return ActionUnchanged, nil
	}
	if err != nil {
		companies.Forget(item.EmployerName)
		return action, err
	}

	if action == ActionCreate {
		r.publish(ctx, domain.ListingCreated, written)
	} else {
		r.publish(ctx, domain.ListingUpdated, written)
	}

	return action, nil
}

func (r *Reconciler) write(ctx context.Context, action Action, existing, desired *domain.Listing) error {
	now := r.clock.Now()

	switch action {
	case ActionCreate:
		desired.ID = uuid.NewString()
		desired.CreatedAt = now
		desired.UpdatedAt = now
		if err := r.listings.Create(ctx, desired); err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		return nil

	case ActionUpdateContent:
		desired.Status = existing.Status
		desired.ModerationStatus = existing.ModerationStatus
		if desired.ContentEqual(existing) {
			return errUnchanged
		}
		desired.ID = existing.ID
		desired.CreatedAt = existing.CreatedAt
		desired.UpdatedAt = now
		if err := r.listings.UpdateContent(ctx, desired); err != nil {
			return fmt.Errorf("update listing content: %w", err)
		}
		return nil

	case ActionUpdate:
		if desired.ContentEqual(existing) &&
			desired.Status == existing.Status &&
			desired.ModerationStatus == existing.ModerationStatus {
			return errUnchanged
		}
		desired.ID = existing.ID
		desired.CreatedAt = existing.CreatedAt
		desired.UpdatedAt = now
		if err := r.listings.Update(ctx, desired); err != nil {
			return fmt.Errorf("update listing: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("no write for action %s", action)
	}
}

// fetchDetail returns nil when the detail call fails; the listing then falls
// back to the search snippet.
func (r *Reconciler) fetchDetail(ctx context.Context, source domain.Source, item domain.ExternalItem) *domain.ExternalDetail {
	detail, err := r.feed.Detail(ctx, item.ID)
	if err != nil {
		r.logger.Warn("detail fetch failed, using snippet",
			"source", source.ID,
			"external_id", item.ID,
			"error", err,
		)
		return nil
	}
	return detail
}

func (r *Reconciler) logUnmapped(source domain.Source, item domain.ExternalItem) {
	if _, ok := mapper.Level(item.ExperienceID); !ok && item.ExperienceID != "" {
		r.logger.Debug("unmapped experience, storing unknown level",
			"source", source.ID, "external_id", item.ID, "experience", item.ExperienceID)
	}
	if _, ok := mapper.ContractType(item.EmploymentID); !ok && item.EmploymentID != "" {
		r.logger.Debug("unmapped employment, storing unknown contract type",
			"source", source.ID, "external_id", item.ID, "employment", item.EmploymentID)
	}
}

func (r *Reconciler) closeMissing(ctx context.Context, source domain.Source, seen []string) (int, error) {
	closed, err := r.listings.CloseMissing(ctx, source.ID, r.externalSource, seen, r.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("close missing listings: %w", err)
	}

	for _, c := range closed {
		r.publishEvent(ctx, domain.ListingEvent{
			Action:     domain.ListingClosed,
			ListingID:  c.ID,
			SourceID:   source.ID,
			ExternalID: c.ExternalID,
			Status:     domain.ListingStatusClosed,
		})
	}

	if len(closed) > 0 {
		r.logger.Info("closed listings missing from feed", "source", source.ID, "count", len(closed))
	}

	return len(closed), nil
}

func (r *Reconciler) publish(ctx context.Context, action domain.ListingAction, l *domain.Listing) {
	r.publishEvent(ctx, domain.ListingEvent{
		Action:           action,
		ListingID:        l.ID,
		SourceID:         l.SourceID,
		ExternalID:       l.ExternalID,
		Status:           l.Status,
		ModerationStatus: l.ModerationStatus,
	})
}

func (r *Reconciler) publishEvent(ctx context.Context, event domain.ListingEvent) {
	if r.publisher == nil {
		return
	}
	event.Timestamp = r.clock.Now()
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("publish listing event failed",
			"listing_id", event.ListingID,
			"action", event.Action,
			"error", err,
		)
	}
}

// BuildListing maps a feed item onto a listing with the lifecycle the source's
// moderation mode assigns. detail may be nil.
func BuildListing(
	source domain.Source,
	item domain.ExternalItem,
	detail *domain.ExternalDetail,
	companyID string,
	externalSource string,
) *domain.Listing {
	level, _ := mapper.Level(item.ExperienceID)
	contract, _ := mapper.ContractType(item.EmploymentID)
	status, moderation := domain.Lifecycle(source.ModerationMode)

	listing := &domain.Listing{
		Title:            item.Title,
		Requirements:     item.SnippetRequirement,
		Location:         item.Area,
		SalaryMin:        item.SalaryFrom,
		SalaryMax:        item.SalaryTo,
		Remote:           mapper.Remote(item.ScheduleID),
		ContractType:     contract,
		Level:            level,
		CompanyID:        companyID,
		RoleID:           source.RoleID,
		ExternalURL:      item.URL,
		PublishedAt:      item.PublishedAt,
		Status:           status,
		ModerationStatus: moderation,
		ExternalSource:   externalSource,
		ExternalID:       item.ID,
		SourceID:         source.ID,
	}

	if item.SalaryCurrency != "" {
		currency := item.SalaryCurrency
		listing.SalaryCurrency = &currency
	}

	if detail != nil {
		listing.Description = detail.Description
		listing.Responsibilities = strings.Join(detail.KeySkills, ", ")
	} else {
		listing.Description = item.SnippetResponsibility
	}

	return listing
}

// keepStored preserves stored text the current pull could not supply. A
// failed detail call leaves only the snippet in place of the description, and
// an empty skill list leaves responsibilities blank; neither should erase what
// an earlier pull wrote. Requirements always come from the snippet.
func keepStored(desired, existing *domain.Listing, haveDetail bool) {
	if !haveDetail && existing.Description != "" {
		desired.Description = existing.Description
	}
	if desired.Responsibilities == "" {
		desired.Responsibilities = existing.Responsibilities
	}
}
