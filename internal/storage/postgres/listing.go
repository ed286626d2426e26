package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vacancy_syncer/internal/domain"
)

const listingColumns = `
	id, title, description, requirements, responsibilities, location,
	salary_min, salary_max, salary_currency, remote, contract_type, level,
	company_id, role_id, external_url, published_at, status, moderation_status,
	external_source, external_id, source_id, created_at, updated_at`

type ListingStore struct {
	db *sqlx.DB
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{db: db}
}

func (s *ListingStore) GetByKey(ctx context.Context, key domain.ListingKey) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE external_source = $1 AND source_id = $2 AND external_id = $3`

	var listing domain.Listing
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &listing, query,
		key.ExternalSource, key.SourceID, key.ExternalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s/%s: %w", key.SourceID, key.ExternalID, err)
	}
	return &listing, nil
}

func (s *ListingStore) Create(ctx context.Context, listing *domain.Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `) VALUES (
			:id, :title, :description, :requirements, :responsibilities, :location,
			:salary_min, :salary_max, :salary_currency, :remote, :contract_type, :level,
			:company_id, :role_id, :external_url, :published_at, :status, :moderation_status,
			:external_source, :external_id, :source_id, :created_at, :updated_at
		)`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, listing)
	if isUniqueViolation(err) {
		return fmt.Errorf("listing %s/%s: %w", listing.SourceID, listing.ExternalID, domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (s *ListingStore) Update(ctx context.Context, listing *domain.Listing) error {
	query := `
		UPDATE listings SET
			title = :title,
			description = :description,
			requirements = :requirements,
			responsibilities = :responsibilities,
			location = :location,
			salary_min = :salary_min,
			salary_max = :salary_max,
			salary_currency = :salary_currency,
			remote = :remote,
			contract_type = :contract_type,
			level = :level,
			company_id = :company_id,
			role_id = :role_id,
			external_url = :external_url,
			published_at = :published_at,
			status = :status,
			moderation_status = :moderation_status,
			updated_at = :updated_at
		WHERE id = :id`

	return s.exec(ctx, query, listing)
}

func (s *ListingStore) UpdateContent(ctx context.Context, listing *domain.Listing) error {
	query := `
		UPDATE listings SET
			title = :title,
			description = :description,
			requirements = :requirements,
			responsibilities = :responsibilities,
			location = :location,
			salary_min = :salary_min,
			salary_max = :salary_max,
			salary_currency = :salary_currency,
			remote = :remote,
			contract_type = :contract_type,
			level = :level,
			company_id = :company_id,
			role_id = :role_id,
			external_url = :external_url,
			published_at = :published_at,
			updated_at = :updated_at
		WHERE id = :id`

	return s.exec(ctx, query, listing)
}

func (s *ListingStore) exec(ctx context.Context, query string, listing *domain.Listing) error {
	res, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, listing)
	if err != nil {
		return fmt.Errorf("update listing %s: %w", listing.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update listing %s: %w", listing.ID, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CloseMissing closes every open, non-rejected listing of the source whose
// external id is not in seen, and returns what it closed.
func (s *ListingStore) CloseMissing(
	ctx context.Context,
	sourceID, externalSource string,
	seen []string,
	now time.Time,
) ([]domain.ClosedListing, error) {
	if seen == nil {
		// a NULL array would match nothing and close nothing
		seen = []string{}
	}

	query := `
		UPDATE listings
		SET status = 'closed', updated_at = $4
		WHERE source_id = $1
			AND external_source = $2
			AND status <> 'closed'
			AND moderation_status <> 'rejected'
			AND NOT (external_id = ANY($3))
		RETURNING id, external_id`

	var closed []domain.ClosedListing
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &closed, query,
		sourceID, externalSource, pq.Array(seen), now)
	if err != nil {
		return nil, fmt.Errorf("close missing listings: %w", err)
	}
	return closed, nil
}

func (s *ListingStore) DeleteClosedBefore(ctx context.Context, sourceID string, before time.Time) ([]string, error) {
	query := `
		DELETE FROM listings
		WHERE source_id = $1 AND status = 'closed' AND updated_at < $2
		RETURNING id`

	var ids []string
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &ids, query, sourceID, before); err != nil {
		return nil, fmt.Errorf("delete closed listings: %w", err)
	}
	return ids, nil
}
