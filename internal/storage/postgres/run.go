package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"vacancy_syncer/internal/domain"
)

const defaultRunLimit = 50

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Create(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO import_runs (id, source_id, started_at, status)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, run.ID, run.SourceID, run.StartedAt, run.Status); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *RunStore) Finish(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE import_runs SET
			finished_at = $2,
			status = $3,
			items_found = $4,
			items_created = $5,
			items_updated = $6,
			items_closed = $7,
			items_deleted = $8,
			error_message = $9
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.FinishedAt,
		run.Status,
		run.ItemsFound,
		run.ItemsCreated,
		run.ItemsUpdated,
		run.ItemsClosed,
		run.ItemsDeleted,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns runs newest first, narrowed by the non-zero filter fields.
func (s *RunStore) List(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	var (
		conds []string
		args  []any
	)
	if filter.SourceID != "" {
		args = append(args, filter.SourceID)
		conds = append(conds, "source_id = $"+strconv.Itoa(len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		conds = append(conds, "started_at >= $"+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, source_id, started_at, finished_at, status, items_found, items_created,
		items_updated, items_closed, items_deleted, error_message
		FROM import_runs`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	args = append(args, limit)
	sb.WriteString(" ORDER BY started_at DESC LIMIT $" + strconv.Itoa(len(args)))

	var runs []domain.Run
	err := s.db.SelectContext(ctx, &runs, sb.String(), args...)
	if isInvalidText(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
