package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vacancy_syncer/internal/domain"
)

const sourceColumns = `
	id, name, type,
	COALESCE(employer_id, '') AS employer_id,
	COALESCE(search_text, '') AS search_text,
	COALESCE(search_field, '') AS search_field,
	COALESCE(area, '') AS area,
	COALESCE(professional_role, '') AS professional_role,
	COALESCE(schedule, '') AS schedule,
	moderation_mode, company_id, role_id, enabled`

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

func (s *SourceStore) ListEnabled(ctx context.Context) ([]domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE enabled ORDER BY created_at, id`

	var sources []domain.Source
	if err := s.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list enabled sources: %w", err)
	}
	return sources, nil
}

func (s *SourceStore) GetEnabled(ctx context.Context, id string) (*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1 AND enabled`

	var source domain.Source
	err := s.db.GetContext(ctx, &source, query, id)
	if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", id, err)
	}
	return &source, nil
}
