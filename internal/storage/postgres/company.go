package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vacancy_syncer/internal/domain"
)

type CompanyStore struct {
	db *sqlx.DB
}

func NewCompanyStore(db *sqlx.DB) *CompanyStore {
	return &CompanyStore{db: db}
}

func (s *CompanyStore) GetByName(ctx context.Context, name string) (*domain.Company, error) {
	query := `
		SELECT id, name, logo_url, country, owner_user_id, created_at
		FROM companies
		WHERE name = $1`

	var company domain.Company
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &company, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company %q: %w", name, err)
	}
	return &company, nil
}

// Create inserts the company and returns domain.ErrDuplicate when the name is
// taken. A name conflict inserts nothing instead of raising, so an enclosing
// transaction stays usable for the follow-up lookup.
func (s *CompanyStore) Create(ctx context.Context, company *domain.Company) error {
	query := `
		INSERT INTO companies (id, name, logo_url, country, owner_user_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING
		RETURNING created_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		company.ID,
		company.Name,
		company.LogoURL,
		company.Country,
		company.OwnerUserID,
	).Scan(&company.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return fmt.Errorf("company %q: %w", company.Name, domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}
