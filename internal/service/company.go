package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"vacancy_syncer/internal/domain"
)

// CompanyResolver maps feed employers to internal companies. One resolver
// serves one invocation so repeated employers hit the memo instead of racing
// to create duplicates.
type CompanyResolver struct {
	companies   CompanyStore
	homeCountry string
	logger      *slog.Logger

	mu   sync.Mutex
	memo map[string]string
}

func NewCompanyResolver(companies CompanyStore, homeCountry string, logger *slog.Logger) *CompanyResolver {
	return &CompanyResolver{
		companies:   companies,
		homeCountry: homeCountry,
		logger:      logger.With("component", "company_resolver"),
		memo:        make(map[string]string),
	}
}

// Resolve returns the company id a listing from this employer should carry.
func (r *CompanyResolver) Resolve(ctx context.Context, source domain.Source, employerName, logoURL string) (string, error) {
	if source.CompanyID != nil && *source.CompanyID != "" {
		return *source.CompanyID, nil
	}
	if employerName == "" {
		return "", fmt.Errorf("resolve company: employer name is empty")
	}

	if id, ok := r.cached(employerName); ok {
		return id, nil
	}

	existing, err := r.companies.GetByName(ctx, employerName)
	switch {
	case err == nil:
		r.remember(employerName, existing.ID)
		return existing.ID, nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("lookup company %q: %w", employerName, err)
	}

	company := &domain.Company{
		ID:      uuid.NewString(),
		Name:    employerName,
		Country: r.homeCountry,
	}
	if logoURL != "" {
		company.LogoURL = &logoURL
	}

	err = r.companies.Create(ctx, company)
	if errors.Is(err, domain.ErrDuplicate) {
		// lost a race with a concurrent creator
		winner, lookupErr := r.companies.GetByName(ctx, employerName)
		if lookupErr != nil {
			return "", fmt.Errorf("lookup company %q after conflict: %w", employerName, lookupErr)
		}
		r.remember(employerName, winner.ID)
		return winner.ID, nil
	}
	if err != nil {
		return "", fmt.Errorf("create company %q: %w", employerName, err)
	}

	r.logger.Info("created company", "company_id", company.ID, "name", employerName)
	r.remember(employerName, company.ID)
	return company.ID, nil
}

// Forget drops a memoized employer, used when the transaction that created it rolled back.
func (r *CompanyResolver) Forget(employerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.memo, employerName)
}

func (r *CompanyResolver) cached(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.memo[name]
	return id, ok
}

func (r *CompanyResolver) remember(name, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo[name] = id
}
