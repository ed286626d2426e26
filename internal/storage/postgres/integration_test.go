//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"vacancy_syncer/internal/domain"
	"vacancy_syncer/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB

	sourceID  string
	companyID string
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_sources.up.sql"),
			filepath.Join(migrationsPath, "002_create_companies.up.sql"),
			filepath.Join(migrationsPath, "003_create_listings.up.sql"),
			filepath.Join(migrationsPath, "004_create_import_runs.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM import_runs")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM listings")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sources")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM companies")

	s.companyID = uuid.NewString()
	s.Require().NoError(NewCompanyStore(s.db).Create(s.ctx, &domain.Company{
		ID:      s.companyID,
		Name:    "FC Spartak",
		Country: "RU",
	}))

	s.sourceID = s.insertSource("Spartak", true)
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertSource(name string, enabled bool) string {
	id := uuid.NewString()
	_, err := s.db.ExecContext(s.ctx, `
		INSERT INTO sources (id, name, type, employer_id, moderation_mode, enabled)
		VALUES ($1, $2, 'employer', '1234', 'draft_review', $3)`,
		id, name, enabled)
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) newListing(externalID string) *domain.Listing {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Listing{
		ID:               uuid.NewString(),
		Title:            "Coach " + externalID,
		Description:      "<p>desc</p>",
		Location:         "Moscow",
		SalaryMin:        utils.Ptr(int64(120000)),
		SalaryCurrency:   utils.Ptr("RUR"),
		ContractType:     domain.ContractFullTime,
		Level:            domain.LevelUnknown,
		CompanyID:        s.companyID,
		ExternalURL:      "https://hh.ru/vacancy/" + externalID,
		PublishedAt:      now.Add(-24 * time.Hour),
		Status:           domain.ListingStatusDraft,
		ModerationStatus: domain.ModerationDraft,
		ExternalSource:   "hh",
		ExternalID:       externalID,
		SourceID:         s.sourceID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *PostgresIntegrationSuite) TestListingStore_CreateAndGet() {
	store := NewListingStore(s.db)
	listing := s.newListing("100")

	s.Require().NoError(store.Create(s.ctx, listing))

	got, err := store.GetByKey(s.ctx, listing.Key())
	s.Require().NoError(err)
	s.Equal(listing.ID, got.ID)
	s.Equal(domain.LevelUnknown, got.Level)
	s.Equal(domain.ContractFullTime, got.ContractType)
	s.True(listing.ContentEqual(got))

	var level *string
	s.NoError(s.db.GetContext(s.ctx, &level, "SELECT level FROM listings WHERE id = $1", listing.ID))
	s.Nil(level)
}

func (s *PostgresIntegrationSuite) TestListingStore_Create_DuplicateKey() {
	store := NewListingStore(s.db)

	s.Require().NoError(store.Create(s.ctx, s.newListing("100")))
	err := store.Create(s.ctx, s.newListing("100"))

	s.ErrorIs(err, domain.ErrDuplicate)
}

func (s *PostgresIntegrationSuite) TestListingStore_UpdateContentKeepsLifecycle() {
	store := NewListingStore(s.db)
	listing := s.newListing("100")
	listing.Status = domain.ListingStatusPaused
	listing.ModerationStatus = domain.ModerationPublished
	s.Require().NoError(store.Create(s.ctx, listing))

	listing.Title = "Head Coach"
	listing.Status = domain.ListingStatusDraft
	listing.ModerationStatus = domain.ModerationDraft
	s.Require().NoError(store.UpdateContent(s.ctx, listing))

	got, err := store.GetByKey(s.ctx, listing.Key())
	s.Require().NoError(err)
	s.Equal("Head Coach", got.Title)
	s.Equal(domain.ListingStatusPaused, got.Status)
	s.Equal(domain.ModerationPublished, got.ModerationStatus)
}

func (s *PostgresIntegrationSuite) TestListingStore_CloseMissing() {
	store := NewListingStore(s.db)

	seen := s.newListing("1")
	missing := s.newListing("2")
	rejected := s.newListing("3")
	rejected.ModerationStatus = domain.ModerationRejected
	for _, l := range []*domain.Listing{seen, missing, rejected} {
		s.Require().NoError(store.Create(s.ctx, l))
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	closed, err := store.CloseMissing(s.ctx, s.sourceID, "hh", []string{"1"}, now)

	s.Require().NoError(err)
	s.Equal([]domain.ClosedListing{{ID: missing.ID, ExternalID: "2"}}, closed)

	got, err := store.GetByKey(s.ctx, missing.Key())
	s.Require().NoError(err)
	s.Equal(domain.ListingStatusClosed, got.Status)
	s.True(now.Equal(got.UpdatedAt))

	again, err := store.CloseMissing(s.ctx, s.sourceID, "hh", []string{"1"}, now)
	s.Require().NoError(err)
	s.Empty(again)

	all, err := store.CloseMissing(s.ctx, s.sourceID, "hh", nil, now)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *PostgresIntegrationSuite) TestListingStore_DeleteClosedBefore() {
	store := NewListingStore(s.db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	old := s.newListing("1")
	old.Status = domain.ListingStatusClosed
	old.UpdatedAt = now.AddDate(0, 0, -61)
	recent := s.newListing("2")
	recent.Status = domain.ListingStatusClosed
	recent.UpdatedAt = now.AddDate(0, 0, -59)
	for _, l := range []*domain.Listing{old, recent} {
		s.Require().NoError(store.Create(s.ctx, l))
	}

	ids, err := store.DeleteClosedBefore(s.ctx, s.sourceID, now.AddDate(0, 0, -60))

	s.Require().NoError(err)
	s.Equal([]string{old.ID}, ids)

	_, err = store.GetByKey(s.ctx, old.Key())
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = store.GetByKey(s.ctx, recent.Key())
	s.NoError(err)
}

func (s *PostgresIntegrationSuite) TestCompanyStore_DuplicateName() {
	store := NewCompanyStore(s.db)

	err := store.Create(s.ctx, &domain.Company{ID: uuid.NewString(), Name: "FC Spartak", Country: "RU"})
	s.ErrorIs(err, domain.ErrDuplicate)

	got, err := store.GetByName(s.ctx, "FC Spartak")
	s.Require().NoError(err)
	s.Equal(s.companyID, got.ID)
	s.Nil(got.OwnerUserID)
}

func (s *PostgresIntegrationSuite) TestCompanyStore_DuplicateThenLookupInTransaction() {
	tm := NewTransactionManager(s.db)
	companies := NewCompanyStore(s.db)
	listings := NewListingStore(s.db)

	var resolved string
	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		err := companies.Create(ctx, &domain.Company{ID: uuid.NewString(), Name: "FC Spartak", Country: "RU"})
		if !errors.Is(err, domain.ErrDuplicate) {
			return err
		}

		winner, err := companies.GetByName(ctx, "FC Spartak")
		if err != nil {
			return err
		}
		resolved = winner.ID

		listing := s.newListing("55")
		listing.CompanyID = winner.ID
		return listings.Create(ctx, listing)
	})

	s.Require().NoError(err)
	s.Equal(s.companyID, resolved)

	got, err := listings.GetByKey(s.ctx, domain.ListingKey{ExternalSource: "hh", SourceID: s.sourceID, ExternalID: "55"})
	s.Require().NoError(err)
	s.Equal(s.companyID, got.CompanyID)
}

func (s *PostgresIntegrationSuite) TestSourceStore_EnabledOnly() {
	store := NewSourceStore(s.db)
	disabled := s.insertSource("Archive", false)

	sources, err := store.ListEnabled(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(sources, 1)
	s.Equal(s.sourceID, sources[0].ID)
	s.Equal("1234", sources[0].EmployerID)
	s.Empty(sources[0].SearchText)

	_, err = store.GetEnabled(s.ctx, disabled)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestRunStore_Lifecycle() {
	store := NewRunStore(s.db)
	started := time.Now().UTC().Truncate(time.Microsecond)

	older := &domain.Run{ID: uuid.NewString(), SourceID: s.sourceID, StartedAt: started.Add(-time.Hour), Status: domain.RunStatusRunning}
	newer := &domain.Run{ID: uuid.NewString(), SourceID: s.sourceID, StartedAt: started, Status: domain.RunStatusRunning}
	s.Require().NoError(store.Create(s.ctx, older))
	s.Require().NoError(store.Create(s.ctx, newer))

	finished := started.Add(time.Minute)
	newer.FinishedAt = &finished
	newer.Status = domain.RunStatusFailed
	newer.ItemsFound = 4
	newer.ErrorMessage = utils.Ptr("fetch feed: status 503")
	s.Require().NoError(store.Finish(s.ctx, newer))

	runs, err := store.List(s.ctx, domain.RunFilter{SourceID: s.sourceID})
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.Equal(newer.ID, runs[0].ID)
	s.Equal(domain.RunStatusFailed, runs[0].Status)
	s.Equal(4, runs[0].ItemsFound)
	s.Equal("fetch feed: status 503", *runs[0].ErrorMessage)
	s.Nil(runs[1].FinishedAt)

	recent, err := store.List(s.ctx, domain.RunFilter{Since: started.Add(-time.Minute), Limit: 5})
	s.Require().NoError(err)
	s.Len(recent, 1)
}

func (s *PostgresIntegrationSuite) TestTransactionManager_Rollback() {
	tm := NewTransactionManager(s.db)
	companies := NewCompanyStore(s.db)
	listings := NewListingStore(s.db)
	companyID := uuid.NewString()

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := companies.Create(ctx, &domain.Company{ID: companyID, Name: "CSKA", Country: "RU"}); err != nil {
			return err
		}
		listing := s.newListing("7")
		listing.CompanyID = companyID
		if err := listings.Create(ctx, listing); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.EqualError(err, "abort")

	_, err = companies.GetByName(s.ctx, "CSKA")
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = listings.GetByKey(s.ctx, domain.ListingKey{ExternalSource: "hh", SourceID: s.sourceID, ExternalID: "7"})
	s.ErrorIs(err, domain.ErrNotFound)
}
