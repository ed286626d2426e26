package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"vacancy_syncer/internal/domain"
	"vacancy_syncer/internal/service/mocks"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTx runs the function without a transaction.
type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memStore is an in-memory ListingStore and CompanyStore.
type memStore struct {
	mu        sync.Mutex
	listings  map[domain.ListingKey]*domain.Listing
	companies map[string]*domain.Company

	failCreate    map[string]error // by external id
	failCompany   error
	companyWrites int
}

func newMemStore() *memStore {
	return &memStore{
		listings:   make(map[domain.ListingKey]*domain.Listing),
		companies:  make(map[string]*domain.Company),
		failCreate: make(map[string]error),
	}
}

func (m *memStore) GetByKey(_ context.Context, key domain.ListingKey) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, listing *domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failCreate[listing.ExternalID]; err != nil {
		return err
	}
	if _, ok := m.listings[listing.Key()]; ok {
		return fmt.Errorf("listing %v: %w", listing.Key(), domain.ErrDuplicate)
	}
	cp := *listing
	m.listings[listing.Key()] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, listing *domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[listing.Key()]; !ok {
		return domain.ErrNotFound
	}
	cp := *listing
	m.listings[listing.Key()] = &cp
	return nil
}

func (m *memStore) UpdateContent(_ context.Context, listing *domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.listings[listing.Key()]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *listing
	cp.Status = stored.Status
	cp.ModerationStatus = stored.ModerationStatus
	m.listings[listing.Key()] = &cp
	return nil
}

func (m *memStore) CloseMissing(_ context.Context, sourceID, externalSource string, seen []string, now time.Time) ([]domain.ClosedListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var closed []domain.ClosedListing
	for key, l := range m.listings {
		if key.SourceID != sourceID || key.ExternalSource != externalSource {
			continue
		}
		if slices.Contains(seen, key.ExternalID) || l.IsTerminal() {
			continue
		}
		l.Status = domain.ListingStatusClosed
		l.UpdatedAt = now
		closed = append(closed, domain.ClosedListing{ID: l.ID, ExternalID: l.ExternalID})
	}
	return closed, nil
}

func (m *memStore) DeleteClosedBefore(_ context.Context, sourceID string, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted []string
	for key, l := range m.listings {
		if key.SourceID == sourceID && l.Status == domain.ListingStatusClosed && l.UpdatedAt.Before(before) {
			deleted = append(deleted, l.ID)
			delete(m.listings, key)
		}
	}
	return deleted, nil
}

func (m *memStore) GetByName(_ context.Context, name string) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// companyStore adapts memStore to CompanyStore, whose Create collides with ListingStore's.
type companyStore struct{ *memStore }

func (c companyStore) Create(_ context.Context, company *domain.Company) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCompany != nil {
		return c.failCompany
	}
	if _, ok := c.companies[company.Name]; ok {
		return domain.ErrDuplicate
	}
	cp := *company
	c.companies[company.Name] = &cp
	c.companyWrites++
	return nil
}

func (m *memStore) listing(sourceID, externalID string) *domain.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[domain.ListingKey{ExternalSource: "hh", SourceID: sourceID, ExternalID: externalID}]
	if !ok {
		return nil
	}
	cp := *l
	return &cp
}

func (m *memStore) put(l domain.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.Key()] = &l
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listings)
}

// fakeFeed serves a fixed pull and per-id details.
type fakeFeed struct {
	items       []domain.ExternalItem
	searchErr   error
	details     map[string]*domain.ExternalDetail
	detailErr   map[string]error
	detailCalls []string
}

func (f *fakeFeed) Search(context.Context, domain.Source) ([]domain.ExternalItem, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.items, nil
}

func (f *fakeFeed) Detail(_ context.Context, externalID string) (*domain.ExternalDetail, error) {
	f.detailCalls = append(f.detailCalls, externalID)
	if err := f.detailErr[externalID]; err != nil {
		return nil, err
	}
	if d, ok := f.details[externalID]; ok {
		return d, nil
	}
	return &domain.ExternalDetail{ID: externalID, Description: "<p>" + externalID + "</p>"}, nil
}

var (
	_ Publisher = (*recordingPublisher)(nil)
	_ Publisher = (*mocks.MockPublisher)(nil)
)

// recordingPublisher collects published events.
type recordingPublisher struct {
	events []domain.ListingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.ListingEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) actions() []domain.ListingAction {
	out := make([]domain.ListingAction, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
