package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

type ListingStatus string

const (
	ListingStatusDraft  ListingStatus = "draft"
	ListingStatusActive ListingStatus = "active"
	ListingStatusPaused ListingStatus = "paused"
	ListingStatusClosed ListingStatus = "closed"
)

type ModerationStatus string

const (
	ModerationDraft     ModerationStatus = "draft"
	ModerationPublished ModerationStatus = "published"
	ModerationRejected  ModerationStatus = "rejected"
)

// Level is the platform's experience level. LevelUnknown is stored as NULL.
type Level string

const (
	LevelUnknown Level = "unknown"
	LevelIntern  Level = "intern"
	LevelJunior  Level = "junior"
	LevelMiddle  Level = "middle"
	LevelSenior  Level = "senior"
)

// ContractType is the platform's employment type. ContractUnknown is stored as NULL.
type ContractType string

const (
	ContractUnknown    ContractType = "unknown"
	ContractFullTime   ContractType = "full_time"
	ContractPartTime   ContractType = "part_time"
	ContractProject    ContractType = "contract"
	ContractInternship ContractType = "internship"
	ContractVolunteer  ContractType = "volunteer"
)

func (l Level) Value() (driver.Value, error) {
	if l == "" || l == LevelUnknown {
		return nil, nil
	}
	return string(l), nil
}

func (l *Level) Scan(src any) error {
	s, err := scanNullableString(src)
	if err != nil {
		return fmt.Errorf("scan level: %w", err)
	}
	if s == "" {
		*l = LevelUnknown
		return nil
	}
	*l = Level(s)
	return nil
}

func (c ContractType) Value() (driver.Value, error) {
	if c == "" || c == ContractUnknown {
		return nil, nil
	}
	return string(c), nil
}

func (c *ContractType) Scan(src any) error {
	s, err := scanNullableString(src)
	if err != nil {
		return fmt.Errorf("scan contract type: %w", err)
	}
	if s == "" {
		*c = ContractUnknown
		return nil
	}
	*c = ContractType(s)
	return nil
}

func scanNullableString(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported type %T", src)
	}
}

// ListingKey identifies a synchronized listing. At most one listing exists per key.
type ListingKey struct {
	ExternalSource string
	SourceID       string
	ExternalID     string
}

type Listing struct {
	ID               string           `db:"id"`
	Title            string           `db:"title"`
	Description      string           `db:"description"`
	Requirements     string           `db:"requirements"`
	Responsibilities string           `db:"responsibilities"`
	Location         string           `db:"location"`
	SalaryMin        *int64           `db:"salary_min"`
	SalaryMax        *int64           `db:"salary_max"`
	SalaryCurrency   *string          `db:"salary_currency"`
	Remote           bool             `db:"remote"`
	ContractType     ContractType     `db:"contract_type"`
	Level            Level            `db:"level"`
	CompanyID        string           `db:"company_id"`
	RoleID           *string          `db:"role_id"`
	ExternalURL      string           `db:"external_url"`
	PublishedAt      time.Time        `db:"published_at"`
	Status           ListingStatus    `db:"status"`
	ModerationStatus ModerationStatus `db:"moderation_status"`
	ExternalSource   string           `db:"external_source"`
	ExternalID       string           `db:"external_id"`
	SourceID         string           `db:"source_id"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
}

func (l *Listing) Key() ListingKey {
	return ListingKey{
		ExternalSource: l.ExternalSource,
		SourceID:       l.SourceID,
		ExternalID:     l.ExternalID,
	}
}

// IsTerminal reports whether a human decision froze the listing.
func (l *Listing) IsTerminal() bool {
	return l.ModerationStatus == ModerationRejected || l.Status == ListingStatusClosed
}

// ContentEqual compares the fields the synchronization writes, lifecycle excluded.
func (l *Listing) ContentEqual(o *Listing) bool {
	return l.Title == o.Title &&
		l.Description == o.Description &&
		l.Requirements == o.Requirements &&
		l.Responsibilities == o.Responsibilities &&
		l.Location == o.Location &&
		equalPtr(l.SalaryMin, o.SalaryMin) &&
		equalPtr(l.SalaryMax, o.SalaryMax) &&
		equalPtr(l.SalaryCurrency, o.SalaryCurrency) &&
		l.Remote == o.Remote &&
		l.ContractType == o.ContractType &&
		l.Level == o.Level &&
		l.CompanyID == o.CompanyID &&
		equalPtr(l.RoleID, o.RoleID) &&
		l.ExternalURL == o.ExternalURL &&
		l.PublishedAt.Equal(o.PublishedAt)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Lifecycle returns the initial status pair a moderation mode assigns.
func Lifecycle(mode ModerationMode) (ListingStatus, ModerationStatus) {
	if mode == ModerationModeAutoPublish {
		return ListingStatusActive, ModerationPublished
	}
	return ListingStatusDraft, ModerationDraft
}

// ClosedListing is a listing moved to closed by the closing pass.
type ClosedListing struct {
	ID         string `db:"id"`
	ExternalID string `db:"external_id"`
}
