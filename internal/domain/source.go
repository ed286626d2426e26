package domain

type SourceType string

const (
	SourceTypeEmployer SourceType = "employer"
	SourceTypeSearch   SourceType = "search"
)

type ModerationMode string

const (
	ModerationModeAutoPublish ModerationMode = "auto_publish"
	ModerationModeDraftReview ModerationMode = "draft_review"
)

// Source is one configured external feed. It is owned by the admin UI and read-only here.
type Source struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Type             SourceType     `db:"type"`
	EmployerID       string         `db:"employer_id"`
	SearchText       string         `db:"search_text"`
	SearchField      string         `db:"search_field"` // name, company_name, description or empty
	Area             string         `db:"area"`
	ProfessionalRole string         `db:"professional_role"`
	Schedule         string         `db:"schedule"`
	ModerationMode   ModerationMode `db:"moderation_mode"`
	CompanyID        *string        `db:"company_id"`
	RoleID           *string        `db:"role_id"`
	Enabled          bool           `db:"enabled"`
}
