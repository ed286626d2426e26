package domain

import "time"

// ExternalItem is a vacancy summary as returned by the feed search.
type ExternalItem struct {
	ID                    string
	Title                 string
	Archived              bool
	PublishedAt           time.Time
	Area                  string
	SalaryFrom            *int64
	SalaryTo              *int64
	SalaryCurrency        string
	ScheduleID            string
	EmploymentID          string
	ExperienceID          string
	EmployerName          string
	EmployerLogoURL       string
	SnippetRequirement    string
	SnippetResponsibility string
	URL                   string
}

// ExternalDetail is the full vacancy record fetched per item.
type ExternalDetail struct {
	ID          string
	Description string
	KeySkills   []string
}
