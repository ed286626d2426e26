package hh

// SearchResponse represents the vacancy search response structure.
type SearchResponse struct {
	Items   []Vacancy `json:"items"`
	Found   int       `json:"found"`
	Pages   int       `json:"pages"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
}

type Vacancy struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Archived     bool      `json:"archived"`
	PublishedAt  string    `json:"published_at"`
	AlternateURL string    `json:"alternate_url"`
	Area         *NamedRef `json:"area"`
	Salary       *Salary   `json:"salary"`
	Schedule     *NamedRef `json:"schedule"`
	Employment   *NamedRef `json:"employment"`
	Experience   *NamedRef `json:"experience"`
	Employer     *Employer `json:"employer"`
	Snippet      *Snippet  `json:"snippet"`
}

type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Salary struct {
	From     *int64 `json:"from"`
	To       *int64 `json:"to"`
	Currency string `json:"currency"`
}

type Employer struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	LogoURLs map[string]string `json:"logo_urls"`
}

type Snippet struct {
	Requirement    *string `json:"requirement"`
	Responsibility *string `json:"responsibility"`
}

// VacancyDetail is the subset of the full vacancy record the sync consumes.
type VacancyDetail struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	KeySkills   []KeySkill `json:"key_skills"`
}

type KeySkill struct {
	Name string `json:"name"`
}
