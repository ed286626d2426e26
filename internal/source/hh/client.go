package hh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vacancy_syncer/internal/domain"
)

const publishedAtLayout = "2006-01-02T15:04:05-0700"

var errMalformedResponse = errors.New("malformed response")

// Config holds feed client configuration.
type Config struct {
	BaseURL        string
	PerPage        int
	UserAgent      string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// StatusError is returned when the feed answers with a non-success status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Client fetches vacancies from the hh.ru-compatible API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	perPage        int
	userAgent      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		perPage:        cfg.PerPage,
		userAgent:      cfg.UserAgent,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("component", "hh_client"),
	}
}

// Search fetches a single page of vacancy summaries matching the source configuration.
func (c *Client) Search(ctx context.Context, source domain.Source) ([]domain.ExternalItem, error) {
	query, err := SearchQuery(source, c.perPage)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := c.getWithRetry(ctx, c.baseURL+"/vacancies?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search vacancies: %w", err)
	}

	c.logger.Debug("fetched search page",
		"source_id", source.ID,
		"items", len(resp.Items),
		"found", resp.Found,
	)

	return c.transform(resp.Items), nil
}

// Detail fetches the full record of a single vacancy.
func (c *Client) Detail(ctx context.Context, externalID string) (*domain.ExternalDetail, error) {
	var detail VacancyDetail
	if err := c.getWithRetry(ctx, c.baseURL+"/vacancies/"+url.PathEscape(externalID), &detail); err != nil {
		return nil, fmt.Errorf("fetch vacancy %s: %w", externalID, err)
	}

	skills := make([]string, 0, len(detail.KeySkills))
	for _, s := range detail.KeySkills {
		if name := strings.TrimSpace(s.Name); name != "" {
			skills = append(skills, name)
		}
	}

	return &domain.ExternalDetail{
		ID:          detail.ID,
		Description: detail.Description,
		KeySkills:   skills,
	}, nil
}

// SearchQuery builds the search parameters for a source.
func SearchQuery(source domain.Source, perPage int) (url.Values, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))

	switch source.Type {
	case domain.SourceTypeEmployer:
		if source.EmployerID == "" {
			return nil, fmt.Errorf("source %s: employer_id is required for employer sources", source.ID)
		}
		params.Set("employer_id", source.EmployerID)
	case domain.SourceTypeSearch:
		if source.SearchText == "" {
			return nil, fmt.Errorf("source %s: search_text is required for search sources", source.ID)
		}
		params.Set("text", source.SearchText)
		if source.SearchField != "" {
			params.Set("search_field", source.SearchField)
		}
	default:
		return nil, fmt.Errorf("source %s: unknown source type %q", source.ID, source.Type)
	}

	if source.Area != "" {
		params.Set("area", source.Area)
	}
	if source.ProfessionalRole != "" {
		params.Set("professional_role", source.ProfessionalRole)
	}
	if source.Schedule != "" {
		params.Set("schedule", source.Schedule)
	}

	return params, nil
}

func (c *Client) getWithRetry(ctx context.Context, endpoint string, out any) error {
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.doRequest(ctx, endpoint, out)
		if err == nil {
			return nil
		}

		if !retryable(err) || attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	if c.maxAttempts > 1 && retryable(err) {
		return fmt.Errorf("after %d attempts: %w", c.maxAttempts, err)
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %w", errMalformedResponse, err)
	}

	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.retryable()
	}
	return !errors.Is(err, errMalformedResponse)
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

var highlightStripper = strings.NewReplacer("<highlighttext>", "", "</highlighttext>", "")

func (c *Client) transform(vacancies []Vacancy) []domain.ExternalItem {
	items := make([]domain.ExternalItem, 0, len(vacancies))

	for _, v := range vacancies {
		item := domain.ExternalItem{
			ID:       v.ID,
			Title:    v.Name,
			Archived: v.Archived,
			URL:      v.AlternateURL,
		}

		publishedAt, err := parsePublishedAt(v.PublishedAt)
		if err != nil {
			c.logger.Warn("failed to parse date",
				"external_id", v.ID,
				"date", v.PublishedAt,
			)
		}
		item.PublishedAt = publishedAt

		if v.Area != nil {
			item.Area = v.Area.Name
		}
		if v.Salary != nil {
			item.SalaryFrom = v.Salary.From
			item.SalaryTo = v.Salary.To
			item.SalaryCurrency = v.Salary.Currency
		}
		if v.Schedule != nil {
			item.ScheduleID = v.Schedule.ID
		}
		if v.Employment != nil {
			item.EmploymentID = v.Employment.ID
		}
		if v.Experience != nil {
			item.ExperienceID = v.Experience.ID
		}
		if v.Employer != nil {
			item.EmployerName = strings.TrimSpace(v.Employer.Name)
			item.EmployerLogoURL = logoURL(v.Employer.LogoURLs)
		}
		if v.Snippet != nil {
			if v.Snippet.Requirement != nil {
				item.SnippetRequirement = highlightStripper.Replace(*v.Snippet.Requirement)
			}
			if v.Snippet.Responsibility != nil {
				item.SnippetResponsibility = highlightStripper.Replace(*v.Snippet.Responsibility)
			}
		}

		items = append(items, item)
	}

	return items
}

func parsePublishedAt(raw string) (time.Time, error) {
	t, err := time.Parse(publishedAtLayout, raw)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func logoURL(urls map[string]string) string {
	for _, size := range []string{"original", "240", "90"} {
		if u := urls[size]; u != "" {
			return u
		}
	}
	return ""
}
