package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-johnnyhe/jobs/internal/config"
	"github.com/go-johnnyhe/jobs/internal/domain"
	"github.com/go-johnnyhe/jobs/internal/filter"
)

// careerPageSource is the Source value for every posting found by scraping a
// company career page, regardless of the ATS behind it.
const careerPageSource = "career_page"

// CareerScraper fetches postings from company career pages, dispatching per
// company to the ATS driver named in its configuration.
type CareerScraper struct {
	companies []config.Company
	filter    *filter.Filter
	client    *http.Client
	logger    *slog.Logger
	userAgent string

	// API bases are fields so tests can point them at an httptest server.
	greenhouseAPIBase string
	leverAPIBase      string
	workdayHostSuffix string
}

// NewCareerScraper creates a scraper over the configured companies.
func NewCareerScraper(companies []config.Company, f *filter.Filter, client *http.Client, userAgent string, logger *slog.Logger) *CareerScraper {
	return &CareerScraper{
		companies:         companies,
		filter:            f,
		client:            client,
		logger:            logger,
		userAgent:         userAgent,
		greenhouseAPIBase: "https://boards-api.greenhouse.io",
		leverAPIBase:      "https://api.lever.co",
		workdayHostSuffix: ".myworkdayjobs.com",
	}
}

// Name implements Adapter.
func (s *CareerScraper) Name() string {
	return "careers"
}

// FetchWithStatus implements Adapter.
func (s *CareerScraper) FetchWithStatus(ctx context.Context) ([]domain.JobPosting, bool, string) {
	var (
		jobs      []domain.JobPosting
		errs      []string
		succeeded int
	)

	for _, company := range s.companies {
		s.logger.Debug("Scraping company career page",
			slog.String("company", company.Name),
			slog.String("ats", company.ATS),
		)

		found, err := s.scrapeCompany(ctx, company)
		if err != nil {
			s.logger.Warn("Career page scrape failed",
				slog.String("company", company.Name),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", company.Name, err))
			continue
		}
		succeeded++
		jobs = append(jobs, found...)

		s.logger.Debug("Career page scraped",
			slog.String("company", company.Name),
			slog.Int("matching", len(found)),
		)
	}

	healthy := len(s.companies) == 0 || succeeded > 0
	return jobs, healthy, summarizeErrors(errs)
}

func (s *CareerScraper) scrapeCompany(ctx context.Context, company config.Company) ([]domain.JobPosting, error) {
	switch company.ATS {
	case "greenhouse":
		return s.scrapeGreenhouse(ctx, company)
	case "lever":
		return s.scrapeLever(ctx, company)
	case "workday":
		return s.scrapeWorkday(ctx, company)
	default:
		return s.scrapeGeneric(ctx, company)
	}
}

// matchesCriteria is the career-page eligibility check: the title has to
// mention software engineering at all, then the full pipeline runs with the
// empty-location restriction since scraped locations are often missing.
func (s *CareerScraper) matchesCriteria(job domain.JobPosting) bool {
	if !s.filter.HasRoleKeyword(job.Title) {
		return false
	}
	return s.filter.MatchesCriteria(job, filter.Options{RequireLocation: true})
}

// getJSON fetches a URL and decodes the JSON response into dest.
func (s *CareerScraper) getJSON(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// postJSON posts a JSON payload and decodes the JSON response into dest.
func (s *CareerScraper) postJSON(ctx context.Context, url string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
