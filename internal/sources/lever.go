package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-johnnyhe/jobs/internal/config"
	"github.com/go-johnnyhe/jobs/internal/domain"
)

var leverCompanyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`jobs\.lever\.co/(\w+)`),
	regexp.MustCompile(`lever\.co/(\w+)`),
}

var knownLeverCompanies = map[string]string{
	"netflix": "netflix",
}

type leverJob struct {
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	Categories struct {
		Location string `json:"location"`
	} `json:"categories"`
}

// scrapeLever queries the public Lever postings API, falling back to generic
// HTML scraping when the company ID cannot be resolved or the API fails.
func (s *CareerScraper) scrapeLever(ctx context.Context, company config.Company) ([]domain.JobPosting, error) {
	leverID := resolveLeverCompany(company.URL)
	if leverID == "" {
		return s.scrapeGeneric(ctx, company)
	}

	apiURL := fmt.Sprintf("%s/v0/postings/%s", s.leverAPIBase, leverID)

	var data []leverJob
	if err := s.getJSON(ctx, apiURL, &data); err != nil {
		fallback, ferr := s.scrapeGeneric(ctx, company)
		if ferr != nil || len(fallback) == 0 {
			return nil, fmt.Errorf("lever postings api: %w", err)
		}
		return fallback, nil
	}

	var jobs []domain.JobPosting
	for _, j := range data {
		if j.Text == "" || j.HostedURL == "" {
			continue
		}
		job := domain.JobPosting{
			Company:  company.Name,
			Title:    j.Text,
			URL:      j.HostedURL,
			Location: j.Categories.Location,
			Source:   careerPageSource,
		}
		if s.matchesCriteria(job) {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// resolveLeverCompany extracts the Lever company ID from the page URL.
func resolveLeverCompany(pageURL string) string {
	for _, re := range leverCompanyPatterns {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			return m[1]
		}
	}

	lower := strings.ToLower(pageURL)
	for name, id := range knownLeverCompanies {
		if strings.Contains(lower, name) {
			return id
		}
	}

	return ""
}
