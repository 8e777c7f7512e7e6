package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-johnnyhe/jobs/internal/config"
	"github.com/go-johnnyhe/jobs/internal/domain"
)

// workdayPageSize is the CXS API page size. Workday rejects larger values.
const workdayPageSize = 50

type workdayRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type workdayResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayPosting `json:"jobPostings"`
}

type workdayPosting struct {
	Title         string `json:"title"`
	ExternalPath  string `json:"externalPath"`
	LocationsText string `json:"locationsText"`
}

// scrapeWorkday pages through a tenant's public CXS jobs endpoint.
func (s *CareerScraper) scrapeWorkday(ctx context.Context, company config.Company) ([]domain.JobPosting, error) {
	tenant, site, base, err := s.parseWorkdayEndpoint(company.URL)
	if err != nil {
		return nil, err
	}

	apiURL := fmt.Sprintf("%s/wday/cxs/%s/%s/jobs", base, tenant, site)

	var (
		jobs   []domain.JobPosting
		offset int
		total  = -1
	)

	for {
		var data workdayResponse
		payload := workdayRequest{Limit: workdayPageSize, Offset: offset}
		if err := s.postJSON(ctx, apiURL, payload, &data); err != nil {
			return nil, fmt.Errorf("workday page at offset %d: %w", offset, err)
		}

		if len(data.JobPostings) == 0 {
			break
		}

		for _, p := range data.JobPostings {
			job, ok := parseWorkdayPosting(company.Name, p, base)
			if ok && s.matchesCriteria(job) {
				jobs = append(jobs, job)
			}
		}

		if total < 0 {
			total = data.Total
		}
		offset += len(data.JobPostings)
		if total >= 0 && offset >= total {
			break
		}
	}

	return jobs, nil
}

// parseWorkdayEndpoint splits a Workday jobs URL like
// https://{tenant}.wd5.myworkdayjobs.com/{site} into its CXS coordinates.
func (s *CareerScraper) parseWorkdayEndpoint(rawURL string) (tenant, site, base string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid workday url: %w", err)
	}

	host := parsed.Host
	if !strings.HasSuffix(host, s.workdayHostSuffix) {
		return "", "", "", fmt.Errorf("not a workday jobs host: %s", host)
	}

	tenant = strings.Split(host, ".")[0]

	var parts []string
	for _, p := range strings.Split(parsed.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", "", "", fmt.Errorf("workday url missing site segment: %s", rawURL)
	}

	return tenant, parts[0], parsed.Scheme + "://" + host, nil
}

func parseWorkdayPosting(companyName string, p workdayPosting, baseURL string) (domain.JobPosting, bool) {
	if p.Title == "" || p.ExternalPath == "" {
		return domain.JobPosting{}, false
	}

	jobURL := p.ExternalPath
	if !strings.HasPrefix(jobURL, "http") {
		jobURL = baseURL + "/" + strings.TrimPrefix(jobURL, "/")
	}

	return domain.JobPosting{
		Company:  companyName,
		Title:    p.Title,
		URL:      jobURL,
		Location: p.LocationsText,
		Source:   careerPageSource,
	}, true
}
