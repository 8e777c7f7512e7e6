package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-johnnyhe/jobs/internal/config"
	"github.com/go-johnnyhe/jobs/internal/domain"
)

var greenhouseBoardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`boards\.greenhouse\.io/(\w+)`),
	regexp.MustCompile(`greenhouse\.io/embed/job_board\?token=(\w+)`),
}

// knownGreenhouseBoards maps career-page hosts to board IDs for companies
// that hide the board behind a custom frontend.
var knownGreenhouseBoards = map[string]string{
	"airbnb": "airbnb",
	"rubrik": "rubrik",
}

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
}

// scrapeGreenhouse resolves the company's Greenhouse board and queries the
// public board API. When the board cannot be resolved or the API call fails
// it falls back to generic HTML scraping of the configured page.
func (s *CareerScraper) scrapeGreenhouse(ctx context.Context, company config.Company) ([]domain.JobPosting, error) {
	boardID := s.resolveGreenhouseBoard(ctx, company.URL)
	if boardID == "" {
		return s.scrapeGeneric(ctx, company)
	}

	apiURL := fmt.Sprintf("%s/v1/boards/%s/jobs", s.greenhouseAPIBase, boardID)

	var data greenhouseResponse
	if err := s.getJSON(ctx, apiURL, &data); err != nil {
		s.logger.Debug("Greenhouse board API failed, falling back to page scrape",
			slog.String("company", company.Name),
			slog.Any("error", err),
		)
		// An empty fallback does not mask the API failure.
		fallback, ferr := s.scrapeGeneric(ctx, company)
		if ferr != nil || len(fallback) == 0 {
			return nil, fmt.Errorf("greenhouse board api: %w", err)
		}
		return fallback, nil
	}

	var jobs []domain.JobPosting
	for _, j := range data.Jobs {
		if j.Title == "" || j.ID == 0 {
			continue
		}
		job := domain.JobPosting{
			Company:  company.Name,
			Title:    j.Title,
			URL:      fmt.Sprintf("https://boards.greenhouse.io/%s/jobs/%d", boardID, j.ID),
			Location: j.Location.Name,
			Source:   careerPageSource,
		}
		if s.matchesCriteria(job) {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// resolveGreenhouseBoard finds the board ID from the URL, the page body, or
// the known-board table, in that order. Empty means unresolved.
func (s *CareerScraper) resolveGreenhouseBoard(ctx context.Context, pageURL string) string {
	for _, re := range greenhouseBoardPatterns {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			return m[1]
		}
	}

	if body := s.fetchPageBody(ctx, pageURL); body != "" {
		for _, re := range greenhouseBoardPatterns {
			if m := re.FindStringSubmatch(body); m != nil {
				return m[1]
			}
		}
	}

	lower := strings.ToLower(pageURL)
	for name, board := range knownGreenhouseBoards {
		if strings.Contains(lower, name) {
			return board
		}
	}

	return ""
}

// fetchPageBody fetches a page as text, returning "" on any failure.
func (s *CareerScraper) fetchPageBody(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(body)
}
