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

const githubAPIBase = "https://api.github.com"

var (
	markdownLinkRe  = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	markdownBoldRe  = regexp.MustCompile(`\*+([^*]+)\*+`)
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	plainURLRe      = regexp.MustCompile(`https?://[^\s<>"]+`)
)

// GitHubTracker pulls postings out of community-maintained listing
// repositories, one markdown table per configured repo.
type GitHubTracker struct {
	repos     []config.GitHubRepo
	targets   []string
	preferred []string
	client    *http.Client
	logger    *slog.Logger
	userAgent string

	apiBase string // overridden in tests
}

// NewGitHubTracker creates a tracker over the configured listing repos.
// targets and preferred come from the source and filter configuration; the
// listing path deliberately applies looser checks than the career-page path
// because row locations are free-form ("NYC, Seattle", "< 5 locations").
func NewGitHubTracker(repos []config.GitHubRepo, targets, preferred []string, client *http.Client, userAgent string, logger *slog.Logger) *GitHubTracker {
	return &GitHubTracker{
		repos:     repos,
		targets:   lowerAll(targets),
		preferred: lowerAll(preferred),
		client:    client,
		logger:    logger,
		userAgent: userAgent,
		apiBase:   githubAPIBase,
	}
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

// Name implements Adapter.
func (t *GitHubTracker) Name() string {
	return "github"
}

// FetchWithStatus implements Adapter.
func (t *GitHubTracker) FetchWithStatus(ctx context.Context) ([]domain.JobPosting, bool, string) {
	var (
		jobs      []domain.JobPosting
		errs      []string
		succeeded int
	)

	for _, repo := range t.repos {
		found, err := t.fetchFromRepo(ctx, repo)
		if err != nil {
			t.logger.Warn("GitHub repo fetch failed",
				slog.String("owner", repo.Owner),
				slog.String("repo", repo.Repo),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Sprintf("%s/%s: %v", repo.Owner, repo.Repo, err))
			continue
		}
		succeeded++
		jobs = append(jobs, found...)
	}

	healthy := len(t.repos) == 0 || succeeded > 0
	return jobs, healthy, summarizeErrors(errs)
}

// fetchFromRepo downloads one listing file through the contents API and
// parses its markdown table.
func (t *GitHubTracker) fetchFromRepo(ctx context.Context, repo config.GitHubRepo) ([]domain.JobPosting, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", t.apiBase, repo.Owner, repo.Repo, repo.File)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3.raw")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching listing", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing body: %w", err)
	}

	source := repo.Owner + "/" + repo.Repo
	return t.parseListing(string(body), source), nil
}

// parseListing extracts postings from a markdown table of the form
// | Company | Role | Location | Application/Link | Date Posted |.
func (t *GitHubTracker) parseListing(content, source string) []domain.JobPosting {
	var jobs []domain.JobPosting
	inTable := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "|--") || strings.HasPrefix(line, "| --") {
			continue
		}
		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			continue
		}

		cells := strings.Split(line, "|")
		cells = cells[1 : len(cells)-1]
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if len(cells) < 4 {
			continue
		}

		first := strings.ToLower(cells[0])
		if strings.Contains(first, "company") || strings.Contains(first, "role") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}

		job, ok := parseListingRow(cells, source)
		if ok && t.matchesListing(job) {
			jobs = append(jobs, job)
		}
	}

	return jobs
}

// parseListingRow converts one table row into a posting. Rows without a
// company or an application URL are skipped.
func parseListingRow(cells []string, source string) (domain.JobPosting, bool) {
	company := stripMarkdown(cells[0])
	title := stripMarkdown(cells[1])

	var location string
	if len(cells) > 2 {
		location = stripMarkdown(cells[2])
	}
	var url string
	if len(cells) > 3 {
		url = extractURL(cells[3])
	}
	var datePosted string
	if len(cells) > 4 {
		datePosted = stripMarkdown(cells[4])
	}

	if company == "" || url == "" {
		return domain.JobPosting{}, false
	}

	return domain.JobPosting{
		Company:    company,
		Title:      title,
		URL:        url,
		Location:   location,
		Source:     source,
		DatePosted: datePosted,
	}, true
}

// stripMarkdown reduces a table cell to plain text: links become their label,
// bold/italic markers and images are dropped.
func stripMarkdown(text string) string {
	text = markdownImageRe.ReplaceAllString(text, "")
	text = markdownLinkRe.ReplaceAllString(text, "$1")
	text = markdownBoldRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// extractURL pulls the target out of a markdown link, falling back to the
// first plain URL in the cell.
func extractURL(text string) string {
	if m := markdownLinkRe.FindStringSubmatch(text); m != nil {
		return m[2]
	}
	if m := plainURLRe.FindString(text); m != "" {
		return m
	}
	return ""
}

// matchesListing applies the listing-path checks: the company must contain a
// target substring, and when a preferred-location list exists the row's
// location must contain one of them (empty locations pass).
func (t *GitHubTracker) matchesListing(job domain.JobPosting) bool {
	company := strings.ToLower(job.Company)
	matched := false
	for _, target := range t.targets {
		if strings.Contains(company, target) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	if len(t.preferred) > 0 {
		location := strings.ToLower(job.Location)
		if location == "" {
			return true
		}
		for _, loc := range t.preferred {
			if strings.Contains(location, loc) {
				return true
			}
		}
		return false
	}

	return true
}
