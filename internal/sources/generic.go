package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-johnnyhe/jobs/internal/config"
	"github.com/go-johnnyhe/jobs/internal/domain"
)

// skipLinkPatterns mark navigation and account links that are never postings.
var skipLinkPatterns = []string{"login", "sign", "about", "contact", "privacy", "terms", "blog"}

// jobURLPatterns mark hrefs that look like posting detail pages.
var jobURLPatterns = []string{"/job", "/position", "/opening", "/career", "/apply"}

// scrapeGeneric is the best-effort fallback for career pages without a known
// ATS API: scan every anchor, keep the ones that look like postings. Scraped
// rows have no reliable location, so the eligibility check runs with the
// empty-location restriction.
func (s *CareerScraper) scrapeGeneric(ctx context.Context, company config.Company) ([]domain.JobPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, company.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch career page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching career page", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse career page: %w", err)
	}

	base, err := url.Parse(company.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid career page url: %w", err)
	}

	var jobs []domain.JobPosting
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())

		if !s.looksLikeJobLink(href, text) {
			return
		}

		job := domain.JobPosting{
			Company:  company.Name,
			Title:    text,
			URL:      normalizeURL(base, href),
			Location: "", // not reliably extractable from arbitrary pages
			Source:   careerPageSource,
		}
		if s.matchesCriteria(job) {
			jobs = append(jobs, job)
		}
	})

	return jobs, nil
}

// looksLikeJobLink applies cheap heuristics before the real filter runs:
// skip navigation links, accept posting-style URLs or role-keyword text.
func (s *CareerScraper) looksLikeJobLink(href, text string) bool {
	hrefLower := strings.ToLower(href)
	textLower := strings.ToLower(text)

	for _, p := range skipLinkPatterns {
		if strings.Contains(hrefLower, p) || strings.Contains(textLower, p) {
			return false
		}
	}

	for _, p := range jobURLPatterns {
		if strings.Contains(hrefLower, p) {
			return true
		}
	}

	return s.filter.HasRoleKeyword(text)
}

// normalizeURL resolves a possibly relative href against the page URL.
func normalizeURL(base *url.URL, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
