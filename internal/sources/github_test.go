package sources

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-johnnyhe/jobs/internal/config"
)

const listingReadme = `# New Grad Positions

Some intro text.

| Company | Role | Location | Application/Link | Date Posted |
| ------- | ---- | -------- | ---------------- | ----------- |
| **[Stripe](https://stripe.com)** | Software Engineer, New Grad | Seattle, WA | [Apply](https://stripe.com/jobs/123) | Aug 25 |
| [Acme](https://acme.example) | Software Engineer | Remote | [Apply](https://acme.example/jobs/1) | Aug 24 |
| Databricks | Software Engineer - New Grad | London, UK | [Apply](https://databricks.com/jobs/9) | Aug 23 |
| Google | SWE, New Grad | Mountain View, CA | closed | Aug 22 |
| Meta | Software Engineer, University Grad |  | [Apply](https://meta.com/jobs/77) | Aug 21 |
`

func newTestGitHubTracker(t *testing.T, serverURL string) *GitHubTracker {
	t.Helper()

	tracker := NewGitHubTracker(
		[]config.GitHubRepo{{Owner: "SimplifyJobs", Repo: "New-Grad-Positions", File: "README.md"}},
		[]string{"stripe", "databricks", "google", "meta"},
		[]string{"seattle", "remote", "mountain view"},
		http.DefaultClient,
		"JobTracker/1.0",
		slog.New(slog.DiscardHandler),
	)
	tracker.apiBase = serverURL
	return tracker
}

func TestGitHubTracker_FetchWithStatus(t *testing.T) {
	var gotPath, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(listingReadme))
	}))
	defer server.Close()

	tracker := newTestGitHubTracker(t, server.URL)

	jobs, healthy, errMsg := tracker.FetchWithStatus(context.Background())

	assert.True(t, healthy)
	assert.Empty(t, errMsg)
	assert.Equal(t, "/repos/SimplifyJobs/New-Grad-Positions/contents/README.md", gotPath)
	assert.Equal(t, "application/vnd.github.v3.raw", gotAccept)

	// Stripe passes target + location. Acme is not a target company.
	// Databricks is filtered by location, Google's link cell has no URL,
	// Meta's empty location passes the listing-path check.
	require.Len(t, jobs, 2)

	assert.Equal(t, "Stripe", jobs[0].Company)
	assert.Equal(t, "Software Engineer, New Grad", jobs[0].Title)
	assert.Equal(t, "https://stripe.com/jobs/123", jobs[0].URL)
	assert.Equal(t, "Seattle, WA", jobs[0].Location)
	assert.Equal(t, "SimplifyJobs/New-Grad-Positions", jobs[0].Source)
	assert.Equal(t, "Aug 25", jobs[0].DatePosted)

	assert.Equal(t, "Meta", jobs[1].Company)
	assert.Empty(t, jobs[1].Location)
}

func TestGitHubTracker_FetchWithStatus_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tracker := newTestGitHubTracker(t, server.URL)

	jobs, healthy, errMsg := tracker.FetchWithStatus(context.Background())

	assert.Empty(t, jobs)
	assert.False(t, healthy)
	assert.Contains(t, errMsg, "SimplifyJobs/New-Grad-Positions")
}

func TestGitHubTracker_PartialFailureStaysHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/bad/repo/contents/README.md" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(listingReadme))
	}))
	defer server.Close()

	tracker := newTestGitHubTracker(t, server.URL)
	tracker.repos = append(tracker.repos, config.GitHubRepo{Owner: "bad", Repo: "repo", File: "README.md"})

	jobs, healthy, errMsg := tracker.FetchWithStatus(context.Background())

	assert.True(t, healthy)
	assert.Contains(t, errMsg, "bad/repo")
	assert.NotEmpty(t, jobs)
}

func TestGitHubTracker_NoRepos(t *testing.T) {
	tracker := newTestGitHubTracker(t, "http://unused.invalid")
	tracker.repos = nil

	jobs, healthy, errMsg := tracker.FetchWithStatus(context.Background())

	assert.Empty(t, jobs)
	assert.True(t, healthy)
	assert.Empty(t, errMsg)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "markdown link",
			input:    "[Stripe](https://stripe.com)",
			expected: "Stripe",
		},
		{
			name:     "bold link",
			input:    "**[Stripe](https://stripe.com)**",
			expected: "Stripe",
		},
		{
			name:     "image dropped",
			input:    "Stripe ![logo](https://stripe.com/logo.png)",
			expected: "Stripe",
		},
		{
			name:     "image-only cell leaves nothing behind",
			input:    "![Logo](x.png)",
			expected: "",
		},
		{
			name:     "plain text untouched",
			input:    "Software Engineer, New Grad",
			expected: "Software Engineer, New Grad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripMarkdown(tt.input))
		})
	}
}

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "markdown link",
			input:    "[Apply](https://stripe.com/jobs/123)",
			expected: "https://stripe.com/jobs/123",
		},
		{
			name:     "plain url",
			input:    "https://acme.example/jobs/1",
			expected: "https://acme.example/jobs/1",
		},
		{
			name:     "no url",
			input:    "closed",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractURL(tt.input))
		})
	}
}
