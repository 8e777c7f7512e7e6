package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-johnnyhe/jobs/internal/domain"
)

func testJobs(n int) []domain.JobPosting {
	jobs := make([]domain.JobPosting, 0, n)
	for i := 0; i < n; i++ {
		jobs = append(jobs, domain.JobPosting{
			Company:  "Stripe",
			Title:    fmt.Sprintf("Software Engineer, New Grad %d", i),
			URL:      fmt.Sprintf("https://stripe.com/jobs/%d", i),
			Location: "Seattle, WA",
			Source:   "career_page",
		})
	}
	return jobs
}

func captureWebhook(t *testing.T) (*httptest.Server, *[]webhookPayload) {
	t.Helper()

	var payloads []webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		payloads = append(payloads, p)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	return server, &payloads
}

func TestDiscord_Notify(t *testing.T) {
	server, payloads := captureWebhook(t)
	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.Notify(context.Background(), testJobs(3), false)

	assert.True(t, ok)
	require.Len(t, *payloads, 1)

	p := (*payloads)[0]
	assert.Equal(t, "**New Job Alert!** Found 3 new position(s)", p.Content)
	require.Len(t, p.Embeds, 3)
	assert.Equal(t, "Stripe - Software Engineer, New Grad 0", p.Embeds[0].Title)
	assert.Equal(t, "https://stripe.com/jobs/0", p.Embeds[0].URL)
	assert.Equal(t, 0x635BFF, p.Embeds[0].Color)
	require.Len(t, p.Embeds[0].Fields, 2)
	assert.Equal(t, "Seattle, WA", p.Embeds[0].Fields[0].Value)
	assert.Equal(t, "career_page", p.Embeds[0].Fields[1].Value)
}

func TestDiscord_Notify_BatchesOverflow(t *testing.T) {
	server, payloads := captureWebhook(t)
	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.Notify(context.Background(), testJobs(23), false)

	assert.True(t, ok)
	require.Len(t, *payloads, 3)

	assert.Equal(t, "**New Job Alert!** Found 23 new position(s)", (*payloads)[0].Content)
	assert.Len(t, (*payloads)[0].Embeds, 10)

	assert.Equal(t, "(continued) 10 more position(s):", (*payloads)[1].Content)
	assert.Len(t, (*payloads)[1].Embeds, 10)

	assert.Equal(t, "(continued) 3 more position(s):", (*payloads)[2].Content)
	assert.Len(t, (*payloads)[2].Embeds, 3)
}

func TestDiscord_Notify_EmptyIsSuccess(t *testing.T) {
	server, payloads := captureWebhook(t)
	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.Notify(context.Background(), nil, false)

	assert.True(t, ok)
	assert.Empty(t, *payloads)
}

func TestDiscord_Notify_DryRunDoesNotTransmit(t *testing.T) {
	server, payloads := captureWebhook(t)
	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.Notify(context.Background(), testJobs(2), true)

	assert.True(t, ok)
	assert.Empty(t, *payloads)
}

func TestDiscord_Notify_NoWebhookURL(t *testing.T) {
	d := NewDiscord("", slog.New(slog.DiscardHandler))

	ok := d.Notify(context.Background(), testJobs(1), false)

	assert.False(t, ok)
}

func TestDiscord_Notify_ServerErrorReturnsFalse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.Notify(context.Background(), testJobs(1), false)

	assert.False(t, ok)
}

func TestDiscord_NotifySourceFailure(t *testing.T) {
	server, payloads := captureWebhook(t)
	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.NotifySourceFailure(context.Background(), "github", 5, "unexpected status 403", false)

	assert.True(t, ok)
	require.Len(t, *payloads, 1)

	p := (*payloads)[0]
	assert.Contains(t, p.Content, "github")
	assert.Contains(t, p.Content, "5 consecutive")
	require.Len(t, p.Embeds, 1)
	assert.Equal(t, "Source failure: github", p.Embeds[0].Title)
	assert.Equal(t, "unexpected status 403", p.Embeds[0].Fields[1].Value)
}

func TestDiscord_NotifySourceFailure_EmptyErrorGetsPlaceholder(t *testing.T) {
	server, payloads := captureWebhook(t)
	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.NotifySourceFailure(context.Background(), "careers", 3, "", false)

	assert.True(t, ok)
	require.Len(t, *payloads, 1)
	assert.Equal(t, "unknown source failure", (*payloads)[0].Embeds[0].Fields[1].Value)
}

func TestDiscord_NotifySourceRecovery(t *testing.T) {
	server, payloads := captureWebhook(t)
	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.NotifySourceRecovery(context.Background(), "github", 7, false)

	assert.True(t, ok)
	require.Len(t, *payloads, 1)

	p := (*payloads)[0]
	assert.Contains(t, p.Content, "Source Recovered")
	require.Len(t, p.Embeds, 1)
	assert.Equal(t, "7 failed run(s)", p.Embeds[0].Fields[0].Value)
}

func TestDiscord_SendTest(t *testing.T) {
	server, payloads := captureWebhook(t)
	d := NewDiscord(server.URL, slog.New(slog.DiscardHandler))

	ok := d.SendTest(context.Background())

	assert.True(t, ok)
	require.Len(t, *payloads, 1)
	assert.Equal(t, "Job Tracker Test Notification", (*payloads)[0].Content)
}

func TestCompanyColor(t *testing.T) {
	tests := []struct {
		name     string
		company  string
		expected int
	}{
		{
			name:     "known company",
			company:  "Netflix",
			expected: 0xE50914,
		},
		{
			name:     "substring match",
			company:  "Meta Platforms",
			expected: 0x0866FF,
		},
		{
			name:     "unknown company uses default",
			company:  "Acme Corp",
			expected: defaultColor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, companyColor(tt.company))
		})
	}
}
