// Package notify delivers job and source-health alerts through a Discord
// webhook. Every send reports success as a plain boolean; callers use that to
// decide whether an alert may be confirmed as delivered.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-johnnyhe/jobs/internal/domain"
)

// maxEmbedsPerMessage is Discord's per-message embed limit.
const maxEmbedsPerMessage = 10

// defaultColor is Discord blurple, used for companies without a brand color.
const defaultColor = 0x5865F2

// companyColors maps company-name substrings to embed brand colors.
var companyColors = map[string]int{
	"google":    0x4285F4,
	"meta":      0x0866FF,
	"facebook":  0x1877F2,
	"amazon":    0xFF9900,
	"apple":     0xA2AAAD,
	"netflix":   0xE50914,
	"airbnb":    0xFF5A5F,
	"rubrik":    0x00A3E0,
	"microsoft": 0x00A4EF,
	"stripe":    0x635BFF,
}

type webhookPayload struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Discord sends alerts to a single webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewDiscord creates a notifier for the given webhook URL. An empty URL is
// allowed; every send then fails with a logged warning, which keeps alert
// confirmations pending until a webhook is configured.
func NewDiscord(webhookURL string, logger *slog.Logger) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Notify sends the postings as embed batches. The first message announces
// the total count; overflow batches follow as continuation messages. Returns
// whether the announcement message was delivered.
func (d *Discord) Notify(ctx context.Context, jobs []domain.JobPosting, dryRun bool) bool {
	if len(jobs) == 0 {
		d.logger.Info("No new postings to notify about")
		return true
	}
	if d.webhookURL == "" {
		d.logger.Warn("No Discord webhook URL configured")
		return false
	}

	first := jobs
	if len(first) > maxEmbedsPerMessage {
		first = first[:maxEmbedsPerMessage]
	}

	payload := webhookPayload{
		Content: fmt.Sprintf("**New Job Alert!** Found %d new position(s)", len(jobs)),
		Embeds:  buildJobEmbeds(first),
	}

	if !d.send(ctx, payload, dryRun) {
		return false
	}

	for i := maxEmbedsPerMessage; i < len(jobs); i += maxEmbedsPerMessage {
		batch := jobs[i:min(i+maxEmbedsPerMessage, len(jobs))]
		continuation := webhookPayload{
			Content: fmt.Sprintf("(continued) %d more position(s):", len(batch)),
			Embeds:  buildJobEmbeds(batch),
		}
		if !d.send(ctx, continuation, dryRun) {
			d.logger.Warn("Continuation batch failed to send",
				slog.Int("batch_start", i),
			)
		}
	}

	d.logger.Info("Sent job notification",
		slog.Int("count", len(jobs)),
		slog.Bool("dry_run", dryRun),
	)
	return true
}

// NotifySourceFailure alerts that a source has been failing for the given
// number of consecutive runs.
func (d *Discord) NotifySourceFailure(ctx context.Context, source string, failures int, errMsg string, dryRun bool) bool {
	if errMsg == "" {
		errMsg = "unknown source failure"
	}

	payload := webhookPayload{
		Content: fmt.Sprintf(":warning: **Source Failing** `%s` has failed %d consecutive run(s)", source, failures),
		Embeds: []embed{{
			Title: fmt.Sprintf("Source failure: %s", source),
			Color: 0xED4245, // red
			Fields: []embedField{
				{Name: "Consecutive Failures", Value: fmt.Sprintf("%d", failures), Inline: true},
				{Name: "Last Error", Value: truncate(errMsg, 1024), Inline: false},
			},
		}},
	}

	return d.send(ctx, payload, dryRun)
}

// NotifySourceRecovery alerts that a previously failing source is healthy
// again.
func (d *Discord) NotifySourceRecovery(ctx context.Context, source string, recoveredAfter int, dryRun bool) bool {
	payload := webhookPayload{
		Content: fmt.Sprintf(":white_check_mark: **Source Recovered** `%s` is healthy again", source),
		Embeds: []embed{{
			Title: fmt.Sprintf("Source recovered: %s", source),
			Color: 0x57F287, // green
			Fields: []embedField{
				{Name: "Recovered After", Value: fmt.Sprintf("%d failed run(s)", recoveredAfter), Inline: true},
			},
		}},
	}

	return d.send(ctx, payload, dryRun)
}

// SendTest sends a connectivity-check message.
func (d *Discord) SendTest(ctx context.Context) bool {
	payload := webhookPayload{
		Content: "Job Tracker Test Notification",
		Embeds: []embed{{
			Title:       "Test Job Alert",
			Description: "If you see this, your Discord webhook is working correctly!",
			Color:       0x00FF00,
			Fields: []embedField{
				{Name: "Status", Value: "Connected", Inline: true},
			},
		}},
	}

	return d.send(ctx, payload, false)
}

// send posts one payload to the webhook. Dry runs log the formatted payload
// and report success without transmitting.
func (d *Discord) send(ctx context.Context, payload webhookPayload, dryRun bool) bool {
	if d.webhookURL == "" {
		d.logger.Warn("No Discord webhook URL configured")
		return false
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("Failed to marshal webhook payload",
			slog.Any("error", err),
		)
		return false
	}

	if dryRun {
		d.logger.Info("Dry run, would send webhook payload",
			slog.String("payload", string(body)),
		)
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("Failed to build webhook request",
			slog.Any("error", err),
		)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("Failed to send Discord notification",
			slog.Any("error", err),
		)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.logger.Error("Discord webhook rejected payload",
			slog.Int("status", resp.StatusCode),
		)
		return false
	}

	return true
}

func buildJobEmbeds(jobs []domain.JobPosting) []embed {
	embeds := make([]embed, 0, len(jobs))
	for _, job := range jobs {
		location := job.Location
		if location == "" {
			location = "Not specified"
		}
		embeds = append(embeds, embed{
			Title: fmt.Sprintf("%s - %s", job.Company, job.Title),
			URL:   job.URL,
			Color: companyColor(job.Company),
			Fields: []embedField{
				{Name: "Location", Value: location, Inline: true},
				{Name: "Source", Value: job.Source, Inline: true},
			},
		})
	}
	return embeds
}

func companyColor(company string) int {
	lower := strings.ToLower(company)
	for name, color := range companyColors {
		if strings.Contains(lower, name) {
			return color
		}
	}
	return defaultColor
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
