// Package sources implements the ingestion adapters that discover job
// postings: the GitHub listing tracker and the career-page scraper. Adapters
// never abort a run; per-source errors are summarized and reported through
// the health status so the tracker can alert on persistent failures.
package sources

import (
	"context"
	"strings"

	"github.com/go-johnnyhe/jobs/internal/domain"
)

// Adapter is one ingestion source.
type Adapter interface {
	// Name identifies the source in health records and alerts.
	Name() string

	// FetchWithStatus returns the postings found plus a health verdict.
	// A fetch is healthy when it attempted no sub-fetches or at least one
	// of them succeeded; errMsg summarizes what went wrong otherwise.
	FetchWithStatus(ctx context.Context) (jobs []domain.JobPosting, healthy bool, errMsg string)
}

// maxErrorSummary caps how many per-target errors make it into the health
// record. The full list still goes to the log.
const maxErrorSummary = 3

// summarizeErrors joins the first few error messages for the health record.
func summarizeErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) > maxErrorSummary {
		errs = errs[:maxErrorSummary]
	}
	return strings.Join(errs, "; ")
}
