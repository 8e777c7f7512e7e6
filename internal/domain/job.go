package domain

import "time"

// JobPosting represents one advertised position as produced by an
// ingestion source. Postings are constructed fresh on every run and
// never mutated.
type JobPosting struct {
	Company    string `json:"company"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Location   string `json:"location"`
	Source     string `json:"source"`
	DatePosted string `json:"date_posted,omitempty"`
}

// UniqueID returns the deduplication identity for a posting. Identity is
// purely syntactic: two postings are the same iff company, title and URL
// match exactly. Trailing whitespace or URL tracking parameters therefore
// produce distinct identities; that is documented behavior, not a bug, so
// no normalization happens here.
func (j JobPosting) UniqueID() string {
	return j.Company + "|" + j.Title + "|" + j.URL
}

// SeenJob is a seen_jobs row: a posting plus bookkeeping fields.
type SeenJob struct {
	JobPosting
	FirstSeen time.Time `json:"first_seen"`
	Notified  bool      `json:"notified"`
}

// StorageStats summarizes the dedup store contents.
type StorageStats struct {
	TotalJobs           int            `json:"total_jobs"`
	NotifiedJobs        int            `json:"notified_jobs"`
	PendingNotification int            `json:"pending_notification"`
	ByCompany           map[string]int `json:"by_company"`
}
