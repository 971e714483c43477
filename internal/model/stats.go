package model

import "time"

// DailyStats holds the aggregate counters for one UTC calendar date.
// Counters only ever increase; the row is created implicitly on first
// increment.
type DailyStats struct {
	Date              string `json:"date"` // "2006-01-02", UTC
	PositiveCount     int64  `json:"positive_count"`
	QuestionCount     int64  `json:"question_count"`
	ConstructiveCount int64  `json:"constructive_count"`
	BlockedCount      int64  `json:"blocked_count"`
	TotalProcessed    int64  `json:"total_processed"`
}

// StatsDelta is a set of per-counter additions applied atomically to one
// day's aggregate.
type StatsDelta struct {
	Positive     int64
	Question     int64
	Constructive int64
	Blocked      int64
	Processed    int64
}

// IsZero reports whether the delta would change nothing.
func (d StatsDelta) IsZero() bool {
	return d.Positive == 0 && d.Question == 0 && d.Constructive == 0 &&
		d.Blocked == 0 && d.Processed == 0
}

// StatsDate formats a time as the UTC aggregate key.
func StatsDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// BatchResult summarizes one pipeline invocation. It is returned to the
// trigger as data; a batch run never surfaces as an error, partial failures
// are enumerated in Errors.
type BatchResult struct {
	ProcessedCount int      `json:"processed_count"`
	HiddenCount    int      `json:"hidden_count"`
	HeldCount      int      `json:"held_count"`
	Errors         []string `json:"errors"`
}
