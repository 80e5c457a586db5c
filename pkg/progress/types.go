package progress

import (
	"time"

	"github.com/trissim/reddit-post-downloader/pkg/window"
)

// JobStatus is the lifecycle state of an extraction job.
//
// NOTE: These values are persisted in state.json and are part of the stable
// on-disk contract.
type JobStatus string

const (
	JobStatusRunning  JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
	JobStatusFailed   JobStatus = "failed"
)

// Cursor marks how far into a window enumeration has progressed: the
// timestamp (and tie-breaking id) of the oldest post observed so far.
// A saved cursor only ever moves toward the window's older boundary.
type Cursor struct {
	// Before is the next upper time bound for the window's enumeration.
	Before time.Time `json:"before"`

	// LastID is the id of the oldest post observed, for tie-breaking and
	// diagnostics.
	LastID string `json:"last_id,omitempty"`
}

// JobState is the persistent record written to state.json.
//
// The schema is designed for backward-compatible extension: unknown fields
// are ignored on load, and new fields are additive.
type JobState struct {
	JobID       string             `json:"job_id"`
	Subreddit   string             `json:"subreddit"`
	Query       string             `json:"query"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	Granularity window.Granularity `json:"granularity"`

	Status JobStatus `json:"status"`

	// CompletedWindows holds indices into the regenerated window plan.
	// A window listed here is never re-entered.
	CompletedWindows []int `json:"completed_windows"`

	// CurrentWindow is the index of the window being enumerated, or -1
	// when no window has been started yet.
	CurrentWindow int `json:"current_window"`

	// Cursor is the resume position within CurrentWindow, nil when the
	// window has not produced a page yet.
	Cursor *Cursor `json:"cursor,omitempty"`

	// RecordsExported mirrors the row count of the export store.
	RecordsExported int64 `json:"records_exported"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// LastError records the failure reason when Status is failed.
	LastError string `json:"last_error,omitempty"`
}

// WindowComplete reports whether the window at index is marked complete.
func (s *JobState) WindowComplete(index int) bool {
	for _, i := range s.CompletedWindows {
		if i == index {
			return true
		}
	}
	return false
}
