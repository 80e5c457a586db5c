package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/trissim/reddit-post-downloader/pkg/window"
)

// ErrValidationFailed indicates the manifest failed validation.
var ErrValidationFailed = errors.New("manifest validation failed")

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Path locates the problematic field (e.g., "job.subreddit").
	Path string

	// Message describes the validation failure.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, ve := range e {
		parts = append(parts, ve.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap allows errors.Is(err, ErrValidationFailed).
func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks the manifest after defaults have been applied.
func (m *Manifest) Validate() error {
	var errs ValidationErrors

	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if m.Version != "1.0" {
		add("version", "must be %q, got %q", "1.0", m.Version)
	}
	if strings.TrimSpace(m.Job.Subreddit) == "" {
		add("job.subreddit", "is required")
	}
	if _, err := window.ParseGranularity(m.Job.Window); err != nil {
		add("job.window", "must be %q or %q, got %q", window.Monthly, window.Yearly, m.Job.Window)
	}

	start, startSet, err := parseOptionalDate(m.Job.StartDate)
	if err != nil {
		add("job.start_date", "invalid date %q (use 2006-01-02 or RFC3339)", m.Job.StartDate)
	}
	end, endSet, err := parseOptionalDate(m.Job.EndDate)
	if err != nil {
		add("job.end_date", "invalid date %q (use 2006-01-02 or RFC3339)", m.Job.EndDate)
	}
	if startSet && endSet && !start.Before(end) {
		add("job", "start_date must be before end_date")
	}
	if !startSet && !m.Job.FromBeginningEnabled() {
		add("job.start_date", "is required when from_beginning is false")
	}

	switch strings.ToLower(filepath.Ext(m.Output.Destination)) {
	case ".csv", ".xlsx":
	default:
		add("output.destination", "must end in .csv or .xlsx, got %q", m.Output.Destination)
	}

	baseDelay, err := m.Limits.BaseDelayDuration()
	if err != nil {
		add("limits.base_delay", "invalid duration %q", m.Limits.BaseDelay)
	}
	maxDelay, err := m.Limits.MaxDelayDuration()
	if err != nil {
		add("limits.max_delay", "invalid duration %q", m.Limits.MaxDelay)
	}
	if baseDelay > 0 && maxDelay > 0 && maxDelay < baseDelay {
		add("limits", "max_delay must be >= base_delay")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// StartTime returns the parsed start date. ok is false when unset (the
// caller defaults to the subreddit's creation date).
func (j *JobConfig) StartTime() (t time.Time, ok bool, err error) {
	return parseOptionalDate(j.StartDate)
}

// EndTime returns the parsed end date. ok is false when unset (the caller
// defaults to now).
func (j *JobConfig) EndTime() (t time.Time, ok bool, err error) {
	return parseOptionalDate(j.EndDate)
}

// Granularity returns the parsed window granularity.
func (j *JobConfig) Granularity() (window.Granularity, error) {
	return window.ParseGranularity(j.Window)
}

func parseOptionalDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q", s)
}
