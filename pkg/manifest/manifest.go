// Package manifest provides loading and validation of extraction job
// manifests.
//
// A job manifest is a YAML or JSON file that configures one extraction:
// the target subreddit and query, the date range and window granularity,
// rate-limit behavior, and the output destination.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	job:
//	  subreddit: Python
//	  query: tutorial
//	  start_date: "2020-01-01"
//	  end_date: "2024-01-01"
//	  window: monthly
//	output:
//	  destination: reddit_data.xlsx
//	limits:
//	  base_delay: 2s
//	  max_delay: 5m
package manifest

import (
	"time"
)

// Manifest represents a validated job manifest.
//
// Required fields are Version and Job. Output, Limits, and State are
// optional with defaults applied during loading.
type Manifest struct {
	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Job configures the extraction target and date range.
	Job JobConfig `json:"job" yaml:"job"`

	// Output configures the export destination (optional).
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`

	// Limits configures rate limiting and retry behavior (optional).
	Limits LimitsConfig `json:"limits,omitempty" yaml:"limits,omitempty"`

	// State configures checkpoint storage (optional).
	State StateConfig `json:"state,omitempty" yaml:"state,omitempty"`
}

// JobConfig configures the extraction target.
type JobConfig struct {
	// Subreddit is the target subreddit, without the r/ prefix.
	Subreddit string `json:"subreddit" yaml:"subreddit"`

	// Query is the search query. "*" (the default) matches all posts.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// StartDate is the inclusive start of the range, "2006-01-02" or
	// RFC3339. Empty with FromBeginning set starts at the subreddit's
	// creation date.
	StartDate string `json:"start_date,omitempty" yaml:"start_date,omitempty"`

	// EndDate is the exclusive end of the range. Empty means now.
	EndDate string `json:"end_date,omitempty" yaml:"end_date,omitempty"`

	// Window is the time window granularity: "monthly" or "yearly".
	// Default: monthly.
	Window string `json:"window,omitempty" yaml:"window,omitempty"`

	// FromBeginning starts the range at the subreddit's creation date
	// when StartDate is empty. Default: true.
	FromBeginning *bool `json:"from_beginning,omitempty" yaml:"from_beginning,omitempty"`
}

// OutputConfig configures the export destination.
type OutputConfig struct {
	// Destination is the output file path. Extension selects the format:
	// .csv or .xlsx. Default: "reddit_data.xlsx".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`
}

// LimitsConfig configures rate limiting and retry behavior.
type LimitsConfig struct {
	// BaseDelay is the starting backoff delay (Go duration string).
	// Default: "2s".
	BaseDelay string `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`

	// MaxDelay caps the backoff delay. Default: "5m".
	MaxDelay string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`

	// PauseEvery applies the politeness pause on every Nth call.
	// Default: 5.
	PauseEvery int `json:"pause_every,omitempty" yaml:"pause_every,omitempty"`

	// MaxRetries bounds retries of a single call. Default: 5.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`

	// WindowItemCap bounds items checked per window. Default: 10000.
	WindowItemCap int `json:"window_item_cap,omitempty" yaml:"window_item_cap,omitempty"`

	// BatchSize is the number of records buffered per flush. Default: 25.
	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
}

// StateConfig configures checkpoint storage.
type StateConfig struct {
	// Dir is the progress state directory. Default: ".reddit-extract".
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultQuery       = "*"
	DefaultWindow      = "monthly"
	DefaultDestination = "reddit_data.xlsx"
	DefaultBaseDelay   = "2s"
	DefaultMaxDelay    = "5m"
	DefaultStateDir    = ".reddit-extract"

	DefaultPauseEvery    = 5
	DefaultMaxRetries    = 5
	DefaultWindowItemCap = 10000
	DefaultBatchSize     = 25
)

// ApplyDefaults fills in default values for optional fields.
func (m *Manifest) ApplyDefaults() {
	if m.Job.Query == "" {
		m.Job.Query = DefaultQuery
	}
	if m.Job.Window == "" {
		m.Job.Window = DefaultWindow
	}
	if m.Job.FromBeginning == nil {
		enabled := true
		m.Job.FromBeginning = &enabled
	}
	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
	if m.Limits.BaseDelay == "" {
		m.Limits.BaseDelay = DefaultBaseDelay
	}
	if m.Limits.MaxDelay == "" {
		m.Limits.MaxDelay = DefaultMaxDelay
	}
	if m.Limits.PauseEvery <= 0 {
		m.Limits.PauseEvery = DefaultPauseEvery
	}
	if m.Limits.MaxRetries <= 0 {
		m.Limits.MaxRetries = DefaultMaxRetries
	}
	if m.Limits.WindowItemCap <= 0 {
		m.Limits.WindowItemCap = DefaultWindowItemCap
	}
	if m.Limits.BatchSize <= 0 {
		m.Limits.BatchSize = DefaultBatchSize
	}
	if m.State.Dir == "" {
		m.State.Dir = DefaultStateDir
	}
}

// FromBeginningEnabled reports whether the range should default to the
// subreddit's creation date.
func (j *JobConfig) FromBeginningEnabled() bool {
	return j.FromBeginning == nil || *j.FromBeginning
}

// BaseDelayDuration parses the configured base delay.
func (l *LimitsConfig) BaseDelayDuration() (time.Duration, error) {
	return time.ParseDuration(l.BaseDelay)
}

// MaxDelayDuration parses the configured max delay.
func (l *LimitsConfig) MaxDelayDuration() (time.Duration, error) {
	return time.ParseDuration(l.MaxDelay)
}
