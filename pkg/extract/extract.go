// Package extract orchestrates a complete extraction job.
//
// The extractor walks the window plan in order, skips windows already
// marked complete, drives the enumerator over the rest (resuming from the
// saved cursor when one exists), deduplicates by record id against the
// export store, and flushes records in batches with a checkpoint after
// every flush. A crash at any point loses at most one unflushed batch,
// which the next run re-fetches and deduplicates.
package extract

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/trissim/reddit-post-downloader/pkg/export"
	"github.com/trissim/reddit-post-downloader/pkg/progress"
	"github.com/trissim/reddit-post-downloader/pkg/reddit"
	"github.com/trissim/reddit-post-downloader/pkg/search"
	"github.com/trissim/reddit-post-downloader/pkg/window"
)

// Config configures extractor behavior.
type Config struct {
	// BatchSize is the number of buffered records per flush.
	// Default: 25.
	BatchSize int
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() Config {
	return Config{BatchSize: 25}
}

// Summary contains aggregate statistics from a completed run.
type Summary struct {
	// WindowsPlanned is the total number of windows in the plan.
	WindowsPlanned int

	// WindowsSkipped is the count of windows already complete on entry.
	WindowsSkipped int

	// WindowsCompleted is the count of windows completed by this run.
	WindowsCompleted int

	// RecordsExported is the number of new records written by this run.
	RecordsExported int64

	// RecordsDeduped is the count of re-seen records skipped by id.
	RecordsDeduped int64

	// Duration is the total run time.
	Duration time.Duration
}

// Extractor executes one extraction job.
//
// Extractor is safe for single use only. Create a new Extractor for each
// run.
type Extractor struct {
	enum     *search.Enumerator
	comments reddit.CommentFetcher
	store    export.Store
	tracker  *progress.Tracker
	plan     []window.Window
	config   Config
	logger   *zap.Logger
}

// New creates an extractor.
//
// comments may be nil, in which case the comment text column is left
// empty. logger may be nil for silent operation.
func New(enum *search.Enumerator, comments reddit.CommentFetcher, store export.Store, tracker *progress.Tracker, plan []window.Window, cfg Config, logger *zap.Logger) *Extractor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		enum:     enum,
		comments: comments,
		store:    store,
		tracker:  tracker,
		plan:     plan,
		config:   cfg,
		logger:   logger,
	}
}

// Run executes the job and returns summary statistics.
//
// Run blocks until all windows complete, the context is cancelled, or an
// error escalates. On a window-fatal or non-retryable error the job is
// marked failed with its last checkpoint intact; a subsequent run with the
// same parameters resumes the in-progress window from its saved cursor.
func (x *Extractor) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{WindowsPlanned: len(x.plan)}

	known := x.store.ExistingIDs()

	// A crash between the export append and the count checkpoint leaves
	// the saved count behind the store's rows; the store is the authority.
	if err := x.tracker.ReconcileRecords(int64(x.store.Count())); err != nil {
		return x.finish(summary, start), err
	}

	for i, w := range x.plan {
		if x.tracker.State().WindowComplete(i) {
			summary.WindowsSkipped++
			continue
		}

		x.logger.Info("window started",
			zap.Int("window", i),
			zap.Int("windows_total", len(x.plan)),
			zap.String("range", w.String()))

		if err := x.tracker.MarkWindowStarted(i); err != nil {
			return x.finish(summary, start), err
		}
		resume := x.tracker.State().Cursor
		if resume != nil {
			x.logger.Info("resuming window from cursor",
				zap.Int("window", i),
				zap.Time("before", resume.Before))
		}

		result, err := x.enumerateWindow(ctx, w, resume, known, summary)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Checkpoint already saved; the next run resumes here.
				return x.finish(summary, start), err
			}
			x.logger.Error("window failed",
				zap.Int("window", i),
				zap.String("range", w.String()),
				zap.Bool("non_retryable", reddit.IsNonRetryable(err)),
				zap.Error(err))
			if failErr := x.tracker.MarkFailed(err); failErr != nil {
				x.logger.Error("failed to persist failure state", zap.Error(failErr))
			}
			return x.finish(summary, start), err
		}

		if err := x.tracker.MarkWindowComplete(i); err != nil {
			return x.finish(summary, start), err
		}
		summary.WindowsCompleted++

		x.logger.Info("window complete",
			zap.Int("window", i),
			zap.Int("items_checked", result.ItemsChecked),
			zap.Int("items_emitted", result.ItemsEmitted),
			zap.Int("calls", result.Calls))
	}

	if err := x.tracker.MarkFinished(); err != nil {
		return x.finish(summary, start), err
	}

	x.logger.Info("extraction finished",
		zap.Int("windows_completed", summary.WindowsCompleted),
		zap.Int("windows_skipped", summary.WindowsSkipped),
		zap.Int64("records_exported", summary.RecordsExported),
		zap.Int64("records_deduped", summary.RecordsDeduped))

	return x.finish(summary, start), nil
}

// enumerateWindow streams one window, batching and checkpointing as it
// goes. Whatever is buffered when enumeration stops, for any reason, is
// flushed before returning.
func (x *Extractor) enumerateWindow(ctx context.Context, w window.Window, resume *progress.Cursor, known map[string]struct{}, summary *Summary) (search.Result, error) {
	var buffer []export.Record
	var oldest reddit.Post

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		if err := x.store.Append(buffer); err != nil {
			return err
		}
		if err := x.tracker.AddRecords(int64(len(buffer))); err != nil {
			return err
		}
		summary.RecordsExported += int64(len(buffer))
		x.logger.Debug("batch flushed",
			zap.Int("records", len(buffer)),
			zap.Int("store_rows", x.store.Count()))
		buffer = buffer[:0]
		// Cursor saved after the records it covers are durable: a crash
		// in between re-fetches the batch and dedups by id.
		return x.tracker.AdvanceCursor(progress.Cursor{Before: oldest.Created, LastID: oldest.ID})
	}

	result, err := x.enum.EnumerateWindow(ctx, w, resume, func(p reddit.Post) error {
		oldest = p
		if _, dup := known[p.ID]; dup {
			summary.RecordsDeduped++
			return nil
		}
		known[p.ID] = struct{}{}
		buffer = append(buffer, x.mapRecord(ctx, p))
		if len(buffer) >= x.config.BatchSize {
			return flush()
		}
		return nil
	})

	if flushErr := flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	return result, err
}

// mapRecord converts a post into an export record, fetching its comment
// text. A comment fetch failure is record-level: the column is left empty
// and the window continues.
func (x *Extractor) mapRecord(ctx context.Context, p reddit.Post) export.Record {
	rec := export.Record{
		ID:        p.ID,
		URL:       p.URL,
		Title:     p.Title,
		Date:      p.Created,
		User:      p.Author,
		NVotes:    p.Score,
		NComments: p.NumComments,
		TextOP:    p.SelfText,
	}
	if x.comments != nil {
		text, err := x.comments.Comments(ctx, p.ID)
		if err != nil {
			x.logger.Warn("comment fetch failed, leaving column empty",
				zap.String("post_id", p.ID),
				zap.Error(err))
		} else {
			rec.TextComments = text
		}
	}
	return rec
}

func (x *Extractor) finish(summary *Summary, start time.Time) *Summary {
	summary.Duration = time.Since(start)
	return summary
}
