package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trissim/reddit-post-downloader/internal/config"
	"github.com/trissim/reddit-post-downloader/internal/observability"
	"github.com/trissim/reddit-post-downloader/pkg/backoff"
	"github.com/trissim/reddit-post-downloader/pkg/export"
	"github.com/trissim/reddit-post-downloader/pkg/extract"
	"github.com/trissim/reddit-post-downloader/pkg/manifest"
	"github.com/trissim/reddit-post-downloader/pkg/progress"
	"github.com/trissim/reddit-post-downloader/pkg/reddit"
	"github.com/trissim/reddit-post-downloader/pkg/search"
	"github.com/trissim/reddit-post-downloader/pkg/window"
)

// redditFounding is the fallback range start when the subreddit's
// creation date cannot be determined: no subreddit predates Reddit.
var redditFounding = time.Date(2005, 6, 23, 0, 0, 0, 0, time.UTC)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an extraction job from a manifest",
	Long: `Run an extraction job as defined in a YAML or JSON manifest file.

The manifest specifies the target subreddit and query, the date range and
window granularity, rate-limit behavior, and the output destination.

Progress is checkpointed continuously. Re-running the same manifest after
an interruption resumes from the last checkpoint; already completed
windows are skipped and already exported posts are not duplicated.

Example:
  reddit-extract run --job job.yaml
  reddit-extract run --job job.yaml --output history.csv
  reddit-extract run --job job.yaml --wipe`,
	RunE: runRun,
}

var (
	runJobPath  string
	runOutput   string
	runStateDir string
	runWipe     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runJobPath, "job", "j", "", "Path to job manifest (required)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Override output destination")
	runCmd.Flags().StringVar(&runStateDir, "state-dir", "", "Override progress state directory")
	runCmd.Flags().BoolVar(&runWipe, "wipe", false, "Discard saved progress and start over")

	_ = runCmd.MarkFlagRequired("job")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := loadManifestWithOverrides()
	if err != nil {
		return err
	}

	creds, err := config.LoadCredentials(rootEnvFile)
	if err != nil {
		observability.CLILogger.Error("Failed to load credentials", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Missing Reddit credentials", err)
	}

	client, err := reddit.NewClient(reddit.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		UserAgent:    creds.UserAgent,
	})
	if err != nil {
		observability.CLILogger.Error("Failed to create API client", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid client configuration", err)
	}

	return executeExtraction(ctx, m, client)
}

// loadManifestWithOverrides loads the manifest at runJobPath and applies
// command-line overrides, re-validating afterwards.
func loadManifestWithOverrides() (*manifest.Manifest, error) {
	m, err := manifest.Load(runJobPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load manifest",
			zap.String("path", runJobPath),
			zap.Error(err))
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	if runOutput != "" {
		m.Output.Destination = runOutput
	}
	if runStateDir != "" {
		m.State.Dir = runStateDir
	}
	if err := m.Validate(); err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	observability.CLILogger.Debug("Loaded manifest",
		zap.String("path", runJobPath),
		zap.String("subreddit", m.Job.Subreddit),
		zap.String("query", m.Job.Query),
		zap.String("destination", m.Output.Destination))

	return m, nil
}

// resolveRange determines the concrete [start, end) range for the job.
//
// An unset start date resolves to the subreddit's creation date, falling
// back to Reddit's founding when the lookup fails. An unset end date
// resolves to now.
func resolveRange(ctx context.Context, m *manifest.Manifest, about reddit.AboutFetcher) (start, end time.Time, err error) {
	start, ok, err := m.Job.StartTime()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		start, err = about.CreatedAt(ctx, m.Job.Subreddit)
		switch {
		case err == nil:
			observability.CLILogger.Info("Resolved range start from subreddit creation date",
				zap.String("subreddit", m.Job.Subreddit),
				zap.Time("start", start))
		case reddit.IsSubredditNotFound(err) || reddit.IsInvalidCredentials(err):
			return time.Time{}, time.Time{}, err
		default:
			observability.CLILogger.Warn("Could not determine subreddit creation date, using Reddit founding date",
				zap.String("subreddit", m.Job.Subreddit),
				zap.Error(err))
			start = redditFounding
		}
	}

	end, ok, err = m.Job.EndTime()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		// Next UTC midnight, so re-running the same manifest later the
		// same day resolves to the same range and thus the same job id.
		end = time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("range start %s is not before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

// executeExtraction runs the extraction job end to end.
func executeExtraction(ctx context.Context, m *manifest.Manifest, client *reddit.Client) error {
	start, end, err := resolveRange(ctx, m, client)
	if err != nil {
		observability.CLILogger.Error("Failed to resolve date range", zap.Error(err))
		if reddit.IsSubredditNotFound(err) {
			return exitError(foundry.ExitInvalidArgument, "Subreddit not found", err)
		}
		if reddit.IsInvalidCredentials(err) {
			return exitError(foundry.ExitInvalidArgument, "Invalid Reddit credentials", err)
		}
		return exitError(foundry.ExitInvalidArgument, "Invalid date range", err)
	}

	granularity, err := m.Job.Granularity()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid window granularity", err)
	}
	plan, err := window.Plan(start, end, granularity)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid window plan", err)
	}

	// The job id is stable across runs (it is how resume finds saved
	// state); the run id is unique per invocation for log correlation.
	jobID := progress.JobKey(m.Job.Subreddit, m.Job.Query, start, end, granularity)
	runID := uuid.New().String()
	store := progress.NewStore(m.State.Dir)

	if runWipe {
		if err := store.Wipe(jobID); err != nil {
			observability.CLILogger.Error("Failed to wipe saved progress", zap.Error(err))
			return exitError(foundry.ExitFileWriteError, "Failed to wipe saved progress", err)
		}
		observability.CLILogger.Info("Discarded saved progress", zap.String("job_id", jobID))
	}

	tracker, resumed, err := progress.NewTracker(store, progress.JobState{
		JobID:       jobID,
		Subreddit:   m.Job.Subreddit,
		Query:       m.Job.Query,
		Start:       start,
		End:         end,
		Granularity: granularity,
	})
	if err != nil {
		observability.CLILogger.Error("Failed to initialize progress state", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to initialize progress state", err)
	}

	dest, err := export.Open(m.Output.Destination)
	if err != nil {
		observability.CLILogger.Error("Failed to open export destination",
			zap.String("destination", m.Output.Destination),
			zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to open export destination", err)
	}

	baseDelay, _ := m.Limits.BaseDelayDuration()
	maxDelay, _ := m.Limits.MaxDelayDuration()
	limiter := backoff.NewLimiter(backoff.NewPolicy(baseDelay, maxDelay), m.Limits.PauseEvery)

	enum := search.New(client, limiter, m.Job.Subreddit, m.Job.Query, search.Config{
		WindowItemCap: m.Limits.WindowItemCap,
		MaxRetries:    m.Limits.MaxRetries,
	})

	x := extract.New(enum, client, dest, tracker, plan,
		extract.Config{BatchSize: m.Limits.BatchSize},
		observability.CLILogger)

	observability.CLILogger.Info("Starting extraction",
		zap.String("job_id", jobID),
		zap.String("run_id", runID),
		zap.String("subreddit", m.Job.Subreddit),
		zap.String("query", m.Job.Query),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("windows", len(plan)),
		zap.Bool("resumed", resumed))

	summary, err := x.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Extraction interrupted, progress saved",
				zap.String("job_id", jobID),
				zap.Int64("records_exported", summary.RecordsExported))
			return exitError(foundry.ExitSignalInt, "Extraction interrupted", err)
		}
		observability.CLILogger.Error("Extraction failed",
			zap.String("job_id", jobID),
			zap.Error(err))
		if reddit.IsInvalidCredentials(err) {
			return exitError(foundry.ExitInvalidArgument, "Invalid Reddit credentials", err)
		}
		if reddit.IsSubredditNotFound(err) || reddit.IsForbidden(err) {
			return exitError(foundry.ExitInvalidArgument, "Subreddit is not accessible", err)
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Extraction failed", err)
	}

	observability.CLILogger.Info("Extraction completed",
		zap.String("job_id", jobID),
		zap.String("destination", dest.Path()),
		zap.Int("windows_completed", summary.WindowsCompleted),
		zap.Int("windows_skipped", summary.WindowsSkipped),
		zap.Int64("records_exported", summary.RecordsExported),
		zap.Int64("records_deduped", summary.RecordsDeduped),
		zap.Duration("duration", summary.Duration))

	return nil
}
