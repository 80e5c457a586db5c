package cmd

import (
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/trissim/reddit-post-downloader/pkg/manifest"
	"github.com/trissim/reddit-post-downloader/pkg/progress"
	"github.com/trissim/reddit-post-downloader/pkg/window"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Validate a manifest and show the window plan without executing",
	Long: `Validate a job manifest and print the time windows that would be
enumerated, without calling the Reddit API.

Example:
  reddit-extract plan --job job.yaml`,
	RunE: runPlan,
}

var planJobPath string

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planJobPath, "job", "j", "", "Path to job manifest (required)")
	_ = planCmd.MarkFlagRequired("job")
}

func runPlan(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(planJobPath)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}
	return showPlan(m)
}

// showPlan prints what would be extracted. Unset dates are resolved the
// same way run resolves them, except the subreddit creation date lookup
// is replaced by the earliest possible start so no API call is needed.
func showPlan(m *manifest.Manifest) error {
	start, startSet, err := m.Job.StartTime()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid start date", err)
	}
	if !startSet {
		start = redditFounding
	}
	end, endSet, err := m.Job.EndTime()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid end date", err)
	}
	if !endSet {
		end = time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}

	granularity, err := m.Job.Granularity()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid window granularity", err)
	}
	plan, err := window.Plan(start, end, granularity)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid window plan", err)
	}

	fmt.Println("=== Extraction Plan (dry-run) ===")
	fmt.Println()
	fmt.Printf("Subreddit:   r/%s\n", m.Job.Subreddit)
	fmt.Printf("Query:       %s\n", m.Job.Query)
	if startSet {
		fmt.Printf("Start:       %s\n", start.Format("2006-01-02"))
	} else {
		fmt.Printf("Start:       subreddit creation date (at most %s)\n", start.Format("2006-01-02"))
	}
	if endSet {
		fmt.Printf("End:         %s\n", end.Format("2006-01-02"))
	} else {
		fmt.Printf("End:         now (%s)\n", end.Format("2006-01-02"))
	}
	fmt.Printf("Granularity: %s\n", granularity)
	fmt.Printf("Output:      %s\n", m.Output.Destination)
	fmt.Printf("State dir:   %s\n", m.State.Dir)
	fmt.Println()

	jobID := progress.JobKey(m.Job.Subreddit, m.Job.Query, start, end, granularity)
	if startSet && endSet {
		fmt.Printf("Job ID:      %s\n", jobID)
	}

	windowWord := "windows"
	if len(plan) == 1 {
		windowWord = "window"
	}
	if startSet {
		fmt.Printf("Windows:     %d %s\n", len(plan), windowWord)
	} else {
		fmt.Printf("Windows:     at most %d %s\n", len(plan), windowWord)
	}
	const maxListed = 12
	for i, w := range plan {
		if i == maxListed {
			fmt.Printf("  ... (%d more)\n", len(plan)-maxListed)
			break
		}
		fmt.Printf("  [%d] %s\n", i, w)
	}
	fmt.Println()
	fmt.Println("Manifest validated successfully. Use 'run' to execute.")
	return nil
}
