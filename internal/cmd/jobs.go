package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/trissim/reddit-post-downloader/pkg/manifest"
	"github.com/trissim/reddit-post-downloader/pkg/progress"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect saved extraction jobs",
	Long: `Inspect checkpoint state for extraction jobs.

Job ids are stable: the same subreddit, query, date range, and window
granularity always map to the same id, which is how an interrupted run
finds its saved progress.`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved jobs",
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job_id>",
	Short: "Show saved state for a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsWipeCmd = &cobra.Command{
	Use:   "wipe <job_id>",
	Short: "Delete saved state for a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsWipe,
}

var jobsStateDir string

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsWipeCmd)

	jobsCmd.PersistentFlags().StringVar(&jobsStateDir, "state-dir", manifest.DefaultStateDir, "Progress state directory")
	jobsListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store := progress.NewStore(jobsStateDir)
	jobs, err := store.List()
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to read state directory", err)
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintln(w, "JOB ID\tSUBREDDIT\tQUERY\tRANGE\tSTATUS\tRECORDS\tUPDATED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s..%s\t%s\t%d\t%s\n",
			j.JobID,
			j.Subreddit,
			j.Query,
			j.Start.Format("2006-01-02"),
			j.End.Format("2006-01-02"),
			j.Status,
			j.RecordsExported,
			j.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	store := progress.NewStore(jobsStateDir)
	state, err := store.Load(args[0])
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to load job state", err)
	}
	if state == nil {
		return exitError(foundry.ExitFileNotFound, "No saved state for job", fmt.Errorf("job %s not found in %s", args[0], jobsStateDir))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

func runJobsWipe(cmd *cobra.Command, args []string) error {
	store := progress.NewStore(jobsStateDir)
	if err := store.Wipe(args[0]); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to wipe job state", err)
	}
	fmt.Printf("Wiped job %s\n", args[0])
	return nil
}
