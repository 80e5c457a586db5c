// Package cmd implements the reddit-extract CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trissim/reddit-post-downloader/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "reddit-extract",
	Short: "Extract a subreddit's full post history",
	Long: `reddit-extract downloads a subreddit's post history through the Reddit
search API, working around the 1000-result listing cap by splitting the
date range into time windows and paginating each window separately.

Jobs are defined in a YAML or JSON manifest and checkpoint their progress,
so an interrupted extraction resumes where it left off.

Example:
  reddit-extract run --job job.yaml
  reddit-extract plan --job job.yaml
  reddit-extract jobs list`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	rootVerbose bool
	rootEnvFile string
)

// versionInfo holds build-time version metadata.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build-time version metadata for the version
// command. Called from main before Execute.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = version
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootEnvFile, "env-file", "", "Load credentials from this env file instead of .env")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		observability.InitCLILogger("reddit-extract", rootVerbose)
	}
}

// Execute runs the CLI and returns the process exit code.
//
// SIGINT and SIGTERM cancel the command context so a running extraction
// can checkpoint and stop cleanly.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	defer observability.Sync()

	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return 1
}

// codedError carries a process exit code alongside the error.
type codedError struct {
	code int
	msg  string
	err  error
}

func (e *codedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *codedError) Unwrap() error { return e.err }

// exitError creates an error that will cause the CLI to exit with the
// given code.
func exitError(code int, message string, err error) error {
	return &codedError{code: code, msg: message, err: err}
}
