package cmd

import (
	"errors"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	SetVersionInfo("1.2.3", "abc123", "2026-01-15")

	assert.Equal(t, "1.2.3", versionInfo.Version)
	assert.Equal(t, "abc123", versionInfo.Commit)
	assert.Equal(t, "2026-01-15", versionInfo.BuildDate)
	assert.Equal(t, "1.2.3", rootCmd.Version)
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := exitError(foundry.ExitInvalidArgument, "Bad input", cause)

	assert.EqualError(t, err, "Bad input: boom")
	assert.True(t, errors.Is(err, cause))

	var coded *codedError
	assert.True(t, errors.As(err, &coded))
	assert.Equal(t, foundry.ExitInvalidArgument, coded.code)
}

func TestExitErrorNilCause(t *testing.T) {
	err := exitError(foundry.ExitFileNotFound, "Not found", nil)
	assert.EqualError(t, err, "Not found")
}
