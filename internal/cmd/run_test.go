package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trissim/reddit-post-downloader/pkg/manifest"
	"github.com/trissim/reddit-post-downloader/pkg/reddit"
)

type fakeAbout struct {
	created time.Time
	err     error
}

func (f *fakeAbout) CreatedAt(ctx context.Context, subreddit string) (time.Time, error) {
	return f.created, f.err
}

func loadTestManifest(t *testing.T, yaml string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.LoadFromBytes([]byte(yaml), "job.yaml")
	require.NoError(t, err)
	return m
}

func TestResolveRangeExplicitDates(t *testing.T) {
	m := loadTestManifest(t, `
version: "1.0"
job:
  subreddit: golang
  start_date: "2020-01-01"
  end_date: "2024-01-01"
`)

	start, end, err := resolveRange(context.Background(), m, &fakeAbout{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestResolveRangeFromBeginning(t *testing.T) {
	m := loadTestManifest(t, `
version: "1.0"
job:
  subreddit: golang
  end_date: "2024-01-01"
`)

	created := time.Date(2009, 11, 10, 0, 0, 0, 0, time.UTC)
	start, end, err := resolveRange(context.Background(), m, &fakeAbout{created: created})
	require.NoError(t, err)
	assert.Equal(t, created, start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestResolveRangeCreationLookupFallsBack(t *testing.T) {
	m := loadTestManifest(t, `
version: "1.0"
job:
  subreddit: golang
  end_date: "2024-01-01"
`)

	about := &fakeAbout{err: reddit.ErrUnavailable}
	start, _, err := resolveRange(context.Background(), m, about)
	require.NoError(t, err)
	assert.Equal(t, redditFounding, start)
}

func TestResolveRangeSubredditNotFound(t *testing.T) {
	m := loadTestManifest(t, `
version: "1.0"
job:
  subreddit: doesnotexist
  end_date: "2024-01-01"
`)

	about := &fakeAbout{err: &reddit.APIError{Op: "about", Subreddit: "doesnotexist", StatusCode: 404, Err: reddit.ErrSubredditNotFound}}
	_, _, err := resolveRange(context.Background(), m, about)
	require.Error(t, err)
	assert.True(t, reddit.IsSubredditNotFound(err))
}

func TestResolveRangeEndDefaultsToNow(t *testing.T) {
	m := loadTestManifest(t, `
version: "1.0"
job:
  subreddit: golang
  start_date: "2020-01-01"
`)

	before := time.Now().UTC()
	_, end, err := resolveRange(context.Background(), m, &fakeAbout{})
	require.NoError(t, err)
	assert.False(t, end.Before(before))
}

func TestResolveRangeStartNotBeforeEnd(t *testing.T) {
	m := loadTestManifest(t, `
version: "1.0"
job:
  subreddit: golang
  end_date: "2024-01-01"
`)

	about := &fakeAbout{created: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, _, err := resolveRange(context.Background(), m, about)
	assert.Error(t, err)
}
