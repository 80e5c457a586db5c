package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trissim/reddit-post-downloader/pkg/backoff"
	"github.com/trissim/reddit-post-downloader/pkg/progress"
	"github.com/trissim/reddit-post-downloader/pkg/reddit"
	"github.com/trissim/reddit-post-downloader/pkg/window"
)

// fakeSearcher serves a fixed corpus of posts (newest first) the way the
// remote API does: up to pageCap posts strictly before the bound.
type fakeSearcher struct {
	posts   []reddit.Post // sorted newest first
	pageCap int

	calls  []time.Time // bound of each call
	errSeq []error     // errors returned before serving, one per call
}

func (f *fakeSearcher) Search(ctx context.Context, opts reddit.SearchOptions) ([]reddit.Post, error) {
	f.calls = append(f.calls, opts.Before)
	if len(f.errSeq) > 0 {
		err := f.errSeq[0]
		f.errSeq = f.errSeq[1:]
		if err != nil {
			return nil, err
		}
	}

	var out []reddit.Post
	for _, p := range f.posts {
		if !opts.Before.IsZero() && !p.Created.Before(opts.Before) {
			continue
		}
		out = append(out, p)
		if len(out) == f.pageCap {
			break
		}
	}
	return out, nil
}

func fastLimiter() *backoff.Limiter {
	return backoff.NewLimiter(backoff.NewPolicy(time.Microsecond, time.Millisecond), 1000)
}

func postsAt(times ...time.Time) []reddit.Post {
	out := make([]reddit.Post, len(times))
	for i, ts := range times {
		out[i] = reddit.Post{ID: ts.Format("20060102T150405"), Created: ts}
	}
	return out
}

func ts(day, hour int) time.Time {
	return time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
}

var testWindow = window.Window{
	Start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
}

func collect(t *testing.T, e *Enumerator, w window.Window, resume *progress.Cursor) ([]reddit.Post, Result, error) {
	t.Helper()
	var got []reddit.Post
	res, err := e.EnumerateWindow(context.Background(), w, resume, func(p reddit.Post) error {
		got = append(got, p)
		return nil
	})
	return got, res, err
}

// uniqueIDs collapses emitted posts the way the extractor's id dedup does.
func uniqueIDs(posts []reddit.Post) map[string]bool {
	ids := make(map[string]bool, len(posts))
	for _, p := range posts {
		ids[p.ID] = true
	}
	return ids
}

func TestEnumerateChainsFullPages(t *testing.T) {
	f := &fakeSearcher{
		pageCap: 3,
		posts: postsAt(
			ts(30, 12), ts(28, 9), ts(25, 6),
			ts(20, 3), ts(15, 1), ts(10, 0),
			ts(5, 0),
		),
	}
	e := New(f, fastLimiter(), "golang", "*", Config{PageCap: 3})

	got, res, err := collect(t, e, testWindow, nil)
	require.NoError(t, err)

	// Each chained call re-fetches the previous page's oldest second, so
	// the page-edge posts come through twice; dedup collapses them.
	assert.Len(t, uniqueIDs(got), 7)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 4, res.Calls)
	assert.Equal(t, 10, res.ItemsEmitted)

	// Each call's upper bound sits one second above the previous page's
	// oldest timestamp.
	require.Len(t, f.calls, 4)
	assert.True(t, f.calls[0].Equal(testWindow.End))
	assert.True(t, f.calls[1].Equal(ts(25, 6).Add(time.Second)))
	assert.True(t, f.calls[2].Equal(ts(15, 1).Add(time.Second)))
	assert.True(t, f.calls[3].Equal(ts(5, 0).Add(time.Second)))
}

func TestEnumerateShortPageStops(t *testing.T) {
	f := &fakeSearcher{pageCap: 1000, posts: postsAt(ts(20, 0), ts(10, 0))}
	e := New(f, fastLimiter(), "golang", "*", Config{})

	got, res, err := collect(t, e, testWindow, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 1, res.Calls)
}

func TestEnumerateStopsAtWindowBoundary(t *testing.T) {
	older := time.Date(2023, time.December, 20, 0, 0, 0, 0, time.UTC)
	f := &fakeSearcher{
		pageCap: 2,
		posts:   append(postsAt(ts(20, 0), ts(10, 0)), postsAt(older, older.Add(-time.Hour))...),
	}
	e := New(f, fastLimiter(), "golang", "*", Config{PageCap: 2})

	got, res, err := collect(t, e, testWindow, nil)
	require.NoError(t, err)

	// Posts older than the window's start are excluded; enumeration ends.
	assert.Len(t, uniqueIDs(got), 2)
	assert.True(t, res.Exhausted)
	for _, p := range got {
		assert.True(t, testWindow.Contains(p.Created))
	}
}

func TestEnumerateBoundaryTimestampBelongsToWindow(t *testing.T) {
	f := &fakeSearcher{
		pageCap: 2,
		posts:   postsAt(ts(20, 0), testWindow.Start),
	}
	e := New(f, fastLimiter(), "golang", "*", Config{PageCap: 2})

	got, res, err := collect(t, e, testWindow, nil)
	require.NoError(t, err)

	// A post exactly on the window's start is part of this window. The
	// full page forces one more call in case the start second held ties
	// cut off by the page cap; dedup collapses the re-seen post.
	assert.Len(t, uniqueIDs(got), 2)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 2, res.Calls)
}

func TestEnumerateRefetchesTiesSplitByPageCap(t *testing.T) {
	// Two posts share one second and the page cap cuts between them. An
	// exclusive follow-up bound would skip the second one for good; the
	// inclusive bound re-fetches the tied second instead.
	tie := ts(15, 0)
	f := &fakeSearcher{
		pageCap: 2,
		posts: []reddit.Post{
			{ID: "newest", Created: ts(20, 0)},
			{ID: "tie-a", Created: tie},
			{ID: "tie-b", Created: tie},
			{ID: "oldest", Created: ts(10, 0)},
		},
	}
	e := New(f, fastLimiter(), "golang", "*", Config{PageCap: 2})

	got, res, err := collect(t, e, testWindow, nil)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)

	ids := uniqueIDs(got)
	assert.Len(t, ids, 4)
	assert.True(t, ids["tie-b"], "tied post behind the page cap must be fetched")

	// The middle call re-fetches the tied second from its top; the one
	// after steps past it.
	require.Len(t, f.calls, 3)
	assert.True(t, f.calls[1].Equal(tie.Add(time.Second)))
	assert.True(t, f.calls[2].Equal(tie))
}

func TestEnumerateRefetchesTiesAtWindowStart(t *testing.T) {
	f := &fakeSearcher{
		pageCap: 2,
		posts: []reddit.Post{
			{ID: "newest", Created: ts(10, 0)},
			{ID: "start-a", Created: testWindow.Start},
			{ID: "start-b", Created: testWindow.Start},
		},
	}
	e := New(f, fastLimiter(), "golang", "*", Config{PageCap: 2})

	got, res, err := collect(t, e, testWindow, nil)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)

	ids := uniqueIDs(got)
	assert.Len(t, ids, 3)
	assert.True(t, ids["start-b"], "tie on the window's start second must be fetched")
}

func TestEnumerateResumesFromCursor(t *testing.T) {
	f := &fakeSearcher{
		pageCap: 1000,
		posts:   postsAt(ts(30, 0), ts(20, 0), ts(10, 0)),
	}
	e := New(f, fastLimiter(), "golang", "*", Config{})

	cursor := &progress.Cursor{Before: ts(20, 0)}
	got, res, err := collect(t, e, testWindow, cursor)
	require.NoError(t, err)

	// The cursor's own second is re-fetched so posts sharing its
	// timestamp are not lost; everything newer stays excluded.
	require.Len(t, got, 2)
	assert.True(t, got[0].Created.Equal(ts(20, 0)))
	assert.True(t, got[1].Created.Equal(ts(10, 0)))
	assert.True(t, res.Exhausted)
	assert.True(t, f.calls[0].Equal(ts(20, 0).Add(time.Second)))
}

func TestEnumerateRetriesThrottling(t *testing.T) {
	f := &fakeSearcher{
		pageCap: 1000,
		posts:   postsAt(ts(15, 0)),
		errSeq:  []error{reddit.ErrThrottled, reddit.ErrThrottled, nil},
	}
	e := New(f, fastLimiter(), "golang", "*", Config{MaxRetries: 3})

	got, res, err := collect(t, e, testWindow, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.True(t, res.Exhausted)

	// All three attempts used the same upper bound.
	require.Len(t, f.calls, 3)
	assert.True(t, f.calls[0].Equal(f.calls[1]))
	assert.True(t, f.calls[1].Equal(f.calls[2]))
}

func TestEnumerateRetryBudgetExhausted(t *testing.T) {
	f := &fakeSearcher{
		pageCap: 1000,
		errSeq:  []error{reddit.ErrUnavailable, reddit.ErrUnavailable, reddit.ErrUnavailable},
	}
	e := New(f, fastLimiter(), "golang", "*", Config{MaxRetries: 2})

	_, _, err := collect(t, e, testWindow, nil)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, reddit.ErrUnavailable)
}

func TestEnumerateNonRetryableSurfacesImmediately(t *testing.T) {
	f := &fakeSearcher{
		pageCap: 1000,
		errSeq:  []error{reddit.ErrInvalidCredentials},
	}
	e := New(f, fastLimiter(), "golang", "*", Config{MaxRetries: 5})

	_, res, err := collect(t, e, testWindow, nil)
	assert.ErrorIs(t, err, reddit.ErrInvalidCredentials)
	assert.Equal(t, 0, res.Calls)
	require.Len(t, f.calls, 1, "no retries for credential errors")
}

func TestEnumerateWindowItemCap(t *testing.T) {
	// Two posts per page, cap of 3 items checked.
	f := &fakeSearcher{
		pageCap: 2,
		posts:   postsAt(ts(30, 0), ts(25, 0), ts(20, 0), ts(15, 0), ts(10, 0)),
	}
	e := New(f, fastLimiter(), "golang", "*", Config{PageCap: 2, WindowItemCap: 3})

	_, _, err := collect(t, e, testWindow, nil)
	assert.ErrorIs(t, err, ErrWindowItemCap)
}

func TestEnumerateCallbackErrorAborts(t *testing.T) {
	f := &fakeSearcher{pageCap: 1000, posts: postsAt(ts(20, 0), ts(10, 0))}
	e := New(f, fastLimiter(), "golang", "*", Config{})

	res, err := e.EnumerateWindow(context.Background(), testWindow, nil, func(reddit.Post) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, res.Exhausted)
}
