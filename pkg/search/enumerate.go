// Package search enumerates a time window's complete result set.
//
// A single search call returns at most the page cap, newest first, bounded
// above by a timestamp. To get everything inside a window the enumerator
// chains calls, each time lowering the upper bound to the oldest timestamp
// of the previous page, until a page comes back short or the results cross
// the window's older boundary. Each call is wrapped with the rate-limit
// policy and a bounded retry budget.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trissim/reddit-post-downloader/pkg/backoff"
	"github.com/trissim/reddit-post-downloader/pkg/progress"
	"github.com/trissim/reddit-post-downloader/pkg/reddit"
	"github.com/trissim/reddit-post-downloader/pkg/window"
)

const (
	// DefaultWindowItemCap bounds the total items checked per window so
	// enumeration terminates even against unexpected API behavior.
	DefaultWindowItemCap = 10000

	// DefaultMaxRetries bounds retries of a single call before the window
	// is abandoned.
	DefaultMaxRetries = 5
)

// ErrRetriesExhausted indicates a call failed more times than the retry
// budget allows. The window is abandoned at its last good cursor.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// ErrWindowItemCap indicates a window produced more items than the safety
// cap permits.
var ErrWindowItemCap = errors.New("window item cap exceeded")

// Config configures an Enumerator.
type Config struct {
	// PageCap is the per-call result cap of the remote API.
	// Default: reddit.PageCap.
	PageCap int

	// WindowItemCap bounds total items checked per window.
	// Default: DefaultWindowItemCap.
	WindowItemCap int

	// MaxRetries bounds retries per call. Default: DefaultMaxRetries.
	MaxRetries int
}

// Result summarizes one window's enumeration.
type Result struct {
	// Calls is the number of successful search calls issued.
	Calls int

	// ItemsChecked is the total items returned by those calls.
	ItemsChecked int

	// ItemsEmitted is the count of in-window items passed to the callback.
	ItemsEmitted int

	// Exhausted reports whether the window's result set was fully
	// enumerated (as opposed to aborted early).
	Exhausted bool
}

// Enumerator drives windowed pagination against a Searcher.
type Enumerator struct {
	searcher  reddit.Searcher
	limiter   *backoff.Limiter
	subreddit string
	query     string
	cfg       Config
}

// New creates an enumerator for one extraction job's subreddit and query.
func New(searcher reddit.Searcher, limiter *backoff.Limiter, subreddit, query string, cfg Config) *Enumerator {
	if cfg.PageCap <= 0 {
		cfg.PageCap = reddit.PageCap
	}
	if cfg.WindowItemCap <= 0 {
		cfg.WindowItemCap = DefaultWindowItemCap
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Enumerator{
		searcher:  searcher,
		limiter:   limiter,
		subreddit: subreddit,
		query:     query,
		cfg:       cfg,
	}
}

// EnumerateWindow streams the window's posts, newest to oldest, to fn.
//
// resume, when non-nil, sets the initial upper bound so a prior partial
// enumeration continues instead of restarting from the window's newest
// edge; posts newer than the cursor are assumed already persisted. The
// bound includes the cursor's own second, so posts sharing that timestamp
// are re-fetched rather than lost. An error from fn aborts enumeration and
// is returned unchanged.
//
// Enumeration stops when a call returns fewer items than the page cap, or
// when results reach the window's older boundary. Posts with a timestamp
// exactly on the boundary belong to this window. Chained calls keep the
// previous page's oldest second inside the next bound, so timestamp ties
// split by the page cap are re-fetched; id dedup in the caller absorbs the
// re-seen posts, at window edges and at chain boundaries alike.
func (e *Enumerator) EnumerateWindow(ctx context.Context, w window.Window, resume *progress.Cursor, fn func(reddit.Post) error) (Result, error) {
	var res Result

	bound := w.End
	if resume != nil {
		if rb := resume.Before.Add(time.Second); rb.Before(bound) {
			bound = rb
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		posts, err := e.searchWithRetry(ctx, reddit.SearchOptions{
			Subreddit: e.subreddit,
			Query:     e.query,
			Before:    bound,
		})
		if err != nil {
			return res, err
		}
		res.Calls++
		res.ItemsChecked += len(posts)

		if res.ItemsChecked > e.cfg.WindowItemCap {
			return res, fmt.Errorf("%w: window %s checked %d items", ErrWindowItemCap, w, res.ItemsChecked)
		}

		crossed := false
		for _, p := range posts {
			if !p.Created.Before(bound) {
				// Defensive: the API promised strictly-before results.
				continue
			}
			if p.Created.Before(w.Start) {
				// Older than the window; belongs to an earlier window or
				// is out of range entirely.
				crossed = true
				break
			}
			if err := fn(p); err != nil {
				return res, err
			}
			res.ItemsEmitted++
		}

		// Stop predicate, stated explicitly: the chain ends when the
		// page was short (nothing further below the bound) or when
		// results crossed the window's older boundary. Boundary posts
		// themselves never end the chain early; a tie on the boundary
		// second cut off by the page cap must still be fetched.
		if crossed || len(posts) < e.cfg.PageCap {
			res.Exhausted = true
			return res, nil
		}
		// The next bound stays above the oldest second: a tie on that
		// timestamp cut off by the page cap would otherwise be skipped,
		// and dedup cannot repair an omission. Re-seen posts are absorbed
		// by the caller's id dedup.
		oldest := posts[len(posts)-1].Created
		next := oldest.Add(time.Second)
		if !next.Before(bound) {
			// The inclusive step did not shrink the bound, so this full
			// page sits entirely inside one second that the previous call
			// already re-fetched from its top. Step past the second.
			next = oldest
		}
		if !next.Before(bound) {
			// Results at or above the bound; the chain cannot advance.
			return res, fmt.Errorf("%w: window %s bound stuck at %s", ErrWindowItemCap, w, oldest)
		}
		bound = next
	}
}

// searchWithRetry issues one logical call, retrying the same bound on
// throttling (with exponential backoff) and on transient failures, up to
// the retry budget. Non-retryable errors surface immediately.
func (e *Enumerator) searchWithRetry(ctx context.Context, opts reddit.SearchOptions) ([]reddit.Post, error) {
	throttled := 0
	transient := 0

	for {
		if err := e.limiter.BeforeCall(ctx); err != nil {
			return nil, err
		}

		posts, err := e.searcher.Search(ctx, opts)
		if err == nil {
			return posts, nil
		}
		if reddit.IsNonRetryable(err) {
			return nil, err
		}

		if reddit.IsThrottled(err) {
			if throttled >= e.cfg.MaxRetries {
				return nil, fmt.Errorf("%w after %d throttled attempts: %w", ErrRetriesExhausted, throttled, err)
			}
			if waitErr := e.limiter.OnThrottled(ctx, throttled); waitErr != nil {
				return nil, waitErr
			}
			throttled++
			continue
		}

		// Transient network failure or API outage.
		if transient >= e.cfg.MaxRetries {
			return nil, fmt.Errorf("%w after %d transient failures: %w", ErrRetriesExhausted, transient, err)
		}
		if waitErr := e.limiter.OnThrottled(ctx, transient); waitErr != nil {
			return nil, waitErr
		}
		transient++
	}
}
