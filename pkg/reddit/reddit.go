// Package reddit wraps the remote search API behind small interfaces.
//
// The search capability is deliberately narrow: a single call returns at
// most PageCap posts, newest first, bounded above by an optional timestamp.
// Everything needed to enumerate more than one page of history (window
// decomposition, cursor chaining, retry) lives in the packages above this
// one; implementations here only translate one call to one API exchange
// and classify failures into the sentinel taxonomy in errors.go.
package reddit

import (
	"context"
	"time"
)

// PageCap is the maximum number of posts the search API returns for a
// single query.
const PageCap = 1000

// DeletedAuthor is the author sentinel for posts whose account is gone.
const DeletedAuthor = "[deleted]"

// Post is one search result.
type Post struct {
	// ID is the remote post id (base36, e.g. "1abcd2"). Record identity.
	ID string

	// URL is the full permalink.
	URL string

	// Title is the post title.
	Title string

	// Author is the account name, or DeletedAuthor.
	Author string

	// Score is the net vote count at fetch time.
	Score int

	// NumComments is the comment count at fetch time.
	NumComments int

	// Created is the post creation time (UTC).
	Created time.Time

	// SelfText is the original post body.
	SelfText string
}

// SearchOptions configures a single search call.
type SearchOptions struct {
	// Subreddit is the target subreddit, without the r/ prefix.
	Subreddit string

	// Query is the search query. "*" matches all posts.
	Query string

	// Before, when non-zero, bounds results to posts created strictly
	// before this time.
	Before time.Time
}

// Searcher is the remote search capability.
//
// Implementations return up to PageCap posts sorted newest first. A short
// result (fewer than PageCap posts) means no further results exist under
// the given bound.
type Searcher interface {
	Search(ctx context.Context, opts SearchOptions) ([]Post, error)
}

// CommentFetcher retrieves the flattened comment text for a post.
//
// The returned string concatenates top-level comments as "author\nbody"
// blocks separated by blank lines, matching the export column format.
type CommentFetcher interface {
	Comments(ctx context.Context, postID string) (string, error)
}

// AboutFetcher retrieves subreddit metadata. Used to default the
// extraction start date to the subreddit's creation date.
type AboutFetcher interface {
	CreatedAt(ctx context.Context, subreddit string) (time.Time, error)
}
