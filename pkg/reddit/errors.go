package reddit

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote API operations.
var (
	// ErrThrottled indicates the request was rate limited by the API.
	ErrThrottled = errors.New("request throttled")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSubredditNotFound indicates the subreddit does not exist.
	ErrSubredditNotFound = errors.New("subreddit not found")

	// ErrForbidden indicates the subreddit is private or quarantined.
	ErrForbidden = errors.New("subreddit access forbidden")

	// ErrUnavailable indicates the API is temporarily unavailable.
	ErrUnavailable = errors.New("api unavailable")
)

// APIError wraps remote API errors with request context.
type APIError struct {
	// Op is the operation that failed (e.g., "Search", "Comments").
	Op string

	// Subreddit is the subreddit name, if applicable.
	Subreddit string

	// StatusCode is the HTTP status, if the request reached the API.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Subreddit != "" {
		return fmt.Sprintf("reddit %s: r/%s: %v", e.Op, e.Subreddit, e.Err)
	}
	return fmt.Sprintf("reddit %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsSubredditNotFound returns true if the error indicates the subreddit does not exist.
func IsSubredditNotFound(err error) bool {
	return errors.Is(err, ErrSubredditNotFound)
}

// IsForbidden returns true if the error indicates the subreddit is private.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnavailable returns true if the error indicates a transient API outage.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsNonRetryable returns true for errors that abort the entire job
// immediately: bad credentials and missing or private subreddits. Backoff
// and retry never help these.
func IsNonRetryable(err error) bool {
	return IsInvalidCredentials(err) || IsSubredditNotFound(err) || IsForbidden(err)
}
