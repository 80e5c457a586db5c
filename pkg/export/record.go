// Package export appends extracted records to a durable tabular store.
//
// Stores follow a single discipline for crash safety: every append writes
// the full updated content to a temporary file next to the target and then
// renames it into place. A process killed mid-write leaves the previous
// file intact; the unflushed batch is simply re-fetched and deduplicated
// on the next run.
package export

import (
	"strings"
	"time"
)

// Columns is the on-disk column order for all store formats.
var Columns = []string{"url", "title", "date", "user", "n_votes", "n_comments", "text_op", "text_comments"}

// dateLayout is the on-disk timestamp format.
const dateLayout = time.RFC3339

// Record is one exported row. Identity is the remote post id; the store
// must never contain two rows with the same id.
type Record struct {
	ID           string
	URL          string
	Title        string
	Date         time.Time
	User         string
	NVotes       int
	NComments    int
	TextOP       string
	TextComments string
}

// IDFromURL derives the record id from a permalink of the form
// ".../comments/<id>/...". Returns "" when the URL has no id segment.
// Used to rebuild the known-id set from an existing store on resume,
// since the id is not stored as an explicit column.
func IDFromURL(url string) string {
	const marker = "/comments/"
	i := strings.Index(url, marker)
	if i < 0 {
		return ""
	}
	rest := url[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
