package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/trissim/reddit-post-downloader/pkg/window"
)

// jobKeyPayload is the canonical identity payload. Field order and
// normalization are part of the identity contract: re-supplying identical
// extraction parameters on a later run must resolve to the same job id.
type jobKeyPayload struct {
	Subreddit   string `json:"subreddit"`
	Query       string `json:"query"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Granularity string `json:"granularity"`
}

// JobKey derives the stable job identity for a set of extraction parameters.
func JobKey(subreddit, query string, start, end time.Time, g window.Granularity) string {
	payload := jobKeyPayload{
		Subreddit:   strings.ToLower(strings.TrimSpace(subreddit)),
		Query:       strings.TrimSpace(query),
		Start:       start.UTC().Format(time.RFC3339),
		End:         end.UTC().Format(time.RFC3339),
		Granularity: string(g),
	}

	// Struct marshaling with fixed field order is deterministic.
	b, _ := json.Marshal(payload)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}
