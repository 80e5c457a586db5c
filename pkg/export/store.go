package export

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Store is the durable export target.
type Store interface {
	// Append adds new rows and commits the full store atomically.
	Append(records []Record) error

	// ExistingIDs returns the set of record ids already in the store.
	ExistingIDs() map[string]struct{}

	// Count returns the number of rows in the store.
	Count() int

	// Path returns the target file path.
	Path() string
}

// Open creates or resumes a store for the given path, selected by
// extension: .csv or .xlsx.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return OpenCSV(path)
	case ".xlsx":
		return OpenXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported output format %q (use .csv or .xlsx)", filepath.Ext(path))
	}
}

// rowFromRecord renders a record in Columns order.
func rowFromRecord(r Record) []string {
	return []string{
		r.URL,
		r.Title,
		r.Date.UTC().Format(dateLayout),
		r.User,
		strconv.Itoa(r.NVotes),
		strconv.Itoa(r.NComments),
		r.TextOP,
		r.TextComments,
	}
}

// recordFromRow parses a row written by rowFromRecord. Malformed numeric
// or date cells degrade to zero values rather than failing the load; the
// id (from the url) is all that resume correctness needs.
func recordFromRow(row []string) Record {
	var r Record
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	r.URL = get(0)
	r.ID = IDFromURL(r.URL)
	r.Title = get(1)
	if t, err := parseDate(get(2)); err == nil {
		r.Date = t
	}
	r.User = get(3)
	r.NVotes, _ = strconv.Atoi(get(4))
	r.NComments, _ = strconv.Atoi(get(5))
	r.TextOP = get(6)
	r.TextComments = get(7)
	return r
}
