package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CSVStore persists records as a CSV file with a header row.
type CSVStore struct {
	path    string
	records []Record
	ids     map[string]struct{}
}

// OpenCSV creates a CSV store, loading existing rows when the file is
// already present so a resumed run starts with the full known-id set.
func OpenCSV(path string) (*CSVStore, error) {
	s := &CSVStore{path: path, ids: make(map[string]struct{})}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("open export store: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read export store %s: %w", path, err)
	}

	for i, row := range rows {
		if i == 0 {
			// Header row.
			continue
		}
		rec := recordFromRow(row)
		s.records = append(s.records, rec)
		if rec.ID != "" {
			s.ids[rec.ID] = struct{}{}
		}
	}
	return s, nil
}

// Append implements Store. The full updated content goes to a temp file
// which is renamed over the target; the previous file is never touched
// until the new one is complete.
func (s *CSVStore) Append(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	updated := append(append([]Record{}, s.records...), records...)

	tmp, err := os.CreateTemp(dirOf(s.path), ".export.csv.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w := csv.NewWriter(tmp)
	if err := w.Write(Columns); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write export header: %w", err)
	}
	for _, rec := range updated {
		if err := w.Write(rowFromRecord(rec)); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush export rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp export file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename export file: %w", err)
	}

	s.records = updated
	for _, rec := range records {
		if rec.ID != "" {
			s.ids[rec.ID] = struct{}{}
		}
	}
	return nil
}

// ExistingIDs implements Store.
func (s *CSVStore) ExistingIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

// Count implements Store.
func (s *CSVStore) Count() int {
	return len(s.records)
}

// Path implements Store.
func (s *CSVStore) Path() string {
	return s.path
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// dirOf returns the directory to place the temp file in. Keeping it next
// to the target guarantees the rename stays on one filesystem.
func dirOf(path string) string {
	return filepath.Dir(path)
}

var _ Store = (*CSVStore)(nil)
