package export

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

// XLSXStore persists records as a spreadsheet workbook.
//
// Same crash-safety discipline as CSVStore: each append rebuilds the full
// workbook at a temporary path and renames it over the target.
type XLSXStore struct {
	path    string
	records []Record
	ids     map[string]struct{}
}

// OpenXLSX creates an XLSX store, loading existing rows when the file is
// already present.
func OpenXLSX(path string) (*XLSXStore, error) {
	s := &XLSXStore{path: path, ids: make(map[string]struct{})}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("stat export store: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open export store %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("read export store %s: %w", path, err)
	}
	for i, row := range rows {
		if i == 0 {
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

// Append implements Store.
func (s *XLSXStore) Append(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	updated := append(append([]Record{}, s.records...), records...)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for i, rec := range updated {
		cells := rowFromRecord(rec)
		row := make([]any, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("compute export cell: %w", err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dirOf(s.path), ".export.xlsx.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpName) }()

	if err := f.SaveAs(tmpName); err != nil {
		return fmt.Errorf("save temp export file: %w", err)
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
func (s *XLSXStore) ExistingIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

// Count implements Store.
func (s *XLSXStore) Count() int {
	return len(s.records)
}

// Path implements Store.
func (s *XLSXStore) Path() string {
	return s.path
}

var _ Store = (*XLSXStore)(nil)
