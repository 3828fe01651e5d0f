package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Record is one row of the prospects spreadsheet. At most one row per URL is
// ever persisted.
type Record struct {
	Query        string
	URL          string
	Emails       string
	Phones       string
	Description  string
	ContactLinks string
}

var columns = []string{"query", "url", "emails", "phones", "description", "contact_links"}

// ProspectStore persists contact records as a spreadsheet. "Append" semantics
// are load-merge-dedup-rewrite: the whole file is rewritten on every merge.
// No other component touches this file.
type ProspectStore struct {
	path   string
	logger *zap.Logger
}

func NewProspectStore(path string, logger *zap.Logger) *ProspectStore {
	return &ProspectStore{path: path, logger: logger}
}

// Path returns the spreadsheet location.
func (s *ProspectStore) Path() string {
	return s.path
}

// Load reads all persisted records. A missing file is an empty store.
func (s *ProspectStore) Load() ([]Record, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open prospects file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read prospects sheet: %w", err)
	}

	var records []Record
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		records = append(records, Record{
			Query:        cell(row, 0),
			URL:          cell(row, 1),
			Emails:       cell(row, 2),
			Phones:       cell(row, 3),
			Description:  cell(row, 4),
			ContactLinks: cell(row, 5),
		})
	}
	return records, nil
}

// Merge folds a batch of freshly extracted records into the store. Within the
// batch the last record wins per URL; across runs the already-persisted row
// wins, so re-merging the same batch is a no-op. Returns the number of rows
// actually added and the new total.
func (s *ProspectStore) Merge(batch []Record) (added, total int, err error) {
	deduped := dedupeLastWins(batch)

	existing, err := s.Load()
	if err != nil {
		return 0, 0, err
	}

	seen := make(map[string]struct{}, len(existing))
	merged := make([]Record, 0, len(existing)+len(deduped))
	for _, r := range existing {
		seen[r.URL] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range deduped {
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		merged = append(merged, r)
		added++
	}

	if err := s.write(merged); err != nil {
		return 0, 0, err
	}
	s.logger.Info("prospects saved",
		zap.Int("added", added), zap.Int("total", len(merged)), zap.String("path", s.path))
	return added, len(merged), nil
}

func dedupeLastWins(batch []Record) []Record {
	index := make(map[string]int, len(batch))
	var out []Record
	for _, r := range batch {
		if i, ok := index[r.URL]; ok {
			out[i] = r
			continue
		}
		index[r.URL] = len(out)
		out = append(out, r)
	}
	return out
}

func (s *ProspectStore) write(records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, r := range records {
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.Query, r.URL, r.Emails, r.Phones, r.Description, r.ContactLinks}
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save prospects file: %w", err)
	}
	return nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
