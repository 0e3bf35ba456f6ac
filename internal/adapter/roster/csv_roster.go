package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"
)

// CSVRoster answers eligibility from a resident roster exported as CSV. The
// file either carries a header with a "kerb" column, or is a plain
// one-kerb-per-line list. Matching is case-insensitive.
type CSVRoster struct {
	path string

	mu    sync.RWMutex
	kerbs map[string]struct{}
}

// LoadCSVRoster reads the roster file at path. The roster can be swapped on
// disk and picked up with Reload when a new term starts.
func LoadCSVRoster(path string) (*CSVRoster, error) {
	r := &CSVRoster{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the roster file, replacing the eligible set atomically.
func (r *CSVRoster) Reload() error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse roster: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("roster %s is empty", r.path)
	}

	kerbCol, hasHeader := findKerbColumn(records[0])
	rows := records
	if hasHeader {
		rows = records[1:]
	}

	kerbs := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if kerbCol >= len(row) {
			continue
		}
		kerb := normalize(row[kerbCol])
		if kerb == "" {
			continue
		}
		kerbs[kerb] = struct{}{}
	}

	r.mu.Lock()
	r.kerbs = kerbs
	r.mu.Unlock()
	return nil
}

func (r *CSVRoster) IsEligible(ctx context.Context, kerb string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kerbs[normalize(kerb)]
	return ok, nil
}

// Len returns the number of eligible kerbs.
func (r *CSVRoster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kerbs)
}

// findKerbColumn looks for a header cell named kerb. Without one the file is
// treated as headerless and column 0 holds the kerbs.
func findKerbColumn(header []string) (col int, hasHeader bool) {
	for i, cell := range header {
		if normalize(cell) == "kerb" {
			return i, true
		}
	}
	return 0, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
