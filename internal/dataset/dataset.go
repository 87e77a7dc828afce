// Package dataset reads and writes the tables exchanged with the surrounding
// experiment tooling: ground truth discourse units, raw model outputs, and
// the result, metrics and statistics tables of a run.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrMissingColumn indicates a table without a required column
var ErrMissingColumn = errors.New("missing column")

// table is a CSV file read into memory with its header indexed by name
type table struct {
	columns map[string]int
	records [][]string
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: empty table")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{columns: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := t.columns[name]; !dup {
			t.columns[name] = i
		}
	}

	t.records, err = cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return t, nil
}

func (t *table) has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

func (t *table) require(columns ...string) error {
	for _, c := range columns {
		if !t.has(c) {
			return fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}
	return nil
}

// get returns the named field of record, or "" when the record is short
func (t *table) get(record []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseOffset accepts integer offsets, also in the "15.0" form pandas writes
// for columns that once held missing values
func parseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return int(f), nil
}
