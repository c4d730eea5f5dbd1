// Package table holds CSV tables in memory and persists them by logical name
// through an archive.Storage backend.
package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/newthinker/nseetl/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header plus string rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates an empty table with the given columns
func New(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Parse decodes CSV bytes. The first record is the header; rows whose
// width differs from the header fail with core.ErrSchemaMismatch.
func Parse(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, core.WrapError(core.ErrSchemaMismatch, err)
	}
	if len(records) == 0 {
		return New(), nil
	}

	t := &Table{Header: records[0], Rows: make([][]string, 0, len(records)-1)}
	for i, rec := range records[1:] {
		if len(rec) != len(t.Header) {
			return nil, core.WrapError(core.ErrSchemaMismatch,
				fmt.Errorf("row %d has %d fields, header has %d", i+1, len(rec), len(t.Header)))
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Encode renders the table as CSV with a header line
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for i, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column or -1
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// MustIndex is Index returning core.ErrSchemaMismatch when the column is absent
func (t *Table) MustIndex(name string) (int, error) {
	i := t.Index(name)
	if i < 0 {
		return -1, core.WrapError(core.ErrSchemaMismatch, fmt.Errorf("missing column %q", name))
	}
	return i, nil
}

// Append adds a row; it panics if the width is wrong
func (t *Table) Append(row ...string) {
	if len(row) != len(t.Header) {
		panic(fmt.Sprintf("table: row has %d cells, header has %d", len(row), len(t.Header)))
	}
	t.Rows = append(t.Rows, row)
}

// TrimSpace trims column names and every cell
func (t *Table) TrimSpace() {
	for i, h := range t.Header {
		t.Header[i] = strings.TrimSpace(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			row[i] = strings.TrimSpace(cell)
		}
	}
}

// Rename renames a column if present
func (t *Table) Rename(from, to string) {
	if i := t.Index(from); i >= 0 {
		t.Header[i] = to
	}
}

// Drop removes the named columns; absent names are ignored
func (t *Table) Drop(names ...string) {
	drop := make(map[int]bool, len(names))
	for _, n := range names {
		if i := t.Index(n); i >= 0 {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return
	}

	keep := func(cells []string) []string {
		out := make([]string, 0, len(cells)-len(drop))
		for i, c := range cells {
			if !drop[i] {
				out = append(out, c)
			}
		}
		return out
	}

	t.Header = keep(t.Header)
	for i, row := range t.Rows {
		t.Rows[i] = keep(row)
	}
}

// Filter keeps rows for which keep returns true
func (t *Table) Filter(keep func(row []string) bool) {
	out := t.Rows[:0]
	for _, row := range t.Rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	t.Rows = out
}

// Column returns a copy of the named column's values
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.MustIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Concat stacks tables that share the same header.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return New(), nil
	}

	out := New(tables[0].Header...)
	for n, t := range tables {
		if !sameHeader(out.Header, t.Header) {
			return nil, core.WrapError(core.ErrSchemaMismatch,
				fmt.Errorf("table %d columns %v differ from %v", n, t.Header, out.Header))
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

func sameHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
