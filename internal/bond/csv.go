package bond

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// WriteCSV writes the table with a header row. Missing cells are written empty.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	line := make([]string, len(t.columns))
	for i, r := range t.rows {
		for j, c := range t.columns {
			line[j] = r.Value(c)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV loads a table written by WriteCSV. Empty cells are treated as
// missing, so they read back as "" but do not count as set on the record.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	t := NewTable(header...)
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec := &Record{values: make(map[string]string, len(fields))}
		for i, v := range fields {
			if v == "" {
				continue
			}
			rec.Set(header[i], v)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}
