package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer writes tables as comma separated values. Title and footer lines
// are emitted as single-cell rows around the grid.
type CSVRenderer struct{}

// NewCSVRenderer builds a CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

func (r *CSVRenderer) ContentType() string { return "text/csv" }

func (r *CSVRenderer) Extension() string { return "csv" }

// Render produces CSV bytes for t.
func (r *CSVRenderer) Render(t Table) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if t.Title != "" {
		if err := w.Write([]string{t.Title}); err != nil {
			return nil, fmt.Errorf("write csv title: %w", err)
		}
	}
	if err := w.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	for _, line := range t.Footer {
		if err := w.Write([]string{line}); err != nil {
			return nil, fmt.Errorf("write csv footer: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
