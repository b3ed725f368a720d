// Package export renders score sheets into downloadable files.
package export

import "fmt"

// Format names a supported output type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Table is a titled grid of pre-formatted cells.
type Table struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     [][]string
	Footer   []string
}

func (t Table) validate() error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("table requires at least one header")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Headers))
		}
	}
	return nil
}

// Renderer turns a table into file bytes.
type Renderer interface {
	Render(t Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for f.
func ForFormat(f Format) (Renderer, error) {
	switch f {
	case FormatCSV, "":
		return NewCSVRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}
