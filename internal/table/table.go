// Package table prints rows of values through text/template columns, either
// aligned for a terminal or tab-separated for scripts.
package table

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"text/template"
)

// Table collects rows to be printed.
type Table struct {
	columns []column
	rows    [][]string

	// Plain disables the header, the separator lines and the alignment,
	// cells are separated by a single tab.
	Plain bool

	CellSeparator string
}

type column struct {
	header string
	tmpl   *template.Template
}

var funcmap = template.FuncMap{
	"join":  strings.Join,
	"octal": func(v uint32) string { return "0" + strconv.FormatUint(uint64(v), 8) },
}

// New returns an empty table.
func New() *Table {
	return &Table{CellSeparator: "  "}
}

// AddColumn adds a column. format is a text/template string executed for
// each row. AddColumn panics if format does not compile.
func (t *Table) AddColumn(header, format string) {
	tmpl := template.Must(template.New(header).Funcs(funcmap).Parse(format))
	t.columns = append(t.columns, column{header: header, tmpl: tmpl})
}

// AddRow renders data with the column templates.
func (t *Table) AddRow(data any) error {
	row := make([]string, 0, len(t.columns))
	buf := bytes.NewBuffer(nil)
	for _, col := range t.columns {
		buf.Reset()
		if err := col.tmpl.Execute(buf, data); err != nil {
			return err
		}
		row = append(row, buf.String())
	}
	t.rows = append(t.rows, row)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Write prints the table to w.
func (t *Table) Write(w io.Writer) error {
	if len(t.columns) == 0 {
		return nil
	}

	if t.Plain {
		for _, row := range t.rows {
			if _, err := io.WriteString(w, strings.Join(row, "\t")+"\n"); err != nil {
				return err
			}
		}
		return nil
	}

	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		widths[i] = len(col.header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	total := (len(widths) - 1) * len(t.CellSeparator)
	for _, width := range widths {
		total += width
	}
	separator := strings.Repeat("-", total)

	header := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		header = append(header, col.header)
	}

	lines := make([]string, 0, len(t.rows)+3)
	lines = append(lines, t.line(header, widths), separator)
	for _, row := range t.rows {
		lines = append(lines, t.line(row, widths))
	}
	lines = append(lines, separator)

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func (t *Table) line(cells []string, widths []int) string {
	var sb strings.Builder
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString(t.CellSeparator)
		}
		sb.WriteString(cell)
		if pad := widths[i] - len(cell); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}
	}
	return strings.TrimRight(sb.String(), " ")
}
