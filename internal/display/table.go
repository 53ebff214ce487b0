package display

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Alignment represents column alignment options
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Table renders rows as an ASCII table
type Table struct {
	headers    []string
	rows       [][]string
	alignments map[int]Alignment
	maxWidth   int
}

// NewTable creates a table whose width is limited to the terminal width
func NewTable(headers ...string) *Table {
	return &Table{
		headers:    headers,
		alignments: make(map[int]Alignment),
		maxWidth:   getTerminalWidth(),
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// SetAlignment sets the alignment for a column
func (t *Table) SetAlignment(column int, alignment Alignment) *Table {
	t.alignments[column] = alignment
	return t
}

// SetMaxWidth limits the rendered line length; 0 disables the limit
func (t *Table) SetMaxWidth(width int) *Table {
	t.maxWidth = width
	return t
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the formatted table
func (t *Table) Render() string {
	widths := t.columnWidths()
	if len(widths) == 0 {
		return ""
	}

	border := t.border(widths)

	var b strings.Builder
	b.WriteString(border)
	if len(t.headers) > 0 {
		b.WriteString(t.renderRow(t.headers, widths))
		b.WriteString(border)
	}
	for _, row := range t.rows {
		b.WriteString(t.renderRow(row, widths))
	}
	if len(t.rows) > 0 {
		b.WriteString(border)
	}
	return b.String()
}

// RenderTo writes the table to w
func (t *Table) RenderTo(w io.Writer) {
	fmt.Fprint(w, t.Render())
}

func (t *Table) columnWidths() []int {
	cols := len(t.headers)
	for _, row := range t.rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}

	if t.maxWidth > 0 {
		shrinkToFit(widths, t.maxWidth)
	}
	return widths
}

// shrinkToFit narrows the widest columns until a rendered line fits in max
func shrinkToFit(widths []int, max int) {
	// "| " + cell + " " per column, plus the closing "|"
	total := 1
	for _, w := range widths {
		total += w + 3
	}

	for total > max {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 4 {
			return
		}
		widths[widest]--
		total--
	}
}

func (t *Table) border(widths []int) string {
	var b strings.Builder
	b.WriteString("+")
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteString("+")
	}
	b.WriteString("\n")
	return b.String()
}

func (t *Table) renderRow(row []string, widths []int) string {
	var b strings.Builder
	b.WriteString("|")
	for i, w := range widths {
		var cell string
		if i < len(row) {
			cell = truncate(row[i], w)
		}
		pad := strings.Repeat(" ", w-utf8.RuneCountInString(cell))

		b.WriteString(" ")
		if t.alignments[i] == AlignRight {
			b.WriteString(pad + cell)
		} else {
			b.WriteString(cell + pad)
		}
		b.WriteString(" |")
	}
	b.WriteString("\n")
	return b.String()
}

// truncate shortens s to width runes, marking the cut with "..."
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(1) // stdout
	if err != nil {
		return 0
	}
	return width
}
