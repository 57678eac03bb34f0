package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// column describes one table column. Numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

// renderTable lays rows out under cols, one string per line, header first.
// Trailing blanks are trimmed.
func renderTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = cellWidth(c.title)
	}
	for _, row := range rows {
		for i := range cols {
			if w := cellWidth(cellAt(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}

	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinCells(cols, widths, titles))
	for _, row := range rows {
		lines = append(lines, joinCells(cols, widths, row))
	}
	return lines
}

func joinCells(cols []column, widths []int, row []string) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cell := cellAt(row, i)
		pad := strings.Repeat(" ", max(widths[i]-cellWidth(cell), 0))
		if c.numeric {
			cells[i] = pad + cell
		} else {
			cells[i] = cell + pad
		}
	}
	return strings.TrimRight(strings.Join(cells, " "), " ")
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Words can be CJK or carry combining marks, so width is measured in
// terminal cells rather than runes.
func cellWidth(s string) int {
	return runewidth.StringWidth(s)
}
