// grbwatch/scraper/html_table.go
package scraper

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gewnthar/grbwatch/utils"
)

// tableGrid is an HTML table with colspan/rowspan expanded so every row has
// the same number of cells.
type tableGrid struct {
	rows   [][]string
	header []bool // row consisted only of <th> cells
}

type spanned struct {
	text      string
	remaining int
}

// expandTable flattens the rows that belong directly to table (rows of
// nested tables are ignored).
func expandTable(table *goquery.Selection) tableGrid {
	var grid tableGrid
	pending := make(map[int]*spanned)
	width := 0

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(table) {
			return
		}
		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() == 0 {
			return
		}

		var row []string
		fillPending := func() {
			for {
				p, ok := pending[len(row)]
				if !ok {
					return
				}
				row = append(row, p.text)
				p.remaining--
				if p.remaining == 0 {
					delete(pending, len(row)-1)
				}
			}
		}

		allTH := true
		cells.Each(func(_ int, cell *goquery.Selection) {
			if goquery.NodeName(cell) != "th" {
				allTH = false
			}
			cell.Find("br").ReplaceWithHtml(" ")
			text := utils.CollapseSpace(cell.Text())
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")

			for i := 0; i < colspan; i++ {
				fillPending()
				if rowspan > 1 {
					pending[len(row)] = &spanned{text: text, remaining: rowspan - 1}
				}
				row = append(row, text)
			}
		})
		fillPending()

		// Cells carried by rowspans past the end of this row.
		if len(pending) > 0 {
			cols := make([]int, 0, len(pending))
			for c := range pending {
				cols = append(cols, c)
			}
			sort.Ints(cols)
			for _, c := range cols {
				for len(row) < c {
					row = append(row, "")
				}
				fillPending()
			}
		}

		if len(row) > width {
			width = len(row)
		}
		grid.rows = append(grid.rows, row)
		grid.header = append(grid.header, allTH)
	})

	for i, row := range grid.rows {
		for len(row) < width {
			row = append(row, "")
		}
		grid.rows[i] = row
	}
	return grid
}

func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// headerRowCount returns the number of leading all-<th> rows, or 1 when the
// table has none so the first row is used as the header.
func (g tableGrid) headerRowCount() int {
	n := 0
	for n < len(g.header) && g.header[n] {
		n++
	}
	if n == 0 && len(g.rows) > 0 {
		return 1
	}
	return n
}

// columnNames builds one normalized, unique name per column from the last
// header row, falling back to the rows above it when that cell is blank.
func (g tableGrid) columnNames(headerRows int) []string {
	if headerRows == 0 {
		return nil
	}
	width := len(g.rows[0])
	names := make([]string, width)
	seen := make(map[string]int, width)

	for col := 0; col < width; col++ {
		name := ""
		for r := headerRows - 1; r >= 0 && name == ""; r-- {
			name = utils.NormalizeHeader(g.rows[r][col])
		}
		if name == "" {
			name = "col" + strconv.Itoa(col+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + " " + strconv.Itoa(n+1)
		} else {
			seen[name] = 1
		}
		names[col] = name
	}
	return names
}
