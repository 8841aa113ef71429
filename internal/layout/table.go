package layout

import (
	"html"
	"sort"
	"strconv"
	"strings"
)

// tableToHTML renders a cell grid as inline table markup. Header-kind cells
// become <th>, and multi-row or multi-column cells carry span attributes.
func tableToHTML(tb table) string {
	rows := make([][]cell, tb.RowCount)
	for _, c := range tb.Cells {
		if c.RowIndex < 0 || c.RowIndex >= tb.RowCount {
			continue
		}
		rows[c.RowIndex] = append(rows[c.RowIndex], c)
	}
	for i := range rows {
		sort.Slice(rows[i], func(a, b int) bool {
			return rows[i][a].ColumnIndex < rows[i][b].ColumnIndex
		})
	}

	var buf strings.Builder
	buf.WriteString("<table>")
	for _, rowCells := range rows {
		buf.WriteString("<tr>")
		for _, c := range rowCells {
			tag := "td"
			if c.Kind == "columnHeader" || c.Kind == "rowHeader" {
				tag = "th"
			}
			buf.WriteString("<" + tag)
			if c.ColumnSpan > 1 {
				buf.WriteString(" colSpan=" + strconv.Itoa(c.ColumnSpan))
			}
			if c.RowSpan > 1 {
				buf.WriteString(" rowSpan=" + strconv.Itoa(c.RowSpan))
			}
			buf.WriteString(">")
			buf.WriteString(html.EscapeString(c.Content))
			buf.WriteString("</" + tag + ">")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</table>")
	return buf.String()
}
