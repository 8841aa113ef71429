package parser

import (
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/searchkit/docindex/internal/pagemap"
)

// csvRowsPerPage bounds how many data rows share one page, so wide files
// still produce sections with a usable page reference.
const csvRowsPerPage = 50

// CSVParser handles CSV files. Each page is one <table> with the header row
// repeated, so every emitted section carries its column names.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) ([]pagemap.Page, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return pagemap.FromTexts([]string{""}).Pages(), nil
	}

	headers := records[0]
	dataRows := records[1:]

	var texts []string
	for i := 0; i < len(dataRows) || i == 0; i += csvRowsPerPage {
		end := i + csvRowsPerPage
		if end > len(dataRows) {
			end = len(dataRows)
		}

		var buf strings.Builder
		buf.WriteString("<table><tr>")
		for _, h := range headers {
			buf.WriteString("<th>")
			buf.WriteString(html.EscapeString(h))
			buf.WriteString("</th>")
		}
		buf.WriteString("</tr>")
		for _, row := range dataRows[i:end] {
			buf.WriteString("<tr>")
			for _, cell := range row {
				buf.WriteString("<td>")
				buf.WriteString(html.EscapeString(cell))
				buf.WriteString("</td>")
			}
			buf.WriteString("</tr>")
		}
		buf.WriteString("</table>\n")
		texts = append(texts, buf.String())
	}

	return pagemap.FromTexts(texts).Pages(), nil
}
