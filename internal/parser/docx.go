package parser

import (
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/searchkit/docindex/internal/pagemap"
)

// DOCXParser handles .docx files. Body paragraphs are flattened to plain
// text; tables are rendered as <table> markup.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) ([]pagemap.Page, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docindex-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var blocks []string
	for _, item := range doc.Document.Body.Items {
		switch node := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(node)
			if text == "" {
				continue
			}
			// Heading paragraphs rarely carry terminal punctuation; add it
			// so the splitter can end a section there.
			if docxIsHeading(node) && !strings.ContainsAny(text[len(text)-1:], ".!?") {
				text += "."
			}
			blocks = append(blocks, text)
		case *docx.Table:
			if t := docxTableHTML(node); t != "" {
				blocks = append(blocks, t)
			}
		}
	}

	return pagemap.FromTexts([]string{strings.Join(blocks, "\n\n")}).Pages(), nil
}

func docxTableHTML(table *docx.Table) string {
	var buf strings.Builder
	buf.WriteString("<table>")
	for _, row := range table.TableRows {
		buf.WriteString("<tr>")
		for _, cell := range row.TableCells {
			var cellText strings.Builder
			for _, para := range cell.Paragraphs {
				if t := docxParagraphText(para); t != "" {
					if cellText.Len() > 0 {
						cellText.WriteString(" ")
					}
					cellText.WriteString(t)
				}
			}
			buf.WriteString("<td>")
			buf.WriteString(html.EscapeString(cellText.String()))
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</table>")
	return buf.String()
}

func docxIsHeading(para *docx.Paragraph) bool {
	if para.Properties == nil || para.Properties.Style == nil {
		return false
	}
	style := strings.ToLower(para.Properties.Style.Val)
	return strings.HasPrefix(style, "heading")
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
