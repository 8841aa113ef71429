package parser

import (
	"bytes"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/searchkit/docindex/internal/pagemap"
)

// MarkdownParser handles Markdown files using goldmark. Prose blocks are
// rendered to plain text; pipe tables are rendered to <table> markup so the
// splitter treats them as unbreakable regions.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) ([]pagemap.Page, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *east.Table:
			blocks = append(blocks, tableHTML(node, src))
		case *ast.Heading:
			if t := string(node.Text(src)); t != "" {
				blocks = append(blocks, t+".")
			}
		default:
			if t := extractText(n, src); t != "" {
				blocks = append(blocks, t)
			}
		}
	}

	return pagemap.FromTexts([]string{strings.Join(blocks, "\n\n")}).Pages(), nil
}

// tableHTML renders a goldmark table node as inline HTML markup. Header rows
// use <th> cells.
func tableHTML(table *east.Table, src []byte) string {
	var buf strings.Builder
	buf.WriteString("<table>")
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*east.TableHeader)
		buf.WriteString("<tr>")
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			tag := "td"
			if header {
				tag = "th"
			}
			buf.WriteString("<" + tag + ">")
			buf.WriteString(html.EscapeString(extractText(cell, src)))
			buf.WriteString("</" + tag + ">")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</table>")
	return buf.String()
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.ChildCount() == 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
