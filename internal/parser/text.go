package parser

import (
	"io"
	"strings"

	"github.com/searchkit/docindex/internal/pagemap"
)

// TextParser handles plain text files. Form feeds are treated as page
// separators; without them the whole file is one page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]pagemap.Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := string(data)
	if !strings.Contains(text, "\f") {
		return pagemap.FromTexts([]string{text}).Pages(), nil
	}
	return pagemap.FromTexts(strings.Split(text, "\f")).Pages(), nil
}
