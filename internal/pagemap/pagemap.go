// Package pagemap holds the page-offset model of an extracted document.
// Parsers produce a list of pages; the concatenation of their texts is the
// logical document string that the splitter operates on.
package pagemap

import (
	"fmt"
	"strings"
)

// Page is one page of extracted document text.
type Page struct {
	Number int    // zero-based page index
	Offset int    // byte offset of this page's text in the concatenated document
	Text   string // extracted text, table regions inline as <table> markup
}

// MalformedError reports a page list whose offsets do not partition the
// concatenated document text.
type MalformedError struct {
	Page   int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("pagemap: page %d: %s", e.Page, e.Reason)
}

// PageMap is the ordered page list of one document plus the concatenated
// text. Built once per document, read-only afterwards.
type PageMap struct {
	pages []Page
	text  string
}

// New validates the page list and concatenates the page texts. Page numbers
// must ascend and each page's Offset must equal the accumulated length of the
// pages before it; anything else returns a MalformedError.
func New(pages []Page) (*PageMap, error) {
	var b strings.Builder
	for i, p := range pages {
		if p.Number < 0 {
			return nil, &MalformedError{Page: p.Number, Reason: "negative page number"}
		}
		if i > 0 && p.Number <= pages[i-1].Number {
			return nil, &MalformedError{Page: p.Number, Reason: "page numbers not ascending"}
		}
		if p.Offset != b.Len() {
			return nil, &MalformedError{Page: p.Number, Reason: fmt.Sprintf("offset %d does not continue previous page (want %d)", p.Offset, b.Len())}
		}
		b.WriteString(p.Text)
	}
	return &PageMap{pages: pages, text: b.String()}, nil
}

// FromTexts builds a PageMap from per-page texts, numbering pages from zero
// and assigning running offsets.
func FromTexts(texts []string) *PageMap {
	pages := make([]Page, 0, len(texts))
	offset := 0
	for i, t := range texts {
		pages = append(pages, Page{Number: i, Offset: offset, Text: t})
		offset += len(t)
	}
	pm, err := New(pages)
	if err != nil {
		// New cannot fail on pages assembled here.
		panic(err)
	}
	return pm
}

// Text returns the concatenated document text.
func (m *PageMap) Text() string { return m.text }

// Len returns the length of the concatenated document text in bytes.
func (m *PageMap) Len() int { return len(m.text) }

// Pages returns the underlying page list. Callers must not modify it.
func (m *PageMap) Pages() []Page { return m.pages }

// FindPage returns the number of the page containing the given byte offset.
// Offsets at or past the start of the final page, including one equal to the
// document length, resolve to the final page. An empty map resolves to 0.
func (m *PageMap) FindPage(offset int) int {
	for i := 0; i < len(m.pages)-1; i++ {
		if offset >= m.pages[i].Offset && offset < m.pages[i+1].Offset {
			return m.pages[i].Number
		}
	}
	if len(m.pages) == 0 {
		return 0
	}
	return m.pages[len(m.pages)-1].Number
}
