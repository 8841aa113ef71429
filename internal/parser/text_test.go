package parser

import (
	"strings"
	"testing"
)

func TestTextParser_SinglePageWithoutFormFeeds(t *testing.T) {
	input := "First paragraph.\n\nSecond paragraph."
	pages, err := (&TextParser{}).Parse(strings.NewReader(input), "doc.txt")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Number != 0 || pages[0].Offset != 0 {
		t.Errorf("unexpected page header: %+v", pages[0])
	}
	if pages[0].Text != input {
		t.Errorf("page text = %q, want %q", pages[0].Text, input)
	}
}

func TestTextParser_FormFeedsSplitPages(t *testing.T) {
	pages, err := (&TextParser{}).Parse(strings.NewReader("page one\fpage two\fpage three"), "doc.txt")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[1].Text != "page two" {
		t.Errorf("page 1 text = %q", pages[1].Text)
	}
	if pages[1].Offset != len("page one") {
		t.Errorf("page 1 offset = %d, want %d", pages[1].Offset, len("page one"))
	}
	if pages[2].Offset != len("page one")+len("page two") {
		t.Errorf("page 2 offset = %d", pages[2].Offset)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	pages, err := (&TextParser{}).Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "" {
		t.Errorf("expected one empty page, got %+v", pages)
	}
}

func TestForFile_Dispatch(t *testing.T) {
	for _, name := range []string{"a.txt", "a.md", "a.csv", "a.html", "a.pdf", "a.docx"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("ForFile(%q): %v", name, err)
		}
	}
	if _, err := ForFile("a.xlsx"); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupportedExtension("a.xlsx") {
		t.Error("xlsx should not be supported")
	}
	if !IsSupportedExtension("A.PDF") {
		t.Error("extension check should be case-insensitive")
	}
}
