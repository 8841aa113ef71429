package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/searchkit/docindex/internal/pagemap"
)

// HTMLParser handles HTML files. Prose elements are flattened to plain text;
// <table> subtrees are copied through as markup.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) ([]pagemap.Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var blocks []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "table":
				var buf strings.Builder
				if err := html.Render(&buf, n); err == nil {
					blocks = append(blocks, buf.String())
				}
				return
			case "p", "li", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
				if t := textContent(n); t != "" {
					blocks = append(blocks, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	// Prefer <body> so <title> and <head> metadata stay out of the text.
	body := findBody(doc)
	if body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	return pagemap.FromTexts([]string{strings.Join(blocks, "\n\n")}).Pages(), nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
