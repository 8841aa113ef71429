// Package splitter cuts a page-mapped document into bounded, overlapping
// sections suitable for indexing and embedding. Section boundaries prefer
// sentence endings, fall back to word breaks, and never leave an HTML table
// open at the end of a section when the table can instead start the next one.
package splitter

import (
	"strings"

	"github.com/searchkit/docindex/internal/pagemap"
)

const (
	sentenceEndings = ".!?"
	wordBreaks      = ",;: ()[]{}\t\n"

	tableOpen  = "<table"
	tableClose = "</table"
)

// Config controls section sizing. All values are byte counts; the boundary
// characters the scans look for are ASCII, so byte and character offsets
// agree wherever a boundary can land.
type Config struct {
	MaxSectionLength    int // target section size
	SentenceSearchLimit int // how far past the target to look for a sentence end
	SectionOverlap      int // bytes carried from the tail of one section into the next
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSectionLength:    1000,
		SentenceSearchLimit: 100,
		SectionOverlap:      100,
	}
}

// Section is one emitted unit: a contiguous slice of the document text and
// the page its start offset falls on.
type Section struct {
	Text string
	Page int
}

// Scanner produces the sections of one document in order, in the manner of
// bufio.Scanner: call Scan until it returns false, reading each section with
// Section. A Scanner is single-use and not safe for concurrent use; splitting
// the same page map with a fresh Scanner yields an identical sequence.
type Scanner struct {
	cfg     Config
	pm      *pagemap.PageMap
	text    string
	length  int
	start   int
	end     int
	emitted bool
	done    bool
	cur     Section
}

// NewScanner returns a Scanner over pm. Non-positive config values fall back
// to the defaults.
func NewScanner(pm *pagemap.PageMap, cfg Config) *Scanner {
	def := DefaultConfig()
	if cfg.MaxSectionLength <= 0 {
		cfg.MaxSectionLength = def.MaxSectionLength
	}
	if cfg.SentenceSearchLimit <= 0 {
		cfg.SentenceSearchLimit = def.SentenceSearchLimit
	}
	if cfg.SectionOverlap <= 0 {
		cfg.SectionOverlap = def.SectionOverlap
	}
	text := pm.Text()
	return &Scanner{
		cfg:    cfg,
		pm:     pm,
		text:   text,
		length: len(text),
		end:    len(text),
	}
}

// Scan advances to the next section. It returns false when the document is
// exhausted.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	if s.start+s.cfg.SectionOverlap < s.length {
		s.cur = s.next()
		s.emitted = true
		return true
	}
	s.done = true
	// Trailing remainder. A tail already covered by the previous section's
	// overlap is skipped; a document too short to enter the loop at all is
	// still emitted whole.
	if s.start+s.cfg.SectionOverlap < s.end || (!s.emitted && s.length > 0) {
		s.cur = Section{Text: s.text[s.start:s.end], Page: s.pm.FindPage(s.start)}
		return true
	}
	return false
}

// Section returns the section found by the most recent call to Scan.
func (s *Scanner) Section() Section { return s.cur }

// next runs one cut: it fixes the end boundary, adjusts the start boundary,
// and positions the cursor for the following section.
func (s *Scanner) next() Section {
	text, length := s.text, s.length
	maxLen := s.cfg.MaxSectionLength
	limit := s.cfg.SentenceSearchLimit
	overlap := s.cfg.SectionOverlap

	start := s.start
	lastWord := -1
	end := start + maxLen
	if end > length {
		end = length
	} else {
		// Look ahead for the end of the sentence.
		for end < length && (end-start-maxLen) < limit && !isSentenceEnding(text[end]) {
			if isWordBreak(text[end]) {
				lastWord = end
			}
			end++
		}
		if end < length && !isSentenceEnding(text[end]) && lastWord > 0 {
			// No sentence end within the limit; at least keep whole words.
			end = lastWord
		}
	}
	if end < length {
		end++
	}

	// Walk the start back to a sentence end, or failing that a word break.
	lastWord = -1
	for start > 0 && start > end-maxLen-2*limit && !isSentenceEnding(text[start]) {
		if isWordBreak(text[start]) {
			lastWord = start
		}
		start--
	}
	if !isSentenceEnding(text[start]) && lastWord > 0 {
		start = lastWord
	}
	if start > 0 {
		start++
	}

	sectionText := text[start:end]
	sec := Section{Text: sectionText, Page: s.pm.FindPage(start)}

	// If the section ends inside a table, start the next section at the
	// table's opening tag so the table is carried over whole. Tables that
	// open within twice the search limit of the section start are left
	// alone: re-including those would stall the cursor on tables longer
	// than a whole section.
	lastTableStart := strings.LastIndex(sectionText, tableOpen)
	if lastTableStart > 2*limit && lastTableStart > strings.LastIndex(sectionText, tableClose) {
		s.start = min(end-overlap, start+lastTableStart)
	} else {
		s.start = end - overlap
	}
	s.end = end
	return sec
}

// Split drains a fresh Scanner over pm and returns all sections.
func Split(pm *pagemap.PageMap, cfg Config) []Section {
	var sections []Section
	sc := NewScanner(pm, cfg)
	for sc.Scan() {
		sections = append(sections, sc.Section())
	}
	return sections
}

func isSentenceEnding(c byte) bool {
	return strings.IndexByte(sentenceEndings, c) >= 0
}

func isWordBreak(c byte) bool {
	return strings.IndexByte(wordBreaks, c) >= 0
}
