package clause

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the shortest clause, in runes, kept by Segment.
const DefaultMinLength = 40

// Clause is one contiguous piece of a contract.
type Clause struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

type lineKind int

const (
	linePlain lineKind = iota
	lineBlank
	lineMarker
)

// marker describes a boundary pattern recognised at the start of a line.
// When strip is set the matched prefix is not part of the clause text.
// Numbered markers keep blank lines inside their piece; headings do not.
type marker struct {
	re       *regexp.Regexp
	strip    bool
	numbered bool
}

var markers = []marker{
	{re: regexp.MustCompile(`^[ \t]*\d+\.(?:[ \t]+|$)`), strip: true, numbered: true},
	{re: regexp.MustCompile(`^[ \t]*\d+\)[ \t]*`), strip: true, numbered: true},
	{re: regexp.MustCompile(`^[ \t]*[A-Za-z]\)(?:[ \t]+|$)`), strip: true, numbered: true},
	{re: regexp.MustCompile(`^[ \t]*(?:Article|Clause|Section)[ \t]+\d+\b`), numbered: true},
	{re: regexp.MustCompile(`^[ \t]*[A-Z][A-Za-z'&-]*(?:[ \t]+[A-Z][A-Za-z'&-]*){0,3}:`)},
}

type piece struct {
	start, end int
	marked     bool
}

// Segment splits contract text into clauses. Boundaries are numbered
// markers ("1.", "1)"), lettered markers ("a)"), article or clause headings
// and capitalised headings ending in a colon, all at the start of a line.
// A blank line ends a piece unless the piece was opened by a numbering
// marker, so multi-paragraph numbered clauses stay whole while paragraphs
// under a plain heading split.
//
// Pieces are trimmed and those shorter than minLength runes are dropped.
// Clause text is always a verbatim substring of text starting at Offset.
func Segment(text string, minLength int) []Clause {
	var pieces []piece
	cur := piece{}

	for off := 0; off < len(text); {
		lineEnd, next := len(text), len(text)
		if i := strings.IndexByte(text[off:], '\n'); i >= 0 {
			lineEnd = off + i
			next = lineEnd + 1
		}

		kind, skip, numbered := classify(text[off:lineEnd])
		switch kind {
		case lineBlank:
			if !cur.marked {
				cur.end = off
				pieces = append(pieces, cur)
				cur = piece{start: next}
			}
		case lineMarker:
			cur.end = off
			pieces = append(pieces, cur)
			cur = piece{start: off + skip, marked: numbered}
		}
		off = next
	}
	cur.end = len(text)
	if cur.start < cur.end {
		pieces = append(pieces, cur)
	}

	var clauses []Clause
	for _, p := range pieces {
		raw := text[p.start:p.end]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || utf8.RuneCountInString(trimmed) < minLength {
			continue
		}
		lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		clauses = append(clauses, Clause{
			Index:  len(clauses) + 1,
			Text:   trimmed,
			Offset: p.start + lead,
		})
	}
	return clauses
}

// classify reports the kind of line, how many bytes of marker to skip, and
// whether the marker is a numbering pattern.
func classify(line string) (lineKind, int, bool) {
	line = strings.TrimRight(line, " \t\r")
	if strings.TrimSpace(line) == "" {
		return lineBlank, 0, false
	}
	for _, m := range markers {
		loc := m.re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if m.strip {
			return lineMarker, loc[1], m.numbered
		}
		return lineMarker, 0, m.numbered
	}
	return linePlain, 0, false
}
