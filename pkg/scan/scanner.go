// Package scan provides a cursor-owning scanner over an in-memory text buffer.
//
// The snapshot readers in pkg/schema and pkg/locator never keep regexp state
// between calls. Every search starts at the scanner's cursor and reports absolute
// offsets into the scanned buffer, so slices taken later line up with the source.
package scan

import (
	"regexp"
	"strings"
)

// Scanner walks src with an explicit cursor.
type Scanner struct {
	src string
	pos int
}

// New returns a Scanner positioned at the start of src.
func New(src string) *Scanner {
	return &Scanner{src: src}
}

// Pos returns the cursor offset.
func (s *Scanner) Pos() int { return s.pos }

// Seek moves the cursor to pos, clamped to the buffer bounds.
func (s *Scanner) Seek(pos int) {
	switch {
	case pos < 0:
		s.pos = 0
	case pos > len(s.src):
		s.pos = len(s.src)
	default:
		s.pos = pos
	}
}

// Match is a regexp match with offsets relative to the start of the buffer.
type Match struct {
	Start int
	End   int

	src  string
	locs []int
}

// Text returns the full matched text.
func (m Match) Text() string { return m.src[m.Start:m.End] }

// Group returns submatch i, or "" if the group did not participate.
func (m Match) Group(i int) string {
	if 2*i+1 >= len(m.locs) || m.locs[2*i] < 0 {
		return ""
	}
	return m.src[m.locs[2*i]:m.locs[2*i+1]]
}

// FindNext returns the first match of re that starts at or after the cursor and
// moves the cursor to the end of that match. The search window begins at the start
// of the cursor's line so that ^ and \b keep their whole-buffer meaning.
func (s *Scanner) FindNext(re *regexp.Regexp) (Match, bool) {
	m, ok := s.Peek(re)
	if !ok {
		return Match{}, false
	}
	s.pos = m.End
	if m.End == m.Start && s.pos < len(s.src) {
		// empty match; step over it so repeated calls make progress
		s.pos++
	}
	return m, true
}

// Peek is FindNext without moving the cursor.
func (s *Scanner) Peek(re *regexp.Regexp) (Match, bool) {
	base := strings.LastIndexByte(s.src[:s.pos], '\n') + 1
	window := s.src[base:]

	if loc := re.FindStringSubmatchIndex(window); loc != nil && base+loc[0] >= s.pos {
		return s.match(base, loc), true
	}
	for _, loc := range re.FindAllStringSubmatchIndex(window, -1) {
		if base+loc[0] >= s.pos {
			return s.match(base, loc), true
		}
	}
	return Match{}, false
}

func (s *Scanner) match(base int, loc []int) Match {
	abs := make([]int, len(loc))
	for i, v := range loc {
		if v < 0 {
			abs[i] = -1
			continue
		}
		abs[i] = base + v
	}
	return Match{Start: abs[0], End: abs[1], src: s.src, locs: abs}
}

// Index returns the absolute offset of the first occurrence of lit at or after the
// cursor and moves the cursor past it. It returns -1 and leaves the cursor alone
// when lit does not occur.
func (s *Scanner) Index(lit string) int {
	i := strings.Index(s.src[s.pos:], lit)
	if i < 0 {
		return -1
	}
	at := s.pos + i
	s.pos = at + len(lit)
	return at
}

// NextLine returns the line under the cursor without its line ending and moves the
// cursor to the start of the following line. Both \n and \r\n endings are accepted.
func (s *Scanner) NextLine() (string, bool) {
	if s.pos >= len(s.src) {
		return "", false
	}
	rest := s.src[s.pos:]
	i := strings.IndexByte(rest, '\n')
	if i < 0 {
		s.pos = len(s.src)
		return strings.TrimSuffix(rest, "\r"), true
	}
	s.pos += i + 1
	return strings.TrimSuffix(rest[:i], "\r"), true
}

// Slice returns src[start:end], clamped to the buffer bounds.
func (s *Scanner) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s.src) {
		end = len(s.src)
	}
	if start >= end {
		return ""
	}
	return s.src[start:end]
}

// LineAt returns the 1-based line number containing offset.
func (s *Scanner) LineAt(offset int) int {
	if offset > len(s.src) {
		offset = len(s.src)
	}
	return strings.Count(s.src[:offset], "\n") + 1
}
