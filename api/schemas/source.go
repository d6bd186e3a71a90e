package schemas

import (
	"strings"

	"github.com/google/uuid"
)

// SourceUnit is a single piece of source code under analysis. It is created
// once by an acquirer and read-only thereafter; the line index is computed at
// construction so that span lookups never rescan the text.
type SourceUnit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`     // File path or URL the text came from.
	Language string `json:"language"` // Lowercase language tag, e.g. "python". May be empty.
	Text     string `json:"text"`

	// lineOffsets[i] is the byte offset of the start of line i+1.
	lineOffsets []int
}

// NewSourceUnit builds an immutable SourceUnit with its line-offset index.
func NewSourceUnit(name, language, text string) *SourceUnit {
	u := &SourceUnit{
		ID:       uuid.New().String(),
		Name:     name,
		Language: strings.ToLower(language),
		Text:     text,
	}
	u.lineOffsets = buildLineOffsets(text)
	return u
}

func buildLineOffsets(text string) []int {
	if text == "" {
		return nil
	}
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && i+1 < len(text) {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// NumLines returns the number of lines in the unit. Empty text has zero lines.
func (u *SourceUnit) NumLines() int {
	return len(u.lineOffsets)
}

// IsEmpty reports whether the unit contains no analyzable text.
func (u *SourceUnit) IsEmpty() bool {
	return strings.TrimSpace(u.Text) == ""
}

// Line returns the 1-based line n without its trailing newline. The second
// return value is false when n is out of range.
func (u *SourceUnit) Line(n int) (string, bool) {
	if n < 1 || n > len(u.lineOffsets) {
		return "", false
	}
	start := u.lineOffsets[n-1]
	end := len(u.Text)
	if n < len(u.lineOffsets) {
		end = u.lineOffsets[n] - 1 // Drop the newline separator.
	} else {
		end = len(strings.TrimRight(u.Text[start:], "\n")) + start
	}
	return u.Text[start:end], true
}

// LineRange returns the text of lines [start, end] inclusive, clamped to the
// unit's bounds. Returns an empty string when the range is empty after clamping.
func (u *SourceUnit) LineRange(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(u.lineOffsets) {
		end = len(u.lineOffsets)
	}
	if start > end {
		return ""
	}
	var b strings.Builder
	for n := start; n <= end; n++ {
		line, _ := u.Line(n)
		b.WriteString(line)
		if n < end {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// ContainsSpan reports whether the span lies within the unit's line range.
func (u *SourceUnit) ContainsSpan(s Span) bool {
	return s.StartLine >= 1 && s.EndLine <= len(u.lineOffsets) && s.StartLine <= s.EndLine
}
