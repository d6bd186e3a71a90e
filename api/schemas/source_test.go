package schemas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceUnit(t *testing.T) {
	u := NewSourceUnit("app/views.py", "Python", "a = 1\nb = 2\n")

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "app/views.py", u.Name)
	assert.Equal(t, "python", u.Language, "language tag is lowercased")
	assert.Equal(t, 2, u.NumLines())
}

func TestNumLinesTrailingNewline(t *testing.T) {
	// A trailing newline terminates the last line, it does not open a new one.
	text := strings.Repeat("line\n", 10)
	assert.Equal(t, 10, NewSourceUnit("f", "", text).NumLines())

	assert.Equal(t, 10, NewSourceUnit("f", "", strings.TrimSuffix(text, "\n")).NumLines())
	assert.Equal(t, 0, NewSourceUnit("f", "", "").NumLines())
	assert.Equal(t, 1, NewSourceUnit("f", "", "\n").NumLines())
}

func TestSourceUnitLine(t *testing.T) {
	u := NewSourceUnit("f", "", "first\nsecond\nthird")

	line, ok := u.Line(2)
	require.True(t, ok)
	assert.Equal(t, "second", line)

	line, ok = u.Line(3)
	require.True(t, ok)
	assert.Equal(t, "third", line)

	_, ok = u.Line(0)
	assert.False(t, ok)
	_, ok = u.Line(4)
	assert.False(t, ok)
}

func TestSourceUnitLineRange(t *testing.T) {
	u := NewSourceUnit("f", "", "one\ntwo\nthree\nfour\n")

	assert.Equal(t, "two\nthree", u.LineRange(2, 3))
	// Out-of-range bounds clamp instead of failing.
	assert.Equal(t, "one\ntwo\nthree\nfour", u.LineRange(0, 99))
	assert.Equal(t, "", u.LineRange(3, 2))
}

func TestSourceUnitContainsSpan(t *testing.T) {
	u := NewSourceUnit("f", "", "one\ntwo\nthree\n")

	assert.True(t, u.ContainsSpan(Span{StartLine: 1, EndLine: 3}))
	assert.True(t, u.ContainsSpan(Span{StartLine: 2, EndLine: 2}))
	assert.False(t, u.ContainsSpan(Span{StartLine: 0, EndLine: 2}))
	assert.False(t, u.ContainsSpan(Span{StartLine: 1, EndLine: 4}))
	assert.False(t, u.ContainsSpan(Span{StartLine: 3, EndLine: 2}))
}

func TestSourceUnitIsEmpty(t *testing.T) {
	assert.True(t, NewSourceUnit("f", "", "").IsEmpty())
	assert.True(t, NewSourceUnit("f", "", "  \n\t\n").IsEmpty())
	assert.False(t, NewSourceUnit("f", "", "x = 1\n").IsEmpty())
}
