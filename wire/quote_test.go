package wire

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestQuoteEscapes(t *testing.T) {
	assert.Equal(t, Quote("plain"), "plain")
	assert.Equal(t, Quote(`a"b\c`), `a\"b\\c`)
	assert.Equal(t, Quote("x\ny\rz"), `x\ny\rz`)
}

func TestQuotedAddsDelimiters(t *testing.T) {
	assert.Equal(t, Quoted("main.c"), `"main.c"`)
	assert.Equal(t, Quoted("x\n"), `"x\n"`)

	text, rest, ok := Unquote(Quoted(`quo"te`) + " 1")
	assert.Equal(t, ok, true)
	assert.Equal(t, text, `quo"te`)
	assert.Equal(t, rest, " 1")
}

func TestQuoteUnquoteRoundTrip(t *testing.T) {
	for _, s := range []string{
		"",
		"hello world",
		"line1\nline2\n",
		`quo"te and back\slash`,
		"cr\rlf\n mix",
	} {
		text, rest, ok := Unquote(`"` + Quote(s) + `" tail`)
		assert.Equal(t, ok, true)
		assert.Equal(t, text, s)
		assert.Equal(t, rest, " tail")
	}
}

func TestUnquoteNotQuoted(t *testing.T) {
	text, rest, ok := Unquote("bare")
	assert.Equal(t, ok, false)
	assert.Equal(t, text, "")
	assert.Equal(t, rest, "bare")
}

func TestUnquoteTab(t *testing.T) {
	text, _, ok := Unquote(`"a\tb"`)
	assert.Equal(t, ok, true)
	assert.Equal(t, text, "a\tb")
}

func TestUnquoteDropsUnknownEscape(t *testing.T) {
	text, _, ok := Unquote(`"a\qb"`)
	assert.Equal(t, ok, true)
	assert.Equal(t, text, "ab")
}

func TestUnquoteTrailingBackslash(t *testing.T) {
	text, rest, ok := Unquote(`"abc\`)
	assert.Equal(t, ok, true)
	assert.Equal(t, text, `abc\`)
	assert.Equal(t, rest, "")
}

func TestUnquoteUnterminated(t *testing.T) {
	text, rest, ok := Unquote(`"abc`)
	assert.Equal(t, ok, true)
	assert.Equal(t, text, "abc")
	assert.Equal(t, rest, "")
}
