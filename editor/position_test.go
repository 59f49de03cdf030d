package editor

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestOffsetToPositionLF(t *testing.T) {
	doc := NewDoc("hello", "world") // "hello\nworld\n"

	pos, ok := OffsetToPosition(doc, 0)
	assert.Equal(t, ok, true)
	assert.Equal(t, pos, Position{Line: 0, Col: 0})

	pos, ok = OffsetToPosition(doc, 5) // the terminator of line 0
	assert.Equal(t, ok, true)
	assert.Equal(t, pos, Position{Line: 0, Col: 5})

	pos, ok = OffsetToPosition(doc, 6)
	assert.Equal(t, ok, true)
	assert.Equal(t, pos, Position{Line: 1, Col: 0})

	pos, ok = OffsetToPosition(doc, 11)
	assert.Equal(t, ok, true)
	assert.Equal(t, pos, Position{Line: 1, Col: 5})

	_, ok = OffsetToPosition(doc, 12) // document size
	assert.Equal(t, ok, false)
	_, ok = OffsetToPosition(doc, -1)
	assert.Equal(t, ok, false)
}

func TestOffsetToPositionCRLF(t *testing.T) {
	doc := NewDoc("ab", "c")
	doc.SetLineEnding(CRLF) // "ab\r\nc\r\n"

	assert.Equal(t, Size(doc), 7)

	pos, ok := OffsetToPosition(doc, 3) // the '\n' of line 0
	assert.Equal(t, ok, true)
	assert.Equal(t, pos, Position{Line: 0, Col: 3})

	pos, ok = OffsetToPosition(doc, 4)
	assert.Equal(t, ok, true)
	assert.Equal(t, pos, Position{Line: 1, Col: 0})

	_, ok = OffsetToPosition(doc, 7)
	assert.Equal(t, ok, false)
}

func TestOffsetToPositionEmpty(t *testing.T) {
	_, ok := OffsetToPosition(NewDoc(), 0)
	assert.Equal(t, ok, false)
}

// Every valid offset must survive the round trip through a position,
// for both terminator widths.
func TestOffsetPositionInverse(t *testing.T) {
	for _, ending := range []LineEnding{LF, CRLF} {
		doc := NewDoc("", "some line", "x", "")
		doc.SetLineEnding(ending)
		for off := 0; off < Size(doc); off++ {
			pos, ok := OffsetToPosition(doc, off)
			assert.Equal(t, ok, true)
			assert.Equal(t, PositionToOffset(doc, pos), off)
		}
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, Size(NewDoc()), 0)
	assert.Equal(t, Size(NewDoc("abc")), 4)
	assert.Equal(t, Size(NewDoc("", "")), 2)
}
