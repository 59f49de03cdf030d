package session

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/cptaffe/extedit/editor"
)

// Defining the same annotation type name twice allocates one sign; the
// local map gains one entry.
func TestDefineAnnoTypeOnce(t *testing.T) {
	s, ed, conn := newTestSession(t)
	load(t, s, conn, 1, "hello")

	def := wireCmd(1, "defineAnnoType", 5, `1 "Breakpoint" "tip" "=>" 255 16711680`)
	feed(s, def, def)

	assert.Equal(t, ed.SignDefs, 1)
	assert.Equal(t, ed.HighlightDefs, 1)
	assert.Equal(t, s.bufs[1].signMap, []int{1})
	assert.Equal(t, ed.Highlights["NB_Breakpoint"], [2]string{"#0000ff", "#ff0000"})
	assert.Equal(t, ed.Signs[1], [2]string{"=>", "NB_Breakpoint"})
}

// A second buffer reuses the process-wide sign for the same type name.
func TestDefineAnnoTypeSharedAcrossBuffers(t *testing.T) {
	s, ed, conn := newTestSession(t)
	load(t, s, conn, 1, "a")
	feed(s, wireCmd(2, "create", 6, ""))

	feed(s,
		wireCmd(1, "defineAnnoType", 7, `1 "Breakpoint" "" "=>" none none`),
		wireCmd(2, "defineAnnoType", 8, `1 "Breakpoint" "" "=>" none none`),
	)
	assert.Equal(t, ed.SignDefs, 1)
	assert.Equal(t, s.bufs[1].signMap, []int{1})
	assert.Equal(t, s.bufs[2].signMap, []int{1})
}

func TestDefineAnnoTypeNamedColors(t *testing.T) {
	s, ed, conn := newTestSession(t)
	load(t, s, conn, 1, "a")

	feed(s, wireCmd(1, "defineAnnoType", 9, `1 "Note" "" "N" red none`))
	assert.Equal(t, ed.Highlights["NB_Note"], [2]string{"red", ""})
}

func TestDefineAnnoTypeColorTooLong(t *testing.T) {
	s, ed, conn := newTestSession(t)
	load(t, s, conn, 1, "a")

	long := strings.Repeat("verylongcolor", 4)
	feed(s, wireCmd(1, "defineAnnoType", 10, `1 "Bad" "" "B" `+long+` none`))
	assert.Equal(t, ed.SignDefs, 0)
	assert.Equal(t, len(s.bufs[1].signMap), 0)
}

func TestAddRemoveAnno(t *testing.T) {
	s, ed, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world")
	feed(s, wireCmd(1, "defineAnnoType", 11, `1 "Breakpoint" "" "=>" none none`))

	feed(s, wireCmd(1, "addAnno", 12, "20 1 7 0"))
	line, ok := ed.MarkerLine(doc, 20)
	assert.Equal(t, ok, true)
	assert.Equal(t, line, 1)

	conn.Reset()
	feed(s, wireFn(1, "getAnno", 13, "20"))
	assert.Equal(t, conn.String(), "13 2\n")
	conn.Reset()

	feed(s, wireCmd(1, "removeAnno", 14, "20"))
	_, ok = ed.MarkerLine(doc, 20)
	assert.Equal(t, ok, false)

	feed(s, wireFn(1, "getAnno", 15, "20"))
	assert.Equal(t, conn.String(), "15 0\n")
}

// addAnno accepts "line/col" addressing with a 1-based line.
func TestAddAnnoLineColAddressing(t *testing.T) {
	s, ed, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world")
	feed(s, wireCmd(1, "defineAnnoType", 16, `1 "Breakpoint" "" "=>" none none`))

	feed(s, wireCmd(1, "addAnno", 17, "21 1 2/0 0"))
	line, _ := ed.MarkerLine(doc, 21)
	assert.Equal(t, line, 1)
}

func TestAddAnnoUndefinedType(t *testing.T) {
	s, ed, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello")

	feed(s, wireCmd(1, "addAnno", 18, "22 9 0 0"))
	assert.Equal(t, len(ed.Markers(doc)), 0)
}

// The CurrentPC annotation moves the display to its line.
func TestCurrentPCJumps(t *testing.T) {
	s, _, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world", "more")
	feed(s, wireCmd(1, "defineAnnoType", 19, `1 "CurrentPC" "" ">" none none`))

	feed(s, wireCmd(1, "addAnno", 20, "23 1 3/0 0"))
	assert.Equal(t, doc.Cursor(), editor.Position{Line: 2, Col: 0})
}

func TestGuard(t *testing.T) {
	s, ed, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world", "more")

	feed(s, wireCmd(1, "guard", 30, "6 6"))

	assert.Equal(t, s.Guarded(doc, 1, 1), true)
	assert.Equal(t, s.Guarded(doc, 0, 0), false)
	assert.Equal(t, s.Guarded(doc, 2, 2), false)

	// Guard serials live above the annotation range.
	marks := ed.MarkersAt(doc, 1)
	assert.Equal(t, len(marks), 1)
	assert.Equal(t, marks[0].Serial >= guardSerialBase, true)
	assert.Equal(t, marks[0].Type, guardSignID)
}

// An end offset on column 0 stops the guard before that line.
func TestGuardEndBacksUp(t *testing.T) {
	s, _, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world", "more")

	feed(s, wireCmd(1, "guard", 31, "6 7"))
	assert.Equal(t, s.Guarded(doc, 1, 1), true)
	assert.Equal(t, s.Guarded(doc, 2, 2), false)
}

// unguard is accepted but guards stay until disconnect.
func TestUnguardKeepsGuards(t *testing.T) {
	s, ed, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world")

	feed(s,
		wireCmd(1, "guard", 32, "0 5"),
		wireCmd(1, "unguard", 33, "0 5"),
	)
	assert.Equal(t, s.Guarded(doc, 0, 0), true)

	feed(s, "DETACH")
	assert.Equal(t, len(ed.Markers(doc)), 0)
}

// Guarding the same line twice places one marker, and the guard sign is
// defined once.
func TestGuardIdempotent(t *testing.T) {
	s, ed, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello")

	feed(s,
		wireCmd(1, "guard", 34, "0 3"),
		wireCmd(1, "guard", 35, "2 3"),
	)
	assert.Equal(t, len(ed.MarkersAt(doc, 0)), 1)
	assert.Equal(t, ed.SignDefs, 1)
}
