package session

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/wire"
)

// pipe records everything the session writes to its peer.
type pipe struct {
	bytes.Buffer
	closed bool
}

func (p *pipe) Close() error {
	p.closed = true
	return nil
}

func newTestSession(t *testing.T) (*Session, *editor.Memory, *pipe) {
	t.Helper()
	ed := editor.NewMemory()
	s := New(context.Background(), ed, nil)
	conn := &pipe{}
	if err := s.Attach(conn, "changeme"); err != nil {
		t.Fatal(err)
	}
	conn.Reset() // drop the handshake; tests assert on what follows
	return s, ed, conn
}

func feed(s *Session, lines ...string) {
	for _, l := range lines {
		s.Receive([]byte(l + "\n"))
	}
	s.Drain()
}

// load creates tracked buffer bufno holding the given lines.
func load(t *testing.T, s *Session, conn *pipe, bufno int, lines ...string) *editor.Doc {
	t.Helper()
	text := wire.Quote(strings.Join(lines, "\n") + "\n")
	feed(s,
		wireCmd(bufno, "create", 1, ""),
		wireFn(bufno, "insert", 2, `0 "`+text+`"`),
		wireCmd(bufno, "initDone", 3, ""),
	)
	conn.Reset()
	doc, ok := s.bufs[bufno].doc.(*editor.Doc)
	if !ok {
		t.Fatal("buffer not attached")
	}
	return doc
}

func wireCmd(bufno int, verb string, seq int, args string) string {
	line := wireLine(bufno, verb, "!", seq)
	if args != "" {
		line += " " + args
	}
	return line
}

func wireFn(bufno int, verb string, seq int, args string) string {
	line := wireLine(bufno, verb, "/", seq)
	if args != "" {
		line += " " + args
	}
	return line
}

func wireLine(bufno int, verb, kind string, seq int) string {
	return strconv.Itoa(bufno) + ":" + verb + kind + strconv.Itoa(seq)
}

func TestHandshake(t *testing.T) {
	ed := editor.NewMemory()
	s := New(context.Background(), ed, nil)
	conn := &pipe{}
	assert.Equal(t, s.Attach(conn, "secret"), nil)
	assert.Equal(t, conn.String(),
		"AUTH secret\n0:version=0 \"2.5\"\n0:startupDone=0\n")
	assert.Equal(t, s.State(), Authenticated)
}

func TestDetachTearsDown(t *testing.T) {
	s, ed, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world")
	ed.PlaceMarker(doc, editor.Marker{Serial: 7, Type: 1, Line: 0})

	feed(s, "DETACH")

	assert.Equal(t, s.State(), Disconnected)
	assert.Equal(t, conn.closed, true)
	assert.Equal(t, len(ed.Markers(doc)), 0)
	assert.Equal(t, len(s.bufs), 0)
}

func TestDisconnectQuitsEditor(t *testing.T) {
	s, ed, _ := newTestSession(t)
	feed(s, "DISCONNECT")
	assert.Equal(t, s.State(), Disconnected)
	assert.Equal(t, ed.Commands, []string{"qall!"})
}

func TestMalformedLineIsDiscarded(t *testing.T) {
	s, _, conn := newTestSession(t)
	feed(s, "no colon here", "1:noseparator 5")
	assert.Equal(t, conn.String(), "")
	assert.Equal(t, s.State(), Authenticated)
}

func TestUnknownFunctionRepliesNil(t *testing.T) {
	s, _, conn := newTestSession(t)
	feed(s, wireFn(1, "bogus", 9, ""))
	assert.Equal(t, conn.String(), "9\n")
}

func TestUnknownCommandIgnored(t *testing.T) {
	s, _, conn := newTestSession(t)
	feed(s, wireCmd(1, "bogus", 9, ""))
	assert.Equal(t, conn.String(), "")
	assert.Equal(t, s.State(), Authenticated)
}

// An atomic batch coalesces every redraw request into a single full
// redraw at endAtomic.
func TestAtomicBatchSingleRedraw(t *testing.T) {
	s, ed, conn := newTestSession(t)
	load(t, s, conn, 1, "hello", "world")
	full, lines := ed.FullRedraws, ed.LineRedraws

	feed(s,
		wireCmd(0, "startAtomic", 10, ""),
		wireFn(1, "remove", 11, "0 2"),
		wireFn(1, "insert", 12, `0 "he"`),
		wireCmd(1, "setDot", 13, "3"),
		wireCmd(0, "endAtomic", 14, ""),
	)

	assert.Equal(t, ed.FullRedraws, full+1)
	assert.Equal(t, ed.LineRedraws, lines)
}

func TestEditOutsideAtomicRedrawsLines(t *testing.T) {
	s, ed, conn := newTestSession(t)
	load(t, s, conn, 1, "hello", "world")
	lines := ed.LineRedraws

	feed(s, wireFn(1, "remove", 20, "0 2"))
	assert.Equal(t, ed.LineRedraws, lines+1)
}

func TestGetCursor(t *testing.T) {
	s, _, conn := newTestSession(t)
	feed(s, wireFn(0, "getCursor", 5, ""))
	assert.Equal(t, conn.String(), "5 -1 1 0 0\n")
	conn.Reset()

	doc := load(t, s, conn, 1, "hello", "world")
	doc.SetCursor(editor.Position{Line: 1, Col: 3})
	feed(s, wireFn(0, "getCursor", 6, ""))
	assert.Equal(t, conn.String(), "6 1 2 3 9\n")
}

func TestGetText(t *testing.T) {
	s, _, conn := newTestSession(t)
	load(t, s, conn, 1, "ab", `say "hi"`)
	feed(s, wireFn(1, "getText", 7, ""))
	assert.Equal(t, conn.String(), `7 "ab\nsay \"hi\"\n"`+"\n")
}

func TestGetModified(t *testing.T) {
	s, _, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "x")

	feed(s, wireFn(1, "getModified", 8, ""))
	assert.Equal(t, conn.String(), "8 0\n")
	conn.Reset()

	doc.SetModified(true)
	feed(s, wireFn(1, "getModified", 9, ""))
	assert.Equal(t, conn.String(), "9 1\n")
	conn.Reset()

	// Global form: number of modified buffers.
	feed(s, wireFn(0, "getModified", 10, ""))
	assert.Equal(t, conn.String(), "10 1\n")
}

func TestSetModifiedClears(t *testing.T) {
	s, _, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "x")
	doc.SetModified(true)

	feed(s, wireCmd(1, "setModified", 11, "F"))
	assert.Equal(t, doc.Modified(), false)

	feed(s, wireFn(0, "getModified", 12, ""))
	assert.Equal(t, conn.String(), "12 0\n")
}

func TestCloseReportsBuffers(t *testing.T) {
	s, _, conn := newTestSession(t)
	load(t, s, conn, 1, "x")

	assert.Equal(t, s.Close(true), nil)
	assert.Equal(t, conn.String(), "1:unmodified=3\n1:killed=3\n0:disconnect=3\n")
	assert.Equal(t, conn.closed, true)
	assert.Equal(t, s.State(), Disconnected)
}

func TestStopDocumentListenSilences(t *testing.T) {
	s, _, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "x")

	feed(s, wireCmd(1, "stopDocumentListen", 13, ""))
	s.NotifyInserted(doc, 0, 1, "y")
	assert.Equal(t, conn.String(), "")
}

func TestNotifyInserted(t *testing.T) {
	s, _, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world")
	feed(s, wireCmd(1, "insertDone", 14, "T F"))
	conn.Reset()

	s.NotifyInserted(doc, 1, 2, "x\n")
	assert.Equal(t, conn.String(), `1:insert=14 8 "x\n"`+"\n")
	assert.Equal(t, s.bufs[1].modified, true)
}

func TestNotifyRemoved(t *testing.T) {
	s, _, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "hello", "world")

	s.NotifyRemoved(doc, 0, 1, 3)
	assert.Equal(t, conn.String(), "1:remove=3 1 3\n")
}

func TestNotifyKilled(t *testing.T) {
	s, _, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "x")

	s.NotifyKilled(doc)
	assert.Equal(t, conn.String(), "1:killed=3\n")
	assert.Equal(t, s.bufs[1].doc, nil)
}

func TestSaveAndExit(t *testing.T) {
	s, ed, conn := newTestSession(t)
	doc := load(t, s, conn, 1, "x")
	doc.SetModified(true)

	feed(s, wireFn(0, "saveAndExit", 15, ""))
	assert.Equal(t, ed.Commands, []string{"confirm qall"})
	assert.Equal(t, conn.String(), "15 1\n")
}
