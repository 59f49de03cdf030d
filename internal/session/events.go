package session

import (
	"fmt"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/wire"
)

// The host calls the Notify functions from its edit and file hooks.
// They are silent while disconnected, for untracked buffers, while the
// peer asked not to hear about a buffer, and while a remote edit is
// being applied (the peer does not want its own edits echoed back).

// NotifyInserted reports text typed into doc at a position.
func (s *Session) NotifyInserted(doc editor.Document, line, col int, text string) {
	bufno, buf := s.fireable(doc)
	if buf == nil || text == "" {
		return
	}
	if buf.insertDone {
		buf.modified = true
	}
	off := editor.PositionToOffset(doc, editor.Position{Line: line, Col: col})
	s.event(bufno, "insert", fmt.Sprintf("%d %s", off, wire.Quoted(text)))
}

// NotifyRemoved reports n bytes deleted from doc at a position.
func (s *Session) NotifyRemoved(doc editor.Document, line, col, n int) {
	bufno, buf := s.fireable(doc)
	if buf == nil || n < 0 {
		return
	}
	if buf.insertDone {
		buf.modified = true
	}
	off := editor.PositionToOffset(doc, editor.Position{Line: line, Col: col})
	s.event(bufno, "remove", fmt.Sprintf("%d %d", off, n))
}

// NotifySaved reports that doc was written out; the peer resets its
// modified state for the buffer.
func (s *Session) NotifySaved(doc editor.Document) {
	bufno, buf := s.fireable(doc)
	if buf == nil {
		return
	}
	buf.modified = false
	s.event(bufno, "save", "")
}

// NotifyKilled reports that the host deleted doc.  The slot stays
// allocated but no longer refers to a document.
func (s *Session) NotifyKilled(doc editor.Document) {
	if s.conn == nil {
		return
	}
	bufno := s.bufnoOf(doc)
	if bufno < 0 {
		return
	}
	s.event(bufno, "killed", "")
	s.bufs[bufno].doc = nil
	s.bufs[bufno].initDone = false
}

// fireable resolves doc to a tracked slot that wants change events.
func (s *Session) fireable(doc editor.Document) (int, *trackedBuf) {
	if s.conn == nil || s.suppressFire {
		return -1, nil
	}
	bufno := s.bufnoOf(doc)
	if bufno < 0 {
		return -1, nil
	}
	buf := s.bufs[bufno]
	if !buf.fireChanges {
		return -1, nil
	}
	return bufno, buf
}
