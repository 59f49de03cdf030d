package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/logger"
	"github.com/cptaffe/extedit/wire"
)

// KeyCommand reports a special keystroke in the current buffer.  When
// the buffer is not yet tracked the peer is told a file opened and the
// key is queued until it assigns a buffer number.
func (s *Session) KeyCommand(key string) {
	s.sendKey(key)
}

// sendKey emits the keystroke event triple, or queues the key and
// reports false when the current buffer has no number yet.
func (s *Session) sendKey(key string) bool {
	if s.conn == nil {
		return true
	}
	doc, ok := s.ed.Current()
	if !ok {
		return true
	}
	bufno := s.bufnoOf(doc)
	if bufno < 0 {
		logger.L(s.ctx).Debug("postponing key for unnumbered buffer",
			zap.String("key", key), zap.String("name", doc.Name()))
		s.event(0, "fileOpened", fmt.Sprintf("%s T F", wire.Quoted(doc.Name())))
		s.keys = append(s.keys, key)
		return false
	}

	pos := doc.Cursor()
	off := editor.PositionToOffset(doc, pos)
	s.event(bufno, "newDotAndMark", fmt.Sprintf("%d %d", off, off))
	s.event(bufno, "keyCommand", wire.Quoted(key))
	s.event(bufno, "keyAtPos", fmt.Sprintf("%s %d %d/%d", wire.Quoted(key), off, pos.Line+1, pos.Col))
	return true
}

// handleKeyQueue replays queued keys in arrival order.  A key that gets
// postponed again stops the replay; the rest stay queued behind it.
func (s *Session) handleKeyQueue() {
	for len(s.keys) > 0 {
		key := s.keys[0]
		s.keys = s.keys[1:]
		if !s.sendKey(key) {
			return
		}
	}
}
