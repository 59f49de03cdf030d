package session

import (
	"go.uber.org/zap"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/logger"
	"github.com/cptaffe/extedit/wire"
)

// guard handles both the guard and unguard commands:
//
//	guard off len
//
// Each line the byte range touches gets a guard marker so the host can
// refuse edits there.  unguard is accepted and ignored: guards are only
// lifted wholesale at disconnect.
func (s *Session) guard(buf *trackedBuf, msg wire.Message) {
	log := logger.L(s.ctx)
	doc := docOf(buf)
	if doc == nil {
		log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
		return
	}
	if msg.Verb == "unguard" {
		return
	}

	off, rest := wire.ParseInt(msg.Args)
	n, _ := wire.ParseInt(wire.SkipSpace(rest))
	if n <= 0 {
		return
	}

	first, ok := editor.OffsetToPosition(doc, off)
	if !ok {
		log.Debug("no such start position in guard", zap.Int("offset", off))
		return
	}
	// Offsets fall between characters: an end landing on column 0
	// means the range stops before that line, so back up one byte.
	end := off + n - 1
	last, ok := editor.OffsetToPosition(doc, end)
	if ok && last.Col == 0 && end > off {
		last, ok = editor.OffsetToPosition(doc, end-1)
	}
	if !ok {
		log.Debug("no such end position in guard", zap.Int("offset", end))
		return
	}

	s.signs.initGuardGraphics(s.ed)
	for l := first.Line; l <= last.Line; l++ {
		if guardedLine(s.ed, doc, l) {
			continue
		}
		s.ed.PlaceMarker(doc, editor.Marker{
			Serial: s.signs.nextGuardSerial(),
			Type:   guardSignID,
			Line:   l,
		})
	}
	s.requestUpdate()
}

// Guarded reports whether any line of [first, last] carries a guard.
// Hosts call this before applying a local edit.
func (s *Session) Guarded(doc editor.Document, first, last int) bool {
	for l := first; l <= last; l++ {
		if guardedLine(s.ed, doc, l) {
			return true
		}
	}
	return false
}

func guardedLine(ed editor.Editor, doc editor.Document, line int) bool {
	for _, mk := range ed.MarkersAt(doc, line) {
		if mk.Type == guardSignID {
			return true
		}
	}
	return false
}
