package session

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/logger"
	"github.com/cptaffe/extedit/wire"
)

const (
	// guardSignID is the process-wide sign id reserved for guards.
	guardSignID = 10000
	// guardSerialBase is the first marker serial used for guards;
	// annotation serials must stay below it.
	guardSerialBase = 1000000

	maxColorLen = 32
)

// SignRegistry maps annotation type names to process-wide sign ids and
// hands out guard serials.  It is shared between sessions and survives
// a disconnect, so sign ids stay stable across reconnects and guard
// serials never repeat.
type SignRegistry struct {
	names       []string // dense; sign id of names[i] is i+1
	guardSerial int
	guardInit   bool
	curPC       int // local type number of the "CurrentPC" annotation
}

func NewSignRegistry() *SignRegistry {
	return &SignRegistry{guardSerial: guardSerialBase, curPC: -1}
}

// globalID returns the sign id for an annotation type name, allocating
// the next id when the name is new.
func (r *SignRegistry) globalID(name string) (id int, fresh bool) {
	for i, n := range r.names {
		if n == name {
			return i + 1, false
		}
	}
	r.names = append(r.names, name)
	return len(r.names), true
}

func (r *SignRegistry) nextGuardSerial() int {
	n := r.guardSerial
	r.guardSerial++
	return n
}

// initGuardGraphics defines the guard highlight and sign, once per
// registry lifetime.
func (r *SignRegistry) initGuardGraphics(ed editor.Editor) {
	if r.guardInit {
		return
	}
	r.guardInit = true
	ed.DefineHighlight("NBGuarded", "", "#f0f0f0")
	ed.DefineSign(guardSignID, "", "NBGuarded")
}

// defineAnnoType registers an annotation type for one buffer:
//
//	typeNum "name" "tooltip" "glyph" fg bg
//
// The name is mapped to a process-wide sign id, defined on first
// encounter; the buffer's local map lets later addAnno commands refer
// to the type by its 1-based position in the definition order.
func (s *Session) defineAnnoType(buf *trackedBuf, msg wire.Message) {
	log := logger.L(s.ctx)
	if docOf(buf) == nil {
		log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
		return
	}

	typeNum, rest := wire.ParseInt(msg.Args)
	typeName, rest, ok := wire.Unquote(wire.SkipSpace(rest))
	if !ok || typeNum < 0 {
		log.Warn("malformed defineAnnoType", zap.String("args", msg.Args))
		return
	}
	_, rest, _ = wire.Unquote(wire.SkipSpace(rest)) // tooltip, unused
	glyph, rest, _ := wire.Unquote(wire.SkipSpace(rest))
	fg, rest := colorArg(rest)
	bg, _ := colorArg(rest)
	if len(fg) > maxColorLen || len(bg) > maxColorLen {
		log.Error("highlighting color name too long", zap.String("type", typeName))
		return
	}

	if typeName == "CurrentPC" {
		s.signs.curPC = typeNum
	}

	id, fresh := s.signs.globalID(typeName)
	if fresh {
		hl := ""
		if fg != "" || bg != "" {
			hl = "NB_" + typeName
			s.ed.DefineHighlight(hl, fg, bg)
		}
		// A short glyph is drawn as text; anything longer names an
		// icon file; empty means line highlight only.
		s.ed.DefineSign(id, glyph, hl)
		log.Debug("defined annotation type",
			zap.String("name", typeName), zap.Int("sign", id))
	}

	for _, mapped := range buf.signMap {
		if mapped == id {
			return
		}
	}
	buf.signMap = append(buf.signMap, id)
}

// colorArg pops one color token: empty or "none" means unused, a
// number formats as a gui color, a name passes through.
func colorArg(args string) (color, rest string) {
	args = wire.SkipSpace(args)
	i := 0
	for i < len(args) && args[i] != ' ' && args[i] != '\t' {
		i++
	}
	tok, rest := args[:i], args[i:]
	if tok == "" || strings.EqualFold(tok, "none") {
		return "", rest
	}
	if n, left := wire.ParseInt(tok); left == "" {
		if n < 0 {
			return "", rest
		}
		return fmt.Sprintf("#%06x", n&0xffffff), rest
	}
	return tok, rest
}

// addAnno places annotation serNum of a previously defined type at an
// offset (or line/col) position:
//
//	serNum typeNum off len
func (s *Session) addAnno(buf *trackedBuf, msg wire.Message) {
	log := logger.L(s.ctx)
	doc := docOf(buf)
	if doc == nil {
		log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
		return
	}

	serial, rest := wire.ParseInt(msg.Args)
	localType, rest := wire.ParseInt(wire.SkipSpace(rest))
	pos, _, ok := s.offOrPos(doc, wire.SkipSpace(rest))
	if !ok {
		log.Warn("no such position in addAnno", zap.String("args", msg.Args))
		return
	}
	if serial >= guardSerialBase {
		log.Warn("annotation serial collides with guard range", zap.Int("serial", serial))
		return
	}
	if localType < 1 || localType > len(buf.signMap) {
		log.Warn("undefined annotation type", zap.Int("type", localType))
		return
	}

	s.ed.PlaceMarker(doc, editor.Marker{
		Serial: serial,
		Type:   buf.signMap[localType-1],
		Line:   pos.Line,
	})
	if localType == s.signs.curPC {
		doc.SetCursor(pos)
		s.ed.ShowLine(doc, pos.Line)
	}
	s.requestUpdate()
}

// removeAnno lifts annotation serNum.
func (s *Session) removeAnno(buf *trackedBuf, msg wire.Message) {
	doc := docOf(buf)
	if doc == nil {
		logger.L(s.ctx).Warn("invalid buffer identifier",
			zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
		return
	}
	serial, _ := wire.ParseInt(msg.Args)
	s.ed.RemoveMarker(doc, serial)
	s.requestUpdate()
}
