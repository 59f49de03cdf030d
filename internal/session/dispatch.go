package session

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/logger"
	"github.com/cptaffe/extedit/wire"
)

// handleLine parses and executes one complete message.  Parse and
// handler errors are local to the message; only connection loss and the
// DISCONNECT control end the session.
func (s *Session) handleLine(line string) {
	msg, err := wire.Parse(line)
	if err != nil {
		logger.L(s.ctx).Warn("malformed message", zap.String("line", line), zap.Error(err))
		return
	}
	if msg.Kind == wire.Control {
		s.control(msg.Verb)
		return
	}
	s.seq = msg.Seq
	buf := s.track(msg.Buf)
	s.updWanted = false
	if msg.Kind == wire.Function {
		s.function(buf, msg)
	} else {
		s.command(buf, msg)
	}
	s.flushUpdate(buf)
}

func (s *Session) control(verb string) {
	switch verb {
	case "DISCONNECT":
		// The peer knows we can safely exit.
		s.teardown() //nolint:errcheck
		s.ed.Exec("qall!") //nolint:errcheck
	case "DETACH":
		// The peer is breaking the connection.
		s.teardown() //nolint:errcheck
	}
}

// docOf returns the live document of a slot, nil when the slot is
// unattached or the handle was invalidated.
func docOf(buf *trackedBuf) editor.Document {
	if buf == nil {
		return nil
	}
	return buf.doc
}

// function executes a verb that requires a reply.  Every path replies
// exactly once.
func (s *Session) function(buf *trackedBuf, msg wire.Message) {
	log := logger.L(s.ctx)
	doc := docOf(buf)

	switch msg.Verb {
	case "getModified":
		if doc == nil {
			// Global form: the number of modified buffers.
			s.send(wire.ReplyNumber(msg.Seq, s.countModified())) //nolint:errcheck
		} else {
			n := 0
			if doc.Modified() || buf.modified {
				n = 1
			}
			s.send(wire.ReplyNumber(msg.Seq, n)) //nolint:errcheck
		}

	case "saveAndExit":
		// This exits the editor when the user confirms; the session may
		// be gone when Exec returns.
		s.ed.Exec("confirm qall") //nolint:errcheck
		if s.conn == nil {
			return
		}
		// Still here: report the number of changed buffers.
		s.send(wire.ReplyNumber(msg.Seq, s.countModified())) //nolint:errcheck

	case "getCursor":
		cur, ok := s.ed.Current()
		if !ok {
			s.send(wire.ReplyText(msg.Seq, "-1 1 0 0")) //nolint:errcheck
			return
		}
		pos := cur.Cursor()
		// The peer may not have assigned a number to the current buffer.
		s.send(wire.ReplyText(msg.Seq, fmt.Sprintf("%d %d %d %d",
			s.bufnoOf(cur), pos.Line+1, pos.Col,
			editor.PositionToOffset(cur, pos)))) //nolint:errcheck

	case "getAnno":
		line := 0
		if doc == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
		} else {
			serial, _ := wire.ParseInt(msg.Args)
			if l, ok := s.ed.MarkerLine(doc, serial); ok {
				line = l + 1
			}
		}
		s.send(wire.ReplyNumber(msg.Seq, line)) //nolint:errcheck

	case "getLength":
		n := 0
		if doc == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
		} else {
			n = editor.Size(doc)
		}
		s.send(wire.ReplyNumber(msg.Seq, n)) //nolint:errcheck

	case "getText":
		if doc == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			s.send(wire.ReplyText(msg.Seq, "")) //nolint:errcheck
			return
		}
		var sb strings.Builder
		sb.WriteByte('"')
		for i := 0; i < doc.LineCount(); i++ {
			line, _ := doc.Line(i)
			sb.WriteString(wire.Quote(line))
			sb.WriteString(`\n`)
		}
		sb.WriteByte('"')
		s.send(wire.ReplyText(msg.Seq, sb.String())) //nolint:errcheck

	case "remove":
		s.handleRemove(buf, msg)

	case "insert":
		s.handleInsert(buf, msg)

	default:
		log.Warn("unimplemented function", zap.String("verb", msg.Verb))
		s.send(wire.Reply(msg.Seq)) //nolint:errcheck
	}
}

// Verbs that are meaningless without a live buffer.
var needsDoc = map[string]bool{
	"insertDone": true, "saveDone": true, "initDone": true,
	"setVisible": true, "setModified": true, "setModtime": true,
	"setReadOnly": true, "setDot": true, "save": true,
	"netbeansBuffer": true,
}

// command executes a verb with no reply.  Unknown verbs are ignored.
func (s *Session) command(buf *trackedBuf, msg wire.Message) {
	log := logger.L(s.ctx)
	doc := docOf(buf)

	if needsDoc[msg.Verb] && doc == nil {
		log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
		return
	}

	switch msg.Verb {
	case "create":
		if buf == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			return
		}
		// A buffer without a name; content arrives via insert.
		buf.displayName = ""
		d, err := s.ed.Create("")
		if err != nil {
			log.Error("create buffer", zap.Error(err))
			return
		}
		buf.doc = d
		buf.insertDone = false

	case "insertDone":
		// Args are two flags: final-line-terminated, then read-only.
		buf.insertDone = true
		ro := false
		if f := strings.Fields(msg.Args); len(f) == 2 {
			ro = f[1] == "T"
		}
		doc.SetReadOnly(ro)
		buf.readOnly = ro
		log.Info("buffer read",
			zap.String("name", buf.displayName),
			zap.Int("lines", doc.LineCount()),
			zap.Bool("readonly", ro))

	case "saveDone":
		n, _ := wire.ParseInt(msg.Args)
		log.Info("buffer written",
			zap.String("name", buf.displayName), zap.Int("bytes", n))

	case "startDocumentListen":
		if buf == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			return
		}
		buf.fireChanges = true

	case "stopDocumentListen":
		if buf == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			return
		}
		buf.fireChanges = false
		if buf.owned {
			// The peer stops editing an owned buffer and expects it to
			// disappear locally too.
			if buf.doc != nil {
				s.ed.Close(buf.doc)
			}
			*buf = trackedBuf{}
		}

	case "setTitle":
		if buf == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			return
		}
		buf.displayName, _, _ = wire.Unquote(msg.Args)

	case "initDone":
		buf.initDone = true
		s.ed.Show(doc)
		s.ed.BufferLoaded(doc)
		s.requestUpdate()
		// Deliver any postponed key events.
		s.handleKeyQueue()

	case "setBufferNumber", "putBufferNumber":
		if buf == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			return
		}
		path, _, _ := wire.Unquote(msg.Args)
		d, ok := s.ed.Find(path)
		if !ok {
			log.Warn("file not found", zap.String("verb", msg.Verb), zap.String("path", path))
			return
		}
		buf.doc = d
		buf.displayName = path
		if msg.Verb == "setBufferNumber" {
			// Side effect of the protocol: jump to the buffer.
			s.ed.Show(d)
		} else {
			buf.initDone = true
			s.handleKeyQueue()
		}

	case "setFullName":
		if buf == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			return
		}
		buf.displayName, _, _ = wire.Unquote(msg.Args)
		d, err := s.ed.Create(buf.displayName)
		if err != nil {
			log.Error("rename buffer", zap.Error(err))
			return
		}
		buf.doc = d

	case "editFile":
		if buf == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			return
		}
		// Like create + setFullName + reading the file.
		buf.displayName, _, _ = wire.Unquote(msg.Args)
		d, err := s.ed.Edit(buf.displayName)
		if err != nil {
			log.Error("edit file", zap.String("path", buf.displayName), zap.Error(err))
			return
		}
		buf.doc = d
		buf.initDone = true
		s.requestUpdate()

	case "setVisible":
		if msg.Args == "T" {
			s.ed.Show(doc)
			s.requestUpdate()
		}

	case "raise":
		s.ed.Raise()

	case "setModified":
		prev := doc.Modified()
		mod := msg.Args == "T"
		if !mod {
			// The peer stored the file; refresh the timestamp so no
			// change warning fires.
			doc.SetModTime(time.Now())
		}
		doc.SetModified(mod)
		buf.modified = mod
		if prev != mod {
			s.requestUpdate()
		}

	case "setModtime":
		n, _ := wire.ParseInt(msg.Args)
		doc.SetModTime(time.Unix(int64(n), 0))

	case "setReadOnly":
		ro := msg.Args == "T"
		doc.SetReadOnly(ro)
		buf.readOnly = ro

	case "setDot":
		s.ed.Show(doc)
		pos, _, ok := s.offOrPos(doc, msg.Args)
		if !ok {
			log.Warn("bad position", zap.String("verb", msg.Verb), zap.String("args", msg.Args))
			return
		}
		s.ed.ShowLine(doc, pos.Line)
		doc.SetCursor(pos)
		s.requestUpdate()

	case "close":
		if buf == nil {
			log.Warn("invalid buffer identifier", zap.String("verb", msg.Verb), zap.Int("buffer", msg.Buf))
			return
		}
		if buf.doc != nil {
			s.ed.Close(buf.doc)
		}
		buf.doc = nil
		buf.initDone = false
		s.requestUpdate()

	case "remove":
		s.handleRemove(buf, msg)

	case "insert":
		s.handleInsert(buf, msg)

	case "defineAnnoType":
		s.defineAnnoType(buf, msg)

	case "addAnno":
		s.addAnno(buf, msg)

	case "removeAnno":
		s.removeAnno(buf, msg)

	case "guard", "unguard":
		s.guard(buf, msg)

	case "startAtomic":
		s.inAtomic = true

	case "endAtomic":
		s.inAtomic = false
		if s.needUpdate {
			s.needUpdate = false
			s.requestUpdate()
		}

	case "save":
		if !doc.Modified() {
			log.Debug("buffer has no changes", zap.Int("buffer", msg.Buf))
			return
		}
		if doc.ReadOnly() {
			return
		}
		if err := doc.Save(); err != nil {
			log.Error("save buffer", zap.String("name", buf.displayName), zap.Error(err))
		}

	case "netbeansBuffer":
		buf.owned = msg.Args == "T"

	case "specialKeys":
		s.specialKeys(msg.Args)

	case "setMark", "setStyle", "setExitDelay", "moveAnnoToFront",
		"actionMenuItem", "version", "showBalloon":
		// Accepted and ignored: obsolete or GUI-only.

	default:
		log.Debug("unrecognized command", zap.String("verb", msg.Verb))
	}
}

// countModified returns the number of tracked buffers the peer should
// consider dirty.
func (s *Session) countModified() int {
	n := 0
	for _, buf := range s.bufs {
		if buf != nil && buf.doc != nil && (buf.doc.Modified() || buf.modified) {
			n++
		}
	}
	return n
}

// offOrPos parses an address argument: either a flat offset ("1234") or
// an explicit "line/col" pair with a 1-based line.
func (s *Session) offOrPos(doc editor.Document, args string) (editor.Position, string, bool) {
	n, rest := wire.ParseInt(args)
	if len(rest) > 0 && rest[0] == '/' {
		col, rest := wire.ParseInt(rest[1:])
		return editor.Position{Line: n - 1, Col: col}, rest, true
	}
	pos, ok := editor.OffsetToPosition(doc, n)
	return pos, rest, ok
}

// specialKeys binds the requested key chords to the key-forwarding
// command, so presses reach KeyCommand.
func (s *Session) specialKeys(args string) {
	text, _, _ := wire.Unquote(args)
	for _, tok := range strings.Fields(text) {
		var mods string
		if i := strings.IndexByte(tok, '-'); i >= 0 {
			for _, c := range tok[:i] {
				switch c {
				case 'A', 'M', 'C', 'S':
					mods += string(c) + "-"
				}
			}
			tok = tok[i+1:]
		}
		key := mods + tok
		s.ed.Exec(fmt.Sprintf("map <silent><%s> :nbkey %s<CR>", key, key)) //nolint:errcheck
	}
}
