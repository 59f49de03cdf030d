package session

import (
	"strings"

	"go.uber.org/zap"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/logger"
	"github.com/cptaffe/extedit/wire"
)

// editReply answers an edit operation.  The peer may issue insert and
// remove as either kind; only the function form gets a reply.  An empty
// result is the nil reply.
func (s *Session) editReply(msg wire.Message, result string) {
	if msg.Kind != wire.Function {
		return
	}
	if result == "" {
		s.send(wire.Reply(msg.Seq)) //nolint:errcheck
		return
	}
	s.send(wire.ReplyText(msg.Seq, result)) //nolint:errcheck
}

// handleInsert applies a remote insert: splice text into the document
// at a flat byte offset.  The edit is programmatic: it fires no
// local-edit notification, leaves the modified flag as it was, and
// invalidates undo history.
func (s *Session) handleInsert(buf *trackedBuf, msg wire.Message) {
	log := logger.L(s.ctx)

	off, rest := wire.ParseInt(msg.Args)
	text, _, _ := wire.Unquote(wire.SkipSpace(rest))

	doc := docOf(buf)
	if doc == nil {
		log.Warn("invalid buffer identifier", zap.String("verb", "insert"), zap.Int("buffer", msg.Buf))
		s.editReply(msg, "")
		return
	}
	if text == "" {
		s.editReply(msg, "")
		return
	}

	s.suppressFire = true
	defer func() { s.suppressFire = false }()

	wasEmpty := doc.LineCount() == 0
	wasModified := doc.Modified()

	// The peer addresses bytes, so the line-ending style matters.
	// Detect it from the payload while the buffer is still empty.
	ending := editor.LF
	if strings.Contains(text, "\r\n") {
		ending = editor.CRLF
	}

	endsWithNL := strings.HasSuffix(text, "\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	frags := strings.Split(text, "\n")
	if endsWithNL {
		frags = frags[:len(frags)-1]
	}

	// Resolve the insertion point.  An unresolvable offset means the
	// end of the buffer (e.g. the buffer was just created).
	var head, tail string
	var l int
	hasLine := false
	if pos, ok := editor.OffsetToPosition(doc, off); ok {
		l = pos.Line
		line, _ := doc.Line(l)
		col := pos.Col
		if col > len(line) {
			col = len(line)
		}
		head, tail = line[:col], line[col:]
		hasLine = true
	} else if !wasEmpty {
		l = doc.LineCount()
	}

	added := 0
	switch {
	case !hasLine:
		for i, f := range frags {
			doc.InsertLine(l+i, f)
			added++
		}
	case endsWithNL:
		doc.SetLine(l, head+frags[0])
		for i, f := range frags[1:] {
			doc.InsertLine(l+1+i, f)
			added++
		}
		doc.InsertLine(l+len(frags), tail)
		added++
	case len(frags) == 1:
		doc.SetLine(l, head+frags[0]+tail)
	default:
		doc.SetLine(l, head+frags[0])
		for i, f := range frags[1 : len(frags)-1] {
			doc.InsertLine(l+1+i, f)
			added++
		}
		doc.InsertLine(l+len(frags)-1, frags[len(frags)-1]+tail)
		added++
	}

	// Shift markers below the insertion and invalidate the range.
	if added > 0 {
		s.ed.AdjustMarkers(doc, l+1, added)
	}
	s.requestLineUpdate(doc, l, l+added)

	if wasEmpty {
		doc.SetLineEnding(ending)
	}

	// Logically unchanged: the peer is the authority on modified state.
	doc.SetModified(wasModified)
	doc.ClearUndo()

	s.editReply(msg, "")
}

// handleRemove applies a remote remove: delete count bytes
// starting at a flat offset.  Partial lines are trimmed in place, whole
// lines between the partial ends are deleted (their markers first), and
// lines merged by a removal that consumed a line break are joined.
func (s *Session) handleRemove(buf *trackedBuf, msg wire.Message) {
	log := logger.L(s.ctx)

	off, rest := wire.ParseInt(msg.Args)
	count, _ := wire.ParseInt(wire.SkipSpace(rest))

	doc := docOf(buf)
	if doc == nil {
		log.Warn("invalid buffer identifier", zap.String("verb", "remove"), zap.Int("buffer", msg.Buf))
		s.editReply(msg, "")
		return
	}

	s.suppressFire = true
	defer func() { s.suppressFire = false }()

	wasModified := doc.Modified()

	first, ok := editor.OffsetToPosition(doc, off)
	if !ok {
		s.editReply(msg, "!bad position")
		return
	}
	last, ok := editor.OffsetToPosition(doc, off+count-1)
	if !ok {
		s.editReply(msg, "!bad count")
		return
	}
	// First byte after the removed section; not found when removing
	// through the end of the buffer.
	next, nextOK := editor.OffsetToPosition(doc, off+count)

	delFrom, delTo := first.Line, last.Line

	// Trim the partial first line.
	if first.Col != 0 || (nextOK && first.Line == next.Line) {
		if first.Line != last.Line || (nextOK && first.Line != next.Line) {
			// Remove to the end of the first line.
			partialRemove(doc, first.Line, first.Col, -1)
			if first.Line == last.Line {
				// The removal consumed the line break: join with the
				// following line, which is deleted below.
				joinLines(doc, first.Line, next.Line)
				delTo = next.Line
			}
		} else {
			// Removal within one line.
			partialRemove(doc, first.Line, first.Col, last.Col)
		}
		delFrom++ // keep the first line
	}

	// Trim the partial last line.
	if first.Line != last.Line && nextOK && next.Col != 0 && last.Line == next.Line {
		partialRemove(doc, last.Line, 0, last.Col)
		if delFrom > first.Line {
			// Join the remainder onto the first line; the last line is
			// deleted below.
			joinLines(doc, first.Line, last.Line)
		} else {
			// The first line goes as a whole; keep the last line.
			delTo--
		}
	}

	// First line partial, last removed line ends in its line break:
	// join the first line to the line following the removal.
	if first.Line != last.Line && delFrom > first.Line && nextOK && last.Line != next.Line {
		joinLines(doc, first.Line, next.Line)
		delTo = next.Line
	}

	// Delete whole lines, their markers first.
	if delTo >= delFrom {
		for l := delFrom; l <= delTo; l++ {
			for _, mk := range s.ed.MarkersAt(doc, l) {
				log.Debug("deleting marker on removed line",
					zap.Int("serial", mk.Serial), zap.Int("line", l))
				s.ed.RemoveMarker(doc, mk.Serial)
			}
		}
		n := delTo - delFrom + 1
		for i := 0; i < n; i++ {
			doc.DeleteLine(delFrom)
		}
		s.ed.AdjustMarkers(doc, delTo+1, -n)
	}

	// Leave the cursor at the first removed byte.
	if first.Line >= doc.LineCount() && doc.LineCount() > 0 {
		first = editor.Position{Line: doc.LineCount() - 1}
	}
	doc.SetCursor(first)

	s.requestLineUpdate(doc, first.Line, delTo)

	// Logically unchanged, and the undo history no longer makes sense.
	doc.SetModified(wasModified)
	doc.ClearUndo()

	s.editReply(msg, "")
}

// partialRemove deletes bytes [first, last] of one line; last < 0 means
// through the end of the line.
func partialRemove(doc editor.Document, l, first, last int) {
	old, ok := doc.Line(l)
	if !ok || first >= len(old) || len(old) == 0 {
		return
	}
	if last < 0 || last >= len(old) {
		last = len(old) - 1
	}
	doc.SetLine(l, old[:first]+old[last+1:])
}

// joinLines replaces line a with the concatenation of lines a and b.
// Line b itself is left for the caller to delete.
func joinLines(doc editor.Document, a, b int) {
	la, _ := doc.Line(a)
	lb, _ := doc.Line(b)
	doc.SetLine(a, la+lb)
}
