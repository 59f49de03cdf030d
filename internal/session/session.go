// Package session implements the editor side of the external-tool
// integration protocol: one Session per socket connection, owning the
// tracked-buffer table, the pending-key queue and the atomic batch
// state, and driving the host editor through the collaborator
// interfaces in package editor.
package session

import (
	"context"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/logger"
	"github.com/cptaffe/extedit/wire"
)

// Version is the protocol version announced during the handshake.
const Version = "2.5"

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Authenticated
)

// Session is the protocol engine for one connection.
//
// Session is single-threaded and cooperative: the host feeds bytes with
// Receive, then calls Drain from its idle loop; local-edit and key
// notifications arrive on the same path.  Nothing here locks; a host
// that uses multiple goroutines must serialize all calls into the
// Session (and share the SignRegistry under its own lock).
type Session struct {
	ctx   context.Context
	ed    editor.Editor
	signs *SignRegistry

	conn   io.WriteCloser
	state  State
	framer wire.Framer

	// bufs is the dense tracked-buffer table indexed by remote id.
	// Index 0 is reserved ("no buffer"); the table grows on demand and
	// never shrinks while connected.
	bufs []*trackedBuf

	keys []string // pending key events, FIFO

	seq int // sequence number of the last inbound message

	// Atomic batch state (startAtomic/endAtomic).
	inAtomic   bool
	needUpdate bool

	// Per-message redraw request, flushed after the handler returns.
	updWanted bool
	updRanged bool
	updDoc    editor.Document
	updFirst  int
	updLast   int

	// suppressFire holds back local-edit notifications while a remote
	// edit is being applied, so the peer's own edits are not echoed.
	suppressFire bool
}

// trackedBuf is one slot of the tracked-buffer table.
type trackedBuf struct {
	doc         editor.Document // nil when not attached or invalidated
	displayName string
	fireChanges bool
	initDone    bool
	insertDone  bool
	readOnly    bool
	modified    bool // peer-visible modified state; survives local undo
	owned       bool // buffer exists only for the peer
	signMap     []int
}

// New creates a Session driving ed.  signs may be shared across
// sessions so annotation definitions survive a reconnect; pass nil to
// create a private registry.
func New(ctx context.Context, ed editor.Editor, signs *SignRegistry) *Session {
	if signs == nil {
		signs = NewSignRegistry()
	}
	return &Session{ctx: ctx, ed: ed, signs: signs}
}

// State returns the connection state.
func (s *Session) State() State { return s.state }

// Attach binds the session to a connected transport and performs the
// fixed handshake: the shared-secret line, then the protocol version
// announcement, then the startup event.
func (s *Session) Attach(conn io.WriteCloser, password string) error {
	s.conn = conn
	s.state = Connecting
	if err := s.send("AUTH " + password + "\n"); err != nil {
		return err
	}
	if err := s.send(wire.Event(0, "version", 0, wire.Quoted(Version))); err != nil {
		return err
	}
	if err := s.send(wire.Event(0, "startupDone", 0, "")); err != nil {
		return err
	}
	s.state = Authenticated
	return nil
}

// Receive feeds raw bytes from the transport.  Complete messages are
// not processed until Drain runs.
func (s *Session) Receive(p []byte) {
	s.framer.Append(p)
}

// Drain parses and executes as many complete messages as are buffered.
// Processing a message may close the connection; Drain stops then.
func (s *Session) Drain() {
	for s.conn != nil {
		line, ok := s.framer.Next()
		if !ok {
			return
		}
		s.handleLine(line)
	}
}

// ConnClosed is the transport-closed callback: tear down all
// per-session state, leaving the editor consistent.
func (s *Session) ConnClosed() {
	s.teardown()
}

// Close ends the session from the host side: every tracked buffer is
// reported gone (marked unmodified first when force is set, so the peer
// puts up no dialog for killed buffers), the disconnect event is sent,
// and the connection is torn down.
func (s *Session) Close(force bool) error {
	var err error
	for bufno, buf := range s.bufs {
		if buf == nil || buf.doc == nil {
			continue
		}
		if force {
			err = multierr.Append(err, s.send(wire.Event(bufno, "unmodified", s.seq, "")))
		}
		err = multierr.Append(err, s.send(wire.Event(bufno, "killed", s.seq, "")))
		buf.doc = nil
	}
	if s.conn != nil {
		err = multierr.Append(err, s.send(wire.Event(0, "disconnect", s.seq, "")))
	}
	return multierr.Append(err, s.teardown())
}

// teardown releases everything owned by the connection: buffer slots
// are invalidated (the table itself is dropped), queued keys and
// partial input are discarded, all markers and guards are lifted.  The
// sign registry and guard counter deliberately survive.  Idempotent.
func (s *Session) teardown() error {
	if s.state == Disconnected && s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	s.state = Disconnected
	for _, buf := range s.bufs {
		if buf != nil {
			buf.doc = nil
			buf.initDone = false
		}
	}
	s.bufs = nil
	s.keys = nil
	s.framer.Reset()
	s.inAtomic = false
	s.needUpdate = false
	s.ed.ClearMarkers()
	s.ed.RedrawFull()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	logger.L(s.ctx).Info("session closed", zap.Error(err))
	return err
}

// send writes one line to the peer.  A write failure is connection
// loss: the session is torn down and nothing is resent.
func (s *Session) send(line string) error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Write([]byte(line)); err != nil {
		logger.L(s.ctx).Error("write to peer", zap.Error(err))
		s.teardown() //nolint:errcheck
		return err
	}
	return nil
}

// event emits an outbound event line, dropping it silently when the
// connection is gone.
func (s *Session) event(bufno int, name, args string) {
	s.send(wire.Event(bufno, name, s.seq, args)) //nolint:errcheck
}

// track returns the slot for a remote buffer id, creating intermediate
// slots lazily.  Id 0 and negatives have no slot.
func (s *Session) track(bufno int) *trackedBuf {
	if bufno <= 0 {
		return nil
	}
	for len(s.bufs) <= bufno {
		// Default is to fire text changes.
		s.bufs = append(s.bufs, &trackedBuf{fireChanges: true})
	}
	return s.bufs[bufno]
}

// bufnoOf finds the remote id tracking doc, or -1.
func (s *Session) bufnoOf(doc editor.Document) int {
	if doc == nil {
		return -1
	}
	for i, buf := range s.bufs {
		if buf != nil && buf.doc == doc {
			return i
		}
	}
	return -1
}

// requestUpdate asks for a full redraw once the current message (or the
// current atomic batch) completes.
func (s *Session) requestUpdate() {
	s.updWanted = true
	s.updRanged = false
}

// requestLineUpdate asks for a redraw of [first, last] of doc.  A
// second ranged request in the same message widens to a full redraw.
func (s *Session) requestLineUpdate(doc editor.Document, first, last int) {
	if s.updWanted {
		s.updRanged = false
		return
	}
	s.updWanted = true
	s.updRanged = true
	s.updDoc = doc
	s.updFirst = first
	s.updLast = last
}

// flushUpdate performs or defers the redraw requested while handling
// one message.  Inside an atomic batch the request only marks a refresh
// owed; endAtomic converts that into a single full redraw.
func (s *Session) flushUpdate(buf *trackedBuf) {
	if !s.updWanted {
		return
	}
	s.updWanted = false
	if s.inAtomic {
		s.needUpdate = true
		return
	}
	if buf != nil && buf.doc != nil && !buf.initDone {
		return
	}
	if s.updRanged {
		s.ed.RedrawLines(s.updDoc, s.updFirst, s.updLast)
	} else {
		s.ed.RedrawFull()
	}
	s.updDoc = nil
}
