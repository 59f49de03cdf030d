// Package editor defines the collaborator interfaces the protocol
// session drives: per-buffer document storage, command execution, redraw
// scheduling, lifecycle hooks, visual definitions and the marker table.
// It also provides the offset/position converter shared by every edit
// operation, and an in-memory Editor implementation used by the demo
// host and the tests.
//
// Lines and columns are 0-based byte positions throughout this package;
// the wire protocol's 1-based line numbers are converted at the session
// boundary.
package editor

import "time"

// LineEnding is a buffer's line terminator style.  It determines the
// terminator width the offset converter accounts for on every line.
type LineEnding int

const (
	LF   LineEnding = iota // "\n"
	CRLF                   // "\r\n"
)

// Width returns the terminator width in bytes.
func (e LineEnding) Width() int {
	if e == CRLF {
		return 2
	}
	return 1
}

// Position is a 0-based (line, column) pair.  The column counts bytes
// and may point into the line terminator.
type Position struct {
	Line int
	Col  int
}

// Marker is a visual annotation placed at a line.  Serial identifies
// the placed instance; Type names the process-wide sign definition.
type Marker struct {
	Serial int
	Type   int
	Line   int
}

// Document is one editor buffer as the protocol core sees it: a
// sequence of lines, each logically terminated by the buffer's line
// ending, plus the peer-relevant per-buffer state.  A Document handle
// can outlive the underlying buffer; implementations return ok == false
// from Line for out-of-range indexes and the session re-validates
// handles after any call that can close buffers.
type Document interface {
	Name() string

	Line(i int) (string, bool)
	SetLine(i int, text string)
	// InsertLine inserts text as a new line at index i, shifting lines
	// at and after i down.  i == LineCount() appends.
	InsertLine(i int, text string)
	DeleteLine(i int)
	LineCount() int

	LineEnding() LineEnding
	SetLineEnding(LineEnding)

	Cursor() Position
	SetCursor(Position)

	Modified() bool
	SetModified(bool)
	ReadOnly() bool
	SetReadOnly(bool)
	SetModTime(time.Time)

	// ClearUndo invalidates the buffer's undo history.  Offset-addressed
	// peer edits are not expressed as undoable user edits.
	ClearUndo()

	Save() error
}

// Editor is the host side of the integration: buffer lifecycle, command
// execution, redraw, hooks and visual state.  All calls happen on the
// single message-processing path; implementations need no locking for
// the core's sake.
type Editor interface {
	// Create makes a new (or empty) buffer named name without reading
	// the file from disk.  name may be empty.
	Create(name string) (Document, error)
	// Edit opens name, reading the file when it exists.
	Edit(name string) (Document, error)
	// Find returns the already-open buffer with the given name.
	Find(name string) (Document, bool)
	// Close wipes the buffer out of the editor.
	Close(doc Document)

	// Show makes doc the current, visible buffer.
	Show(doc Document)
	// ShowLine makes doc current and scrolls line into view.
	ShowLine(doc Document, line int)
	Current() (Document, bool)
	// Raise brings the editor window to the foreground.
	Raise()

	// Exec runs a named editor command, e.g. "confirm qall".  It may
	// re-enter the protocol core or terminate the session.
	Exec(command string) error

	// RedrawLines schedules a redraw of lines [first, last] of doc.
	RedrawLines(doc Document, first, last int)
	// RedrawFull schedules a full screen redraw.
	RedrawFull()

	// BufferLoaded fires the buffer-initialized lifecycle hook, once per
	// newly attached buffer after its content is in place.
	BufferLoaded(doc Document)

	// DefineHighlight defines or updates a named highlight group.
	DefineHighlight(name, fg, bg string)
	// DefineSign defines or updates numbered sign id, drawn with glyph
	// (may be empty for line highlighting only) and highlight.
	DefineSign(id int, glyph, highlight string)

	PlaceMarker(doc Document, m Marker)
	RemoveMarker(doc Document, serial int)
	// MarkerLine returns the line a placed marker sits on.
	MarkerLine(doc Document, serial int) (int, bool)
	// MarkersAt returns the markers placed at one line.
	MarkersAt(doc Document, line int) []Marker
	// Markers returns all markers placed in doc.
	Markers(doc Document) []Marker
	// AdjustMarkers shifts markers at or below fromLine by delta lines.
	AdjustMarkers(doc Document, fromLine, delta int)
	// ClearMarkers removes every placed marker, in all buffers.
	ClearMarkers()
}
