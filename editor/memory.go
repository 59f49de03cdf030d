package editor

import (
	"os"
	"sort"
	"strings"
	"time"
)

// Memory is an in-process Editor backed by plain string slices.  It is
// the reference host used by the demo command and the tests: documents
// live in memory, Edit and Save go through the filesystem, and the
// visual collaborators record what was requested so a test (or a log
// reader) can observe the side effects.
//
// Memory does no locking; like the protocol core it is driven from one
// goroutine.
type Memory struct {
	docs    []*Doc
	current *Doc

	// Commands holds every Exec'd command in order.  ExecHook, when
	// set, runs for each command and its error is returned to the
	// caller; Exec otherwise always succeeds.
	Commands []string
	ExecHook func(command string) error

	// Side-effect counters and registries.
	Highlights    map[string][2]string // name -> {fg, bg}
	Signs         map[int][2]string    // id -> {glyph, highlight}
	HighlightDefs int                  // total DefineHighlight calls
	SignDefs      int                  // total DefineSign calls
	FullRedraws   int
	LineRedraws   int
	Loaded        []*Doc // BufferLoaded order
	Raised        int
}

// NewMemory returns an empty in-memory editor.
func NewMemory() *Memory {
	return &Memory{
		Highlights: make(map[string][2]string),
		Signs:      make(map[int][2]string),
	}
}

// Doc is a Memory document.
type Doc struct {
	name     string
	lines    []string
	ending   LineEnding
	cursor   Position
	modified bool
	readOnly bool
	modTime  time.Time
	markers  []Marker
}

// NewDoc builds a detached document with the given lines, for tests.
func NewDoc(lines ...string) *Doc {
	return &Doc{lines: lines}
}

func (d *Doc) Name() string { return d.name }

func (d *Doc) Line(i int) (string, bool) {
	if i < 0 || i >= len(d.lines) {
		return "", false
	}
	return d.lines[i], true
}

func (d *Doc) SetLine(i int, text string) {
	if i >= 0 && i < len(d.lines) {
		d.lines[i] = text
	}
}

func (d *Doc) InsertLine(i int, text string) {
	if i < 0 {
		i = 0
	}
	if i > len(d.lines) {
		i = len(d.lines)
	}
	d.lines = append(d.lines[:i], append([]string{text}, d.lines[i:]...)...)
}

func (d *Doc) DeleteLine(i int) {
	if i >= 0 && i < len(d.lines) {
		d.lines = append(d.lines[:i], d.lines[i+1:]...)
	}
}

func (d *Doc) LineCount() int { return len(d.lines) }

func (d *Doc) LineEnding() LineEnding     { return d.ending }
func (d *Doc) SetLineEnding(e LineEnding) { d.ending = e }

func (d *Doc) Cursor() Position       { return d.cursor }
func (d *Doc) SetCursor(pos Position) { d.cursor = pos }

func (d *Doc) Modified() bool        { return d.modified }
func (d *Doc) SetModified(v bool)    { d.modified = v }
func (d *Doc) ReadOnly() bool        { return d.readOnly }
func (d *Doc) SetReadOnly(v bool)    { d.readOnly = v }
func (d *Doc) SetModTime(t time.Time) { d.modTime = t }

func (d *Doc) ClearUndo() {}

// Text returns the full document bytes: every line with its terminator.
func (d *Doc) Text() string {
	if len(d.lines) == 0 {
		return ""
	}
	eol := "\n"
	if d.ending == CRLF {
		eol = "\r\n"
	}
	return strings.Join(d.lines, eol) + eol
}

// Save writes the document to its file.  Unnamed documents save to
// nowhere successfully.
func (d *Doc) Save() error {
	if d.name == "" {
		return nil
	}
	if err := os.WriteFile(d.name, []byte(d.Text()), 0o644); err != nil {
		return err
	}
	d.modified = false
	return nil
}

func (m *Memory) Create(name string) (Document, error) {
	if name != "" {
		if d, ok := m.Find(name); ok {
			m.current = d.(*Doc)
			return d, nil
		}
	}
	d := &Doc{name: name}
	m.docs = append(m.docs, d)
	m.current = d
	return d, nil
}

func (m *Memory) Edit(name string) (Document, error) {
	if d, ok := m.Find(name); ok {
		m.current = d.(*Doc)
		return d, nil
	}
	d := &Doc{name: name}
	if data, err := os.ReadFile(name); err == nil {
		text := string(data)
		if strings.Contains(text, "\r\n") {
			d.ending = CRLF
		}
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.TrimSuffix(text, "\n")
		if text != "" || len(data) > 0 {
			d.lines = strings.Split(text, "\n")
		}
	}
	m.docs = append(m.docs, d)
	m.current = d
	return d, nil
}

func (m *Memory) Find(name string) (Document, bool) {
	for _, d := range m.docs {
		if d.name == name {
			return d, true
		}
	}
	return nil, false
}

func (m *Memory) Close(doc Document) {
	d := doc.(*Doc)
	for i, o := range m.docs {
		if o == d {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			break
		}
	}
	if m.current == d {
		m.current = nil
		if len(m.docs) > 0 {
			m.current = m.docs[len(m.docs)-1]
		}
	}
}

func (m *Memory) Show(doc Document) { m.current = doc.(*Doc) }

func (m *Memory) ShowLine(doc Document, line int) {
	d := doc.(*Doc)
	m.current = d
	d.cursor = Position{Line: line}
}

func (m *Memory) Current() (Document, bool) {
	if m.current == nil {
		return nil, false
	}
	return m.current, true
}

func (m *Memory) Raise() { m.Raised++ }

func (m *Memory) Exec(command string) error {
	m.Commands = append(m.Commands, command)
	if m.ExecHook != nil {
		return m.ExecHook(command)
	}
	return nil
}

func (m *Memory) RedrawLines(doc Document, first, last int) { m.LineRedraws++ }
func (m *Memory) RedrawFull()                               { m.FullRedraws++ }

func (m *Memory) BufferLoaded(doc Document) {
	m.Loaded = append(m.Loaded, doc.(*Doc))
}

func (m *Memory) DefineHighlight(name, fg, bg string) {
	m.HighlightDefs++
	m.Highlights[name] = [2]string{fg, bg}
}

func (m *Memory) DefineSign(id int, glyph, highlight string) {
	m.SignDefs++
	m.Signs[id] = [2]string{glyph, highlight}
}

func (m *Memory) PlaceMarker(doc Document, mk Marker) {
	d := doc.(*Doc)
	d.markers = append(d.markers, mk)
}

func (m *Memory) RemoveMarker(doc Document, serial int) {
	d := doc.(*Doc)
	for i, mk := range d.markers {
		if mk.Serial == serial {
			d.markers = append(d.markers[:i], d.markers[i+1:]...)
			return
		}
	}
}

func (m *Memory) MarkerLine(doc Document, serial int) (int, bool) {
	for _, mk := range doc.(*Doc).markers {
		if mk.Serial == serial {
			return mk.Line, true
		}
	}
	return 0, false
}

func (m *Memory) MarkersAt(doc Document, line int) []Marker {
	var out []Marker
	for _, mk := range doc.(*Doc).markers {
		if mk.Line == line {
			out = append(out, mk)
		}
	}
	return out
}

func (m *Memory) Markers(doc Document) []Marker {
	d := doc.(*Doc)
	out := make([]Marker, len(d.markers))
	copy(out, d.markers)
	sort.Slice(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })
	return out
}

func (m *Memory) AdjustMarkers(doc Document, fromLine, delta int) {
	d := doc.(*Doc)
	for i := range d.markers {
		if d.markers[i].Line >= fromLine {
			d.markers[i].Line += delta
		}
	}
}

func (m *Memory) ClearMarkers() {
	for _, d := range m.docs {
		d.markers = nil
	}
}
