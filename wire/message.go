// Package wire implements the text grammar of the external-editor
// protocol: framing of the inbound byte stream into newline-terminated
// messages, decomposition of a message into its parts, string
// quoting/unquoting, and formatting of replies and events.
//
// A message looks like
//
//	6:setTitle!84 "a.c"
//
// where 6 is the buffer number, setTitle the verb, '!' marks a command
// ('/' marks a function, which requires a reply), 84 the sequence number
// and the remainder the verb-specific arguments.  The whole-line
// controls "DISCONNECT" and "DETACH" carry no buffer number, sequence
// number or arguments.
package wire

import (
	"errors"
	"strings"
)

// Kind distinguishes the three message shapes.
type Kind int

const (
	// Command expects no reply.
	Command Kind = iota
	// Function requires exactly one reply carrying its sequence number.
	Function
	// Control is a whole-line connection control (DISCONNECT, DETACH).
	Control
)

// Parse failures.  Both leave the connection usable; the offending line
// is discarded by the caller.
var (
	ErrMissingColon = errors.New("wire: missing colon after buffer number")
	ErrMissingKind  = errors.New("wire: missing '!' or '/' after verb")
)

// Message is one parsed protocol message.
type Message struct {
	Buf  int    // remote buffer number; 0 means no buffer / global
	Verb string // e.g. "insert", "getLength"; the control name for Kind Control
	Kind Kind
	Seq  int    // sequence number for correlation
	Args string // rest of line, leading whitespace stripped
}

// Parse decomposes one complete line (without its trailing newline).
func Parse(line string) (Message, error) {
	if line == "DISCONNECT" || line == "DETACH" {
		return Message{Verb: line, Kind: Control}, nil
	}

	bufno, rest := ParseInt(line)
	if len(rest) == 0 || rest[0] != ':' {
		return Message{}, ErrMissingColon
	}
	rest = rest[1:]

	i := strings.IndexAny(rest, "!/")
	if i < 0 {
		return Message{}, ErrMissingKind
	}
	m := Message{Buf: bufno, Verb: rest[:i], Kind: Command}
	if rest[i] == '/' {
		m.Kind = Function
	}

	seq, rest := ParseInt(rest[i+1:])
	m.Seq = seq
	m.Args = strings.TrimLeft(rest, " \t")
	return m, nil
}

// ParseInt consumes a leading optional-sign decimal integer, returning
// the value and the unconsumed remainder.  Like strtol, no digits means
// zero and nothing is consumed.
func ParseInt(s string) (int, string) {
	i := 0
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i == start {
		return 0, s
	}
	if neg {
		n = -n
	}
	return n, s[i:]
}

// SkipSpace returns s without leading blanks.
func SkipSpace(s string) string {
	return strings.TrimLeft(s, " \t")
}
