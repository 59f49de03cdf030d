package wire

import (
	"fmt"
	"strconv"
)

// Reply formats a nil function reply: just the sequence number.
func Reply(seq int) string {
	return strconv.Itoa(seq) + "\n"
}

// ReplyNumber formats a numeric function reply.
func ReplyNumber(seq int, n int) string {
	return fmt.Sprintf("%d %d\n", seq, n)
}

// ReplyText formats a textual function reply.  The result must already
// be quoted (with Quote) when it is a string value; bare payloads such
// as "!bad position" pass through unchanged.
func ReplyText(seq int, result string) string {
	return fmt.Sprintf("%d %s\n", seq, result)
}

// Event formats an outbound event line, e.g.
//
//	2:insert=17 3 "abc"
//
// Events reuse the command shape with '=' in place of '!' and never
// receive a reply.  args may be empty.
func Event(bufno int, name string, seq int, args string) string {
	if args == "" {
		return fmt.Sprintf("%d:%s=%d\n", bufno, name, seq)
	}
	return fmt.Sprintf("%d:%s=%d %s\n", bufno, name, seq, args)
}
