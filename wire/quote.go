package wire

import "strings"

// Quote escapes text for transmission inside a double-quoted argument.
// Only newline, carriage return, backslash and double quote are escaped;
// the peer recognizes nothing else.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Quoted returns s escaped and wrapped in the double quotes the line
// grammar requires around string arguments.
func Quoted(s string) string {
	return `"` + Quote(s) + `"`
}

// Unquote reads one double-quoted string from the front of s, undoing
// the Quote escapes (plus \t, which old peers emit).  It returns the
// decoded text and the remainder of s after the closing quote.
//
// ok is false when s does not start with a double quote; text is then
// empty and rest is s unchanged.  A missing closing quote consumes the
// rest of the input, and a trailing lone backslash is kept literally.
// Unrecognized escapes are dropped, matching the peer's encoder.
func Unquote(s string) (text, rest string, ok bool) {
	if len(s) == 0 || s[0] != '"' {
		return "", s, false
	}
	var sb strings.Builder
	i := 1
	for i < len(s) {
		switch c := s[i]; c {
		case '"':
			return sb.String(), s[i+1:], true
		case '\\':
			if i+1 == len(s) {
				sb.WriteByte('\\')
				i++
				break
			}
			switch e := s[i+1]; e {
			case '\\', '"':
				sb.WriteByte(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), "", true
}
