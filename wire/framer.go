package wire

import "bytes"

// Framer accumulates raw transport bytes and splits off complete
// newline-terminated messages.  Bytes may arrive in arbitrary chunks;
// an incomplete trailing line is held until more bytes arrive.
//
// The zero value is ready to use.  Framer is not safe for concurrent
// use; the host feeds and drains it from one goroutine.
type Framer struct {
	buf []byte
}

// Append adds raw bytes received from the transport.  The slice is
// copied; the caller may reuse it.
func (f *Framer) Append(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next extracts the next complete message, without its terminating
// newline.  It returns ok == false when no full line is buffered yet.
func (f *Framer) Next() (line string, ok bool) {
	i := bytes.IndexByte(f.buf, '\n')
	if i < 0 {
		return "", false
	}
	line = string(f.buf[:i])
	f.buf = f.buf[i+1:]
	return line, true
}

// Pending reports the number of buffered bytes not yet consumed.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset discards all buffered bytes.
func (f *Framer) Reset() {
	f.buf = nil
}
