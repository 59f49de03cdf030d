package editor

// Size returns the byte length of the logical document: every line plus
// its terminator.
func Size(doc Document) int {
	w := doc.LineEnding().Width()
	n := 0
	for i := 0; i < doc.LineCount(); i++ {
		line, _ := doc.Line(i)
		n += len(line) + w
	}
	return n
}

// OffsetToPosition converts a flat byte offset into a (line, col) pair
// by walking cumulative line lengths, terminators included.  The column
// may land inside a terminator.  ok is false for an empty document and
// for offsets at or past the document end.
func OffsetToPosition(doc Document, off int) (Position, bool) {
	if off < 0 || doc.LineCount() == 0 {
		return Position{}, false
	}
	w := doc.LineEnding().Width()
	total := 0
	for i := 0; i < doc.LineCount(); i++ {
		line, _ := doc.Line(i)
		extent := len(line) + w
		if off < total+extent {
			return Position{Line: i, Col: off - total}, true
		}
		total += extent
	}
	return Position{}, false
}

// PositionToOffset is the exact inverse summation of OffsetToPosition.
// Positions past the last line map to the document size.
func PositionToOffset(doc Document, pos Position) int {
	w := doc.LineEnding().Width()
	off := 0
	for i := 0; i < pos.Line && i < doc.LineCount(); i++ {
		line, _ := doc.Line(i)
		off += len(line) + w
	}
	return off + pos.Col
}
