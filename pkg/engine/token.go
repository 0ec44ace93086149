package engine

import "bytes"

// asciiSpace marks the six ASCII whitespace bytes: tab, newline, vertical
// tab, form feed, carriage return, space.
var asciiSpace = [256]bool{'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, ' ': true}

// trimLeading drops leading ASCII whitespace from line. A line that is
// whitespace all the way through comes back unchanged, which keeps its
// terminator intact.
func trimLeading(line []byte) []byte {
	for i := 0; i < len(line); i++ {
		if !asciiSpace[line[i]] {
			return line[i:]
		}
	}
	return line
}

// splitToken returns the offset of the space byte that terminates the
// leading token, or -1 when the line contains no space at all. Only 0x20
// ends the token; tabs and other whitespace are ordinary token bytes here.
// A space at offset zero yields a valid empty token.
func splitToken(line []byte) int {
	return bytes.IndexByte(line, ' ')
}
