package engine

// findDateAnchor scans line at or after from for the opening of a
// bracketed timestamp field: a space, '[', one or two ASCII digits, then
// '/'. In combined-format logs this is the "[02/Jan/2006:..." field that
// follows the auth user, and since the user name itself may contain
// spaces, the bracket is the only reliable end marker for it. Returns the
// offset of the leading space, or -1 when no such sequence exists.
func findDateAnchor(line []byte, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+3 < len(line); i++ {
		if line[i] != ' ' || line[i+1] != '[' || !isDigit(line[i+2]) {
			continue
		}
		if line[i+3] == '/' {
			return i
		}
		if isDigit(line[i+3]) && i+4 < len(line) && line[i+4] == '/' {
			return i
		}
	}
	return -1
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
