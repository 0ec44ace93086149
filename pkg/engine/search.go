package engine

// byteSearcher locates every non-overlapping occurrence of a fixed byte
// pattern using Boyer-Moore-Horspool. Preprocessing builds a 256-entry
// bad-character table: the distance the window may jump after a mismatch,
// defaulting to the full pattern length for bytes that do not occur in the
// pattern. Windows are compared right to left, so on random log data most
// windows are rejected after a single byte and the scan is sublinear.
//
// The zero value is unusable; call reset first. A searcher can be reused
// for a new pattern (reset is O(256 + len(pattern))), which keeps the
// per-line cost of thorough mode at table setup plus the scan itself.
type byteSearcher struct {
	pattern []byte
	skip    [256]int
}

// reset prepares the searcher for a new pattern. The pattern slice is
// retained, not copied; it must not be mutated while the searcher is in
// use.
func (s *byteSearcher) reset(pattern []byte) {
	s.pattern = pattern
	n := len(pattern)
	for i := range s.skip {
		s.skip[i] = n
	}
	for i := 0; i < n-1; i++ {
		s.skip[pattern[i]] = n - 1 - i
	}
}

// next returns the offset of the first occurrence of the pattern at or
// after from, or -1 if there is none. An empty pattern never matches.
func (s *byteSearcher) next(hay []byte, from int) int {
	n := len(s.pattern)
	if n == 0 {
		return -1
	}
	if from < 0 {
		from = 0
	}
	i := from
	for i+n <= len(hay) {
		j := n - 1
		for j >= 0 && hay[i+j] == s.pattern[j] {
			j--
		}
		if j < 0 {
			return i
		}
		i += s.skip[hay[i+n-1]]
	}
	return -1
}

// findAll returns the offsets of all matches in left-to-right order, or
// nil when there are none. Matches never overlap: after a match at p the
// scan resumes at p+len(pattern), so pattern "8.8.8.8" occurs exactly once
// in "8.8.8.8.8.8".
func (s *byteSearcher) findAll(hay []byte) []int {
	var offs []int
	for i := s.next(hay, 0); i >= 0; i = s.next(hay, i+len(s.pattern)) {
		offs = append(offs, i)
	}
	return offs
}

// appendReplaced appends hay to dst with every non-overlapping occurrence
// of the pattern replaced by repl, and returns the extended buffer. Bytes
// between and around matches are copied verbatim, and repl may be any
// length including zero. If the pattern is empty or longer than hay, hay
// is appended unchanged.
func (s *byteSearcher) appendReplaced(dst, hay, repl []byte) []byte {
	n := len(s.pattern)
	if n == 0 || n > len(hay) {
		return append(dst, hay...)
	}
	last := 0
	for i := s.next(hay, 0); i >= 0; i = s.next(hay, i+n) {
		dst = append(dst, hay[last:i]...)
		dst = append(dst, repl...)
		last = i + n
	}
	return append(dst, hay[last:]...)
}
