package engine

import (
	"bytes"
)

// FilterProcessor drops lines by substring match before they reach the
// rewriter. In drop mode a line matching any pattern is discarded; in keep
// mode only matching lines survive. Typical use is shedding health-check
// and readiness-probe noise that nobody wants anonymized copies of.
type FilterProcessor struct {
	name     string
	patterns [][]byte
	keep     bool
}

// NewDropFilter discards lines containing any of the patterns.
func NewDropFilter(name string, patterns []string) *FilterProcessor {
	return newFilter(name, patterns, false)
}

// NewKeepFilter discards lines containing none of the patterns.
func NewKeepFilter(name string, patterns []string) *FilterProcessor {
	return newFilter(name, patterns, true)
}

func newFilter(name string, patterns []string, keep bool) *FilterProcessor {
	pp := make([][]byte, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue // empty pattern matches everything, never useful
		}
		pp = append(pp, []byte(p))
	}
	return &FilterProcessor{name: name, patterns: pp, keep: keep}
}

func (f *FilterProcessor) Name() string {
	return f.name
}

// Process reports skip for filtered lines. A keep-mode filter with no
// patterns keeps everything rather than dropping the whole stream.
func (f *FilterProcessor) Process(ctx *ProcessingContext, line []byte) ([]byte, bool, error) {
	if len(f.patterns) == 0 {
		return line, false, nil
	}
	for _, p := range f.patterns {
		if bytes.Contains(line, p) {
			return line, !f.keep, nil
		}
	}
	return line, f.keep, nil
}
