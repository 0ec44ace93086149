package engine

// RedactionProcessor masks every occurrence of a fixed byte string
// anywhere in the line: internal hostnames, API keys, tenant names and
// other literals the address rewrite does not cover. The pattern table is
// built once at construction, so the per-line cost is a single scan.
type RedactionProcessor struct {
	name   string
	search byteSearcher
	mask   []byte
}

// NewRedactionProcessor masks target with mask. A processor with an empty
// target matches nothing and passes lines through.
func NewRedactionProcessor(name, target, mask string) *RedactionProcessor {
	r := &RedactionProcessor{
		name: name,
		mask: []byte(mask),
	}
	r.search.reset([]byte(target))
	return r
}

func (r *RedactionProcessor) Name() string {
	return r.name
}

// Process returns the input slice untouched when the target is absent and
// a freshly built line otherwise. Matches never overlap, so a mask that
// contains the target does not cascade.
func (r *RedactionProcessor) Process(ctx *ProcessingContext, line []byte) ([]byte, bool, error) {
	if r.search.next(line, 0) < 0 {
		return line, false, nil
	}
	out := make([]byte, 0, len(line)+len(r.mask))
	return r.search.appendReplaced(out, line, r.mask), false, nil
}
