package engine

// Processor is one stage of the line pipeline: it rewrites, redacts or
// vetoes a single log line at a time.
type Processor interface {
	// Process transforms one line, terminator included. It returns the
	// resulting line (which may be the input slice when nothing
	// changed), skip=true when the line must not reach the output, and
	// an error only when the stage cannot produce a usable result.
	Process(ctx *ProcessingContext, line []byte) ([]byte, bool, error)

	// Name identifies the stage in logs and control-plane manifests.
	Name() string
}
