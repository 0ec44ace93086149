package engine

import "strings"

// ProcessorChain runs a line through an ordered list of stages. An empty
// chain passes every line through untouched.
type ProcessorChain struct {
	processors []Processor
}

// NewProcessorChain builds a chain from the given stages, applied in
// argument order.
func NewProcessorChain(processors ...Processor) *ProcessorChain {
	return &ProcessorChain{
		processors: processors,
	}
}

// Process feeds the line through the stages. The first stage that reports
// skip or an error ends the walk; later stages never see the line.
func (c *ProcessorChain) Process(ctx *ProcessingContext, line []byte) ([]byte, bool, error) {
	var skip bool
	var err error

	for _, p := range c.processors {
		line, skip, err = p.Process(ctx, line)
		if err != nil {
			return line, false, err
		}
		if skip {
			return line, true, nil
		}
	}

	return line, false, nil
}

// Describe lists the stage names joined by "->", for reload logging.
func (c *ProcessorChain) Describe() string {
	if len(c.processors) == 0 {
		return "passthrough"
	}
	names := make([]string, len(c.processors))
	for i, p := range c.processors {
		names[i] = p.Name()
	}
	return strings.Join(names, "->")
}
