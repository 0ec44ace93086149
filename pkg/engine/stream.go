package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"scrubgate/pkg/output"
)

const streamReadBuffer = 64 * 1024

// Stream drains src through the chain into sink, one newline-delimited
// line at a time. Line terminators pass through the chain and out again;
// a final line without one is still processed. When flushPerLine is set
// the sink is flushed after every written line so downstream tails see
// output immediately, otherwise buffering is left to the sink until the
// final flush at end of stream.
//
// Any read error, processor error or sink error aborts the drain, since a
// silently shortened output is worse than a loud failure. The sink is
// flushed before a successful return but deliberately not on the error
// paths; partially processed data stays buffered rather than being pushed
// out as if the run had finished.
func Stream(ctx context.Context, chain *ProcessorChain, src io.Reader, sink output.Output, flushPerLine bool) error {
	br := bufio.NewReaderSize(src, streamReadBuffer)
	pctx := &ProcessingContext{Context: ctx}
	batch := make([][]byte, 1)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read line: %w", err)
		}
		if len(line) > 0 {
			out, skip, perr := chain.Process(pctx, line)
			if perr != nil {
				return fmt.Errorf("process line: %w", perr)
			}
			if !skip {
				batch[0] = out
				if werr := sink.WriteBatch(batch); werr != nil {
					return fmt.Errorf("write line: %w", werr)
				}
				if flushPerLine {
					if werr := sink.Flush(); werr != nil {
						return fmt.Errorf("flush line: %w", werr)
					}
				}
			}
		}
		if err == io.EOF {
			break
		}
	}
	if err := sink.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
