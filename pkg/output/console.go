package output

import (
	"bufio"
	"io"
	"os"
)

// ConsoleOutput writes lines to standard output through a single buffer.
// Interactive use normally pairs it with per-line flushing; bulk runs
// leave the buffer to fill and flush once at the end.
type ConsoleOutput struct {
	w *bufio.Writer
}

// NewConsoleOutput returns a sink on stdout.
func NewConsoleOutput() *ConsoleOutput {
	return newWriterOutput(os.Stdout)
}

func newWriterOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: bufio.NewWriterSize(w, writeBufferSize)}
}

func (c *ConsoleOutput) WriteBatch(lines [][]byte) error {
	for _, line := range lines {
		if _, err := c.w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (c *ConsoleOutput) Flush() error {
	return c.w.Flush()
}
