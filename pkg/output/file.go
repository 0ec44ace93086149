package output

import (
	"bufio"
	"fmt"
	"os"
)

// FileOutput appends lines to a file. The file is opened in append mode
// and created if missing, so repeated runs against the same path extend
// the log instead of truncating earlier output.
type FileOutput struct {
	f *os.File
	w *bufio.Writer
}

// NewFileOutput opens path for appending.
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}
	return &FileOutput{
		f: f,
		w: bufio.NewWriterSize(f, writeBufferSize),
	}, nil
}

func (o *FileOutput) WriteBatch(lines [][]byte) error {
	for _, line := range lines {
		if _, err := o.w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (o *FileOutput) Flush() error {
	return o.w.Flush()
}

// Close flushes buffered lines and closes the file.
func (o *FileOutput) Close() error {
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return err
	}
	return o.f.Close()
}
