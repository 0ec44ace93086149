package output

import (
	"errors"
	"sync"
)

// FanOutOutput duplicates every batch to multiple sinks, writing them in
// parallel since a slow remote sink must not stall the local file. All
// sinks receive the batch even when one fails; the errors are joined so
// none is swallowed.
type FanOutOutput struct {
	outputs []Output
}

func NewFanOutOutput(outputs ...Output) *FanOutOutput {
	return &FanOutOutput{
		outputs: outputs,
	}
}

func (f *FanOutOutput) WriteBatch(lines [][]byte) error {
	var wg sync.WaitGroup
	errs := make([]error, len(f.outputs))

	for i, out := range f.outputs {
		wg.Add(1)
		go func(idx int, o Output) {
			defer wg.Done()
			errs[idx] = o.WriteBatch(lines)
		}(i, out)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Flush flushes every sink and reports the joined errors.
func (f *FanOutOutput) Flush() error {
	errs := make([]error, len(f.outputs))
	for i, out := range f.outputs {
		errs[i] = out.Flush()
	}
	return errors.Join(errs...)
}
