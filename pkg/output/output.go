// Package output holds the sinks rewritten log lines are written to.
// Lines arrive in batches with their terminators intact; sinks write them
// back to back without inserting separators of their own.
package output

// Output is a destination for processed lines.
type Output interface {
	// WriteBatch appends every line of the batch, in order. A sink may
	// buffer; nothing is guaranteed durable until Flush.
	WriteBatch(lines [][]byte) error

	// Flush pushes buffered lines to the destination. Sinks without a
	// buffer return nil.
	Flush() error
}

const writeBufferSize = 64 * 1024
