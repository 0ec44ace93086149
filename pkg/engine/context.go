package engine

import (
	"context"
)

// ProcessingContext carries per-line state through a processor chain. It
// embeds the driver's context.Context so stages can observe cancellation
// without each stage taking its own context argument.
type ProcessingContext struct {
	context.Context
}
