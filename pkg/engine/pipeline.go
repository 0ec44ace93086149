package engine

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"scrubgate/pkg/metrics"
	"scrubgate/pkg/output"
)

const (
	defaultBatchSize = 100
	flushInterval    = 100 * time.Millisecond
	idleSleep        = time.Millisecond
)

// Pipeline connects the ingest ring to the processor chain and the
// configured sinks. The chain, the sink set and the batch size are all
// hot-swappable from the control plane while lines keep flowing.
//
// Lines are never emitted unprocessed. Overload shows up as ring drops at
// ingest, not as raw lines downstream.
type Pipeline struct {
	buffer    *RingBuffer
	chain     atomic.Pointer[ProcessorChain]
	output    atomic.Value // always holds *output.FanOutOutput
	batchSize atomic.Int64
	workers   int
}

func NewPipeline(buf *RingBuffer, chain *ProcessorChain, out output.Output) *Pipeline {
	p := &Pipeline{
		buffer:  buf,
		workers: 1, // single consumer keeps output in arrival order
	}
	p.batchSize.Store(defaultBatchSize)
	p.chain.Store(chain)

	// atomic.Value requires one concrete type across every Store, so the
	// sink always goes in wrapped, even when it is a single output.
	p.output.Store(output.NewFanOutOutput(out))

	return p
}

// UpdateChain hot-swaps the processor chain.
func (p *Pipeline) UpdateChain(chain *ProcessorChain) {
	p.chain.Store(chain)
	log.Printf("pipeline: chain swapped to %s", chain.Describe())
}

// UpdateOutput hot-swaps the sink set.
func (p *Pipeline) UpdateOutput(out output.Output) {
	fan, ok := out.(*output.FanOutOutput)
	if !ok {
		fan = output.NewFanOutOutput(out)
	}
	p.output.Store(fan)
	log.Println("pipeline: output swapped")
}

// UpdateBatchSize adjusts how many lines are written per batch. Values
// below one reset to the default.
func (p *Pipeline) UpdateBatchSize(n int) {
	if n < 1 {
		n = defaultBatchSize
	}
	p.batchSize.Store(int64(n))
	log.Printf("pipeline: batch size set to %d", n)
}

// Start launches the workers. They stop when ctx is canceled, draining
// the ring and flushing pending lines first.
func (p *Pipeline) Start(ctx context.Context) {
	log.Printf("pipeline: starting %d worker(s)", p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	pctx := &ProcessingContext{Context: ctx}
	batch := make([][]byte, 0, defaultBatchSize)
	var popped [][]byte

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		sink := p.output.Load().(output.Output)
		if err := sink.WriteBatch(batch); err != nil {
			metrics.WriteErrors.Inc()
			log.Printf("pipeline: write error: %v", err)
		} else if err := sink.Flush(); err != nil {
			metrics.WriteErrors.Inc()
			log.Printf("pipeline: flush error: %v", err)
		} else {
			var n int
			for _, line := range batch {
				n += len(line)
			}
			metrics.EmittedBytes.Add(float64(n))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			// Scrub whatever already reached the ring before leaving.
			for line := p.buffer.Pop(); line != nil; line = p.buffer.Pop() {
				batch = p.processLine(pctx, line, batch)
			}
			flush()
			return
		case <-ticker.C:
			flush()
		default:
			limit := int(p.batchSize.Load())
			popped = p.buffer.PopBatch(popped[:0], limit)
			if len(popped) == 0 {
				time.Sleep(idleSleep)
				continue
			}
			for _, line := range popped {
				batch = p.processLine(pctx, line, batch)
			}
			if len(batch) >= limit {
				flush()
			}
		}
	}
}

func (p *Pipeline) processLine(pctx *ProcessingContext, line []byte, batch [][]byte) [][]byte {
	out, skip, err := p.chain.Load().Process(pctx, line)
	if err != nil {
		metrics.ProcessErrors.Inc()
		log.Printf("pipeline: process error: %v", err)
		return batch
	}
	if skip {
		metrics.SkippedLines.Inc()
		return batch
	}
	metrics.ProcessedLines.Inc()
	return append(batch, out)
}
