// Package control applies runtime configuration pushed through Redis.
// A manifest lives under a well-known key; publishing any message on the
// update channel makes every scrubgate instance re-read and apply it
// without restarting or dropping in-flight lines.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"scrubgate/pkg/config"
	"scrubgate/pkg/engine"
	"scrubgate/pkg/metrics"
	"scrubgate/pkg/output"
)

// Manifest is the control-plane document. Every section is optional: the
// rewrite block partially overrides the instance baseline, filters and
// redactions replace the current extra stages, outputs replace the sink
// set, and a missing batch size resets to the default.
type Manifest struct {
	Version      string                 `json:"version"`
	Rewrite      *engine.RewriteOptions `json:"rewrite,omitempty"`
	Filters      []FilterRule           `json:"filters,omitempty"`
	FieldFilters []FieldFilterRule      `json:"field_filters,omitempty"`
	Redactions   []RedactionRule        `json:"redactions,omitempty"`
	Outputs      []OutputTarget         `json:"outputs,omitempty"`
	BatchSize    int                    `json:"batch_size,omitempty"`
}

// FilterRule drops or keeps lines by substring before the rewrite stage.
type FilterRule struct {
	Name     string   `json:"name"`
	Mode     string   `json:"mode"` // "drop" (default) or "keep"
	Patterns []string `json:"patterns"`
}

// FieldFilterRule drops or keeps JSON records by one field of the body.
// Field resolves well-known access-log names across the common key
// spellings; path addresses one exact slash-separated location instead.
type FieldFilterRule struct {
	Name  string `json:"name"`
	Field string `json:"field,omitempty"`
	Path  string `json:"path,omitempty"`
	Op    string `json:"op,omitempty"` // equals (default), contains, regex
	Value string `json:"value"`
	Mode  string `json:"mode,omitempty"` // "drop" (default) or "keep"
}

// RedactionRule masks a fixed byte string anywhere in the line.
type RedactionRule struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Mask   string `json:"mask"`
}

// OutputTarget names one sink.
type OutputTarget struct {
	Type    string            `json:"type"` // console | file | http
	Path    string            `json:"path,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ParseManifest decodes data with baseline as the starting rewrite state:
// keys the manifest sets win, keys it omits keep the baseline value. An
// explicit `"rewrite": null` counts as omitted.
func ParseManifest(data []byte, baseline engine.RewriteOptions) (*Manifest, error) {
	m := &Manifest{Rewrite: &baseline}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Rewrite == nil {
		// A JSON null overwrites the seeded pointer.
		m.Rewrite = &baseline
	}
	return m, nil
}

// BuildChain assembles the processor chain a manifest describes. Filters
// run first so vetoed lines cost nothing, substring before field rules,
// then redactions, then the address rewrite as the final stage. A rule
// that fails to build is logged and skipped rather than sinking the
// whole manifest.
func BuildChain(m *Manifest) *engine.ProcessorChain {
	var procs []engine.Processor
	for i, f := range m.Filters {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("filter-%d", i)
		}
		if f.Mode == "keep" {
			procs = append(procs, engine.NewKeepFilter(name, f.Patterns))
		} else {
			procs = append(procs, engine.NewDropFilter(name, f.Patterns))
		}
	}
	for i, f := range m.FieldFilters {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("field-filter-%d", i)
		}
		proc, err := engine.NewFieldFilterProcessor(engine.FieldFilterConfig{
			Name:  name,
			Field: f.Field,
			Path:  f.Path,
			Op:    engine.FieldOp(f.Op),
			Value: f.Value,
			Keep:  f.Mode == "keep",
		})
		if err != nil {
			log.Printf("control: %v, rule skipped", err)
			continue
		}
		procs = append(procs, proc)
	}
	for i, r := range m.Redactions {
		if r.Target == "" {
			continue
		}
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("redact-%d", i)
		}
		procs = append(procs, engine.NewRedactionProcessor(name, r.Target, r.Mask))
	}
	procs = append(procs, engine.NewAnonymizer(*m.Rewrite))
	return engine.NewProcessorChain(procs...)
}

// BuildOutputs assembles the manifest's sink set, defaulting to the
// console when none parses. File sinks are returned separately so the
// caller can manage their lifetime.
func BuildOutputs(m *Manifest) (output.Output, []*output.FileOutput) {
	var outs []output.Output
	var files []*output.FileOutput
	for _, target := range m.Outputs {
		switch target.Type {
		case "console":
			outs = append(outs, output.NewConsoleOutput())
		case "file":
			if target.Path == "" {
				log.Println("control: file output without path ignored")
				continue
			}
			f, err := output.NewFileOutput(target.Path)
			if err != nil {
				log.Printf("control: %v", err)
				continue
			}
			outs = append(outs, f)
			files = append(files, f)
		case "http":
			if target.URL == "" {
				log.Println("control: http output without url ignored")
				continue
			}
			outs = append(outs, output.NewHTTPOutput(target.URL, target.Headers))
		default:
			log.Printf("control: unknown output type %q ignored", target.Type)
		}
	}
	if len(outs) == 0 {
		return output.NewConsoleOutput(), nil
	}
	return output.NewFanOutOutput(outs...), files
}

// Watcher keeps one pipeline in sync with the Redis manifest.
type Watcher struct {
	client   *redis.Client
	pipeline *engine.Pipeline
	baseline engine.RewriteOptions
	channel  string
	key      string

	// File sinks from the live manifest and the one before it. A
	// superseded sink stays open for one more reload: a worker may still
	// hold it for the rest of its write cycle, and every completed cycle
	// ends in a flush, so by the next reload it is idle and empty.
	files   []*output.FileOutput
	retired []*output.FileOutput
}

func NewWatcher(cfg config.RedisConfig, baseline engine.RewriteOptions, pipeline *engine.Pipeline) *Watcher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Watcher{
		client:   client,
		pipeline: pipeline,
		baseline: baseline,
		channel:  cfg.Channel,
		key:      cfg.Key,
	}
}

// Start loads the current manifest once, then applies a fresh copy every
// time a message lands on the update channel. Returns after spawning the
// subscription loop.
func (w *Watcher) Start(ctx context.Context) {
	log.Printf("control: watching %s (key %s)", w.channel, w.key)

	w.reload(ctx)

	pubsub := w.client.Subscribe(ctx, w.channel)
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				log.Printf("control: update signal: %s", msg.Payload)
				w.reload(ctx)
			}
		}
	}()
}

// Close releases the Redis connection and the remaining file sinks.
func (w *Watcher) Close() error {
	for _, f := range w.retired {
		f.Close()
	}
	for _, f := range w.files {
		f.Close()
	}
	return w.client.Close()
}

// rotateFiles installs the sinks of a freshly applied manifest and closes
// the generation retired at the previous reload, which no writer can
// still hold.
func (w *Watcher) rotateFiles(next []*output.FileOutput) {
	for _, f := range w.retired {
		f.Close()
	}
	w.retired = w.files
	w.files = next
}

func (w *Watcher) reload(ctx context.Context) {
	val, err := w.client.Get(ctx, w.key).Result()
	if err == redis.Nil {
		log.Println("control: no manifest in redis, keeping current state")
		return
	} else if err != nil {
		log.Printf("control: fetch manifest: %v", err)
		return
	}

	m, err := ParseManifest([]byte(val), w.baseline)
	if err != nil {
		log.Printf("control: %v", err)
		return
	}

	w.pipeline.UpdateChain(BuildChain(m))

	out, files := BuildOutputs(m)
	w.pipeline.UpdateOutput(out)
	w.rotateFiles(files)

	w.pipeline.UpdateBatchSize(m.BatchSize)

	metrics.ConfigReloads.Inc()
	log.Printf("control: applied manifest version %q", m.Version)
}
