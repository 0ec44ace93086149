package control

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scrubgate/pkg/config"
	"scrubgate/pkg/engine"
	"scrubgate/pkg/output"
)

func baseline() engine.RewriteOptions {
	return engine.RewriteOptions{
		IPv4Replacement:  "127.0.0.1",
		IPv6Replacement:  "::1",
		HostReplacement:  "localhost",
		TrimLeading:      true,
		OptimizeAuthUser: true,
	}
}

func TestParseManifestOverlaysBaseline(t *testing.T) {
	data := []byte(`{
		"version": "7",
		"rewrite": {"ipv4_replacement": "0.0.0.0", "redact_auth_user": true}
	}`)

	m, err := ParseManifest(data, baseline())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Version != "7" {
		t.Errorf("Version = %q", m.Version)
	}
	if m.Rewrite.IPv4Replacement != "0.0.0.0" {
		t.Errorf("IPv4Replacement = %q, want manifest value", m.Rewrite.IPv4Replacement)
	}
	if !m.Rewrite.RedactAuthUser {
		t.Error("RedactAuthUser not applied from manifest")
	}
	// Untouched keys keep the baseline.
	if m.Rewrite.IPv6Replacement != "::1" || !m.Rewrite.TrimLeading {
		t.Error("baseline values lost for keys the manifest omits")
	}
}

func TestParseManifestWithoutRewriteSection(t *testing.T) {
	m, err := ParseManifest([]byte(`{"version":"1"}`), baseline())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if *m.Rewrite != baseline() {
		t.Errorf("rewrite = %+v, want untouched baseline", *m.Rewrite)
	}
}

func TestParseManifestNullRewrite(t *testing.T) {
	// An explicit null in the rewrite slot nulls the seeded pointer
	// during decoding and must fall back to the baseline, or the chain
	// build below dereferences nil.
	m, err := ParseManifest([]byte(`{"version":"3","rewrite": null}`), baseline())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Rewrite == nil {
		t.Fatal("rewrite options nil after explicit null")
	}
	if *m.Rewrite != baseline() {
		t.Errorf("rewrite = %+v, want baseline", *m.Rewrite)
	}

	chain := BuildChain(m)
	if got := chain.Describe(); got != "anonymize" {
		t.Fatalf("Describe = %q", got)
	}
	pctx := &engine.ProcessingContext{Context: context.Background()}
	out, skip, err := chain.Process(pctx, []byte("8.8.8.8 GET /\n"))
	if err != nil || skip {
		t.Fatalf("skip=%v err=%v", skip, err)
	}
	if string(out) != "127.0.0.1 GET /\n" {
		t.Errorf("got %q", out)
	}
}

func TestParseManifestBadJSON(t *testing.T) {
	if _, err := ParseManifest([]byte(`{"rewrite":`), baseline()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestBuildChainComposition(t *testing.T) {
	data := []byte(`{
		"version": "2",
		"filters": [{"name": "probes", "patterns": ["/healthz"]}],
		"redactions": [{"name": "tenant", "target": "acme-corp", "mask": "[masked]"}]
	}`)
	m, err := ParseManifest(data, baseline())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	chain := BuildChain(m)
	if got := chain.Describe(); got != "probes->tenant->anonymize" {
		t.Fatalf("Describe = %q", got)
	}

	pctx := &engine.ProcessingContext{Context: context.Background()}

	_, skip, err := chain.Process(pctx, []byte("8.8.8.8 GET /healthz 200\n"))
	if err != nil || !skip {
		t.Errorf("probe line: skip=%v err=%v, want skipped", skip, err)
	}

	out, skip, err := chain.Process(pctx, []byte("8.8.8.8 acme-corp hit acme-corp\n"))
	if err != nil || skip {
		t.Fatalf("tenant line: skip=%v err=%v", skip, err)
	}
	want := "127.0.0.1 [masked] hit [masked]\n"
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestBuildChainKeepFilter(t *testing.T) {
	data := []byte(`{"filters": [{"mode": "keep", "patterns": ["GET"]}]}`)
	m, err := ParseManifest(data, baseline())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	chain := BuildChain(m)
	pctx := &engine.ProcessingContext{Context: context.Background()}

	if _, skip, _ := chain.Process(pctx, []byte("8.8.8.8 POST /upload\n")); !skip {
		t.Error("non-matching line survived a keep filter")
	}
	out, skip, _ := chain.Process(pctx, []byte("8.8.8.8 GET /\n"))
	if skip || string(out) != "127.0.0.1 GET /\n" {
		t.Errorf("matching line: got %q skip=%v", out, skip)
	}
}

func TestBuildChainFieldFilter(t *testing.T) {
	data := []byte(`{
		"rewrite": {"rewrite_json": true},
		"field_filters": [
			{"name": "no-probes", "field": "path", "op": "regex", "value": "^/health"},
			{"field": "status", "op": "startswith", "value": "5"}
		]
	}`)
	m, err := ParseManifest(data, baseline())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	// The unbuildable second rule is skipped, the sound one still runs.
	chain := BuildChain(m)
	if got := chain.Describe(); got != "no-probes->anonymize" {
		t.Fatalf("Describe = %q", got)
	}

	pctx := &engine.ProcessingContext{Context: context.Background()}

	if _, skip, _ := chain.Process(pctx, []byte(`{"remote_addr": "8.8.8.8", "path": "/health"}`+"\n")); !skip {
		t.Error("health-check record survived the field filter")
	}

	out, skip, err := chain.Process(pctx, []byte(`{"remote_addr": "8.8.8.8", "path": "/cart"}`+"\n"))
	if err != nil || skip {
		t.Fatalf("real traffic: skip=%v err=%v", skip, err)
	}
	want := `{"remote_addr": "127.0.0.1", "path": "/cart"}` + "\n"
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestBuildChainDefaultsToAnonymizeOnly(t *testing.T) {
	m, err := ParseManifest([]byte(`{}`), baseline())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if got := BuildChain(m).Describe(); got != "anonymize" {
		t.Errorf("Describe = %q", got)
	}
}

func TestBuildOutputs(t *testing.T) {
	t.Run("empty set falls back to console", func(t *testing.T) {
		m, _ := ParseManifest([]byte(`{}`), baseline())
		out, files := BuildOutputs(m)
		if _, ok := out.(*output.ConsoleOutput); !ok {
			t.Errorf("got %T, want console fallback", out)
		}
		if len(files) != 0 {
			t.Errorf("unexpected file sinks: %d", len(files))
		}
	})

	t.Run("file and console fan out", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.log")
		m, _ := ParseManifest([]byte(`{
			"outputs": [
				{"type": "console"},
				{"type": "file", "path": "`+path+`"}
			]
		}`), baseline())
		out, files := BuildOutputs(m)
		if _, ok := out.(*output.FanOutOutput); !ok {
			t.Errorf("got %T, want fan-out", out)
		}
		if len(files) != 1 {
			t.Fatalf("file sinks = %d, want 1", len(files))
		}
		files[0].Close()
	})

	t.Run("invalid targets ignored", func(t *testing.T) {
		m, _ := ParseManifest([]byte(`{
			"outputs": [
				{"type": "file"},
				{"type": "http"},
				{"type": "carrier-pigeon"}
			]
		}`), baseline())
		out, _ := BuildOutputs(m)
		if _, ok := out.(*output.ConsoleOutput); !ok {
			t.Errorf("got %T, want console fallback when nothing parses", out)
		}
	})
}

func TestWatcherFileSinkRotation(t *testing.T) {
	dir := t.TempDir()
	open := func(name string) *output.FileOutput {
		t.Helper()
		f, err := output.NewFileOutput(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("NewFileOutput: %v", err)
		}
		return f
	}

	w := NewWatcher(config.RedisConfig{}, baseline(), nil)

	a := open("a.log")
	w.rotateFiles([]*output.FileOutput{a})
	b := open("b.log")
	w.rotateFiles([]*output.FileOutput{b})

	// One reload after being superseded, a still accepts a straggler
	// batch from a worker that loaded the previous output set.
	if err := a.WriteBatch([][]byte{[]byte("late batch\n")}); err != nil {
		t.Fatalf("write to superseded sink: %v", err)
	}
	if err := a.Flush(); err != nil {
		t.Fatalf("flush superseded sink: %v", err)
	}

	w.rotateFiles(nil)

	// Two reloads out it is closed.
	_ = a.WriteBatch([][]byte{[]byte("x\n")})
	if err := a.Flush(); err == nil {
		t.Error("sink still open two reloads after being superseded")
	}

	got, err := os.ReadFile(filepath.Join(dir, "a.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "late batch\n" {
		t.Errorf("a.log = %q, want the late batch only", got)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_ = b.WriteBatch([][]byte{[]byte("x\n")})
	if err := b.Flush(); err == nil {
		t.Error("Close left the live sink open")
	}
}
