package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scrubgate/pkg/config"
	"scrubgate/pkg/control"
	"scrubgate/pkg/engine"
	"scrubgate/pkg/ingest"
	"scrubgate/pkg/metrics"
	"scrubgate/pkg/output"
)

var (
	configPath string
	outputPath string
	listen     bool
	tcpAddr    string
	udpAddr    string
	httpAddr   string
	redisAddr  string

	ipv4Repl    string
	ipv6Repl    string
	hostRepl    string
	skipInvalid bool
	authUser    bool
	noTrim      bool
	noOptimize  bool
	thorough    bool
	jsonMode    bool
	flushLine   bool
)

func init() {
	defaults := config.DefaultConfig()

	flag.StringVar(&configPath, "config", "", "load settings from a TOML `file` before applying flags")
	flag.StringVar(&outputPath, "output", "", "append output to `file` instead of stdout")
	flag.StringVar(&outputPath, "o", "", "shorthand for -output")
	flag.BoolVar(&listen, "listen", false, "run as a TCP/UDP service instead of filtering files")
	flag.StringVar(&tcpAddr, "tcp", defaults.Server.TCPAddr, "TCP listen `address` in -listen mode")
	flag.StringVar(&udpAddr, "udp", defaults.Server.UDPAddr, "UDP listen `address` in -listen mode")
	flag.StringVar(&httpAddr, "http", defaults.Server.HTTPAddr, "metrics listen `address` in -listen mode")
	flag.StringVar(&redisAddr, "redis", defaults.Redis.Address, "Redis `address` for the control plane")

	flag.StringVar(&ipv4Repl, "ipv4-replacement", defaults.Rewrite.IPv4Replacement, "replacement `string` for IPv4 addresses")
	flag.StringVar(&ipv4Repl, "4", defaults.Rewrite.IPv4Replacement, "shorthand for -ipv4-replacement")
	flag.StringVar(&ipv6Repl, "ipv6-replacement", defaults.Rewrite.IPv6Replacement, "replacement `string` for IPv6 addresses")
	flag.StringVar(&ipv6Repl, "6", defaults.Rewrite.IPv6Replacement, "shorthand for -ipv6-replacement")
	flag.StringVar(&hostRepl, "host-replacement", defaults.Rewrite.HostReplacement, "replacement `string` for hostnames")

	flag.BoolVar(&skipInvalid, "skip-invalid", false, "drop lines without a space-delimited first token")
	flag.BoolVar(&skipInvalid, "s", false, "shorthand for -skip-invalid")
	flag.BoolVar(&authUser, "authuser", false, "also replace the authuser field with \"-\"")
	flag.BoolVar(&authUser, "a", false, "shorthand for -authuser")
	flag.BoolVar(&noTrim, "notrim", false, "keep leading whitespace instead of trimming it")
	flag.BoolVar(&noTrim, "n", false, "shorthand for -notrim")
	flag.BoolVar(&noOptimize, "no-optimize", false, "disable the already-clean authuser shortcut")
	flag.BoolVar(&thorough, "thorough", false, "replace every further occurrence of the address too")
	flag.BoolVar(&thorough, "t", false, "shorthand for -thorough")
	flag.BoolVar(&jsonMode, "json", false, "rewrite address fields inside JSON records")
	flag.BoolVar(&jsonMode, "j", false, "shorthand for -json")
	flag.BoolVar(&flushLine, "flush-line", false, "flush the output after every line")
	flag.BoolVar(&flushLine, "f", false, "shorthand for -flush-line")
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "Usage: scrubgate [OPTION]... [INPUT]...\n\n")
	fmt.Fprintf(w, "Replace the leading address of every log line with a fixed string.\n")
	fmt.Fprintf(w, "Reads standard input when no INPUT files are given. With -listen,\n")
	fmt.Fprintf(w, "runs as a network service driven by the config file instead.\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scrubgate:", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	if listen {
		if err := runServer(cfg); err != nil {
			log.Fatalf("scrubgate: %v", err)
		}
		return
	}

	if err := runBatch(context.Background(), cfg, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "scrubgate:", err)
		os.Exit(1)
	}
}

// applyFlags overlays flags the user actually set onto cfg. Flag defaults
// never clobber config-file values; only explicit flags win.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "4", "ipv4-replacement":
			cfg.Rewrite.IPv4Replacement = ipv4Repl
		case "6", "ipv6-replacement":
			cfg.Rewrite.IPv6Replacement = ipv6Repl
		case "host-replacement":
			cfg.Rewrite.HostReplacement = hostRepl
		case "s", "skip-invalid":
			cfg.Rewrite.SkipUnmatched = skipInvalid
		case "a", "authuser":
			cfg.Rewrite.RedactAuthUser = authUser
		case "n", "notrim":
			cfg.Rewrite.TrimLeading = !noTrim
		case "no-optimize":
			cfg.Rewrite.OptimizeAuthUser = !noOptimize
		case "t", "thorough":
			cfg.Rewrite.Thorough = thorough
		case "j", "json":
			cfg.Rewrite.RewriteJSON = jsonMode
		case "f", "flush-line":
			cfg.Rewrite.FlushPerLine = flushLine
		case "tcp":
			cfg.Server.TCPAddr = tcpAddr
		case "udp":
			cfg.Server.UDPAddr = udpAddr
		case "http":
			cfg.Server.HTTPAddr = httpAddr
		case "redis":
			cfg.Redis.Address = redisAddr
		}
	})
}

// runBatch scrubs the named files, or stdin when none are given, into a
// single shared sink.
func runBatch(ctx context.Context, cfg *config.Config, inputs []string) error {
	var sink output.Output
	if outputPath != "" {
		f, err := output.NewFileOutput(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		sink = f
	} else {
		sink = output.NewConsoleOutput()
	}

	chain := engine.NewProcessorChain(engine.NewAnonymizer(cfg.Rewrite))

	if len(inputs) == 0 {
		return engine.Stream(ctx, chain, os.Stdin, sink, cfg.Rewrite.FlushPerLine)
	}
	for _, path := range inputs {
		if err := scrubFile(ctx, chain, path, sink, cfg.Rewrite.FlushPerLine); err != nil {
			return err
		}
	}
	return nil
}

func scrubFile(ctx context.Context, chain *engine.ProcessorChain, path string, sink output.Output, flushPerLine bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open input %s: %w", path, err)
	}
	defer f.Close()
	if err := engine.Stream(ctx, chain, f, sink, flushPerLine); err != nil {
		return fmt.Errorf("scrub %s: %w", path, err)
	}
	return nil
}

// runServer wires the ring buffer, pipeline, ingestors, metrics endpoint
// and the Redis control watcher, then blocks until SIGINT or SIGTERM.
func runServer(cfg *config.Config) error {
	log.Println("scrubgate: starting in listen mode")

	buffer, err := engine.NewRingBuffer(cfg.Server.BufferSize)
	if err != nil {
		return fmt.Errorf("create buffer: %w", err)
	}

	chain := engine.NewProcessorChain(engine.NewAnonymizer(cfg.Rewrite))
	pipeline := engine.NewPipeline(buffer, chain, output.NewConsoleOutput())

	tcpIn := ingest.NewTCPIngestor(cfg.Server.TCPAddr, buffer)
	udpIn := ingest.NewUDPIngestor(cfg.Server.UDPAddr, buffer)
	if err := tcpIn.Listen(); err != nil {
		return err
	}
	if err := udpIn.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline.Start(ctx)

	watcher := control.NewWatcher(cfg.Redis, cfg.Rewrite, pipeline)
	watcher.Start(ctx)
	defer watcher.Close()

	go func() {
		if err := tcpIn.Start(ctx); err != nil {
			log.Fatalf("tcp ingest: %v", err)
		}
	}()
	go func() {
		if err := udpIn.Start(ctx); err != nil {
			log.Fatalf("udp ingest: %v", err)
		}
	}()

	metrics.RegisterQueueDepth(func() float64 {
		return float64(buffer.Usage())
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()

	log.Printf("scrubgate: tcp %s udp %s metrics %s", tcpIn.Addr(), udpIn.Addr(), cfg.Server.HTTPAddr)

	<-ctx.Done()
	log.Println("scrubgate: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	// Workers drain the ring after cancellation; give them a moment to
	// flush the last batch before the process exits.
	time.Sleep(1 * time.Second)
	log.Println("scrubgate: bye")
	return nil
}
