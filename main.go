package main

import (
	"bufio"
	"context"
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"time"

	"github.com/launchdarkly/test-engine/framework"
	"github.com/launchdarkly/test-engine/framework/discovery"
	"github.com/launchdarkly/test-engine/framework/engine"
	"github.com/launchdarkly/test-engine/framework/reporting"
	"github.com/launchdarkly/test-engine/framework/status"
	"github.com/launchdarkly/test-engine/framework/syncctx"
	_ "github.com/launchdarkly/test-engine/samples" // registers the sample suites
)

const statusShutdownTimeout = time.Second * 5

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	fmt.Printf("test-engine v%s\n", strings.TrimSpace(versionString))

	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	results, err := run(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !results.OK() {
		os.Exit(1)
	}
}

func run(params commandParams) (*reporting.Results, error) {
	if params.skipFile != "" {
		if err := loadSuppressions(params.skipFile, &params.filters); err != nil {
			return nil, err
		}
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	modules := discovery.Default().All()
	if params.manifestFile != "" {
		if err := discovery.LoadManifest(params.manifestFile, modules); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	options := []engine.ExecutorOption{
		engine.WithDebugLogger(mainDebugLogger),
		engine.WithConcurrent(params.concurrent),
		engine.WithFilters(params.filters),
	}
	if params.workers > 0 {
		options = append(options, engine.WithWorkerCount(params.workers))
	}
	if params.serializeEvents {
		loop := syncctx.NewEventLoop()
		go loop.Run(ctx)
		defer loop.Close()
		ctx = syncctx.WithDispatcher(ctx, loop)
		options = append(options, engine.WithMarshaling())
	}

	executor, err := engine.NewExecutor(ctx, options...)
	if err != nil {
		return nil, err
	}

	collector := reporting.NewCollector()
	executor.Subscribe(collector)
	executor.Subscribe(&reporting.ConsoleReporter{
		Out:                  os.Stdout,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	})
	var junit *reporting.JUnitReporter
	if params.jUnitFile != "" {
		junit = reporting.NewJUnitReporter(params.jUnitFile, params.filters, params.groups)
		executor.Subscribe(junit)
	}

	if params.statusPort != 0 {
		tracker, metrics := status.NewTracker(), status.NewMetrics()
		executor.Subscribe(tracker)
		executor.Subscribe(metrics)
		statusServer, err := status.NewServer(executor, tracker,
			status.WithMetrics(metrics),
			status.WithLogger(mainDebugLogger),
		)
		if err != nil {
			return nil, err
		}
		server, _, err := statusServer.Start(params.statusPort)
		if err != nil {
			return nil, fmt.Errorf("cannot start status server: %w", err)
		}
		fmt.Printf("Serving run status on port %d\n", params.statusPort)
		defer func() { _ = status.Shutdown(server, statusShutdownTimeout) }()
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go cancelOnInterrupt(ctx, interrupts, executor.Cancel)

	engine.PrintFilterDescription(os.Stdout, params.filters, params.groups)

	runErr := executor.ExecuteSource(modules, params.groups...)
	results := collector.Results()

	fmt.Println()
	reporting.WriteSummaryTable(os.Stdout, results)
	reporting.PrintResults(results)

	if junit != nil {
		if err := junit.EndLog(); err != nil {
			return nil, fmt.Errorf("error writing log: %v", err)
		}
	}

	if params.recordFailures != "" {
		f, err := os.Create(params.recordFailures)
		if err != nil {
			return nil, fmt.Errorf("cannot create suppression file: %v", err)
		}
		writeFailures(f, results)
		_ = f.Close()
	}

	if runErr != nil {
		return nil, fmt.Errorf("test run failed: %w", runErr)
	}
	return &results, nil
}

// cancelOnInterrupt calls cancel for each signal received, and returns once ctx is done.
func cancelOnInterrupt(ctx context.Context, signals <-chan os.Signal, cancel func()) {
	for {
		select {
		case <-signals:
			fmt.Println("Interrupted; the run will stop after the current test")
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// writeFailures writes one "Type/Method" line per failed test, the format loadSuppressions reads.
func writeFailures(w io.Writer, results reporting.Results) {
	for _, test := range results.Failures {
		fmt.Fprintf(w, "%s/%s\n", test.Test.TypeName, test.Test.MethodName)
	}
}

func loadSuppressions(path string, filters *engine.RegexFilters) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %v", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Ignore blank lines
		if line == "" {
			continue
		}
		parts := strings.Split(line, "/")
		for i, part := range parts {
			parts[i] = "^" + regexp.QuoteMeta(part) + "$"
		}
		if err := filters.MustNotMatch.Set(strings.Join(parts, "/")); err != nil {
			return fmt.Errorf("cannot parse suppression: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %v", err)
	}
	return nil
}
