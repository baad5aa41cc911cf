package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/scout-scanner/internal/analysis"
	"github.com/zombor/scout-scanner/internal/scan"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("scout-scan")
	var (
		analyzerType = fs.StringLong("analyzer", "gemini", "Analyzer type: 'gemini' or 'ollama'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.0-flash", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		dwell        = fs.DurationLong("dwell", 3*time.Second, "Simulated scan animation length")
		timeout      = fs.DurationLong("timeout", scan.DefaultRendezvousTimeout, "How long to wait for the analysis after the dwell")
		verbose      = fs.BoolLong("verbose", "Log debug output")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SCOUT_SCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	args := fs.GetArgs()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: expected exactly one photo path\n")
		os.Exit(1)
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read photo", "path", path, "error", err)
		os.Exit(1)
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	analyzer, err := analysis.New(analysis.Config{
		Kind:        *analyzerType,
		GeminiKey:   apiKey,
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize analyzer", "error", err)
		os.Exit(1)
	}

	code := run(analyzer, path, data, *dwell, *timeout)
	analyzer.Close()
	os.Exit(code)
}

// run scans one photo and prints the report. It returns the process exit code.
func run(analyzer analysis.Analyzer, path string, data []byte, dwell, timeout time.Duration) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Terminal transitions only; the buffer covers every transition of one session
	done := make(chan scan.Transition, 8)
	listener := scan.ListenerFunc(func(t scan.Transition) {
		fmt.Fprintf(os.Stderr, "%s -> %s\n", t.From, t.To)
		if t.To == scan.Preview || t.To == scan.Idle {
			select {
			case done <- t:
			default:
			}
		}
	})

	coord := scan.NewCoordinator(analyzer, listener,
		scan.WithDwell(dwell),
		scan.WithRendezvousTimeout(timeout),
	)
	defer coord.Close()

	id, err := coord.StartScan(scan.Image{
		Name:        path,
		ContentType: analysis.DetectContentType(path, ""),
		Data:        data,
	})
	if err != nil {
		slog.Error("Failed to start scan", "error", err)
		return 1
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	case t := <-done:
		if t.To != scan.Preview {
			fmt.Fprintf(os.Stderr, "scan failed (%s): %v\n", scan.ErrorKind(t.Err), t.Err)
			return 1
		}
	}

	if err := coord.CompleteReveal(id); err != nil {
		slog.Error("Failed to complete reveal", "error", err)
		return 1
	}

	out, err := json.MarshalIndent(coord.Snapshot().Result, "", "  ")
	if err != nil {
		slog.Error("Failed to encode report", "error", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}
