package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/notas-reader/internal/app"
	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/export"
	fsingest "github.com/joseph-ayodele/notas-reader/internal/ingest"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
	"github.com/joseph-ayodele/notas-reader/internal/services/extraction"
	"github.com/joseph-ayodele/notas-reader/internal/services/ingest"
	"github.com/joseph-ayodele/notas-reader/internal/session"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

// run returns the process exit code after deferred cleanup.
func run() int {
	cfg := common.LoadConfig()

	var (
		apiKey   = flag.String("api-key", cfg.LLM.APIKey, "extraction API key (defaults to OPENAI_API_KEY)")
		provider = flag.String("provider", cfg.LLM.Provider, "extraction backend: openai | gemini")
		engine   = flag.String("engine", cfg.Converter.Engine, "conversion engine: ocr | docconv")
		model    = flag.String("model", "", "override the extraction model")
		xlsxOut  = flag.String("xlsx", "", "also write the result to this XLSX file")
		markdown = flag.Bool("markdown", false, "print the converted markdown before the answer")
		watch    = flag.Bool("watch", false, "keep watching directory arguments and extract every new file")
		logLevel = flag.String("log-level", "warn", "log level: debug | info | warn | error")
	)
	flag.Usage = func() {
		printError("usage: nfread [flags] FILE|DIR...\n\nAdds every file to one session and extracts fields from the last one.\nDirectories contribute their PDF and image files, oldest first.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	cfg.LLM.Provider = strings.ToLower(*provider)
	cfg.Converter.Engine = strings.ToLower(*engine)
	if *model != "" {
		cfg.LLM.Model = *model
		cfg.LLM.GeminiModel = *model
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return 2
	}

	logger := app.NewLogger(os.Stderr, *logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploads, dirs, err := collect(flag.Args())
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if len(uploads) == 0 && !*watch {
		printError("Error: no PDF or image files found\n")
		return 1
	}

	sessions := session.NewManager(0, logger)
	sess := sessions.Create()
	if *apiKey != "" {
		sess.SetCredentials(llm.Credentials{APIKey: *apiKey})
	}
	uploadsSvc := ingest.NewService(sessions, logger)
	runs := extraction.NewService(sessions, app.NewOrchestrator(cfg, logger), logger)
	defer runs.Shutdown(context.Background())

	failed := false
	if len(uploads) > 0 {
		if _, err := uploadsSvc.AddDocuments(ctx, sess.ID, uploads); err != nil {
			printError("Error: %v\n", err)
			return 1
		}
		failed = !runAndPrint(ctx, runs, sess.ID, *markdown)
	}

	if *watch {
		if len(dirs) == 0 {
			printError("Error: -watch needs at least one directory argument\n")
			return 2
		}
		watchDirs(ctx, dirs, uploadsSvc, runs, sess.ID, *markdown, logger)
	}

	if *xlsxOut != "" {
		data, err := export.NewService(logger).ExportRunsXLSX(context.Background(), sess.ID, sess.Runs())
		if err != nil {
			printError("Error: export failed: %v\n", err)
			return 1
		}
		if err := os.WriteFile(*xlsxOut, data, 0o644); err != nil {
			printError("Error: %v\n", err)
			return 1
		}
	}

	if failed {
		return 1
	}
	return 0
}

// collect expands arguments into uploads; directories are also returned for -watch.
func collect(args []string) ([]ingest.Upload, []string, error) {
	var uploads []ingest.Upload
	var dirs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			up, err := fsingest.ReadUpload(arg)
			if err != nil {
				return nil, nil, err
			}
			uploads = append(uploads, up)
			continue
		}
		dirs = append(dirs, arg)
		files, _, err := fsingest.CollectDirectory(arg, true)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range files {
			if f.Err != "" {
				continue
			}
			up, err := fsingest.ReadUpload(f.Path)
			if err != nil {
				return nil, nil, err
			}
			uploads = append(uploads, up)
		}
	}
	return uploads, dirs, nil
}

func watchDirs(ctx context.Context, dirs []string, uploads *ingest.Service, runs *extraction.Service, sessionID string, markdown bool, logger *slog.Logger) {
	events, errs, err := fsingest.Watch(ctx, fsingest.WatchConfig{Roots: dirs, SkipHidden: true, Debounce: 500 * time.Millisecond}, logger)
	if err != nil {
		printError("Error: %v\n", err)
		return
	}
	printError("watching %s (Ctrl-C to stop)\n", strings.Join(dirs, ", "))
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return
			}
			up, err := fsingest.ReadUpload(path)
			if err != nil {
				logger.Warn("watch.read.failed", "path", path, "error", err)
				continue
			}
			res, err := uploads.AddDocuments(ctx, sessionID, []ingest.Upload{up})
			if err != nil {
				printError("Error: %s: %v\n", up.Filename, err)
				continue
			}
			if res[0].Deduplicated {
				logger.Info("watch.skip_duplicate", "document", up.Filename)
				continue
			}
			fmt.Printf("==> %s\n", up.Filename)
			runAndPrint(ctx, runs, sessionID, markdown)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

// runAndPrint runs the latest document and prints its outcome. It reports
// whether the run did not fail.
func runAndPrint(ctx context.Context, runs *extraction.Service, sessionID string, markdown bool) bool {
	snap, err := runs.RunNow(ctx, sessionID)
	if err != nil {
		printError("Error: %v\n", err)
		return false
	}
	out := snap.Outcome

	if markdown && out.Kind == pipeline.OutcomeExtractedFields {
		fmt.Println(out.Markdown)
		fmt.Println()
	}
	switch out.Kind {
	case pipeline.OutcomeExtractedFields:
		fmt.Println(out.Fields)
	case pipeline.OutcomeConvertedOnly:
		fmt.Println(out.Markdown)
		printError("\n%s\n", out.Hint)
	default:
		if out.Markdown != "" {
			fmt.Println(out.Markdown)
		}
		printError("Error (%s): %v\n", out.ErrorKind(), out.Err)
		return false
	}
	return true
}
