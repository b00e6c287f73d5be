// Command ingest converts source documents into the corpus format read by
// docqa: one `<stem>_extracted.json` per document.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/adapters/parser"
	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
	"github.com/0xcro3dile/docqa-go/internal/logging"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// fileResult is the outcome for one input file.
type fileResult struct {
	Name   string
	Pages  int
	Chunks int
	Output string
	Err    error
}

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (default $DOCQA_CONFIG or config.yaml)")
	inDir := flag.String("in", "", "directory of source documents (overrides ingest.pdf_dir)")
	outDir := flag.String("out", "", "output directory (overrides ingest.output_dir)")
	flag.Parse()
	if *cfgPath != "" {
		os.Setenv("DOCQA_CONFIG", *cfgPath)
	}

	cfg, path, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config %s: %v\n", path, err)
		os.Exit(1)
	}
	if *inDir != "" {
		cfg.Ingest.PDFDir = *inDir
	}
	if *outDir != "" {
		cfg.Ingest.OutputDir = *outDir
	}
	logger := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := run(ctx, cfg.Ingest, logger)
	if err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
	report(os.Stdout, results)
	for _, r := range results {
		if r.Err != nil {
			os.Exit(2)
		}
	}
}

// run ingests every supported file in cfg.PDFDir. A missing or empty input
// directory is logged and yields no results.
func run(ctx context.Context, cfg config.IngestConfig, logger *slog.Logger) ([]fileResult, error) {
	registry := parser.NewRegistry(parser.NewPDFParser(), parser.TextParser{})
	uc := usecases.NewIngestUseCase(registry, loader.NewDirWriter(cfg.OutputDir), cfg.MaxChunkWords, logger)

	entries, err := os.ReadDir(cfg.PDFDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("input directory not found", "dir", cfg.PDFDir)
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", cfg.PDFDir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && registry.Supports(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		logger.Warn("no supported documents found", "dir", cfg.PDFDir, "formats", registry.SupportedFormats())
		return nil, nil
	}

	results := make([]fileResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := fileResult{Name: name}
		data, err := os.ReadFile(filepath.Join(cfg.PDFDir, name))
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		doc, out, err := uc.Ingest(ctx, name, data)
		res.Pages, res.Chunks, res.Output, res.Err = doc.TotalPages, len(doc.Chunks), out, err
		if err != nil {
			logger.Warn("document skipped", "file", name, "error", err)
		}
		results = append(results, res)
	}
	return results, nil
}

func report(w io.Writer, results []fileResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, dimStyle.Render("nothing to ingest"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Ingested %d file(s)", len(results))))
	var chunks int
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "  %s %s %s\n", failStyle.Render("✗"), r.Name, dimStyle.Render(r.Err.Error()))
		case r.Output == "":
			fmt.Fprintf(w, "  %s %s %s\n", dimStyle.Render("-"), r.Name, dimStyle.Render("no text extracted"))
		default:
			chunks += r.Chunks
			fmt.Fprintf(w, "  %s %s %s\n", okStyle.Render("✓"), r.Name,
				dimStyle.Render(fmt.Sprintf("%d pages, %d chunks → %s", r.Pages, r.Chunks, filepath.Base(r.Output))))
		}
	}
	fmt.Fprintf(w, "%d chunks written\n", chunks)
}
