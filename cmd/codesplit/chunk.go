package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/spetr/codesplit/builtin/grammar/treesitter"
	"github.com/spetr/codesplit/internal/chunking"
	"github.com/spetr/codesplit/internal/watch"
	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [paths...]",
	Short: "Split files into chunks",
	Long: `Split files into structure-aware chunks and print them.

Directories are walked using the watch include/exclude patterns and the
root .gitignore. With no arguments, or with "-", the text is read from stdin.

Examples:
  codesplit chunk main.go
  codesplit chunk --max-chars 800 --format json ./internal
  cat notes.txt | codesplit chunk --strategy simple --window 20 --overlap 5`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := chunkFlags{}
		opts.language, _ = cmd.Flags().GetString("language")
		opts.strategy, _ = cmd.Flags().GetString("strategy")
		opts.maxChars, _ = cmd.Flags().GetInt("max-chars")
		opts.coalesce, _ = cmd.Flags().GetInt("coalesce")
		opts.window, _ = cmd.Flags().GetInt("window")
		opts.overlap, _ = cmd.Flags().GetInt("overlap")
		opts.format, _ = cmd.Flags().GetString("format")
		opts.content, _ = cmd.Flags().GetBool("content")
		opts.workers, _ = cmd.Flags().GetInt("workers")
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			color.NoColor = true
		}
		runChunk(args, opts)
	},
}

type chunkFlags struct {
	language string
	strategy string
	maxChars int
	coalesce int
	window   int
	overlap  int
	format   string
	content  bool
	workers  int
}

// input is one document to chunk. An empty path means stdin.
type input struct {
	path    string
	display string
}

func runChunk(args []string, flags chunkFlags) {
	if flags.strategy == "" {
		flags.strategy = cfg.Chunking.Strategy
	}
	switch flags.strategy {
	case "auto", "structural", "simple":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown strategy %q (auto, structural, simple)\n", flags.strategy)
		os.Exit(1)
	}
	switch flags.format {
	case "text", "json", "yaml":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (text, json, yaml)\n", flags.format)
		os.Exit(1)
	}

	if flags.language != "" && !provider.DefaultRegistry.HasGrammar(flags.language) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", unknownGrammar(flags.language))
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	inputs, err := collectInputs(ctx, args)
	if err != nil {
		slog.Error("failed to collect inputs", "error", err)
		os.Exit(1)
	}

	chunk, err := newChunkFunc(flags)
	if err != nil {
		slog.Error("failed to create chunker", "error", err)
		os.Exit(1)
	}

	workers := flags.workers
	if workers <= 0 {
		workers = cfg.Chunking.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	reports := make([]chunking.Report, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		g.Go(func() error {
			content, err := readInput(in)
			if err != nil {
				return err
			}
			file := &types.SourceFile{Path: in.display, Content: content}
			res, err := chunk(gctx, file)
			if err != nil {
				return fmt.Errorf("%s: %w", in.display, err)
			}
			res.Path = in.display
			reports[i] = chunking.NewReport(res, content, flags.content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("chunking failed", "error", err)
		os.Exit(1)
	}

	if err := writeReports(os.Stdout, reports, flags.format); err != nil {
		slog.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}

// collectInputs expands args into files. Directories are scanned with the
// configured watch patterns.
func collectInputs(ctx context.Context, args []string) ([]input, error) {
	if len(args) == 0 {
		return []input{{path: "", display: "-"}}, nil
	}

	var inputs []input
	for _, arg := range args {
		if arg == "-" {
			inputs = append(inputs, input{path: "", display: "-"})
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			inputs = append(inputs, input{path: arg, display: filepath.ToSlash(arg)})
			continue
		}

		root, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		files, err := watch.Scan(ctx, watch.NewMatcher(root, cfg.Watch.Include, cfg.Watch.Exclude))
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", arg, err)
		}
		for _, f := range files {
			rel, err := filepath.Rel(root, f)
			if err != nil {
				rel = f
			}
			inputs = append(inputs, input{path: f, display: filepath.ToSlash(filepath.Join(arg, rel))})
		}
	}
	return inputs, nil
}

func readInput(in input) ([]byte, error) {
	if in.path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(in.path)
}

type chunkFunc func(ctx context.Context, file *types.SourceFile) (*chunking.Result, error)

// newChunkFunc returns the chunking entry point for the selected strategy.
// "auto" selects a grammar per document and falls back to line windows;
// "structural" and "simple" force one strategy through the registry.
func newChunkFunc(flags chunkFlags) (chunkFunc, error) {
	if flags.strategy == "auto" {
		svc, err := newService()
		if err != nil {
			return nil, err
		}
		opts := chunking.Options{
			Grammar:  flags.language,
			MaxChars: flags.maxChars,
			Coalesce: flags.coalesce,
			Window:   flags.window,
			Overlap:  flags.overlap,
		}
		return func(ctx context.Context, file *types.SourceFile) (*chunking.Result, error) {
			return svc.ChunkFile(ctx, file, opts)
		}, nil
	}

	base := provider.ChunkingConfig{
		Strategy:        flags.strategy,
		MaxChars:        pick(flags.maxChars, cfg.Chunking.MaxChars),
		Coalesce:        pick(flags.coalesce, cfg.Chunking.CoalesceThreshold),
		FallbackWindow:  pick(flags.window, cfg.Chunking.FallbackWindow),
		FallbackOverlap: pick(flags.overlap, cfg.Chunking.FallbackOverlap),
	}

	return func(ctx context.Context, file *types.SourceFile) (*chunking.Result, error) {
		chunkCfg := base
		res := &chunking.Result{Strategy: types.StrategyFallback}
		if flags.strategy == "structural" {
			chunkCfg.Grammar = flags.language
			if chunkCfg.Grammar == "" {
				chunkCfg.Grammar = treesitter.DetectLanguage(file.Path)
			}
			if chunkCfg.Grammar == "" {
				return nil, fmt.Errorf("%w: no grammar for %s, use --language", types.ErrInvalidConfig, file.Path)
			}
			name, _ := provider.DefaultRegistry.Resolve(chunkCfg.Grammar)
			res = &chunking.Result{Strategy: types.StrategyStructural, Grammar: name}
		}

		strategy, err := provider.DefaultRegistry.CreateChunking(flags.strategy, chunkCfg)
		if err != nil {
			return nil, err
		}
		chunks, err := strategy.Chunk(ctx, file)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			res.Strategy, res.Grammar = "", ""
		}
		res.Chunks = chunks
		return res, nil
	}, nil
}

func pick(flag, fallback int) int {
	if flag != 0 {
		return flag
	}
	return fallback
}

// writeReports prints one report as an object and several as a list.
func writeReports(w io.Writer, reports []chunking.Report, format string) error {
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		writeText(w, reports)
		return nil
	}
}

// styles holds color formatters for text output.
type styles struct {
	heading *color.Color
	chunk   *color.Color
	meta    *color.Color
}

func newStyles() *styles {
	return &styles{
		heading: color.New(color.Bold, color.FgHiWhite),
		chunk:   color.New(color.FgHiGreen),
		meta:    color.New(color.FgHiBlue),
	}
}

func writeText(w io.Writer, reports []chunking.Report) {
	s := newStyles()
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}

		strategy := string(r.Strategy)
		if r.Grammar != "" {
			strategy += ", " + r.Grammar
		}
		if strategy == "" {
			strategy = "empty"
		}
		s.heading.Fprintf(w, "%s", r.Path)
		s.meta.Fprintf(w, " (%s, %d bytes, %d chunks)\n", strategy, r.Bytes, len(r.Chunks))

		for _, c := range r.Chunks {
			s.chunk.Fprintf(w, "Chunk %d: Lines %d-%d", c.Index, c.StartLine, c.EndLine)
			s.meta.Fprintf(w, "  [%d:%d] %s\n", c.Start, c.End, c.ID)
			if c.Content != "" {
				fmt.Fprintln(w, c.Content)
				fmt.Fprintln(w, "=====")
			}
		}
	}
}
