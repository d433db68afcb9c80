// Package chunking is the public entry point that turns a document into chunks.
//
// A document is parsed with the first grammar that accepts it and split along
// its syntax tree. When no grammar accepts it, the document is cut into
// overlapping line windows instead.
package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spetr/codesplit/builtin/chunking/simple"
	"github.com/spetr/codesplit/builtin/chunking/structural"
	"github.com/spetr/codesplit/internal/selector"
	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

// Options override the service defaults for a single call.
// Zero values mean "use the service default"; a negative Coalesce disables
// the size test.
type Options struct {
	Grammar  string // grammar hint, tried before the candidates
	MaxChars int
	Coalesce int
	Window   int
	Overlap  int
}

// Result is the outcome of chunking one document.
type Result struct {
	Path     string         `json:"path,omitempty" yaml:"path,omitempty"`
	Strategy types.Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Grammar  string         `json:"grammar,omitempty" yaml:"grammar,omitempty"`
	Chunks   []types.Chunk  `json:"chunks" yaml:"chunks"`
}

// Config contains service configuration.
type Config struct {
	Lookup     provider.GrammarLookup
	Detector   provider.LanguageDetector // optional, used by ChunkFile
	Candidates []string                  // empty means Lookup.Candidates()
	Strict     bool

	MaxChars int
	Coalesce int
	Window   int
	Overlap  int

	Logger *slog.Logger
}

// Service chunks documents. It holds no per-call state and is safe for
// concurrent use.
type Service struct {
	lookup     provider.GrammarLookup
	detector   provider.LanguageDetector
	candidates []string
	selector   *selector.Selector
	defaults   Options
	logger     *slog.Logger
}

// New creates a new chunking service.
func New(cfg Config) (*Service, error) {
	if cfg.Lookup == nil {
		return nil, fmt.Errorf("%w: chunking service requires a grammar lookup", types.ErrInvalidConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = structural.DefaultMaxChars
	}
	if cfg.Coalesce == 0 {
		cfg.Coalesce = structural.DefaultCoalesce
	}
	if cfg.Window == 0 {
		cfg.Window = simple.DefaultWindow
		if cfg.Overlap == 0 {
			cfg.Overlap = simple.DefaultOverlap
		}
	}
	if cfg.MaxChars < 0 {
		return nil, fmt.Errorf("%w: max_chars must be positive, got %d", types.ErrInvalidConfig, cfg.MaxChars)
	}
	if err := (simple.Config{Window: cfg.Window, Overlap: cfg.Overlap}).Validate(); err != nil {
		return nil, err
	}

	return &Service{
		lookup:     cfg.Lookup,
		detector:   cfg.Detector,
		candidates: slices.Clone(cfg.Candidates),
		selector: selector.New(selector.Config{
			Lookup: cfg.Lookup,
			Strict: cfg.Strict,
			Logger: cfg.Logger,
		}),
		defaults: Options{
			MaxChars: cfg.MaxChars,
			Coalesce: cfg.Coalesce,
			Window:   cfg.Window,
			Overlap:  cfg.Overlap,
		},
		logger: cfg.Logger,
	}, nil
}

func (s *Service) resolve(opts Options) Options {
	if opts.MaxChars == 0 {
		opts.MaxChars = s.defaults.MaxChars
	}
	if opts.Coalesce == 0 {
		opts.Coalesce = s.defaults.Coalesce
	}
	if opts.Window == 0 {
		opts.Window = s.defaults.Window
		if opts.Overlap == 0 {
			opts.Overlap = s.defaults.Overlap
		}
	}
	return opts
}

// candidateOrder puts the hint first, followed by the remaining candidates.
func (s *Service) candidateOrder(hint string) []string {
	base := s.candidates
	if len(base) == 0 {
		base = s.lookup.Candidates()
	}
	if hint == "" {
		return base
	}

	g, err := s.lookup.Grammar(hint)
	if err != nil {
		s.logger.Warn("ignoring grammar hint", "grammar", hint, "error", err)
		return base
	}

	name := g.Name()
	order := make([]string, 0, len(base)+1)
	order = append(order, name)
	for _, c := range base {
		if c != name {
			order = append(order, c)
		}
	}
	return order
}

// Chunk splits text into an ordered list of chunks.
//
// On the structural path the chunks partition text exactly. On the fallback
// path they are overlapping line windows. Empty text yields no chunks.
func (s *Service) Chunk(ctx context.Context, text []byte, opts Options) (*Result, error) {
	opts = s.resolve(opts)
	if opts.MaxChars < 0 {
		return nil, fmt.Errorf("%w: max_chars must be positive, got %d", types.ErrInvalidConfig, opts.MaxChars)
	}
	if err := (simple.Config{Window: opts.Window, Overlap: opts.Overlap}).Validate(); err != nil {
		return nil, err
	}

	if len(text) == 0 {
		return &Result{Chunks: []types.Chunk{}}, nil
	}

	sel, ok, err := s.selector.Select(ctx, text, s.candidateOrder(opts.Grammar))
	if err != nil {
		return nil, err
	}

	if ok {
		defer sel.Tree.Close()

		chunks, err := structural.ChunkTree(sel.Tree.Root(), text, structural.Options{
			MaxChars: opts.MaxChars,
			Coalesce: opts.Coalesce,
		})
		if err != nil {
			return nil, fmt.Errorf("structural chunking with %s: %w", sel.Grammar.Name(), err)
		}

		s.logger.Debug("structural chunking complete",
			"grammar", sel.Grammar.Name(),
			"bytes", len(text),
			"chunks", len(chunks),
		)
		return &Result{
			Strategy: types.StrategyStructural,
			Grammar:  sel.Grammar.Name(),
			Chunks:   chunks,
		}, nil
	}

	lines := simple.LineCount(text, types.NewLineIndex(text))
	s.logger.Warn("falling back to line-window chunking", "lines", lines)

	chunks, err := simple.Windows(text, opts.Window, opts.Overlap)
	if err != nil {
		return nil, err
	}
	return &Result{
		Strategy: types.StrategyFallback,
		Chunks:   chunks,
	}, nil
}

// ChunkFile chunks a source file. The file's Language is used as the grammar
// hint; when it is empty the configured detector is consulted.
func (s *Service) ChunkFile(ctx context.Context, file *types.SourceFile, opts Options) (*Result, error) {
	if opts.Grammar == "" {
		opts.Grammar = file.Language
	}
	if opts.Grammar == "" && s.detector != nil && file.Path != "" {
		opts.Grammar = s.detector.DetectLanguage(file.Path)
	}

	res, err := s.Chunk(ctx, file.Content, opts)
	if err != nil {
		if file.Path != "" {
			return nil, fmt.Errorf("%s: %w", file.Path, err)
		}
		return nil, err
	}
	if file.Hash == "" {
		file.Hash = file.ComputeHash()
	}
	res.Path = file.Path
	return res, nil
}
