package structural

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

// Default values
const (
	DefaultMaxChars = 512 * 3 // bytes
	DefaultCoalesce = 50      // non-whitespace bytes
)

// Options controls ChunkTree.
type Options struct {
	MaxChars int // split budget in bytes
	Coalesce int // minimum non-whitespace bytes of a standalone chunk; negative disables the size test
}

// A zero field selects its default, so a coalesce threshold of exactly zero
// cannot be requested. A negative threshold leaves only the newline test.

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.Coalesce == 0 {
		o.Coalesce = DefaultCoalesce
	}
	return o
}

// ChunkTree splits src along the structure of root and returns a gap-free,
// non-overlapping list of chunks covering src.
func ChunkTree(root provider.SyntaxNode, src []byte, opts Options) ([]types.Chunk, error) {
	if len(src) == 0 {
		return []types.Chunk{}, nil
	}
	opts = opts.withDefaults()

	rootSpan := types.NewSpan(root.StartByte(), root.EndByte())
	if err := types.CheckBounds(rootSpan, len(src)); err != nil {
		return nil, fmt.Errorf("syntax tree root: %w", err)
	}

	raw, err := Split(root, opts.MaxChars)
	if err != nil {
		return nil, err
	}

	lines := types.NewLineIndex(src)
	spans := Coalesce(FillGaps(raw, len(src)), src, lines, opts.Coalesce)

	chunks := make([]types.Chunk, 0, len(spans))
	for _, span := range spans {
		if err := types.CheckBounds(span, len(src)); err != nil {
			return nil, err
		}
		chunks = append(chunks, types.NewChunk(src, lines, span))
	}
	return chunks, nil
}

// Config contains configuration for the structural chunker.
type Config struct {
	Grammar  provider.Grammar
	MaxChars int
	Coalesce int
	Logger   *slog.Logger
}

// Chunker parses documents with a fixed grammar and chunks them structurally.
type Chunker struct {
	grammar provider.Grammar
	opts    Options
	logger  *slog.Logger
}

// New creates a new structural chunker.
func New(cfg Config) (*Chunker, error) {
	if cfg.Grammar == nil {
		return nil, fmt.Errorf("%w: structural chunker requires a grammar", types.ErrInvalidConfig)
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Chunker{
		grammar: cfg.Grammar,
		opts:    Options{MaxChars: cfg.MaxChars, Coalesce: cfg.Coalesce},
		logger:  cfg.Logger,
	}, nil
}

// Name returns the strategy name.
func (c *Chunker) Name() string {
	return string(types.StrategyStructural)
}

// Chunk parses the file with the configured grammar and chunks it.
func (c *Chunker) Chunk(ctx context.Context, file *types.SourceFile) ([]types.Chunk, error) {
	if len(file.Content) == 0 {
		return []types.Chunk{}, nil
	}

	tree, err := c.grammar.Parse(ctx, file.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrParseError, c.grammar.Name(), err)
	}
	defer tree.Close()

	chunks, err := ChunkTree(tree.Root(), file.Content, c.opts)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("structural chunking complete",
		"file", file.Path,
		"grammar", c.grammar.Name(),
		"chunks", len(chunks),
	)
	return chunks, nil
}

// Ensure Chunker implements ChunkingStrategy interface
var _ provider.ChunkingStrategy = (*Chunker)(nil)
