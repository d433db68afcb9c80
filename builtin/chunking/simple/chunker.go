// Package simple implements a line-window chunking strategy.
// This is used as a fallback when no grammar parses a document cleanly.
package simple

import (
	"context"
	"fmt"

	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

// Default values
const (
	DefaultWindow  = 50 // lines per window
	DefaultOverlap = 10 // lines shared by consecutive windows
)

// Config contains configuration for line-window chunking.
type Config struct {
	Window  int // Lines per window
	Overlap int // Lines repeated at the start of the next window
}

// Validate checks that the window advances.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: fallback window must be positive, got %d", types.ErrInvalidConfig, c.Window)
	}
	if c.Overlap < 0 || c.Overlap >= c.Window {
		return fmt.Errorf("%w: fallback overlap must be in [0, %d), got %d", types.ErrInvalidConfig, c.Window, c.Overlap)
	}
	return nil
}

// Chunker implements a fixed-stride sliding line window.
type Chunker struct {
	config Config
}

// New creates a new line-window chunker.
func New(cfg Config) (*Chunker, error) {
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
		if cfg.Overlap == 0 {
			cfg.Overlap = DefaultOverlap
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: cfg}, nil
}

// Name returns the strategy name.
func (c *Chunker) Name() string {
	return "simple"
}

// Chunk splits a file into overlapping line windows.
func (c *Chunker) Chunk(ctx context.Context, file *types.SourceFile) ([]types.Chunk, error) {
	return Windows(file.Content, c.config.Window, c.config.Overlap)
}

// LineCount returns the number of lines in src. A trailing newline ends the
// last line rather than starting an empty one.
func LineCount(src []byte, idx *types.LineIndex) int {
	if len(src) == 0 {
		return 0
	}
	n := idx.Lines()
	if src[len(src)-1] == '\n' {
		n--
	}
	return n
}

// Windows slices src into windows of window lines, advancing by
// window-overlap lines until the window start passes the last line. The last
// window may be shorter. Each chunk spans its lines without the newline that
// terminates the final one.
func Windows(src []byte, window, overlap int) ([]types.Chunk, error) {
	if err := (Config{Window: window, Overlap: overlap}).Validate(); err != nil {
		return nil, err
	}

	idx := types.NewLineIndex(src)
	total := LineCount(src, idx)
	stride := window - overlap

	chunks := make([]types.Chunk, 0, (total+stride-1)/stride)
	for start := 0; start < total; start += stride {
		end := min(start+window, total)
		span := types.NewSpan(idx.LineStart(start), idx.LineEnd(end-1))
		chunks = append(chunks, types.NewChunk(src, idx, span))
	}
	return chunks, nil
}

// Ensure Chunker implements ChunkingStrategy interface
var _ provider.ChunkingStrategy = (*Chunker)(nil)
