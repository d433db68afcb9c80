package provider

import (
	"context"

	"github.com/spetr/codesplit/pkg/types"
)

// ChunkingStrategy splits a document into chunks.
type ChunkingStrategy interface {
	// Name returns the strategy name (e.g., "structural", "simple").
	Name() string

	// Chunk splits a source file into an ordered list of chunks.
	Chunk(ctx context.Context, file *types.SourceFile) ([]types.Chunk, error)
}

// ChunkingConfig contains configuration for chunking strategies.
type ChunkingConfig struct {
	Strategy        string // "structural", "simple"
	Grammar         string // grammar used by the structural strategy
	MaxChars        int    // structural split budget in bytes
	Coalesce        int    // minimum non-whitespace bytes of a standalone chunk
	FallbackWindow  int    // lines per fallback window
	FallbackOverlap int    // lines shared by consecutive fallback windows
}

// LanguageDetector detects the language of a file.
type LanguageDetector interface {
	// DetectLanguage returns the language for a file path.
	// Returns empty string if unknown.
	DetectLanguage(filePath string) string
}
