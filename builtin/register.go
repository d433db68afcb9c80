// Package builtin registers all built-in providers with the default registry.
package builtin

import (
	"fmt"

	simpleChunker "github.com/spetr/codesplit/builtin/chunking/simple"
	"github.com/spetr/codesplit/builtin/chunking/structural"
	"github.com/spetr/codesplit/builtin/grammar/treesitter"
	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

func init() {
	Register(provider.DefaultRegistry)
}

// Register adds the bundled grammars and chunking strategies to r.
func Register(r *provider.Registry) {
	// Register grammars
	treesitter.Register(r)
	r.SetCandidates(treesitter.DefaultCandidates)

	// Register chunking strategies
	r.RegisterChunking("structural", func(cfg provider.ChunkingConfig) (provider.ChunkingStrategy, error) {
		if cfg.Grammar == "" {
			return nil, fmt.Errorf("%w: structural strategy requires a grammar", types.ErrInvalidConfig)
		}
		g, err := r.Grammar(cfg.Grammar)
		if err != nil {
			return nil, err
		}
		return structural.New(structural.Config{
			Grammar:  g,
			MaxChars: cfg.MaxChars,
			Coalesce: cfg.Coalesce,
		})
	})

	r.RegisterChunking("simple", func(cfg provider.ChunkingConfig) (provider.ChunkingStrategy, error) {
		return simpleChunker.New(simpleChunker.Config{
			Window:  cfg.FallbackWindow,
			Overlap: cfg.FallbackOverlap,
		})
	})
}
