// Package selector picks a grammar for text whose language is unknown.
//
// Candidates are tried in order and the first clean parse wins. The
// acceptance test is deliberately shallow: the root must have at least one
// child and that child must not be an error node. Errors deeper in the tree
// are not detected unless Strict is set.
package selector

import (
	"context"
	"log/slog"

	"github.com/spetr/codesplit/pkg/provider"
)

// Config contains configuration for a Selector.
type Config struct {
	Lookup provider.GrammarLookup
	Strict bool // also reject trees that contain an error anywhere
	Logger *slog.Logger
}

// Selector tries candidate grammars against a document.
// It keeps no per-call state and is safe for concurrent use.
type Selector struct {
	lookup provider.GrammarLookup
	strict bool
	logger *slog.Logger
}

// Selection is an accepted parse. The caller owns Tree and must Close it.
type Selection struct {
	Grammar provider.Grammar
	Tree    provider.SyntaxTree
}

// New creates a new selector.
func New(cfg Config) *Selector {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Selector{
		lookup: cfg.Lookup,
		strict: cfg.Strict,
		logger: cfg.Logger,
	}
}

// Accepts reports whether root looks like a clean parse.
func Accepts(root provider.SyntaxNode) bool {
	if root == nil || root.ChildCount() == 0 {
		return false
	}
	first := root.Child(0)
	return first != nil && first.Type() != provider.ErrorNodeType
}

func (s *Selector) accepts(tree provider.SyntaxTree) bool {
	if !Accepts(tree.Root()) {
		return false
	}
	return !s.strict || !tree.HasError()
}

// Select parses text with each candidate in order and returns the first
// accepted parse. With no candidates the lookup's own list is used.
// Unavailable grammars and parse failures are logged and skipped.
// It returns ok=false for empty text or when no candidate is accepted; the
// only error is cancellation of ctx.
func (s *Selector) Select(ctx context.Context, text []byte, candidates []string) (Selection, bool, error) {
	if len(text) == 0 {
		return Selection{}, false, nil
	}
	if len(candidates) == 0 {
		candidates = s.lookup.Candidates()
	}

	for _, name := range candidates {
		if err := ctx.Err(); err != nil {
			return Selection{}, false, err
		}

		g, err := s.lookup.Grammar(name)
		if err != nil {
			s.logger.Warn("grammar unavailable", "grammar", name, "error", err)
			continue
		}

		tree, err := g.Parse(ctx, text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Selection{}, false, ctxErr
			}
			s.logger.Warn("grammar rejected", "grammar", name, "reason", "parse failed", "error", err)
			continue
		}

		if !s.accepts(tree) {
			tree.Close()
			s.logger.Warn("grammar rejected", "grammar", name, "reason", "not a clean parse")
			continue
		}

		s.logger.Debug("grammar selected", "grammar", g.Name())
		return Selection{Grammar: g, Tree: tree}, true, nil
	}
	return Selection{}, false, nil
}
