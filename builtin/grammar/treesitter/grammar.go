// Package treesitter provides syntax trees backed by Tree-sitter grammars.
package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

// Grammar parses documents with a single Tree-sitter language.
// A new parser is created for every Parse call, so a Grammar is safe for
// concurrent use.
type Grammar struct {
	name     string
	language *sitter.Language
}

// NewGrammar returns the bundled grammar registered under name.
func NewGrammar(name string) (*Grammar, error) {
	for _, l := range languages {
		if l.Name == name {
			lang := l.load()
			if lang == nil {
				return nil, fmt.Errorf("%w: %s", types.ErrGrammarUnavailable, name)
			}
			return &Grammar{name: name, language: lang}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is not bundled", types.ErrGrammarUnavailable, name)
}

// Name returns the grammar name.
func (g *Grammar) Name() string {
	return g.name
}

// Parse parses content into a syntax tree. The caller must Close the tree.
func (g *Grammar) Parse(ctx context.Context, content []byte) (provider.SyntaxTree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.language)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", g.name, err)
	}
	return &syntaxTree{tree: tree}, nil
}

type syntaxTree struct {
	tree *sitter.Tree
}

func (t *syntaxTree) Root() provider.SyntaxNode {
	return wrap(t.tree.RootNode())
}

func (t *syntaxTree) HasError() bool {
	return t.tree.RootNode().HasError()
}

func (t *syntaxTree) Close() {
	t.tree.Close()
}

// node adapts *sitter.Node to provider.SyntaxNode.
type node struct {
	n *sitter.Node
}

func wrap(n *sitter.Node) provider.SyntaxNode {
	if n == nil || n.IsNull() {
		return nil
	}
	return node{n: n}
}

func (w node) StartByte() int { return int(w.n.StartByte()) }
func (w node) EndByte() int   { return int(w.n.EndByte()) }
func (w node) Type() string   { return w.n.Type() }

func (w node) ChildCount() int {
	return int(w.n.ChildCount())
}

func (w node) Child(i int) provider.SyntaxNode {
	return wrap(w.n.Child(i))
}

// Register adds every bundled grammar to r under its name and aliases.
func Register(r *provider.Registry) {
	for _, l := range languages {
		name := l.Name
		r.RegisterGrammar(name, func() (provider.Grammar, error) {
			return NewGrammar(name)
		}, l.Aliases...)
	}
}

var _ provider.Grammar = (*Grammar)(nil)
