// Package syntaxtest provides in-memory syntax trees and grammars for tests.
package syntaxtest

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/spetr/codesplit/pkg/provider"
)

// Node is a hand-built syntax node.
type Node struct {
	Kind     string
	Start    int
	End      int
	Children []*Node
}

// N builds a node spanning [start, end).
func N(kind string, start, end int, children ...*Node) *Node {
	return &Node{Kind: kind, Start: start, End: end, Children: children}
}

// Leaves builds a root of type kind whose children are adjacent leaves of the
// given byte lengths, starting at offset 0.
func Leaves(kind string, lengths ...int) *Node {
	root := &Node{Kind: kind}
	off := 0
	for _, l := range lengths {
		root.Children = append(root.Children, N("leaf", off, off+l))
		off += l
	}
	root.End = off
	return root
}

func (n *Node) StartByte() int { return n.Start }
func (n *Node) EndByte() int   { return n.End }
func (n *Node) Type() string   { return n.Kind }
func (n *Node) ChildCount() int {
	return len(n.Children)
}

func (n *Node) Child(i int) provider.SyntaxNode {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Walk calls fn for n and every descendant in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Tree wraps a root node.
type Tree struct {
	RootNode *Node
	Closed   bool
}

func (t *Tree) Root() provider.SyntaxNode { return t.RootNode }

func (t *Tree) HasError() bool {
	found := false
	t.RootNode.Walk(func(n *Node) {
		if n.Kind == provider.ErrorNodeType {
			found = true
		}
	})
	return found
}

func (t *Tree) Close() { t.Closed = true }

// ErrParse is returned by Grammar when Fail is set.
var ErrParse = errors.New("syntaxtest: parse failed")

// Grammar returns trees built by Build. It is safe for concurrent use as
// long as Build is.
type Grammar struct {
	GrammarName string
	Build       func(content []byte) *Node
	Fail        bool

	calls atomic.Int64
}

func (g *Grammar) Name() string { return g.GrammarName }

// Calls returns the number of Parse calls.
func (g *Grammar) Calls() int { return int(g.calls.Load()) }

func (g *Grammar) Parse(ctx context.Context, content []byte) (provider.SyntaxTree, error) {
	g.calls.Add(1)
	if g.Fail {
		return nil, ErrParse
	}
	return &Tree{RootNode: g.Build(content)}, nil
}

// Lookup is a fixed GrammarLookup.
type Lookup struct {
	Grammars map[string]provider.Grammar
	Order    []string
}

func (l *Lookup) Grammar(name string) (provider.Grammar, error) {
	g, ok := l.Grammars[name]
	if !ok {
		return nil, errors.New("syntaxtest: unknown grammar " + name)
	}
	return g, nil
}

func (l *Lookup) Candidates() []string { return l.Order }

// Lines builds a root whose children are the lines of content, each line
// including its trailing newline. Useful as a trivially clean parse.
func Lines(kind string) func(content []byte) *Node {
	return func(content []byte) *Node {
		root := &Node{Kind: kind, End: len(content)}
		start := 0
		for i, b := range content {
			if b == '\n' {
				root.Children = append(root.Children, N("line", start, i+1))
				start = i + 1
			}
		}
		if start < len(content) {
			root.Children = append(root.Children, N("line", start, len(content)))
		}
		return root
	}
}

// Garbage builds a root whose first child is an error node.
func Garbage(content []byte) *Node {
	return N("module", 0, len(content), N(provider.ErrorNodeType, 0, len(content)))
}
