package provider

import "context"

// ErrorNodeType is the type tag parsers use for unrecoverable syntax errors.
const ErrorNodeType = "ERROR"

// SyntaxNode is a read-only view of one node in a syntax tree.
//
// Children are ordered by position, do not overlap and are contained in the
// parent's range. Bytes of the parent not covered by any child are trivia.
type SyntaxNode interface {
	StartByte() int
	EndByte() int
	Type() string
	ChildCount() int
	Child(i int) SyntaxNode
}

// SyntaxTree is the result of parsing a document.
type SyntaxTree interface {
	Root() SyntaxNode

	// HasError reports whether any node in the tree is an error node.
	HasError() bool

	// Close releases the tree. Nodes must not be used afterwards.
	Close()
}

// Grammar parses documents of a single language.
type Grammar interface {
	// Name returns the canonical grammar name (e.g., "python").
	Name() string

	// Parse builds a syntax tree for content.
	Parse(ctx context.Context, content []byte) (SyntaxTree, error)
}

// GrammarLookup resolves grammars by name.
type GrammarLookup interface {
	// Grammar returns the grammar registered under name or an alias of it.
	Grammar(name string) (Grammar, error)

	// Candidates returns the ordered grammar names tried when no hint is given.
	Candidates() []string
}
