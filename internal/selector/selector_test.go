package selector

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetr/codesplit/internal/syntaxtest"
	"github.com/spetr/codesplit/pkg/provider"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		name string
		root provider.SyntaxNode
		want bool
	}{
		{"nil root", nil, false},
		{"no children", syntaxtest.N("module", 0, 10), false},
		{"clean", syntaxtest.N("module", 0, 10, syntaxtest.N("stmt", 0, 10)), true},
		{"error first", syntaxtest.N("module", 0, 10, syntaxtest.N("ERROR", 0, 10)), false},
		{
			"error after first child is not detected",
			syntaxtest.N("module", 0, 10, syntaxtest.N("stmt", 0, 5), syntaxtest.N("ERROR", 5, 10)),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts(tt.root))
		})
	}
}

func newLookup(grammars ...*syntaxtest.Grammar) *syntaxtest.Lookup {
	l := &syntaxtest.Lookup{Grammars: map[string]provider.Grammar{}}
	for _, g := range grammars {
		l.Grammars[g.GrammarName] = g
		l.Order = append(l.Order, g.GrammarName)
	}
	return l
}

func TestSelectFirstCleanParse(t *testing.T) {
	bad := &syntaxtest.Grammar{GrammarName: "python", Build: syntaxtest.Garbage}
	good := &syntaxtest.Grammar{GrammarName: "java", Build: syntaxtest.Lines("program")}
	later := &syntaxtest.Grammar{GrammarName: "go", Build: syntaxtest.Lines("source_file")}

	s := New(Config{Lookup: newLookup(bad, good, later), Logger: quietLogger()})

	sel, ok, err := s.Select(context.Background(), []byte("class A {}\n"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	defer sel.Tree.Close()

	assert.Equal(t, "java", sel.Grammar.Name())
	assert.Equal(t, "program", sel.Tree.Root().Type())
	assert.Equal(t, 1, bad.Calls())
	assert.Equal(t, 0, later.Calls())
}

func TestSelectExplicitCandidates(t *testing.T) {
	a := &syntaxtest.Grammar{GrammarName: "a", Build: syntaxtest.Lines("a")}
	b := &syntaxtest.Grammar{GrammarName: "b", Build: syntaxtest.Lines("b")}

	s := New(Config{Lookup: newLookup(a, b), Logger: quietLogger()})

	sel, ok, err := s.Select(context.Background(), []byte("x\n"), []string{"b", "a"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", sel.Grammar.Name())
	assert.Equal(t, 0, a.Calls())
}

func TestSelectSkipsUnavailableAndFailing(t *testing.T) {
	failing := &syntaxtest.Grammar{GrammarName: "rust", Fail: true}
	good := &syntaxtest.Grammar{GrammarName: "ruby", Build: syntaxtest.Lines("program")}

	lookup := newLookup(failing, good)
	lookup.Order = []string{"cobol", "rust", "ruby"}

	var logs bytes.Buffer
	s := New(Config{Lookup: lookup, Logger: slog.New(slog.NewTextHandler(&logs, nil))})

	sel, ok, err := s.Select(context.Background(), []byte("puts 1\n"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ruby", sel.Grammar.Name())

	assert.Contains(t, logs.String(), "grammar=cobol")
	assert.Contains(t, logs.String(), "grammar=rust")
}

func TestSelectNoneAccepted(t *testing.T) {
	var trees []*syntaxtest.Tree
	g := &syntaxtest.Grammar{GrammarName: "python", Build: syntaxtest.Garbage}
	tracking := &trackingGrammar{Grammar: g, trees: &trees}

	lookup := &syntaxtest.Lookup{
		Grammars: map[string]provider.Grammar{"python": tracking},
		Order:    []string{"python"},
	}
	s := New(Config{Lookup: lookup, Logger: quietLogger()})

	_, ok, err := s.Select(context.Background(), []byte("%%% garbage\n"), nil)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, trees, 1)
	assert.True(t, trees[0].Closed, "rejected tree must be closed")
}

func TestSelectEmptyText(t *testing.T) {
	g := &syntaxtest.Grammar{GrammarName: "python", Build: syntaxtest.Lines("module")}
	s := New(Config{Lookup: newLookup(g), Logger: quietLogger()})

	_, ok, err := s.Select(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, g.Calls())
}

func TestSelectStrict(t *testing.T) {
	deepError := func(content []byte) *syntaxtest.Node {
		n := len(content)
		return syntaxtest.N("module", 0, n,
			syntaxtest.N("stmt", 0, n/2),
			syntaxtest.N("ERROR", n/2, n),
		)
	}
	g := &syntaxtest.Grammar{GrammarName: "python", Build: deepError}
	text := []byte("x = 1\n)))\n")

	lenient := New(Config{Lookup: newLookup(g), Logger: quietLogger()})
	sel, ok, err := lenient.Select(context.Background(), text, nil)
	require.NoError(t, err)
	require.True(t, ok)
	sel.Tree.Close()

	strict := New(Config{Lookup: newLookup(g), Strict: true, Logger: quietLogger()})
	_, ok, err = strict.Select(context.Background(), text, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectCancelled(t *testing.T) {
	g := &syntaxtest.Grammar{GrammarName: "python", Build: syntaxtest.Lines("module")}
	s := New(Config{Lookup: newLookup(g), Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := s.Select(ctx, []byte("x\n"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
	assert.Equal(t, 0, g.Calls())
}

// trackingGrammar records every tree it hands out.
type trackingGrammar struct {
	*syntaxtest.Grammar
	trees *[]*syntaxtest.Tree
}

func (g *trackingGrammar) Parse(ctx context.Context, content []byte) (provider.SyntaxTree, error) {
	tree, err := g.Grammar.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	st := tree.(*syntaxtest.Tree)
	*g.trees = append(*g.trees, st)
	return st, nil
}
