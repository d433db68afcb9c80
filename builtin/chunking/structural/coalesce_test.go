package structural

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetr/codesplit/internal/syntaxtest"
	"github.com/spetr/codesplit/pkg/types"
)

// partition returns consecutive spans of the given lengths starting at 0.
func partition(lengths ...int) []types.Span {
	var out []types.Span
	off := 0
	for _, l := range lengths {
		out = append(out, types.NewSpan(off, off+l))
		off += l
	}
	return out
}

func coalesce(src string, spans []types.Span, threshold int) []types.Span {
	b := []byte(src)
	return Coalesce(spans, b, types.NewLineIndex(b), threshold)
}

func TestCoalesceMergesUntilSubstantial(t *testing.T) {
	a := strings.Repeat("a", 10) + "\n"
	b := strings.Repeat("b", 15) + "\n"
	c := strings.Repeat("c", 30) + "\n"
	src := a + b + c

	got := coalesce(src, partition(len(a), len(b), len(c)), 50)
	assert.Equal(t, []types.Span{{Start: 0, End: len(src)}}, got)
}

func TestCoalesceEmitsEachSubstantialChunk(t *testing.T) {
	a := strings.Repeat("a", 60) + "\n"
	b := strings.Repeat("b", 60) + "\n"
	src := a + b

	got := coalesce(src, partition(len(a), len(b)), 50)
	assert.Equal(t, partition(len(a), len(b)), got)
}

func TestCoalesceRequiresNewline(t *testing.T) {
	dense := strings.Repeat("x", 200)
	tail := "\ny"
	src := dense + tail

	got := coalesce(src, partition(len(dense), len(tail)), 50)
	assert.Equal(t, []types.Span{{Start: 0, End: len(src)}}, got)
}

func TestCoalesceIgnoresWhitespace(t *testing.T) {
	blank := strings.Repeat("\n", 80)
	body := strings.Repeat("z", 60) + "\n"
	src := blank + body

	got := coalesce(src, partition(len(blank), len(body)), 50)
	assert.Equal(t, []types.Span{{Start: 0, End: len(src)}}, got, "blank lines alone are not substantial")
}

func TestCoalesceKeepsTrailingFragment(t *testing.T) {
	head := strings.Repeat("h", 60) + "\n"
	tail := "}\n"
	src := head + tail

	got := coalesce(src, partition(len(head), len(tail)), 50)
	assert.Equal(t, partition(len(head), len(tail)), got)
}

func TestCoalesceDropsEmptySpans(t *testing.T) {
	head := strings.Repeat("h", 60) + "\n"
	src := head

	spans := []types.Span{{Start: 0, End: 0}, {Start: 0, End: len(head)}, {Start: len(head), End: len(head)}}
	got := coalesce(src, spans, 50)
	assert.Equal(t, []types.Span{{Start: 0, End: len(head)}}, got)
}

func TestNonWhitespaceLen(t *testing.T) {
	assert.Equal(t, 0, NonWhitespaceLen([]byte(" \t\r\n\v\f")))
	assert.Equal(t, 3, NonWhitespaceLen([]byte(" a b\nc ")))
}

func TestChunkTreeLineNumbers(t *testing.T) {
	src := []byte("def a():\n    return 1\n\n\ndef b():\n    return 2\n")
	root := syntaxtest.N("module", 0, len(src),
		syntaxtest.N("function_definition", 0, 21),
		syntaxtest.N("function_definition", 24, 45),
	)

	chunks, err := ChunkTree(root, src, Options{MaxChars: 25, Coalesce: 5})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, types.NewSpan(0, 24), chunks[0].Span)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 5, chunks[0].EndLine)
	assert.Equal(t, types.NewSpan(24, len(src)), chunks[1].Span)
	assert.Equal(t, 5, chunks[1].StartLine)
	assert.Equal(t, 7, chunks[1].EndLine)
	assert.Equal(t, "def b():\n    return 2\n", string(chunks[1].Content(src)))
}

func TestChunkTreeEmptyText(t *testing.T) {
	chunks, err := ChunkTree(syntaxtest.N("module", 0, 0), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.NotNil(t, chunks)
}

func TestChunkTreeRootOutOfBounds(t *testing.T) {
	_, err := ChunkTree(syntaxtest.N("module", 0, 50), []byte("short"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBounds)
}

func TestChunkTreeMalformed(t *testing.T) {
	src := []byte(strings.Repeat("x\n", 20))
	root := syntaxtest.N("module", 0, len(src),
		syntaxtest.N("a", 0, 20),
		syntaxtest.N("b", 10, 30),
	)
	_, err := ChunkTree(root, src, Options{MaxChars: 100})
	assert.ErrorIs(t, err, types.ErrStructuralInvariant)
}
