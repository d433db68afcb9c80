package structural

import (
	"github.com/spetr/codesplit/pkg/types"
)

// FillGaps turns raw split spans into a partition of [0, size).
// Each span is stretched to the start of its successor, the first span starts
// at 0 and the last one ends at size. Trivia dropped by Split is thereby
// reattached to the preceding chunk.
func FillGaps(spans []types.Span, size int) []types.Span {
	if len(spans) == 0 {
		return nil
	}

	out := make([]types.Span, len(spans))
	copy(out, spans)

	out[0].Start = 0
	for i := 0; i < len(out)-1; i++ {
		out[i].End = out[i+1].Start
	}
	out[len(out)-1].End = size

	return out
}

// textStats answers the two questions the coalescing test asks about a span
// in O(1): how many non-whitespace bytes it holds and whether it holds a
// newline.
type textStats struct {
	solid []int // solid[i] = non-whitespace bytes in src[:i]
	lines *types.LineIndex
}

func newTextStats(src []byte, lines *types.LineIndex) *textStats {
	solid := make([]int, len(src)+1)
	for i, b := range src {
		solid[i+1] = solid[i]
		if !isSpace(b) {
			solid[i+1]++
		}
	}
	return &textStats{solid: solid, lines: lines}
}

func (s *textStats) nonWhitespace(span types.Span) int {
	return s.solid[span.End] - s.solid[span.Start]
}

func (s *textStats) hasNewline(span types.Span) bool {
	return s.lines.Line(span.End) > s.lines.Line(span.Start)
}

// substantial reports whether span can stand alone as a chunk.
func (s *textStats) substantial(span types.Span, threshold int) bool {
	return s.nonWhitespace(span) > threshold && s.hasNewline(span)
}

// isSpace matches the ASCII whitespace class: space, \t, \n, \v, \f, \r.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// NonWhitespaceLen returns the number of non-whitespace bytes in b.
func NonWhitespaceLen(b []byte) int {
	n := 0
	for _, c := range b {
		if !isSpace(c) {
			n++
		}
	}
	return n
}

// Coalesce merges runs of consecutive spans until the merged span has more
// than threshold non-whitespace bytes and contains a newline. A trailing run
// that never reaches that point is still emitted. Empty spans are dropped.
//
// spans must be a gap-free partition of src as produced by FillGaps.
func Coalesce(spans []types.Span, src []byte, lines *types.LineIndex, threshold int) []types.Span {
	if len(spans) == 0 {
		return nil
	}
	stats := newTextStats(src, lines)

	var out []types.Span
	cur := types.NewSpan(spans[0].Start, spans[0].Start)
	for _, span := range spans {
		cur = cur.Union(span)
		if stats.substantial(cur, threshold) {
			out = append(out, cur)
			cur = types.NewSpan(span.End, span.End)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur)
	}

	kept := out[:0]
	for _, span := range out {
		if !span.Empty() {
			kept = append(kept, span)
		}
	}
	return kept
}
