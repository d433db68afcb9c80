// Package structural implements syntax-tree aware chunking.
//
// A tree is split along child boundaries so that no chunk exceeds a byte
// budget unless a single node on its own is larger. The raw spans are then
// gap-filled into a partition of the document and small neighbours are
// coalesced.
package structural

import (
	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

// frame is one pending node on the split work stack.
type frame struct {
	node  provider.SyntaxNode
	span  types.Span
	next  int        // index of the next child to visit
	prev  types.Span // span of the previously visited child
	cur   types.Span // accumulator
	count int
}

func newFrame(node provider.SyntaxNode, span types.Span) *frame {
	return &frame{
		node:  node,
		span:  span,
		prev:  types.NewSpan(span.Start, span.Start),
		cur:   types.NewSpan(span.Start, span.Start),
		count: node.ChildCount(),
	}
}

// Split walks the tree depth-first and returns the raw chunk spans in
// emission order.
//
// For every node the children are accumulated left to right. A child larger
// than maxChars flushes the accumulator and is split on its own; a child that
// would push the accumulator past maxChars flushes it and starts a new one.
// Whatever remains is flushed after the last child, even if empty.
//
// The spans may leave gaps (trivia between siblings) and may be empty; see
// FillGaps. A tree whose children are out of order, overlapping or outside
// their parent yields a *types.StructuralInvariantError.
func Split(root provider.SyntaxNode, maxChars int) ([]types.Span, error) {
	rootSpan := types.NewSpan(root.StartByte(), root.EndByte())
	if rootSpan.Start < 0 || rootSpan.End < rootSpan.Start {
		return nil, &types.StructuralInvariantError{
			NodeType: root.Type(),
			Parent:   rootSpan,
			Child:    rootSpan,
			Reason:   "root range is inverted or negative",
		}
	}

	var spans []types.Span
	stack := []*frame{newFrame(root, rootSpan)}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.next >= f.count {
			spans = append(spans, f.cur)
			stack = stack[:len(stack)-1]
			continue
		}

		child := f.node.Child(f.next)
		f.next++
		if child == nil {
			continue
		}

		span := types.NewSpan(child.StartByte(), child.EndByte())
		if err := checkChild(f, child.Type(), span); err != nil {
			return nil, err
		}
		f.prev = span

		switch {
		case span.Len() > maxChars:
			spans = append(spans, f.cur)
			f.cur = types.NewSpan(span.End, span.End)
			stack = append(stack, newFrame(child, span))
		case f.cur.Union(span).Len() > maxChars:
			spans = append(spans, f.cur)
			f.cur = span
		default:
			f.cur = f.cur.Union(span)
		}
	}

	return spans, nil
}

// checkChild enforces containment in the parent and ordering after the
// previous sibling.
func checkChild(f *frame, nodeType string, child types.Span) error {
	violation := func(reason string) error {
		return &types.StructuralInvariantError{
			NodeType: nodeType,
			Parent:   f.span,
			Child:    child,
			Prev:     f.prev,
			Reason:   reason,
		}
	}

	switch {
	case child.End < child.Start:
		return violation("child range is inverted")
	case child.Start < f.span.Start || child.End > f.span.End:
		return violation("child outside parent range")
	case child.Start < f.prev.End:
		return violation("children out of order or overlapping")
	}
	return nil
}
