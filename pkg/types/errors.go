package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound is returned when a requested strategy is not registered.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrParseError is returned when parsing fails.
	ErrParseError = errors.New("parse error")

	// ErrGrammarUnavailable is returned when a grammar cannot be loaded.
	ErrGrammarUnavailable = errors.New("grammar unavailable")

	// ErrStructuralInvariant is returned when a syntax tree breaks the
	// ordering or containment contract of its nodes.
	ErrStructuralInvariant = errors.New("structural invariant violation")

	// ErrBounds is returned when an offset falls outside the source buffer.
	ErrBounds = errors.New("offset out of bounds")
)

// StructuralInvariantError describes a malformed syntax tree.
type StructuralInvariantError struct {
	NodeType string
	Parent   Span
	Child    Span
	Prev     Span // previous sibling, if the violation is an ordering one
	Reason   string
}

func (e *StructuralInvariantError) Error() string {
	return fmt.Sprintf("structural invariant violation: %s (node %q, parent %s, child %s)",
		e.Reason, e.NodeType, e.Parent, e.Child)
}

// Unwrap returns ErrStructuralInvariant.
func (e *StructuralInvariantError) Unwrap() error {
	return ErrStructuralInvariant
}

// BoundsError describes a span that does not satisfy 0 <= start <= end <= size.
type BoundsError struct {
	Span Span
	Size int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("offset out of bounds: span %s over buffer of %d bytes", e.Span, e.Size)
}

// Unwrap returns ErrBounds.
func (e *BoundsError) Unwrap() error {
	return ErrBounds
}

// CheckBounds returns a *BoundsError if span is not within [0, size].
func CheckBounds(span Span, size int) error {
	if !span.Valid(size) {
		return &BoundsError{Span: span, Size: size}
	}
	return nil
}
