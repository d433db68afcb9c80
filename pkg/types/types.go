// Package types contains shared data types used across the codesplit project.
package types

import (
	"bytes"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/zeebo/blake3"
)

// SourceFile represents a document to be chunked.
type SourceFile struct {
	Path     string // Path to the file (may be empty for inline text)
	Content  []byte // File content
	Language string // Grammar hint (go, python, ...); empty means detect
	Hash     string // BLAKE3 hash of Content
}

// ComputeHash calculates the BLAKE3 hash of the file content.
func (f *SourceFile) ComputeHash() string {
	h := blake3.Sum256(f.Content)
	return hex.EncodeToString(h[:])
}

// Span is a half-open byte range [Start, End) over a source buffer.
// A zero-length span is valid.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NewSpan returns the span [start, end).
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// Len returns End - Start.
func (s Span) Len() int {
	return s.End - s.Start
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	return Span{Start: min(s.Start, o.Start), End: max(s.End, o.End)}
}

// Valid reports whether 0 <= Start <= End <= size.
func (s Span) Valid(size int) bool {
	return s.Start >= 0 && s.Start <= s.End && s.End <= size
}

// Extract returns the bytes of src covered by the span.
// The result aliases src.
func (s Span) Extract(src []byte) []byte {
	return src[s.Start:s.End]
}

func (s Span) String() string {
	return "[" + strconv.Itoa(s.Start) + "," + strconv.Itoa(s.End) + ")"
}

// Strategy names the algorithm that produced a set of chunks.
type Strategy string

const (
	StrategyStructural Strategy = "structural"
	StrategyFallback   Strategy = "fallback"
)

// Chunk is a span of the source plus its 1-based inclusive line range.
type Chunk struct {
	Span      Span   `json:"span" yaml:"span"`
	StartLine int    `json:"start_line" yaml:"start_line"` // Line containing Span.Start (1-based)
	EndLine   int    `json:"end_line" yaml:"end_line"`     // Line containing Span.End (1-based)
	Hash      string `json:"hash" yaml:"hash"`             // BLAKE3 of the chunk bytes, hex encoded
}

// Content returns the chunk's bytes from the original source.
func (c Chunk) Content(src []byte) []byte {
	return c.Span.Extract(src)
}

// ID returns a stable identifier of the form {path}:{startline}:{hash[:8]}.
func (c Chunk) ID(path string) string {
	prefix := c.Hash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return path + ":" + strconv.Itoa(c.StartLine) + ":" + prefix
}

// HashContent returns the hex BLAKE3 digest of b.
func HashContent(b []byte) string {
	h := blake3.Sum256(b)
	return hex.EncodeToString(h[:])
}

// LineIndex maps byte offsets of a buffer to 1-based line numbers.
// Line numbers are always computed against the whole buffer.
type LineIndex struct {
	newlines []int // offsets of every '\n'
	size     int
}

// NewLineIndex builds an index of the newline bytes in src.
func NewLineIndex(src []byte) *LineIndex {
	idx := &LineIndex{size: len(src)}
	for off := 0; off < len(src); {
		i := bytes.IndexByte(src[off:], '\n')
		if i < 0 {
			break
		}
		idx.newlines = append(idx.newlines, off+i)
		off += i + 1
	}
	return idx
}

// Line returns one plus the number of newline bytes strictly before offset.
func (idx *LineIndex) Line(offset int) int {
	return sort.SearchInts(idx.newlines, offset) + 1
}

// Lines returns the number of newline-separated lines, counting a trailing
// empty line after a final newline.
func (idx *LineIndex) Lines() int {
	return len(idx.newlines) + 1
}

// LineStart returns the byte offset where 0-based line n begins.
func (idx *LineIndex) LineStart(n int) int {
	if n <= 0 {
		return 0
	}
	if n > len(idx.newlines) {
		return idx.size
	}
	return idx.newlines[n-1] + 1
}

// LineEnd returns the byte offset of the newline terminating 0-based line n,
// or the buffer size for the last line.
func (idx *LineIndex) LineEnd(n int) int {
	if n < len(idx.newlines) {
		return idx.newlines[n]
	}
	return idx.size
}

// NewChunk derives line numbers and the content hash for span.
func NewChunk(src []byte, idx *LineIndex, span Span) Chunk {
	return Chunk{
		Span:      span,
		StartLine: idx.Line(span.Start),
		EndLine:   idx.Line(span.End),
		Hash:      HashContent(span.Extract(src)),
	}
}
