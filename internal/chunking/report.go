package chunking

import (
	"github.com/spetr/codesplit/pkg/types"
)

// ChunkReport is the serialized form of a chunk.
type ChunkReport struct {
	Index     int    `json:"index" yaml:"index"`
	ID        string `json:"id" yaml:"id"`
	Start     int    `json:"start" yaml:"start"`
	End       int    `json:"end" yaml:"end"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	Hash      string `json:"hash" yaml:"hash"`
	Content   string `json:"content,omitempty" yaml:"content,omitempty"`
}

// Report is the serialized form of a Result.
type Report struct {
	Path     string         `json:"path,omitempty" yaml:"path,omitempty"`
	Strategy types.Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Grammar  string         `json:"grammar,omitempty" yaml:"grammar,omitempty"`
	Bytes    int            `json:"bytes" yaml:"bytes"`
	Chunks   []ChunkReport  `json:"chunks" yaml:"chunks"`
}

// NewReport builds a report of res over src. Chunk text is included when
// withContent is set.
func NewReport(res *Result, src []byte, withContent bool) Report {
	r := Report{
		Path:     res.Path,
		Strategy: res.Strategy,
		Grammar:  res.Grammar,
		Bytes:    len(src),
		Chunks:   make([]ChunkReport, len(res.Chunks)),
	}
	for i, c := range res.Chunks {
		cr := ChunkReport{
			Index:     i,
			ID:        c.ID(res.Path),
			Start:     c.Span.Start,
			End:       c.Span.End,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Hash:      c.Hash,
		}
		if withContent {
			cr.Content = string(c.Content(src))
		}
		r.Chunks[i] = cr
	}
	return r
}
