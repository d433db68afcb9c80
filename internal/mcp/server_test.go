package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetr/codesplit/builtin/grammar/treesitter"
	"github.com/spetr/codesplit/internal/chunking"
	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

func newTestServer(t *testing.T, root string) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := provider.NewRegistry()
	treesitter.Register(reg)
	reg.SetCandidates(treesitter.DefaultCandidates)

	svc, err := chunking.New(chunking.Config{
		Lookup:   reg,
		Detector: treesitter.Detector{},
		Logger:   logger,
	})
	require.NoError(t, err)

	s, err := New(Config{
		Service:  svc,
		Registry: reg,
		Detector: treesitter.Detector{},
		Root:     root,
		Logger:   logger,
	})
	require.NoError(t, err)
	return s
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeReport(t *testing.T, res *mcp.CallToolResult) chunking.Report {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var report chunking.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
	return report
}

const goSource = `package demo

import "fmt"

// Greet prints a greeting for every name.
func Greet(names []string) {
	for _, n := range names {
		fmt.Printf("hello, %s\n", n)
	}
}

// Sum adds all values.
func Sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
`

func TestChunkText(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	res, err := s.handleChunkText(context.Background(), call(map[string]any{
		"text":      goSource,
		"language":  "go",
		"max_chars": 150,
	}))
	require.NoError(t, err)

	report := decodeReport(t, res)
	assert.Equal(t, types.StrategyStructural, report.Strategy)
	assert.Equal(t, "go", report.Grammar)
	assert.Equal(t, len(goSource), report.Bytes)
	require.Greater(t, len(report.Chunks), 1)

	var rebuilt strings.Builder
	for i, c := range report.Chunks {
		assert.Equal(t, i, c.Index)
		rebuilt.WriteString(c.Content)
	}
	assert.Equal(t, goSource, rebuilt.String())
}

func TestChunkTextWithoutContent(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	res, err := s.handleChunkText(context.Background(), call(map[string]any{
		"text":            goSource,
		"language":        "golang",
		"include_content": false,
	}))
	require.NoError(t, err)

	report := decodeReport(t, res)
	require.NotEmpty(t, report.Chunks)
	for _, c := range report.Chunks {
		assert.Empty(t, c.Content)
		assert.NotEmpty(t, c.Hash)
	}
}

func TestChunkTextErrors(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	res, err := s.handleChunkText(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleChunkText(context.Background(), call(map[string]any{
		"text":    "a\nb\n",
		"window":  2,
		"overlap": 2,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "invalid configuration")
}

func TestChunkFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "demo.go"), []byte(goSource), 0644))

	s := newTestServer(t, root)

	res, err := s.handleChunkFile(context.Background(), call(map[string]any{
		"path":      "pkg/demo.go",
		"max_chars": 150,
	}))
	require.NoError(t, err)

	report := decodeReport(t, res)
	assert.Equal(t, "pkg/demo.go", report.Path)
	assert.Equal(t, "go", report.Grammar)
	require.NotEmpty(t, report.Chunks)
	assert.True(t, strings.HasPrefix(report.Chunks[0].ID, "pkg/demo.go:1:"))
}

func TestChunkFileRejectsBadPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir"), 0755))

	outside := t.TempDir()
	secret := "API_KEY = 'do-not-leak'\n"
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.py"), []byte(secret), 0644))
	if err := os.Symlink(filepath.Join(outside, "secret.py"), filepath.Join(root, "link.py")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linkdir")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.py"), filepath.Join(root, "dangling.py")))

	s := newTestServer(t, root)

	tests := []struct {
		name string
		path string
	}{
		{"missing argument", ""},
		{"outside root", "../etc/passwd"},
		{"absolute outside root", filepath.Join(filepath.Dir(root), "x.go")},
		{"does not exist", "nope.go"},
		{"directory", "dir"},
		{"symlink outside root", "link.py"},
		{"through symlinked directory", "linkdir/secret.py"},
		{"dangling symlink", "dangling.py"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleChunkFile(context.Background(), call(map[string]any{"path": tt.path}))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.NotContains(t, resultText(t, res), "do-not-leak")
		})
	}
}

func TestChunkFileFollowsSymlinkInsideRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte(goSource), 0644))
	if err := os.Symlink(filepath.Join(root, "src", "main.go"), filepath.Join(root, "alias.go")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	s := newTestServer(t, root)

	res, err := s.handleChunkFile(context.Background(), call(map[string]any{"path": "alias.go"}))
	require.NoError(t, err)

	report := decodeReport(t, res)
	assert.Equal(t, "src/main.go", report.Path)
	assert.NotEmpty(t, report.Chunks)
}

func TestListGrammars(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	res, err := s.handleListGrammars(context.Background(), call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out struct {
		Grammars []struct {
			Name    string   `json:"name"`
			Aliases []string `json:"aliases"`
		} `json:"grammars"`
		Candidates []string `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))

	assert.Equal(t, treesitter.DefaultCandidates, out.Candidates)
	assert.Len(t, out.Grammars, len(treesitter.Languages()))

	found := false
	for _, g := range out.Grammars {
		if g.Name == "python" {
			found = true
			assert.Contains(t, g.Aliases, "py")
		}
	}
	assert.True(t, found)
}

func TestNewRequiresService(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"main.go":             goSource,
		"pkg/util.py":         "def f():\n    return 1\n",
		"pkg/notes.txt":       "notes\n",
		"generated/schema.go": "package generated\n",
		".hidden/secret.go":   "package secret\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("generated/\n"), 0644))

	s := newTestServer(t, root)

	decode := func(res *mcp.CallToolResult) FilesResult {
		t.Helper()
		require.False(t, res.IsError, resultText(t, res))
		var out FilesResult
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
		return out
	}

	res, err := s.handleListFiles(context.Background(), call(nil))
	require.NoError(t, err)
	out := decode(res)

	var paths []string
	for _, f := range out.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"main.go", "pkg/notes.txt", "pkg/util.py"}, paths)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, map[string]int{"go": 1, "python": 1}, out.Languages)
	assert.False(t, out.Truncated)

	res, err = s.handleListFiles(context.Background(), call(map[string]any{"path": "pkg", "limit": 1}))
	require.NoError(t, err)
	out = decode(res)
	assert.Equal(t, 2, out.Total)
	assert.Len(t, out.Files, 1)
	assert.True(t, out.Truncated)

	res, err = s.handleListFiles(context.Background(), call(map[string]any{"path": "../"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleListFiles(context.Background(), call(map[string]any{"path": "main.go"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
