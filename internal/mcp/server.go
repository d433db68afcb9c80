// Package mcp implements the MCP server exposing chunking as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/spetr/codesplit/internal/chunking"
	"github.com/spetr/codesplit/internal/watch"
	"github.com/spetr/codesplit/pkg/provider"
	"github.com/spetr/codesplit/pkg/types"
)

// maxFileSize bounds files read by chunk_file.
const maxFileSize = 10 << 20

// Server implements the MCP server.
type Server struct {
	mcpServer *server.MCPServer
	service   *chunking.Service
	registry  *provider.Registry
	detector  provider.LanguageDetector
	matcher   *watch.Matcher
	root      string
	logger    *slog.Logger
}

// Config contains server configuration.
type Config struct {
	Service  *chunking.Service
	Registry *provider.Registry
	Detector provider.LanguageDetector
	Root     string // chunk_file paths are resolved against and confined to Root
	Include  []string
	Exclude  []string
	Version  string
	Logger   *slog.Logger
}

// New creates a new MCP server.
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("%w: mcp server requires a chunking service and a registry", types.ErrInvalidConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}

	s := &Server{
		service:  cfg.Service,
		registry: cfg.Registry,
		detector: cfg.Detector,
		matcher:  watch.NewMatcher(root, cfg.Include, cfg.Exclude),
		root:     root,
		logger:   cfg.Logger,
	}

	mcpServer := server.NewMCPServer(
		"codesplit",
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s, nil
}

// registerTools registers all MCP tools.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	// chunk_text - Chunk inline text
	mcpServer.AddTool(mcp.NewTool("chunk_text",
		mcp.WithDescription("Split source text into structure-aware chunks"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Source text to chunk")),
		mcp.WithString("language", mcp.Description("Grammar hint (e.g. go, python); detected when omitted")),
		mcp.WithNumber("max_chars", mcp.Description("Split budget in bytes (default 1536)")),
		mcp.WithNumber("coalesce", mcp.Description("Minimum non-whitespace bytes of a standalone chunk (default 50)")),
		mcp.WithNumber("window", mcp.Description("Fallback window in lines (default 50)")),
		mcp.WithNumber("overlap", mcp.Description("Fallback overlap in lines (default 10)")),
		mcp.WithBoolean("include_content", mcp.Description("Include chunk text in the result (default true)")),
	), s.handleChunkText)

	// chunk_file - Chunk a file under the project root
	mcpServer.AddTool(mcp.NewTool("chunk_file",
		mcp.WithDescription("Split a file into structure-aware chunks"),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path (relative to project root)")),
		mcp.WithString("language", mcp.Description("Grammar hint; detected from the file extension when omitted")),
		mcp.WithNumber("max_chars", mcp.Description("Split budget in bytes (default 1536)")),
		mcp.WithNumber("coalesce", mcp.Description("Minimum non-whitespace bytes of a standalone chunk (default 50)")),
		mcp.WithBoolean("include_content", mcp.Description("Include chunk text in the result (default true)")),
	), s.handleChunkFile)

	// list_files - Chunkable files
	mcpServer.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List files under the project root that chunk_file accepts, with their detected language"),
		mcp.WithString("path", mcp.Description("Subdirectory to list (relative to project root)")),
		mcp.WithNumber("limit", mcp.Description("Maximum files returned (default 500)")),
	), s.handleListFiles)

	// list_grammars - Available grammars
	mcpServer.AddTool(mcp.NewTool("list_grammars",
		mcp.WithDescription("List available grammars, their aliases and the selection order"),
	), s.handleListGrammars)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func options(req mcp.CallToolRequest) chunking.Options {
	return chunking.Options{
		Grammar:  req.GetString("language", ""),
		MaxChars: req.GetInt("max_chars", 0),
		Coalesce: req.GetInt("coalesce", 0),
		Window:   req.GetInt("window", 0),
		Overlap:  req.GetInt("overlap", 0),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleChunkText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	src := []byte(text)
	res, err := s.service.Chunk(ctx, src, options(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chunking failed: %v", err)), nil
	}

	return jsonResult(chunking.NewReport(res, src, req.GetBool("include_content", true)))
}

// resolve maps a tool path argument to a file inside the root. Symlinks are
// followed before the containment check, so a link pointing out of the root
// is rejected.
func (s *Server) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)

	if !s.contains(path) {
		return "", fmt.Errorf("path %s is outside the project root", path)
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !s.contains(real) {
		return "", fmt.Errorf("path %s is outside the project root", path)
	}
	return real, nil
}

func (s *Server) contains(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	return err == nil && filepath.IsLocal(rel)
}

func (s *Server) handleChunkFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arg := req.GetString("path", "")
	if arg == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	path, err := s.resolve(arg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to stat file: %v", err)), nil
	}
	if info.IsDir() {
		return mcp.NewToolResultError(fmt.Sprintf("%s is a directory", arg)), nil
	}
	if info.Size() > maxFileSize {
		return mcp.NewToolResultError(fmt.Sprintf("%s is too large (%d bytes)", arg, info.Size())), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read file: %v", err)), nil
	}

	rel, _ := filepath.Rel(s.root, path)
	file := &types.SourceFile{Path: filepath.ToSlash(rel), Content: content}
	if s.detector != nil {
		file.Language = s.detector.DetectLanguage(path)
	}

	res, err := s.service.ChunkFile(ctx, file, options(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chunking failed: %v", err)), nil
	}

	s.logger.Debug("chunk_file", "path", file.Path, "strategy", res.Strategy, "chunks", len(res.Chunks))
	return jsonResult(chunking.NewReport(res, content, req.GetBool("include_content", true)))
}

type grammarInfo struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

func (s *Server) handleListGrammars(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := s.registry.ListGrammars()
	grammars := make([]grammarInfo, len(names))
	for i, name := range names {
		grammars[i] = grammarInfo{Name: name, Aliases: s.registry.AliasesOf(name)}
	}

	return jsonResult(map[string]any{
		"grammars":   grammars,
		"candidates": s.registry.Candidates(),
	})
}
