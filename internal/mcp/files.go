package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spetr/codesplit/internal/watch"
)

// FileInfo describes one chunkable file under the root.
type FileInfo struct {
	Path     string `json:"path"` // relative to the root, slash separated
	Size     int64  `json:"size"`
	Language string `json:"language,omitempty"`
	TooLarge bool   `json:"too_large,omitempty"` // chunk_file would reject it
}

// FilesResult is the result of list_files.
type FilesResult struct {
	Files     []FileInfo     `json:"files"`
	Total     int            `json:"total"`
	Languages map[string]int `json:"languages"`
	Truncated bool           `json:"truncated,omitempty"`
}

const defaultFileLimit = 500

func (s *Server) handleListFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultFileLimit)
	if limit <= 0 {
		limit = defaultFileLimit
	}

	dir := s.root
	if sub := req.GetString("path", ""); sub != "" {
		resolved, err := s.resolve(sub)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.IsDir() {
			return mcp.NewToolResultError(fmt.Sprintf("directory not found: %s", sub)), nil
		}
		dir = resolved
	}

	paths, err := watch.Scan(ctx, s.matcher)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list files: %v", err)), nil
	}

	result := FilesResult{Files: []FileInfo{}, Languages: make(map[string]int)}
	for _, path := range paths {
		if dir != s.root {
			if rel, err := filepath.Rel(dir, path); err != nil || !filepath.IsLocal(rel) {
				continue
			}
		}

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		rel, _ := filepath.Rel(s.root, path)

		fi := FileInfo{
			Path:     filepath.ToSlash(rel),
			Size:     info.Size(),
			TooLarge: info.Size() > maxFileSize,
		}
		if s.detector != nil {
			fi.Language = s.detector.DetectLanguage(path)
		}

		result.Total++
		if fi.Language != "" {
			result.Languages[fi.Language]++
		}
		if len(result.Files) < limit {
			result.Files = append(result.Files, fi)
		} else {
			result.Truncated = true
		}
	}

	return jsonResult(result)
}
