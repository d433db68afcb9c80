// Package watch selects documents under a directory and re-chunks them when
// they change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Matcher decides which paths under a root are chunked.
// Patterns use .gitignore syntax.
type Matcher struct {
	root      string
	include   *gitignore.GitIgnore // nil means everything
	exclude   *gitignore.GitIgnore
	gitignore *gitignore.GitIgnore // root .gitignore, if present
}

// NewMatcher compiles include and exclude patterns for root. A .gitignore at
// the root is honored as an additional exclude list; one that cannot be read
// is logged and skipped.
func NewMatcher(root string, include, exclude []string) *Matcher {
	m := &Matcher{root: root}
	if len(include) > 0 {
		m.include = gitignore.CompileIgnoreLines(include...)
	}
	if len(exclude) > 0 {
		m.exclude = gitignore.CompileIgnoreLines(exclude...)
	}

	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		gi, err := gitignore.CompileIgnoreFile(gitignorePath)
		if err != nil {
			slog.Warn("failed to read .gitignore, its patterns are not applied", "path", gitignorePath, "error", err)
		} else {
			m.gitignore = gi
		}
	}
	return m
}

// Root returns the directory the matcher is anchored at.
func (m *Matcher) Root() string {
	return m.root
}

func (m *Matcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(m.root, path)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (m *Matcher) excluded(rel string) bool {
	if m.exclude != nil && m.exclude.MatchesPath(rel) {
		return true
	}
	return m.gitignore != nil && m.gitignore.MatchesPath(rel)
}

// MatchFile reports whether the file at path should be chunked.
func (m *Matcher) MatchFile(path string) bool {
	rel, ok := m.rel(path)
	if !ok || rel == "." {
		return false
	}
	if isHidden(filepath.Base(rel)) || m.excluded(rel) {
		return false
	}
	return m.include == nil || m.include.MatchesPath(rel)
}

// SkipDir reports whether the directory at path should not be descended.
func (m *Matcher) SkipDir(path string) bool {
	rel, ok := m.rel(path)
	if !ok {
		return true
	}
	if rel == "." {
		return false
	}
	return isHidden(filepath.Base(rel)) || m.excluded(rel+"/")
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Scan walks the matcher's root and returns every matching file, in lexical
// order.
func Scan(ctx context.Context, m *Matcher) ([]string, error) {
	var files []string
	err := filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if m.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if m.MatchFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
