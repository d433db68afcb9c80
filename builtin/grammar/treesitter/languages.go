package treesitter

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	tsc "github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/cue"
	"github.com/smacker/go-tree-sitter/dockerfile"
	"github.com/smacker/go-tree-sitter/elixir"
	"github.com/smacker/go-tree-sitter/elm"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/groovy"
	"github.com/smacker/go-tree-sitter/hcl"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/lua"
	tsmarkdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	"github.com/smacker/go-tree-sitter/ocaml"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/protobuf"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/svelte"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	tstype "github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// Language describes one bundled tree-sitter grammar.
type Language struct {
	Name       string
	Aliases    []string
	Extensions []string
	Filenames  []string // exact base names, lower case (e.g., "dockerfile")
	load       func() *sitter.Language
}

// languages is the table of bundled grammars.
var languages = []Language{
	{Name: "python", Aliases: []string{"py"}, Extensions: []string{".py", ".pyi"}, load: python.GetLanguage},
	{Name: "java", Extensions: []string{".java"}, load: java.GetLanguage},
	{Name: "cpp", Aliases: []string{"c++", "hpp", "cc", "cxx"}, Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"}, load: cpp.GetLanguage},
	{Name: "go", Aliases: []string{"golang"}, Extensions: []string{".go"}, load: golang.GetLanguage},
	{Name: "rust", Aliases: []string{"rs"}, Extensions: []string{".rs"}, load: rust.GetLanguage},
	{Name: "ruby", Aliases: []string{"rb"}, Extensions: []string{".rb"}, load: ruby.GetLanguage},
	{Name: "php", Extensions: []string{".php"}, load: php.GetLanguage},
	{Name: "javascript", Aliases: []string{"js", "jsx"}, Extensions: []string{".js", ".mjs", ".cjs", ".jsx"}, load: javascript.GetLanguage},
	{Name: "typescript", Aliases: []string{"ts"}, Extensions: []string{".ts", ".mts", ".cts"}, load: tstype.GetLanguage},
	{Name: "tsx", Extensions: []string{".tsx"}, load: tsx.GetLanguage},
	{Name: "c", Aliases: []string{"h"}, Extensions: []string{".c", ".h"}, load: tsc.GetLanguage},
	{Name: "csharp", Aliases: []string{"cs", "c#"}, Extensions: []string{".cs"}, load: csharp.GetLanguage},
	{Name: "kotlin", Aliases: []string{"kt", "kts"}, Extensions: []string{".kt", ".kts"}, load: kotlin.GetLanguage},
	{Name: "swift", Extensions: []string{".swift"}, load: swift.GetLanguage},
	{Name: "scala", Aliases: []string{"sc"}, Extensions: []string{".scala", ".sc"}, load: scala.GetLanguage},
	{Name: "lua", Extensions: []string{".lua"}, load: lua.GetLanguage},
	{Name: "bash", Aliases: []string{"sh", "shell"}, Extensions: []string{".sh", ".bash"}, load: bash.GetLanguage},
	{Name: "css", Extensions: []string{".css"}, load: css.GetLanguage},
	{Name: "html", Aliases: []string{"htm", "xhtml"}, Extensions: []string{".html", ".htm", ".xhtml"}, load: html.GetLanguage},
	{Name: "svelte", Extensions: []string{".svelte"}, load: svelte.GetLanguage},
	{Name: "yaml", Aliases: []string{"yml"}, Extensions: []string{".yaml", ".yml"}, load: yaml.GetLanguage},
	{Name: "toml", Extensions: []string{".toml"}, load: toml.GetLanguage},
	{Name: "hcl", Aliases: []string{"tf", "terraform"}, Extensions: []string{".hcl", ".tf"}, load: hcl.GetLanguage},
	{Name: "elixir", Aliases: []string{"ex", "exs"}, Extensions: []string{".ex", ".exs"}, load: elixir.GetLanguage},
	{Name: "elm", Extensions: []string{".elm"}, load: elm.GetLanguage},
	{Name: "groovy", Aliases: []string{"gradle"}, Extensions: []string{".groovy", ".gradle"}, load: groovy.GetLanguage},
	{Name: "ocaml", Aliases: []string{"ml", "mli"}, Extensions: []string{".ml", ".mli"}, load: ocaml.GetLanguage},
	{Name: "protobuf", Aliases: []string{"proto"}, Extensions: []string{".proto"}, load: protobuf.GetLanguage},
	{Name: "sql", Extensions: []string{".sql"}, load: sql.GetLanguage},
	{Name: "dockerfile", Aliases: []string{"docker"}, Filenames: []string{"dockerfile", "containerfile"}, load: dockerfile.GetLanguage},
	{Name: "cue", Extensions: []string{".cue"}, load: cue.GetLanguage},
	{Name: "markdown", Aliases: []string{"md"}, Extensions: []string{".md", ".markdown"}, load: tsmarkdown.GetLanguage},
}

// DefaultCandidates is the selection order used when no hint is given.
var DefaultCandidates = []string{"python", "java", "cpp", "go", "rust", "ruby", "php"}

// Languages returns the bundled grammar table.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// DetectLanguage returns the grammar name for a file path, or "" if unknown.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.ToLower(filepath.Base(path))

	for _, l := range languages {
		for _, f := range l.Filenames {
			if base == f || strings.HasPrefix(base, f+".") {
				return l.Name
			}
		}
	}
	if ext == "" {
		return ""
	}
	for _, l := range languages {
		for _, e := range l.Extensions {
			if ext == e {
				return l.Name
			}
		}
	}
	return ""
}

// Detector implements provider.LanguageDetector over the bundled table.
type Detector struct{}

// DetectLanguage returns the grammar name for a file path.
func (Detector) DetectLanguage(filePath string) string {
	return DetectLanguage(filePath)
}
