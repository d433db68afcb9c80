package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	_ "github.com/spetr/codesplit/builtin"
	"github.com/spetr/codesplit/builtin/grammar/treesitter"
	"github.com/spetr/codesplit/internal/chunking"
	"github.com/spetr/codesplit/internal/config"
	"github.com/spetr/codesplit/internal/mcp"
	"github.com/spetr/codesplit/internal/suggest"
	"github.com/spetr/codesplit/internal/watch"
	"github.com/spetr/codesplit/pkg/provider"
)

var (
	version   = "dev"
	cfgFile   string
	logLevel  string
	logFormat string

	// cfg is loaded once before any command runs.
	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "codesplit",
	Short: "Structure-aware source code chunker",
	Long: `codesplit splits source files into contiguous, line-annotated chunks
that follow the syntax tree of the file. Text that no bundled grammar parses
cleanly is split into overlapping line windows instead.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		setupLogging(cmd)
		for _, w := range configWarnings {
			slog.Debug(w)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codesplit %s\n", version)
		fmt.Printf("  Go: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var grammarsCmd = &cobra.Command{
	Use:   "grammars",
	Short: "List bundled grammars",
	Long: `List the bundled grammars with their aliases. Grammars marked with *
are tried, in order, when no language hint is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		runGrammars()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-chunk files as they change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		debounce, _ := cmd.Flags().GetInt("debounce")
		runWatch(path, debounce)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Run: func(cmd *cobra.Command, args []string) {
		root, _ := cmd.Flags().GetString("root")
		runServe(root)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		runConfigInit(force)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigValidate()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigShow()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: .codesplit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	chunkCmd.Flags().StringP("language", "l", "", "grammar hint (detected from the file extension when omitted)")
	chunkCmd.Flags().String("strategy", "", "chunking strategy (auto, structural, simple)")
	chunkCmd.Flags().Int("max-chars", 0, "structural split budget in bytes")
	chunkCmd.Flags().Int("coalesce", 0, "minimum non-whitespace bytes of a standalone chunk")
	chunkCmd.Flags().Int("window", 0, "fallback window in lines")
	chunkCmd.Flags().Int("overlap", 0, "lines shared by consecutive fallback windows")
	chunkCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml)")
	chunkCmd.Flags().Bool("content", false, "include chunk text in the output")
	chunkCmd.Flags().Bool("no-color", false, "disable colored output")
	chunkCmd.Flags().IntP("workers", "w", 0, "files chunked in parallel (default: chunking.workers or NumCPU)")

	watchCmd.Flags().Int("debounce", 0, "debounce time in milliseconds (default: watch.debounce)")

	serveCmd.Flags().String("root", ".", "directory chunk_file paths are confined to")

	configInitCmd.Flags().BoolP("force", "f", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(grammarsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

var configWarnings []string

func loadConfig() {
	var err error
	if cfgFile != "" {
		cfg, configWarnings, err = config.LoadFile(cfgFile)
	} else {
		cwd, _ := os.Getwd()
		cfg, configWarnings, err = config.Load(cwd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging configures slog. Flags win over the config file when set.
func setupLogging(cmd *cobra.Command) {
	levelName, formatName := logLevel, logFormat
	if !cmd.Flags().Changed("log-level") && cfg != nil {
		levelName = cfg.Logging.Level
	}
	if !cmd.Flags().Changed("log-format") && cfg != nil {
		formatName = cfg.Logging.Format
	}

	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if formatName == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newService builds the chunking service from the loaded configuration.
func newService() (*chunking.Service, error) {
	return chunking.New(chunking.Config{
		Lookup:     provider.DefaultRegistry,
		Detector:   treesitter.Detector{},
		Candidates: cfg.Chunking.Grammars,
		Strict:     cfg.Chunking.StrictSelection,
		MaxChars:   cfg.Chunking.MaxChars,
		Coalesce:   cfg.Chunking.CoalesceThreshold,
		Window:     cfg.Chunking.FallbackWindow,
		Overlap:    cfg.Chunking.FallbackOverlap,
		Logger:     slog.Default(),
	})
}

func runGrammars() {
	reg := provider.DefaultRegistry
	candidates := make(map[string]int)
	for i, name := range cfg.Chunking.Grammars {
		if canonical, ok := reg.Resolve(name); ok {
			candidates[canonical] = i + 1
		}
	}

	fmt.Println("Grammars:")
	for _, name := range reg.ListGrammars() {
		marker := " "
		if _, ok := candidates[name]; ok {
			marker = "*"
		}
		line := fmt.Sprintf("  %s %-12s", marker, name)
		if aliases := reg.AliasesOf(name); len(aliases) > 0 {
			line += " (" + strings.Join(aliases, ", ") + ")"
		}
		fmt.Println(strings.TrimRight(line, " "))
	}

	fmt.Printf("\nSelection order: %s\n", strings.Join(cfg.Chunking.Grammars, ", "))
}

func runWatch(path string, debounceMs int) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		slog.Error("failed to resolve path", "path", path, "error", err)
		os.Exit(1)
	}

	debounce := cfg.Watch.Debounce
	if debounceMs > 0 {
		debounce = time.Duration(debounceMs) * time.Millisecond
	}
	slog.Info("watching for changes", "path", absPath, "debounce", debounce)

	svc, err := newService()
	if err != nil {
		slog.Error("failed to create chunking service", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	watcher, err := watch.New(watch.Config{
		Matcher:  watch.NewMatcher(absPath, cfg.Watch.Include, cfg.Watch.Exclude),
		Service:  svc,
		Debounce: debounce,
		OnEvent: func(ev watch.Event) {
			rel, relErr := filepath.Rel(absPath, ev.Path)
			if relErr != nil {
				rel = ev.Path
			}
			switch {
			case ev.Err != nil:
				fmt.Printf("[watch] %s: %v\n", rel, ev.Err)
			case ev.Removed:
				fmt.Printf("[watch] Removed: %s\n", rel)
			default:
				fmt.Printf("[watch] Chunked: %s (%s, %d chunks)\n", rel, describe(ev.Result), len(ev.Result.Chunks))
			}
		},
		Logger: slog.Default(),
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()

	fmt.Printf("Watching %s for changes (press Ctrl+C to stop)\n", absPath)

	if err := watcher.Watch(ctx); err != nil {
		if ctx.Err() != nil {
			slog.Info("watcher stopped")
		} else {
			slog.Error("watcher error", "error", err)
			os.Exit(1)
		}
	}
}

func runServe(root string) {
	slog.Info("starting MCP server", "root", root)

	svc, err := newService()
	if err != nil {
		slog.Error("failed to create chunking service", "error", err)
		os.Exit(1)
	}

	server, err := mcp.New(mcp.Config{
		Service:  svc,
		Registry: provider.DefaultRegistry,
		Detector: treesitter.Detector{},
		Root:     root,
		Include:  cfg.Watch.Include,
		Exclude:  cfg.Watch.Exclude,
		Version:  version,
		Logger:   slog.Default(),
	})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ServeStdio() }()

	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("server stopped")
}

func configTarget() string {
	if cfgFile != "" {
		return cfgFile
	}
	cwd, _ := os.Getwd()
	return config.ConfigPath(cwd)
}

func runConfigInit(force bool) {
	path := configTarget()
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
		os.Exit(1)
	}

	if err := config.SaveFile(path, config.DefaultConfig()); err != nil {
		slog.Error("failed to save config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Created config at %s\n", path)
}

func runConfigValidate() {
	for _, w := range configWarnings {
		fmt.Printf("Warning: %s\n", w)
	}

	errs := config.Validate(cfg)
	for _, name := range cfg.Chunking.Grammars {
		if name != "" && !provider.DefaultRegistry.HasGrammar(name) {
			errs = append(errs, fmt.Errorf("chunking.grammars: %w", unknownGrammar(name)))
		}
	}

	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Printf("Error: %v\n", e)
		}
		os.Exit(1)
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Config hash: %s\n", cfg.Hash()[:16])
}

func runConfigShow() {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		slog.Error("failed to encode config", "error", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}

// unknownGrammar reports name as unknown, suggesting the closest grammar name
// or alias.
func unknownGrammar(name string) error {
	reg := provider.DefaultRegistry
	var known []string
	for _, g := range reg.ListGrammars() {
		known = append(known, g)
		known = append(known, reg.AliasesOf(g)...)
	}
	if closest := suggest.Closest(name, known); closest != "" {
		return fmt.Errorf("unknown grammar %q (did you mean %q?)", name, closest)
	}
	return fmt.Errorf("unknown grammar %q, run 'codesplit grammars' for the list", name)
}

// describe summarizes how a result was produced.
func describe(res *chunking.Result) string {
	if res.Grammar != "" {
		return fmt.Sprintf("%s, %s", res.Strategy, res.Grammar)
	}
	if res.Strategy == "" {
		return "empty"
	}
	return string(res.Strategy)
}
