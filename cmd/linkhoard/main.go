package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/action"
	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/download"
	"github.com/linkhoard/linkhoard/internal/execx"
	"github.com/linkhoard/linkhoard/internal/extract"
	"github.com/linkhoard/linkhoard/internal/fix"
	"github.com/linkhoard/linkhoard/internal/httpx"
	"github.com/linkhoard/linkhoard/internal/pipeline"
	"github.com/linkhoard/linkhoard/internal/queue"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
	// Global flags
	cfgFile   string
	logLevel  string
	noColor   bool
	debugMode bool

	// Global config and logger
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "linkhoard",
	Short: "Download and normalize media from links",
	Long: `linkhoard turns links from social and media sites into clean local
files. It extracts the actual media URLs behind a post, downloads them,
and normalizes containers, codecs and filenames so every player and
gallery handles the result.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for config init command
		if cmd.Name() == "init" && cmd.Parent().Name() == "config" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize directories: %v\n", err)
			os.Exit(1)
		}

		var err error
		cfg, _, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if debugMode && logLevel == "" {
			cfg.Logging.Level = "debug"
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if noColor {
			cfg.Logging.Color = false
		}

		if debugMode {
			logger = config.NewConsoleLogger(&cfg.Logging)
			slog.SetDefault(logger)
		} else {
			logger, err = config.InitLogger(&cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		return nil
	},
}

// app bundles the wired registries for one invocation.
type app struct {
	resolver    *execx.Resolver
	client      *httpx.Client
	extractors  *extract.Registry
	downloaders *download.Registry
	fixers      *fix.Chain
	actions     *action.Registry
	pipeline    *pipeline.Pipeline
}

func buildApp() *app {
	resolver := execx.NewResolver(execx.Overrides{
		YTDLP:       cfg.Tools.YTDLP,
		FFmpeg:      cfg.Tools.FFmpeg,
		FFprobe:     cfg.Tools.FFprobe,
		SceneDetect: cfg.Tools.SceneDetect,
		ImageMagick: cfg.Tools.ImageMagick,
	}, logger)
	client := httpx.NewClient(logger)
	cacheDir := cfg.Runtime.CacheDir

	twitter := extract.NewTwitter(client, cfg.Endpoints.TwitterScreenshot)
	extractors := extract.NewRegistry(logger,
		extract.NewImgur(client),
		extract.NewInstagram(client),
		extract.NewReddit(),
		extract.NewTikTok(client),
		twitter,
		extract.NewTumblr(twitter),
		extract.NewBlueSky(client, twitter),
		extract.NewActivityPub(client, twitter, cfg.Runtime.DelegationHops),
		extract.NewMusic(),
	)

	generic := download.NewGeneric(client, logger)
	downloaders := download.NewRegistry(logger,
		download.NewYTDLP(resolver, generic, logger),
		generic,
		download.NewMusic(client, generic, logger),
	)

	fixers := fix.NewChain(logger,
		fix.NewExtension(),
		fix.NewFilename(),
		fix.NewMediaFormats(resolver, cacheDir),
		fix.NewCropVideoBars(resolver, cacheDir),
		fix.NewCropImage(resolver),
	)

	actions := action.NewRegistry(logger,
		action.NewCompact(resolver),
		action.NewSplitScenes(resolver, cacheDir),
		action.NewOCR(client, cfg.Endpoints.OCRAPI),
		action.NewRenameToID(),
		action.NewRemoveBackground(client, resolver, logger),
	)

	return &app{
		resolver:    resolver,
		client:      client,
		extractors:  extractors,
		downloaders: downloaders,
		fixers:      fixers,
		actions:     actions,
		pipeline:    pipeline.New(extractors, downloaders, fixers, cfg.Runtime.Fanout, logger),
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/linkhoard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode (log to console at debug level)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(actionCmd)
	rootCmd.AddCommand(listCmd)
}

// versionCmd displays version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("linkhoard version %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}

// configCmd handles configuration operations
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = filepath.Join(config.GetConfigDir(), "config.yaml")
		}
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s", configPath)
		}
		if err := config.SaveDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to save default configuration: %w", err)
		}
		fmt.Printf("Default configuration generated at: %s\n", configPath)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			fmt.Println(cfgFile)
		} else {
			fmt.Println(config.GetConfigDir())
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// getCmd runs the full ingest pipeline for one or more links
var getCmd = &cobra.Command{
	Use:   "get <url>...",
	Short: "Download and normalize the media behind one or more links",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Runtime.DownloadDir
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create download directory: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()
		a := buildApp()

		q := queue.New()
		var wg sync.WaitGroup
		var mu sync.Mutex
		failures := make(map[string]error)

		consumer := queue.NewConsumer(q, logger, cfg.Runtime.MaxRetries, func(t *queue.Task, err error) {
			mu.Lock()
			failures[t.Payload.(string)] = err
			mu.Unlock()
			wg.Done()
		})
		consumer.Handle("ingest", func(ctx context.Context, t *queue.Task) error {
			url := t.Payload.(string)
			res, err := a.pipeline.Ingest(ctx, extract.NewRequest(url), dir)
			if err != nil {
				return err
			}
			for _, f := range res.Files {
				if f.Err != nil {
					fmt.Fprintf(os.Stderr, "failed: %s: %v\n", f.URL, f.Err)
					continue
				}
				fmt.Println(f.Path)
			}
			wg.Done()
			return nil
		})

		for _, url := range args {
			wg.Add(1)
			q.Push(&queue.Task{Kind: "ingest", Payload: url})
		}
		go func() {
			wg.Wait()
			q.Close()
		}()
		consumer.Run(ctx)

		if err := ctx.Err(); err != nil {
			return err
		}
		if len(failures) > 0 {
			return fmt.Errorf("%d of %d links failed", len(failures), len(args))
		}
		return nil
	},
}

// fixCmd runs the fixer chain over existing files
var fixCmd = &cobra.Command{
	Use:   "fix <file>...",
	Short: "Normalize existing files (container, codec, extension, name)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a := buildApp()

		var firstErr error
		for _, path := range args {
			res, err := a.fixers.Run(ctx, &fix.Request{Path: path})
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed: %s: %v\n", path, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			fmt.Println(res.Path)
		}
		return firstErr
	},
}

// actionCmd invokes one named action on a file
var actionCmd = &cobra.Command{
	Use:   "action <name> <file>",
	Short: "Run a named action (compact, split-scenes, ocr, rename-to-id, remove-background)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a := buildApp()

		opts := make(map[string]any)
		if engine, _ := cmd.Flags().GetString("engine"); engine != "" {
			opts["engine"] = engine
		}
		if list, _ := cmd.Flags().GetBool("list-engines"); list {
			opts["list-engines"] = true
		}

		res, err := a.actions.Run(ctx, args[0], &action.Request{Path: args[1], Options: opts})
		if err != nil {
			return err
		}
		if res.Text != "" {
			fmt.Println(res.Text)
		}
		for _, f := range res.Files {
			fmt.Println(f)
		}
		return nil
	},
}

// listCmd shows what this environment can run
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available extractors, downloaders, fixers and actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp()
		fmt.Printf("Extractors:  %s\n", strings.Join(a.extractors.List(), ", "))
		fmt.Printf("Downloaders: %s\n", strings.Join(a.downloaders.List(), ", "))
		fmt.Printf("Fixers:      %s\n", strings.Join(a.fixers.List(), ", "))
		fmt.Printf("Actions:     %s\n", strings.Join(a.actions.List(), ", "))
		return nil
	},
}

func init() {
	getCmd.Flags().String("dir", "", "download directory (default: runtime.download_dir)")
	actionCmd.Flags().String("engine", "", "OCR engine name")
	actionCmd.Flags().Bool("list-engines", false, "list available OCR engines")
}
