package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/doITmagic/repo-similarity/internal/compare"
	"github.com/doITmagic/repo-similarity/internal/config"
	"github.com/doITmagic/repo-similarity/internal/healthcheck"
	"github.com/doITmagic/repo-similarity/internal/history"
	"github.com/doITmagic/repo-similarity/internal/llm"
	"github.com/doITmagic/repo-similarity/internal/workspace"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// historySize is how many watch-mode runs are remembered
const historySize = 20

// analyzeOptions are the command-line overrides of the analyze command
type analyzeOptions struct {
	out       string
	pretty    bool
	watch     bool
	debounce  time.Duration
	threshold float64
	languages []string
	provider  string
	exclude   []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "repo-similarity",
		Short:         "Measure how similar two source repositories are",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine, the environment may already be set
			_ = godotenv.Load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")

	var opts analyzeOptions
	analyzeCmd := &cobra.Command{
		Use:   "analyze <repoA> <repoB>",
		Short: "Compare two repositories and print the match report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd, &opts)
			if err != nil {
				return err
			}
			closer, err := setupLogging(cfg.Logging)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAnalyze(ctx, cfg, args[0], args[1], &opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	analyzeCmd.Flags().StringVar(&opts.out, "out", "", "Write the report to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the JSON report")
	analyzeCmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-run the analysis whenever either repository changes")
	analyzeCmd.Flags().DurationVar(&opts.debounce, "debounce", workspace.DefaultDebounce, "Quiet period before a watched change triggers a run")
	analyzeCmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Drop function pairs scoring below this value")
	analyzeCmd.Flags().StringSliceVar(&opts.languages, "languages", nil, "Languages to extract (python, php, go, auto)")
	analyzeCmd.Flags().StringVar(&opts.provider, "provider", "", "Embedding provider (ollama, gemini, hashing)")
	analyzeCmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Glob patterns to skip, relative to each repository")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the configured embedding provider is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := config.WriteDefault(configPath)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote default configuration to %s\n", configPath)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s already exists, left unchanged\n", configPath)
			}
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "repo-similarity\nVersion:    %s\nCommit:     %s\nBuild Date: %s\n", Version, Commit, Date)
		},
	}

	rootCmd.AddCommand(analyzeCmd, checkCmd, initCmd, versionCmd)
	return rootCmd
}

// loadConfig applies precedence: flags > environment > config file > defaults
func loadConfig(path string, cmd *cobra.Command, opts *analyzeOptions) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Similarity.FunctionThreshold = opts.threshold
	}
	if flags.Changed("languages") {
		cfg.Similarity.Languages = opts.languages
	}
	if flags.Changed("provider") {
		cfg.LLM.Provider = opts.provider
	}
	if flags.Changed("exclude") {
		cfg.Similarity.Exclude = append(cfg.Similarity.Exclude, opts.exclude...)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runAnalyze(ctx context.Context, cfg *config.Config, repoA, repoB string, opts *analyzeOptions, stdout, stderr io.Writer) error {
	provider, err := llm.NewProvider(ctx, &cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}

	engine := compare.NewEngine(cfg, provider)
	runs := history.New(historySize)
	run := func() error {
		start := time.Now()
		score, report, err := engine.Analyze(ctx, repoA, repoB)
		if err != nil {
			return err
		}
		if err := writeReport(report, opts, stdout); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "similarity score: %.2f\n", score)

		runs.Add(history.Run{
			At:            start,
			Score:         score,
			FunctionPairs: len(report.Functions),
			ModelPairs:    len(report.Models),
			Duration:      time.Since(start),
		})
		if delta, ok := runs.Delta(); ok {
			fmt.Fprintf(stderr, "score change since previous run: %+.2f\n", delta)
		}
		return nil
	}

	if err := run(); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return watch(ctx, []string{repoA, repoB}, opts.debounce, run)
}

// watch re-runs fn after changes below roots until ctx is cancelled. A
// failed re-run is logged and the watch continues.
func watch(ctx context.Context, roots []string, debounce time.Duration, fn func() error) error {
	trigger := make(chan struct{}, 1)
	w, err := workspace.NewFileWatcher(roots, debounce, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	slog.Info("watching for changes", "roots", roots)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			slog.Info("change detected, re-running analysis")
			if err := fn(); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				slog.Error("analysis failed", "error", err)
			}
		}
	}
}

func writeReport(report *compare.MatchReport, opts *analyzeOptions, stdout io.Writer) error {
	data, err := report.JSON(opts.pretty)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	if opts.out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	slog.Info("report written", "path", opts.out)
	return nil
}

func runCheck(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	var results []healthcheck.CheckResult
	provider, err := llm.NewProvider(ctx, &cfg.LLM)
	if err != nil {
		results = append(results, healthcheck.CheckResult{
			Service: "Encoder",
			Status:  "error",
			Error:   err,
			Message: err.Error(),
		})
		if cfg.LLM.Provider == "ollama" {
			results = append(results, healthcheck.CheckOllama(ctx, cfg.LLM.OllamaBaseURL))
		}
	} else {
		results = healthcheck.CheckAll(ctx, &cfg.LLM, provider)
	}

	fmt.Fprint(stderr, healthcheck.FormatResults(results))
	if !healthcheck.Healthy(results) {
		fmt.Fprintln(stderr, healthcheck.GetRemediation(results))
		return errors.New("dependency check failed")
	}
	return nil
}
