// Command nbtlai translates the markdown and code cells of Jupyter notebooks.
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

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ZaguanLabs/nbtlai"
	"github.com/ZaguanLabs/nbtlai/config"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = nbtlai.Version
	commit    = nbtlai.GitCommit
	buildDate = nbtlai.BuildDate
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type options struct {
	configPath string
	source     string
	target     string
	translator string
	delay      int
	attempts   int
	context    string
	output     string
	cacheKind  string
	cacheFile  string
	diffFile   string
	rename     bool
	print      bool
	dryRun     bool
	jsonOutput bool
	verbose    bool
	version    bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	defaults := config.Default()
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "nbtlai [flags] <notebook.ipynb>",
		Short:         nbtlai.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.version {
				printVersion(stdout)
				return nil
			}
			if len(args) == 0 {
				return errors.New("a notebook file is required")
			}

			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}

			app := &app{
				cfg:    cfg,
				opts:   opts,
				stdout: stdout,
				stderr: stderr,
				logger: newLogger(stderr, opts.verbose),
			}
			return app.run(cmd.Context(), args[0])
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a TOML or YAML config file")
	flags.StringVar(&opts.source, "source", defaults.Source, "Source language code (auto to detect)")
	flags.StringVar(&opts.target, "target", "", "Target language code (required)")
	flags.StringVar(&opts.translator, "translator", defaults.Backend, "Translation backend")
	flags.IntVar(&opts.delay, "delay", defaults.Retry.DelaySeconds, "Seconds to wait between retries")
	flags.IntVar(&opts.attempts, "attempts", defaults.Retry.Attempts, "Backend calls per request before giving up")
	flags.StringVar(&opts.context, "context", "", "Hint for backends that accept one (e.g. 'Statistics course')")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file (default: <name>_<target>.ipynb)")
	flags.StringVar(&opts.cacheKind, "cache", defaults.Cache.Kind, "Cache store: none, memory, redis or sqlite")
	flags.StringVar(&opts.cacheFile, "cache-file", "", "JSON cache export to load before and save after the run")
	flags.StringVar(&opts.diffFile, "diff", "", "Compare with a previous version of the notebook and show changes")
	flags.BoolVar(&opts.rename, "rename", false, "Keep the original as <name>_bk.ipynb and write the translation in its place")
	flags.BoolVar(&opts.print, "print", false, "Print every translated span")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Show what would be translated without calling the backend")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Output the result as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&opts.version, "version", false, "Show version")

	return cmd
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", nbtlai.Name, version)
	if commit != "unknown" && commit != "" {
		fmt.Fprintf(w, "  commit:  %s\n", commit)
	}
	if buildDate != "unknown" && buildDate != "" {
		fmt.Fprintf(w, "  built:   %s\n", buildDate)
	}
}

// loadConfig reads the config file and overlays the flags the user set.
func loadConfig(flags *pflag.FlagSet, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("source") {
		cfg.Source = opts.source
	}
	if flags.Changed("target") {
		cfg.Target = opts.target
	}
	if flags.Changed("translator") {
		cfg.Backend = opts.translator
	}
	if flags.Changed("delay") {
		cfg.Retry.DelaySeconds = opts.delay
	}
	if flags.Changed("attempts") {
		cfg.Retry.Attempts = opts.attempts
	}
	if flags.Changed("cache") {
		cfg.Cache.Kind = opts.cacheKind
	}
	if flags.Changed("cache-file") {
		cfg.Cache.File = opts.cacheFile
	}
	if flags.Changed("rename") {
		cfg.Output.Rename = opts.rename
	}
	if flags.Changed("print") {
		cfg.Print = opts.print
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Output.Rename && opts.output != "" {
		return nil, errors.New("--output cannot be combined with --rename")
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("run", uuid.NewString())
}
