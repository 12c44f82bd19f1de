package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eargollo/finder/internal/config"
	"github.com/eargollo/finder/internal/search"
)

// Version is injected at build time via -ldflags; defaults to "dev".
var Version = "dev"

const usage = "finder <start_dir> <target_filename>"

type flags struct {
	configPath    string
	workers       int
	queueCapacity int
	logLevel      string
}

// NewRootCommand builds the finder command. Matches and the completion line
// go to stdout; logs go to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   usage,
		Short: "Search a directory tree in parallel for files with a given name",
		Long: `finder walks every directory below start_dir with a fixed pool of
workers and prints each regular file whose name equals target_filename.
Symbolic links are never followed.`,
		Version: Version,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: %s", usage)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args[0], args[1], stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to an optional YAML config file")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "number of search workers (default 8)")
	cmd.Flags().IntVar(&f.queueCapacity, "queue-capacity", 0, "bound on pending directories; 0 means unbounded")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (default warn)")
	return cmd
}

func run(cmd *cobra.Command, f flags, startArg, target string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = f.workers
	}
	if cmd.Flags().Changed("queue-capacity") {
		cfg.QueueCapacity = f.queueCapacity
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))

	start, err := search.Realpath(startArg)
	if err != nil {
		return fmt.Errorf("realpath %q: %w", startArg, err)
	}

	s := search.New(target, cfg.Search(), search.NewLineReporter(stdout), search.WithLogger(logger))
	if _, err := s.Run(cmd.Context(), start, nil); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Search complete.")
	return nil
}
