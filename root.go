package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/orcid-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

// loadedCfg and logger hold the effective configuration and logger built by
// PersistentPreRunE. They are available to all subcommands after the root
// pre-run phase completes.
var (
	loadedCfg *config.Config
	logger    *slog.Logger
)

// httpClientTimeout is the default timeout for HTTP requests. Prevents a
// hung registry from blocking CLI commands indefinitely.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orcid-go",
		Short:   "ORCID project-metadata sync",
		Long:    "Synchronizes ORCID researcher records into positionally keyed project metadata, resolving organizations against the ROR registry.",
		Version: version,
		// Silence Cobra's default error/usage printing — main() handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault(flagConfigPath)
			if err != nil {
				return err
			}

			loadedCfg = cfg
			logger = setupLogger(cfg)

			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "orcid-go.toml", "path to config file")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "warnings and errors only")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newRecordCmd())
	cmd.AddCommand(newResolveCmd())

	return cmd
}

// setupLogger builds the process logger from config and flags. The "auto"
// format picks text on a terminal and JSON otherwise, so piped output stays
// machine-readable.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	// Flags outrank the config file.
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}

	useText := cfg.Logging.Format == "text" ||
		(cfg.Logging.Format == "auto" && isatty.IsTerminal(os.Stderr.Fd()))

	if useText {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
