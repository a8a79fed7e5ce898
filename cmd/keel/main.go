package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/keel/internal/config"
	"github.com/jward/keel/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the persistent flags shared by every command.
type cliFlags struct {
	config   string
	db       string
	logLevel string
	format   string
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}
	root := &cobra.Command{
		Use:           "keel",
		Short:         "Hermetic compilation driver for source indexing",
		Long:          "keel replays recorded compilation units against a manifest-backed filesystem, parses them with tree-sitter, and writes emitted graph entries to a SQLite database.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(flags.format)
		},
		// No Run: prints help by default.
	}

	root.PersistentFlags().StringVar(&flags.config, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&flags.db, "db", "", "database path (overrides store.path)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides log.level)")
	root.PersistentFlags().StringVar(&flags.format, "format", "text", "output format: json|text")

	root.AddCommand(newIndexCmd(flags))
	root.AddCommand(newInfoCmd(flags))
	root.AddCommand(newValidateCmd(flags))
	return root
}

// loadConfig reads the configuration and applies flag overrides.
func (f *cliFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if f.db != "" {
		cfg.Store.Path = f.db
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	return logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
}
