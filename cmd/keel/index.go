package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/keel"
	"github.com/jward/keel/internal/manifest"
	"github.com/jward/keel/internal/vfs"
	"github.com/jward/keel/scripts"
)

type indexFlags struct {
	scriptsDir string
	filesDir   string
	tempDir    string
}

func newIndexCmd(flags *cliFlags) *cobra.Command {
	f := &indexFlags{}
	cmd := &cobra.Command{
		Use:   "index INPUT...",
		Short: "Index compilation units",
		Long: "Indexes each INPUT, either a .kzip archive or a unit JSON file. Unit files read their " +
			"inputs from --files-dir, where each file is named by its SHA-256 digest.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, flags, f, args)
		},
	}
	cmd.Flags().StringVar(&f.scriptsDir, "scripts-dir", "", "load scripts from disk path instead of embedded")
	cmd.Flags().StringVar(&f.filesDir, "files-dir", "", "directory of input contents for unit JSON inputs")
	cmd.Flags().StringVar(&f.tempDir, "temp-dir", "", "directory for materialized system images (overrides frontend.temp_dir)")
	return cmd
}

func runIndex(cmd *cobra.Command, flags *cliFlags, f *indexFlags, inputs []string) error {
	start := time.Now()
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if f.tempDir != "" {
		cfg.Frontend.TempDir = f.tempDir
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := []keel.Option{keel.WithLogger(log)}
	// Script source: --scripts-dir overrides embedded FS.
	if f.scriptsDir != "" {
		cfg.Scripts.Dir = f.scriptsDir
	} else if cfg.Scripts.Dir == "" {
		opts = append(opts, keel.WithScriptsFS(scripts.FS))
	}

	d, err := keel.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("creating driver: %w", err)
	}
	defer d.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var results []CLIIndexed
	var errs []error
	for _, input := range inputs {
		res, err := indexInput(ctx, d, input, f.filesDir)
		for _, r := range res {
			results = append(results, indexedToCLI(r))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", input, err))
		}
	}

	if err := output(cmd.OutOrStdout(), flags.format, CLIResult{Command: "index", Results: results}); err != nil {
		return err
	}
	log.Info("index finished",
		zap.Int("units", len(results)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
		zap.String("db", cfg.Store.Path))
	return errors.Join(errs...)
}

// indexInput indexes an archive or a single unit file.
func indexInput(ctx context.Context, d *keel.Driver, input, filesDir string) ([]*keel.Result, error) {
	if strings.HasSuffix(input, ".kzip") {
		return d.IndexArchive(ctx, input)
	}
	if filesDir == "" {
		return nil, errors.New("--files-dir is required for unit files")
	}
	unit, err := manifest.LoadUnit(input)
	if err != nil {
		return nil, err
	}
	res, err := d.IndexUnit(ctx, unit, vfs.DirProvider(filesDir))
	if res == nil {
		return nil, err
	}
	return []*keel.Result{res}, err
}

func indexedToCLI(r *keel.Result) CLIIndexed {
	out := CLIIndexed{Digest: r.Unit.Digest, Files: r.Files, Entries: r.Entries}
	for _, d := range r.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, d.String())
	}
	return out
}
