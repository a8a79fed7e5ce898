package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/keel/internal/manifest"
	"github.com/jward/keel/internal/vfs"
)

func newValidateCmd(flags *cliFlags) *cobra.Command {
	var filesDir string
	cmd := &cobra.Command{
		Use:   "validate INPUT...",
		Short: "Check compilation units without indexing them",
		Long: "Checks that every required input of each unit has content matching its digest and " +
			"that every source file is a required input.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, flags, filesDir, args)
		},
	}
	cmd.Flags().StringVar(&filesDir, "files-dir", "", "directory of input contents for unit JSON inputs")
	return cmd
}

func runValidate(cmd *cobra.Command, flags *cliFlags, filesDir string, inputs []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var results []CLIValidation
	var invalid int
	for _, input := range inputs {
		res, err := validateInput(ctx, input, filesDir)
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
		for _, r := range res {
			if !r.Valid {
				invalid++
			}
		}
		results = append(results, res...)
	}

	if err := output(cmd.OutOrStdout(), flags.format, CLIResult{Command: "validate", Results: results}); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d units invalid", invalid, len(results))
	}
	return nil
}

func validateInput(ctx context.Context, input, filesDir string) ([]CLIValidation, error) {
	if strings.HasSuffix(input, ".kzip") {
		r, err := manifest.OpenArchive(input)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		units, err := r.Units()
		if err != nil {
			return nil, err
		}
		out := make([]CLIValidation, 0, len(units))
		for _, au := range units {
			out = append(out, verdict(input, au.Digest, manifest.Validate(ctx, au.Unit, r)))
		}
		return out, nil
	}

	if filesDir == "" {
		return nil, errors.New("--files-dir is required for unit files")
	}
	unit, err := manifest.LoadUnit(input)
	if err != nil {
		return nil, err
	}
	digest, err := unit.Digest()
	if err != nil {
		return nil, err
	}
	return []CLIValidation{verdict(input, digest, manifest.Validate(ctx, unit, vfs.DirProvider(filesDir)))}, nil
}

func verdict(source, digest string, err error) CLIValidation {
	v := CLIValidation{Source: source, Digest: digest, Valid: err == nil}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}
