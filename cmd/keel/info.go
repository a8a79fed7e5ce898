package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/keel"
	"github.com/jward/keel/scripts"
)

func newInfoCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info [DIGEST]",
		Short: "List indexed units",
		Long:  "Lists every indexed unit, or only the unit whose digest starts with DIGEST.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, flags, args)
		},
	}
}

func runInfo(cmd *cobra.Command, flags *cliFlags, args []string) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	d, err := keel.New(cfg, keel.WithScriptsFS(scripts.FS))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer d.Close()

	units, err := d.Query().Units()
	if err != nil {
		return err
	}
	var out []CLIUnit
	for _, u := range units {
		if len(args) == 1 && !strings.HasPrefix(u.Digest, args[0]) {
			continue
		}
		n, err := d.Store().EntryCount(u.ID)
		if err != nil {
			return err
		}
		out = append(out, CLIUnit{
			ID:          u.ID,
			Digest:      u.Digest,
			VName:       u.VName.String(),
			RunID:       u.RunID,
			SourceCount: u.SourceCount,
			Entries:     n,
			IndexedAt:   u.IndexedAt,
		})
	}
	if len(args) == 1 && len(out) == 0 {
		return fmt.Errorf("no unit with digest %s", args[0])
	}
	return output(cmd.OutOrStdout(), flags.format, CLIResult{Command: "info", Results: out})
}
