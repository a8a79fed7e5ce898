package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// output writes result in the selected format.
func output(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return outputText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputText dispatches to the appropriate text formatter based on the
// result type.
func outputText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIUnit:
		formatUnitsText(w, v)
	case []CLIIndexed:
		formatIndexedText(w, v)
	case []CLIValidation:
		formatValidationsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatUnitsText formats CLIUnit results as aligned columns.
func formatUnitsText(w io.Writer, units []CLIUnit) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDIGEST\tVNAME\tSOURCES\tENTRIES\tINDEXED")
	for _, u := range units {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			u.ID, shortDigest(u.Digest), u.VName, u.SourceCount, u.Entries, u.IndexedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

// formatIndexedText formats CLIIndexed results, with diagnostics indented
// under their unit.
func formatIndexedText(w io.Writer, results []CLIIndexed) {
	for _, r := range results {
		fmt.Fprintf(w, "%s: %d files, %d entries\n", shortDigest(r.Digest), r.Files, r.Entries)
		for _, d := range r.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
}

func formatValidationsText(w io.Writer, results []CLIValidation) {
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "ok    %s (%s)\n", r.Source, shortDigest(r.Digest))
			continue
		}
		fmt.Fprintf(w, "FAIL  %s (%s)\n", r.Source, shortDigest(r.Digest))
		for _, line := range strings.Split(r.Error, "\n") {
			fmt.Fprintf(w, "      %s\n", line)
		}
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
