package main

import "time"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIUnit is a JSON-friendly indexed unit.
type CLIUnit struct {
	ID          int64     `json:"id"`
	Digest      string    `json:"digest"`
	VName       string    `json:"vname"`
	RunID       string    `json:"run_id"`
	SourceCount int       `json:"source_count"`
	Entries     int       `json:"entries"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// CLIIndexed summarizes one unit indexed by the index command.
type CLIIndexed struct {
	Digest      string   `json:"digest"`
	Files       int      `json:"files"`
	Entries     int      `json:"entries"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// CLIValidation is the validate command's verdict on one unit.
type CLIValidation struct {
	Source string `json:"source"`
	Digest string `json:"digest"`
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
}
