// Package scripts holds the Risor emission scripts compiled into the
// binary. emit/<language>.risor handles one language; emit/default.risor
// handles the rest.
package scripts

import "embed"

// FS holds the bundled scripts.
//
//go:embed emit/*.risor
var FS embed.FS
