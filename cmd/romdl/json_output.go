package main

import (
	"encoding/json"
	"io"
)

// writeJSON encodes v as indented JSON. Run reports and tool listings both
// go through here so --json output keeps one consistent, diffable shape.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
