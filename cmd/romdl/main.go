package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Ctrl-C during a download is a clean stop, not something to report.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "romdl: %v\n", err)
		}
		os.Exit(1)
	}
}
