// Command audiocapture is the non-interactive CLI surface over the
// audio-capture-library pipeline: record, mix, and serve subcommands
// wired to flags parsed via viper/cobra, replacing the legacy
// interactive control client spec.md's Non-goals leave out of scope.
package main

import (
	"fmt"
	"os"

	"github.com/sooth/audio-capture-library/internal/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := rootCommand(settings).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
