package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sooth/audio-capture-library/internal/config"
	"github.com/sooth/audio-capture-library/kit"
)

// mixCommand blends two capture devices (e.g. a loopback output and a
// microphone) into a single mono WAV file until interrupted.
func mixCommand(settings *config.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "mix [output-device] [input-device] [out.wav]",
		Short: "Mix two capture devices into one WAV file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			waitForSignal(cancel)

			k, err := kit.Default()
			if err != nil {
				return fmt.Errorf("error initializing kit: %w", err)
			}

			mix, err := k.MixToFile(ctx, args[0], args[1], args[2])
			if err != nil {
				return fmt.Errorf("error starting mix: %w", err)
			}

			fmt.Printf("mixing %s + %s into %s, press Ctrl+C to stop\n", args[0], args[1], args[2])
			<-ctx.Done()

			return mix.Stop()
		},
	}
}
