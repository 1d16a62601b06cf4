package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sooth/audio-capture-library/internal/config"
	"github.com/sooth/audio-capture-library/kit"
)

// recordCommand captures from a device straight to a WAV file until
// interrupted, the CLI-native replacement for the out-of-scope
// interactive recorder.
func recordCommand(settings *config.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record [output.wav]",
		Short: "Record audio from a capture device to a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			waitForSignal(cancel)

			k, err := kit.Default()
			if err != nil {
				return fmt.Errorf("error initializing kit: %w", err)
			}

			outPath := args[0]
			if cmd.Flags().Changed("path") {
				outPath = settings.Output.WAV.Path
			}

			sess, err := k.RecordToFile(ctx, settings.Device.Name, outPath)
			if err != nil {
				return fmt.Errorf("error starting capture: %w", err)
			}

			fmt.Printf("recording to %s, press Ctrl+C to stop\n", outPath)
			<-ctx.Done()

			return k.StopCapture(sess)
		},
	}

	cmd.Flags().StringVar(&settings.Output.WAV.Path, "path", viper.GetString("output.wav.path"), "Override output path")
	return cmd
}

func waitForSignal(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		<-sigChan
		fmt.Print("\n")
		cancel()
	}()
}
