package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sooth/audio-capture-library/internal/config"
	"github.com/sooth/audio-capture-library/internal/httpapi"
	"github.com/sooth/audio-capture-library/kit"
)

// serveCommand starts a capture session on the configured device and
// exposes the read-only statistics HTTP surface (spec §4.9/4.10) until
// interrupted.
func serveCommand(settings *config.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a capture session and serve read-only session statistics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			waitForSignal(cancel)

			k, err := kit.Default()
			if err != nil {
				return fmt.Errorf("error initializing kit: %w", err)
			}

			sess, _, err := k.StartCapture(ctx, kit.CaptureConfig{DeviceName: settings.Device.Name})
			if err != nil {
				return fmt.Errorf("error starting capture: %w", err)
			}
			defer k.StopCapture(sess)

			go k.RunResourceMonitor(ctx)

			server := httpapi.NewServer(k)
			fmt.Printf("serving statistics on %s\n", settings.HTTP.Addr)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start(settings.HTTP.Addr) }()

			select {
			case <-ctx.Done():
				return server.Shutdown(context.Background())
			case err := <-errCh:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&settings.HTTP.Addr, "addr", viper.GetString("http.addr"), "HTTP listen address")
	return cmd
}
