package main

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sooth/audio-capture-library/internal/config"
	"github.com/sooth/audio-capture-library/internal/errors"
	"github.com/sooth/audio-capture-library/internal/logging"
)

// rootCommand builds the audiocapture CLI: a non-interactive,
// flag-and-subcommand surface over kit's entry points, replacing the
// out-of-scope interactive control client with a scriptable one.
func rootCommand(settings *config.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "audiocapture",
		Short: "Real-time audio capture CLI",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		log.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		recordCommand(settings),
		mixCommand(settings),
		serveCommand(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.Config{
			FilePath:   settings.Logging.FilePath,
			MaxSizeMB:  settings.Logging.MaxSizeMB,
			MaxBackups: settings.Logging.MaxBackups,
			MaxAgeDays: settings.Logging.MaxAgeDays,
			Level:      levelFor(settings.Debug),
		})

		if settings.Sentry.Enabled && settings.Sentry.DSN != "" {
			if err := sentry.Init(sentry.ClientOptions{Dsn: settings.Sentry.DSN}); err != nil {
				return fmt.Errorf("error initializing sentry: %w", err)
			}
			errors.SetFaultReporter(errors.NewSentryReporter())
		}

		return nil
	}

	return rootCmd
}

func levelFor(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func setupFlags(cmd *cobra.Command, settings *config.Settings) error {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug logging")
	cmd.PersistentFlags().StringVar(&settings.Device.Name, "device", viper.GetString("device.name"), "Capture device name")
	cmd.PersistentFlags().Float64Var(&settings.Capture.SampleRate, "samplerate", viper.GetFloat64("capture.samplerate"), "Target sample rate in Hz")
	cmd.PersistentFlags().IntVar(&settings.Capture.Channels, "channels", viper.GetInt("capture.channels"), "Target channel count")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
