// Package config loads audio-capture-library's runtime settings via
// viper, mirroring the teacher's config/config.go: a yaml config file
// searched across OS-appropriate default paths, a default file written
// on first run, and the fields the CLI exposes as flags (debug, device,
// sample rate, channels, output path, HTTP address) overridable by them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Settings is the root configuration tree for audio-capture-library.
type Settings struct {
	Debug bool // true to enable debug logging

	Device struct {
		Name string // capture device name, "" selects the platform default
	}

	Capture struct {
		SampleRate   float64 // Hz, target format sample rate
		Channels     int     // target format channel count
		BitDepth     int     // 16, 24, 32, or 64
		Float        bool    // true for float samples
		Interleaved  bool    // true for interleaved layout
		QueueDepth   int     // producer queue capacity, in buffers
	}

	Output struct {
		WAV struct {
			Enabled  bool   // true to attach a WAV sink by default
			Path     string // output file path
			BitDepth int    // 0 keeps the source bit depth
		}

		Ring struct {
			Enabled       bool // true to attach a ring-buffer sink by default
			CapacityBytes int  // retained window size, in bytes
		}

		Broadcast struct {
			Enabled bool   // true to attach a TCP broadcast sink by default
			Host    string // listen host
			Port    int    // listen port
		}
	}

	HTTP struct {
		Enabled bool   // true to start the read-only statistics server
		Addr    string // listen address, e.g. ":8080"
	}

	Logging struct {
		FilePath   string // "" disables file logging
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	Sentry struct {
		Enabled bool   // true to report session faults to Sentry
		DSN     string
	}
}

// Load reads the configuration file and environment variables into a
// fresh Settings, creating a default config file on first run.
func Load() (*Settings, error) {
	var settings Settings

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	return &settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := getDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("AUDIOCAP")
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// getDefaultConfigPaths returns OS-appropriate config search paths, the
// first of which is where a missing config file gets created.
func getDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		return []string{
			".",
			filepath.Join(homeDir, "AppData", "Local", "audio-capture-library"),
		}, nil
	default:
		return []string{
			filepath.Join(homeDir, ".config", "audio-capture-library"),
			"/etc/audio-capture-library",
			".",
		}, nil
	}
}

func createDefaultConfig() error {
	configPaths, err := getDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

const defaultConfigYAML = `# audio-capture-library configuration

debug: false

device:
  name: ""            # "" selects the platform default capture device

capture:
  samplerate: 48000    # target sample rate in Hz
  channels: 2          # target channel count
  bitdepth: 32         # 16, 24, 32, or 64
  float: true          # true for float samples
  interleaved: false   # true for interleaved layout
  queuedepth: 64       # producer queue capacity, in buffers

output:
  wav:
    enabled: false
    path: capture.wav
    bitdepth: 0        # 0 keeps the source bit depth
  ring:
    enabled: false
    capacitybytes: 1048576
  broadcast:
    enabled: false
    host: 0.0.0.0
    port: 9090

http:
  enabled: false
  addr: ":8080"

logging:
  filepath: ""         # "" disables file logging
  maxsizemb: 100
  maxbackups: 3
  maxagedays: 28

sentry:
  enabled: false
  dsn: ""
`
