// SPDX-License-Identifier: EPL-2.0

// Package config loads audbind settings from a YAML file, AUDBIND_*
// environment variables and command line flags, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable, e.g. AUDBIND_DEVICE.
const EnvPrefix = "AUDBIND"

// Output names accepted by Settings.Output.
const (
	OutputMalgo  = "malgo"
	OutputNull   = "null"
	OutputManual = "manual"
)

var (
	ErrInvalidOutput   = errors.New("config: invalid output")
	ErrInvalidLogLevel = errors.New("config: invalid log level")
	ErrInvalidDevice   = errors.New("config: invalid device index")
)

// Settings is the resolved configuration.
type Settings struct {
	// Library is the path of the native engine. Empty selects the built-in
	// soft engine.
	Library string `mapstructure:"library"`
	// EncoderLibrary is the path of the encoder add-on, loaded with Library.
	EncoderLibrary string `mapstructure:"encoder_library"`
	WideStrings    bool   `mapstructure:"wide_strings"`

	Device       int    `mapstructure:"device"`
	RecordDevice int    `mapstructure:"record_device"`
	Freq         uint32 `mapstructure:"freq"`
	// Buffer is the playback buffer length in milliseconds, 0 keeps the
	// engine default.
	Buffer uint32 `mapstructure:"buffer"`

	// Output is how the soft engine renders: malgo, null or manual.
	Output string `mapstructure:"output"`

	Log     LogSettings     `mapstructure:"log"`
	Metrics MetricsSettings `mapstructure:"metrics"`
}

type LogSettings struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MetricsSettings struct {
	// Listen is the address serving /metrics, empty to disable.
	Listen string `mapstructure:"listen"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("library", "")
	v.SetDefault("encoder_library", "")
	v.SetDefault("wide_strings", false)
	v.SetDefault("device", -1)
	v.SetDefault("record_device", -1)
	v.SetDefault("freq", 44100)
	v.SetDefault("buffer", 0)
	v.SetDefault("output", OutputMalgo)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.listen", "")
}

// Loader resolves Settings. The zero value is not usable; use NewLoader.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Loader{v: v}
}

// flagKeys maps command line flags to setting keys.
var flagKeys = map[string]string{
	"library":       "library",
	"encoder":       "encoder_library",
	"wide":          "wide_strings",
	"device":        "device",
	"record-device": "record_device",
	"freq":          "freq",
	"buffer":        "buffer",
	"output":        "output",
	"log-level":     "log.level",
	"metrics":       "metrics.listen",
}

// BindFlags makes the flags of cmd that name a setting override it. Flags
// cmd does not define are skipped.
func (l *Loader) BindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads the file at path, or when path is empty the first audbind.yaml
// found in the user config directory or the working directory. A missing
// default file is not an error.
func (l *Loader) Load(path string) (*Settings, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName("audbind")
		if dir, err := os.UserConfigDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(dir, "audbind"))
		}
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// File is the config file Load read, empty when none was found.
func (l *Loader) File() string { return l.v.ConfigFileUsed() }

func (s *Settings) Validate() error {
	switch s.Output {
	case OutputMalgo, OutputNull, OutputManual:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, s.Output)
	}
	if _, err := zapcore.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, s.Log.Level)
	}
	if s.Device < -1 {
		return fmt.Errorf("%w: %d", ErrInvalidDevice, s.Device)
	}
	if s.RecordDevice < -1 {
		return fmt.Errorf("%w: record %d", ErrInvalidDevice, s.RecordDevice)
	}
	return nil
}

// Logger builds the logger the settings describe.
func (s *Settings) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s.Log.Level)
	}

	cfg := zap.NewProductionConfig()
	if s.Log.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
