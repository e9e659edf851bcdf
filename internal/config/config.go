// Package config loads CLI settings from defaults, an optional YAML file
// and GEDCOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Neumenon/gedcom7/stream"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the engine and CLI settings.
type Config struct {
	MaxLineLength   int       `mapstructure:"max_line_length" validate:"gte=0,lte=1048576"`
	Escape          string    `mapstructure:"escape" validate:"oneof=leading all"`
	FailFast        bool      `mapstructure:"fail_fast"`
	RequireEnvelope bool      `mapstructure:"require_envelope"`
	ExtraSpecs      []string  `mapstructure:"extra_specs" validate:"dive,required"`
	Workers         int       `mapstructure:"workers" validate:"gte=1,lte=256"`
	Log             LogConfig `mapstructure:"log"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

var validate = validator.New()

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Escape:  "leading",
		Workers: min(runtime.NumCPU(), 256),
		Log:     LogConfig{Level: "warn"},
	}
}

// Load reads configuration. An explicit path must exist; otherwise
// $GEDCOM_CONFIG is tried, then gedcom/config.yaml under the user config
// directory if present. Env var overrides use prefix GEDCOM_.
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("max_line_length", def.MaxLineLength)
	v.SetDefault("escape", def.Escape)
	v.SetDefault("fail_fast", def.FailFast)
	v.SetDefault("require_envelope", def.RequireEnvelope)
	v.SetDefault("extra_specs", []string{})
	v.SetDefault("workers", def.Workers)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.json", def.Log.JSON)

	v.SetConfigType("yaml")
	if path == "" {
		path = os.Getenv("GEDCOM_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "gedcom"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("GEDCOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %s (got %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// EscapeMode returns the configured payload escaping.
func (c Config) EscapeMode() stream.EscapeMode {
	m, _ := stream.ParseEscapeMode(c.Escape)
	return m
}
