// Package config provides configuration types, defaults and loading for fide.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gurisko/fide/internal/paths"
)

// Config holds all configuration options for fide.
type Config struct {
	TemplatesDir  string         `mapstructure:"templates_dir"`
	SocketPath    string         `mapstructure:"socket_path"`
	PIDFile       string         `mapstructure:"pid_file"`
	HTTPAddr      string         `mapstructure:"http_addr"` // empty disables the TCP listener
	WatchDebounce time.Duration  `mapstructure:"watch_debounce"`
	Log           LogConfig      `mapstructure:"log"`
	MotorSim      MotorSimConfig `mapstructure:"motorsim"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// MotorSimConfig holds the telemetry simulator startup parameters.
type MotorSimConfig struct {
	Tick         time.Duration `mapstructure:"tick"`
	Port         int           `mapstructure:"port"`
	Buffer       int           `mapstructure:"buffer"` // per-viewer message buffer
	MaxSpeed     float64       `mapstructure:"max_speed"`
	Acceleration float64       `mapstructure:"acceleration"`
	NATSURL      string        `mapstructure:"nats_url"`
	Subject      string        `mapstructure:"subject"`
	RecordPath   string        `mapstructure:"record_path"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		TemplatesDir:  paths.DefaultTemplatesDir(),
		SocketPath:    paths.DefaultSocketPath(),
		PIDFile:       paths.DefaultPIDPath(),
		HTTPAddr:      "127.0.0.1:3000",
		WatchDebounce: 500 * time.Millisecond,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		MotorSim: MotorSimConfig{
			Tick:         100 * time.Millisecond,
			Port:         8084,
			Buffer:       100,
			MaxSpeed:     3000,
			Acceleration: 500,
			Subject:      "fide.motorsim.telemetry",
		},
	}
}

// SetDefaults registers every default value on v so that env overrides and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("templates_dir", d.TemplatesDir)
	v.SetDefault("socket_path", d.SocketPath)
	v.SetDefault("pid_file", d.PIDFile)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("watch_debounce", d.WatchDebounce)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("motorsim.tick", d.MotorSim.Tick)
	v.SetDefault("motorsim.port", d.MotorSim.Port)
	v.SetDefault("motorsim.buffer", d.MotorSim.Buffer)
	v.SetDefault("motorsim.max_speed", d.MotorSim.MaxSpeed)
	v.SetDefault("motorsim.acceleration", d.MotorSim.Acceleration)
	v.SetDefault("motorsim.nats_url", d.MotorSim.NATSURL)
	v.SetDefault("motorsim.subject", d.MotorSim.Subject)
	v.SetDefault("motorsim.record_path", d.MotorSim.RecordPath)
}

// Load reads configuration into v and returns the decoded Config.
//
// Lookup order when file is empty:
//  1. .fide/config.yaml (current directory)
//  2. $XDG_CONFIG_HOME/fide/config.yaml
//
// A missing config file is not an error; defaults and FIDE_* environment
// variables still apply.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("fide")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case file != "":
		v.SetConfigFile(file)
	case fileExists(paths.LocalConfigFile()):
		v.SetConfigFile(paths.LocalConfigFile())
	default:
		v.AddConfigPath(paths.DefaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	if c.TemplatesDir == "" {
		return errors.New("templates_dir must not be empty")
	}
	if c.SocketPath == "" {
		return errors.New("socket_path must not be empty")
	}
	if c.MotorSim.Tick <= 0 {
		return fmt.Errorf("motorsim.tick must be positive, got %s", c.MotorSim.Tick)
	}
	if c.MotorSim.Buffer <= 0 {
		return fmt.Errorf("motorsim.buffer must be positive, got %d", c.MotorSim.Buffer)
	}
	if c.MotorSim.Port <= 0 || c.MotorSim.Port > 65535 {
		return fmt.Errorf("motorsim.port out of range: %d", c.MotorSim.Port)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
