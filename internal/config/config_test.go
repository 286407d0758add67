package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	want := Defaults()
	require.Equal(t, want.TemplatesDir, cfg.TemplatesDir)
	require.Equal(t, want.HTTPAddr, cfg.HTTPAddr)
	require.Equal(t, want.MotorSim.Tick, cfg.MotorSim.Tick)
	require.Equal(t, 8084, cfg.MotorSim.Port)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `templates_dir: /srv/templates
http_addr: ""
watch_debounce: 250ms
log:
  level: debug
  format: json
motorsim:
  tick: 50ms
  port: 9000
  nats_url: nats://127.0.0.1:4222
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, "/srv/templates", cfg.TemplatesDir)
	require.Empty(t, cfg.HTTPAddr)
	require.Equal(t, 250*time.Millisecond, cfg.WatchDebounce)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, 50*time.Millisecond, cfg.MotorSim.Tick)
	require.Equal(t, 9000, cfg.MotorSim.Port)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.MotorSim.NATSURL)
	// untouched keys keep their defaults
	require.Equal(t, 100, cfg.MotorSim.Buffer)
	require.Equal(t, "fide.motorsim.telemetry", cfg.MotorSim.Subject)
}

func TestLoad_LocalConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(".fide", 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(".fide", "config.yaml"), []byte("templates_dir: local-templates\n"), 0o600))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, "local-templates", cfg.TemplatesDir)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("FIDE_TEMPLATES_DIR", "/env/templates")
	t.Setenv("FIDE_MOTORSIM_PORT", "7000")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, "/env/templates", cfg.TemplatesDir)
	require.Equal(t, 7000, cfg.MotorSim.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty templates dir", func(c *Config) { c.TemplatesDir = "" }},
		{"empty socket", func(c *Config) { c.SocketPath = "" }},
		{"zero tick", func(c *Config) { c.MotorSim.Tick = 0 }},
		{"zero buffer", func(c *Config) { c.MotorSim.Buffer = 0 }},
		{"port too large", func(c *Config) { c.MotorSim.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, Defaults().Validate())
}
