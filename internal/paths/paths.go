package paths

import (
	"os"
	"path/filepath"
)

func DefaultRuntimeDir() string{
	if x := os.Getenv("XDG_RUNTIME_DIR"); x != "" {
		return filepath.Join(x, "fide")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fide")
}

func DefaultConfigDir() string{
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, "fide")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fide")
}

func DefaultSocketPath() string   { return filepath.Join(DefaultRuntimeDir(), "daemon.sock") }
func DefaultPIDPath() string      { return filepath.Join(DefaultRuntimeDir(), "daemon.pid") }
func DefaultTemplatesDir() string { return "templates" }
func DefaultConfigFile() string   { return filepath.Join(DefaultConfigDir(), "config.yaml") }
func LocalConfigFile() string     { return filepath.Join(".fide", "config.yaml") }
