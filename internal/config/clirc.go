package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CLIConfig holds cas CLI defaults only; it never touches container state
// and has no bearing on the Container's own config.json. Grounded on the
// teacher's XDG-lookup + YAML config loader.
type CLIConfig struct {
	DefaultRoot        string `yaml:"default_root"`
	DefaultCompression string `yaml:"default_compression"`
	PlainOutput        bool   `yaml:"plain_output"`
}

// LoadCLIConfig reads $XDG_CONFIG_HOME/cas/cli.yaml (or ~/.config/cas/cli.yaml
// if XDG_CONFIG_HOME is unset). A missing file is not an error; it yields
// the zero-value CLIConfig.
func LoadCLIConfig() (CLIConfig, error) {
	path := filepath.Join(xdgConfigHome(), "cas", "cli.yaml")
	var c CLIConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func xdgConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
