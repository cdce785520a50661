package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for Enveil. All
// fields are pointers so merging can tell "unset" apart from a zero
// value; precedence is CLI flag > local file > global file > default.
type FileConfig struct {
	Include          *string  `yaml:"include"`
	Exclude          *string  `yaml:"exclude"`
	MaxBytes         *int64   `yaml:"max_bytes"`
	Enable           *string  `yaml:"enable"`
	Disable          *string  `yaml:"disable"`
	Threads          *int     `yaml:"threads"`
	MinConfidence    *float64 `yaml:"min_confidence"`
	EntropyThreshold *float64 `yaml:"entropy_threshold"`
	MinTokenLength   *int     `yaml:"min_token_length"`
	NoColor          *bool    `yaml:"no_color"`
	DefaultExcludes  *bool    `yaml:"default_excludes"`
	NoEntropy        *bool    `yaml:"no_entropy"`
	FailOn           *string  `yaml:"fail_on"`
	NoCache          *bool    `yaml:"no_cache"`
	Audit            *bool    `yaml:"audit"`

	// Protect config mirrors the protect command's flags.
	Protect *ProtectConfig `yaml:"protect"`
}

// ProtectConfig holds remediation settings.
type ProtectConfig struct {
	// Template is the path the generated env template is written to,
	// relative to the repo root. Defaults to .env.example.
	Template *string `yaml:"template"`

	// Yes auto-accepts every finding instead of prompting.
	Yes *bool `yaml:"yes"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadLocal searches for a repo-local config file in the given root.
// It supports .enveil.yml/.yaml and enveil.yml/.yaml.
func LoadLocal(repoRoot string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range []string{".enveil.yml", ".enveil.yaml", "enveil.yml", "enveil.yaml"} {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return cfg, errors.New("no config dir")
	}
	p := filepath.Join(base, "enveil", "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// GetProtectConfig returns the protect configuration with defaults applied.
func (fc FileConfig) GetProtectConfig() ProtectConfig {
	var cfg ProtectConfig
	if fc.Protect != nil {
		cfg = *fc.Protect
	}
	if cfg.Template == nil {
		tpl := ".env.example"
		cfg.Template = &tpl
	}
	return cfg
}

// GetTemplate returns the env template path.
func (pc ProtectConfig) GetTemplate() string {
	if pc.Template == nil {
		return ".env.example"
	}
	return *pc.Template
}

// IsYes returns true if prompts are auto-accepted.
func (pc ProtectConfig) IsYes() bool {
	return pc.Yes != nil && *pc.Yes
}
