package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ToolConfig holds launcher-side settings that never belong in the training
// document: where the trainer lives and the optional run-tracking backends.
type ToolConfig struct {
	Trainer       Trainer       `yaml:"trainer"`
	Database      Database      `yaml:"database"`
	Elasticsearch Elasticsearch `yaml:"elasticsearch"`
}

type Trainer struct {
	PythonBin string `yaml:"python_bin"`
	Module    string `yaml:"module"`
}

type Database struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Elasticsearch struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

func defaultToolConfig() *ToolConfig {
	return &ToolConfig{
		Trainer: Trainer{
			PythonBin: "python3",
			Module:    "genc.main",
		},
		Database: Database{
			Host: "localhost",
			Port: 5432,
		},
	}
}

// LoadToolConfig reads the genctl config from path, falling back to the OS
// config dir and then to defaults when no file exists. Backends stay disabled
// unless the file enables them.
func LoadToolConfig(path string) (*ToolConfig, error) {
	if path == "" {
		path = GetDefaultToolConfigPath()
	}

	cfg := defaultToolConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if DebugLog != nil {
			DebugLog("no tool config at %s, using defaults", path)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tool config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tool config: %w", err)
	}

	if cfg.Trainer.PythonBin == "" {
		cfg.Trainer.PythonBin = "python3"
	}
	if cfg.Trainer.Module == "" {
		cfg.Trainer.Module = "genc.main"
	}

	return cfg, nil
}
