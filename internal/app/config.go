package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // hcl file or directory of hcl files
	Require    []string
	Fetch      bool

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if len(cfg.Require) == 0 {
		return nil, errors.New("Require must name at least one module")
	}

	return &cfg, nil
}
