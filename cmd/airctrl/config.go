package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML configuration file.
type fileConfig struct {
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	LogLevel  string `yaml:"log_level"`
	Timeout   string `yaml:"timeout"`
	EventLog  string `yaml:"event_log"`
	Interface string `yaml:"interface"`
}

// loadConfigFile fills cfg from a YAML file. Values set explicitly on
// the command line keep precedence.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["host"] && fc.Host != "" {
		cfg.Host = fc.Host
	}
	if !set["model"] && fc.Model != "" {
		cfg.Model = fc.Model
	}
	if !set["log-level"] && fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if !set["timeout"] && fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse config %s: timeout: %w", path, err)
		}
		cfg.Timeout = d
	}
	if !set["event-log"] && fc.EventLog != "" {
		cfg.EventLog = fc.EventLog
	}
	if !set["interface"] && fc.Interface != "" {
		cfg.Interface = fc.Interface
	}

	return nil
}
