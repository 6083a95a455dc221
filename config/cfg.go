// Package config owns program configuration and logger preparation for
// the xq command line tool. Configuration is plain YAML merged over
// built-in defaults.
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// AppName is used for logger naming and log file fallbacks.
const AppName = "xq"

type LoggerConfig struct {
	// Level is one of "none", "normal" or "debug".
	Level       string `yaml:"level"`
	Destination string `yaml:"destination,omitempty"`
	// Mode is "append" or "overwrite", file logger only.
	Mode string `yaml:"mode,omitempty"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// QueryConfig holds defaults applied to queries when the command line
// does not override them.
type QueryConfig struct {
	// ExpressionType is "css" or "xpath".
	ExpressionType string `yaml:"expression_type"`
	// HTML switches input parsing from XML to tolerant HTML.
	HTML bool `yaml:"html"`
	// Indent is the number of spaces per nesting level in formatted
	// output.
	Indent int `yaml:"indent"`
}

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Query   QueryConfig   `yaml:"query"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "normal"},
			FileLogger:    LoggerConfig{Level: "none", Mode: "append"},
		},
		Query: QueryConfig{
			ExpressionType: "css",
			Indent:         2,
		},
	}
}

// LoadConfiguration reads the YAML file at path over the defaults. An
// empty path returns the defaults untouched.
func LoadConfiguration(path string) (*Config, error) {
	cfg := Default()
	if len(path) == 0 {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read configuration '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse configuration '%s': %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration '%s': %w", path, err)
	}
	return cfg, nil
}

// Dump serializes the active configuration back to YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize configuration: %w", err)
	}
	return data, nil
}

func (c *Config) validate() error {
	for _, lc := range []struct {
		name string
		conf *LoggerConfig
	}{
		{"console", &c.Logging.ConsoleLogger},
		{"file", &c.Logging.FileLogger},
	} {
		switch lc.conf.Level {
		case "", "none", "normal", "debug":
		default:
			return fmt.Errorf("unknown %s log level %q", lc.name, lc.conf.Level)
		}
		switch lc.conf.Mode {
		case "", "append", "overwrite":
		default:
			return fmt.Errorf("unknown %s log mode %q", lc.name, lc.conf.Mode)
		}
	}
	switch c.Query.ExpressionType {
	case "css", "xpath":
	default:
		return fmt.Errorf("unknown expression type %q", c.Query.ExpressionType)
	}
	if c.Query.Indent < 0 {
		return fmt.Errorf("negative indent %d", c.Query.Indent)
	}
	return nil
}
