package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xq/config"
)

func TestLoadConfiguration_Defaults(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("loading defaults failed: %v", err)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("default console level = %q, want normal", cfg.Logging.ConsoleLogger.Level)
	}
	if cfg.Query.ExpressionType != "css" {
		t.Errorf("default expression type = %q, want css", cfg.Query.ExpressionType)
	}
	if cfg.Query.Indent != 2 {
		t.Errorf("default indent = %d, want 2", cfg.Query.Indent)
	}
}

func TestLoadConfiguration_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := `
logging:
  console:
    level: debug
query:
  expression_type: xpath
  html: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfiguration(path)
	if err != nil {
		t.Fatalf("loading configuration failed: %v", err)
	}
	if cfg.Logging.ConsoleLogger.Level != "debug" {
		t.Errorf("console level = %q, want debug", cfg.Logging.ConsoleLogger.Level)
	}
	if cfg.Query.ExpressionType != "xpath" {
		t.Errorf("expression type = %q, want xpath", cfg.Query.ExpressionType)
	}
	if !cfg.Query.HTML {
		t.Error("html = false, want true")
	}
	// untouched values keep defaults
	if cfg.Query.Indent != 2 {
		t.Errorf("indent = %d, want default 2", cfg.Query.Indent)
	}
}

func TestLoadConfiguration_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad level", "logging:\n  console:\n    level: loud\n"},
		{"bad mode", "logging:\n  file:\n    mode: rotate\n"},
		{"bad type", "query:\n  expression_type: regex\n"},
		{"negative indent", "query:\n  indent: -1\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(tc.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := config.LoadConfiguration(path); err == nil {
				t.Errorf("configuration %q accepted, expected error", tc.data)
			}
		})
	}
}

func TestLoadConfiguration_MissingFile(t *testing.T) {
	if _, err := config.LoadConfiguration(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing configuration file accepted, expected error")
	}
}

func TestDump_RoundTrip(t *testing.T) {
	data, err := config.Dump(config.Default())
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if !strings.Contains(string(data), "expression_type: css") {
		t.Errorf("dump output missing defaults:\n%s", data)
	}

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadConfiguration(path); err != nil {
		t.Errorf("dumped configuration does not load back: %v", err)
	}
}
