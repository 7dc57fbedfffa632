// Copyright 2025 Joseph Cumines
//
// Configuration package for the LookinMCP bridge

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the bridge. Values come from an
// optional YAML config file overridden by environment variables.
type Config struct {
	AuditLogPath      string
	ConnectTimeout    time.Duration
	ProbeTimeout      time.Duration
	PingTimeout       time.Duration
	AppInfoTimeout    time.Duration
	HierarchyTimeout  time.Duration
	AttrGroupsTimeout time.Duration
	ModifyTimeout     time.Duration
	InvokeTimeout     time.Duration
	SelectorsTimeout  time.Duration
	EnrichConcurrency int
	Debug             bool
}

// fileConfig is the YAML schema. Durations are strings in time.ParseDuration
// syntax; absent fields leave defaults untouched.
type fileConfig struct {
	AuditLogPath      *string `yaml:"audit_log_path"`
	ConnectTimeout    *string `yaml:"connect_timeout"`
	ProbeTimeout      *string `yaml:"probe_timeout"`
	PingTimeout       *string `yaml:"ping_timeout"`
	AppInfoTimeout    *string `yaml:"app_info_timeout"`
	HierarchyTimeout  *string `yaml:"hierarchy_timeout"`
	AttrGroupsTimeout *string `yaml:"attr_groups_timeout"`
	ModifyTimeout     *string `yaml:"modify_timeout"`
	InvokeTimeout     *string `yaml:"invoke_timeout"`
	SelectorsTimeout  *string `yaml:"selectors_timeout"`
	EnrichConcurrency *int    `yaml:"enrich_concurrency"`
	Debug             *bool   `yaml:"debug"`
}

// DefaultPath returns the default config file path:
// ~/.lookin-mcp/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lookin-mcp", "config.yaml")
	}
	return filepath.Join(home, ".lookin-mcp", "config.yaml")
}

func defaults() *Config {
	return &Config{
		ConnectTimeout:    5 * time.Second,
		ProbeTimeout:      2 * time.Second,
		PingTimeout:       5 * time.Second,
		AppInfoTimeout:    10 * time.Second,
		HierarchyTimeout:  15 * time.Second,
		AttrGroupsTimeout: 15 * time.Second,
		ModifyTimeout:     10 * time.Second,
		InvokeTimeout:     10 * time.Second,
		SelectorsTimeout:  10 * time.Second,
		EnrichConcurrency: 10,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// DefaultPath when empty; a missing file is not an error), then environment
// variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
		if err := cfg.applyFile(path, &fc); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.EnrichConcurrency <= 0 {
		return nil, fmt.Errorf("enrich concurrency must be positive, got %d", cfg.EnrichConcurrency)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string, fc *fileConfig) error {
	if fc.AuditLogPath != nil {
		c.AuditLogPath = *fc.AuditLogPath
	}
	if fc.EnrichConcurrency != nil {
		c.EnrichConcurrency = *fc.EnrichConcurrency
	}
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"connect_timeout", fc.ConnectTimeout, &c.ConnectTimeout},
		{"probe_timeout", fc.ProbeTimeout, &c.ProbeTimeout},
		{"ping_timeout", fc.PingTimeout, &c.PingTimeout},
		{"app_info_timeout", fc.AppInfoTimeout, &c.AppInfoTimeout},
		{"hierarchy_timeout", fc.HierarchyTimeout, &c.HierarchyTimeout},
		{"attr_groups_timeout", fc.AttrGroupsTimeout, &c.AttrGroupsTimeout},
		{"modify_timeout", fc.ModifyTimeout, &c.ModifyTimeout},
		{"invoke_timeout", fc.InvokeTimeout, &c.InvokeTimeout},
		{"selectors_timeout", fc.SelectorsTimeout, &c.SelectorsTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %q (expected duration, e.g., '30s')", d.key, path, *d.src)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.AuditLogPath = getEnv("LOOKIN_MCP_AUDIT_LOG", c.AuditLogPath)
	c.Debug = getEnvAsBool("LOOKIN_MCP_DEBUG", c.Debug)

	var err error
	if c.EnrichConcurrency, err = getEnvAsInt("LOOKIN_MCP_ENRICH_CONCURRENCY", c.EnrichConcurrency); err != nil {
		return err
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LOOKIN_MCP_CONNECT_TIMEOUT", &c.ConnectTimeout},
		{"LOOKIN_MCP_PROBE_TIMEOUT", &c.ProbeTimeout},
		{"LOOKIN_MCP_PING_TIMEOUT", &c.PingTimeout},
		{"LOOKIN_MCP_APP_INFO_TIMEOUT", &c.AppInfoTimeout},
		{"LOOKIN_MCP_HIERARCHY_TIMEOUT", &c.HierarchyTimeout},
		{"LOOKIN_MCP_ATTR_GROUPS_TIMEOUT", &c.AttrGroupsTimeout},
		{"LOOKIN_MCP_MODIFY_TIMEOUT", &c.ModifyTimeout},
		{"LOOKIN_MCP_INVOKE_TIMEOUT", &c.InvokeTimeout},
		{"LOOKIN_MCP_SELECTORS_TIMEOUT", &c.SelectorsTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvAsDuration(d.key, *d.dst); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var result int
	_, err := fmt.Sscanf(value, "%d", &result)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected integer)", key, value)
	}
	return result, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected duration, e.g., '30s', '5m')", key, value)
	}
	return d, nil
}
