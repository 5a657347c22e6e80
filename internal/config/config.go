package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the site configuration (docsmith.yaml).
type Config struct {
	SiteName        string     `yaml:"site_name"`
	SiteURL         string     `yaml:"site_url,omitempty"`
	SiteDescription string     `yaml:"site_description,omitempty"`
	DocsDir         string     `yaml:"docs_dir,omitempty"`
	OutputDir       string     `yaml:"output_dir,omitempty"`
	Nav             Nav        `yaml:"nav,omitempty"`
	Theme           Theme      `yaml:"theme,omitempty"`
	Extensions      Extensions `yaml:"markdown_extensions,omitempty"`
	Plugins         Plugins    `yaml:"plugins,omitempty"`

	Source     *SourceConfig     `yaml:"source,omitempty"`
	Daemon     *DaemonConfig     `yaml:"daemon,omitempty"`
	Monitoring *MonitoringConfig `yaml:"monitoring,omitempty"`

	// BaseDir is the directory containing the configuration file. It anchors
	// DocsDir and OutputDir when they are relative. Not serialized.
	BaseDir string `yaml:"-"`
}

// Theme selects a visual template bundle by name.
type Theme struct {
	Name string `yaml:"name"`
}

// SourceConfig describes an optional remote Git source for the docs tree.
type SourceConfig struct {
	Repo   string      `yaml:"repo"`
	Branch string      `yaml:"branch,omitempty"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig represents Git authentication configuration
type AuthConfig struct {
	Type     string `yaml:"type"` // "token", "basic"
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// DaemonConfig configures watch mode and the preview daemon.
type DaemonConfig struct {
	Watch           bool         `yaml:"watch,omitempty"`
	RebuildInterval string       `yaml:"rebuild_interval,omitempty"` // parsed with time.ParseDuration
	HTTP            HTTPConfig   `yaml:"http,omitempty"`
	Events          EventsConfig `yaml:"events,omitempty"`
	HistoryDB       string       `yaml:"history_db,omitempty"`
}

// HTTPConfig holds listen settings for the preview server.
type HTTPConfig struct {
	Port int `yaml:"port,omitempty"`
}

// EventsConfig configures optional NATS publishing of build events.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MonitoringConfig configures health and metrics endpoints.
type MonitoringConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled,omitempty"`
	MetricsPath    string `yaml:"metrics_path,omitempty"`
	HealthPath     string `yaml:"health_path,omitempty"`
}

// Load loads configuration from the specified file.
//
// Environment variables referenced as ${VAR} are expanded before parsing;
// a .env file next to the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(configPath)
	if err == nil {
		cfg.BaseDir = filepath.Dir(abs)
	}
	return cfg, nil
}

// Parse decodes configuration from raw YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Documentation"
	}
	if c.DocsDir == "" {
		c.DocsDir = "docs"
	}
	if c.OutputDir == "" {
		c.OutputDir = "site"
	}
	if c.Theme.Name == "" {
		c.Theme.Name = "slate"
	}
	if c.Source != nil && c.Source.Branch == "" {
		c.Source.Branch = "main"
	}
	if c.Daemon != nil {
		if c.Daemon.HTTP.Port == 0 {
			c.Daemon.HTTP.Port = 8000
		}
		if c.Daemon.Events.NATSURL != "" && c.Daemon.Events.Subject == "" {
			c.Daemon.Events.Subject = "docsmith.builds"
		}
	}
	if c.Monitoring == nil {
		c.Monitoring = &MonitoringConfig{}
	}
	if c.Monitoring.MetricsPath == "" {
		c.Monitoring.MetricsPath = "/metrics"
	}
	if c.Monitoring.HealthPath == "" {
		c.Monitoring.HealthPath = "/healthz"
	}
}

// AbsDocsDir returns the docs directory anchored at BaseDir.
func (c *Config) AbsDocsDir() string {
	return c.anchored(c.DocsDir)
}

// AbsOutputDir returns the output directory anchored at BaseDir.
func (c *Config) AbsOutputDir() string {
	return c.anchored(c.OutputDir)
}

func (c *Config) anchored(dir string) string {
	if filepath.IsAbs(dir) || c.BaseDir == "" {
		return dir
	}
	return filepath.Join(c.BaseDir, dir)
}

// loadEnvFiles loads environment variables from .env files when present.
// Existing environment variables always win.
func loadEnvFiles() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}
