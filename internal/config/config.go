// Package config loads the docsync YAML configuration.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// DefaultFile is the configuration file name used when none is given.
const DefaultFile = "docsync.yaml"

// Config is the root configuration record.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Publish PublishConfig `yaml:"publish,omitempty"`
	Version VersionConfig `yaml:"version,omitempty"`
	Retry   RetryConfig   `yaml:"retry,omitempty"`
	Watch   WatchConfig   `yaml:"watch,omitempty"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`

	// BaseDir is the directory relative paths were resolved against.
	BaseDir string `yaml:"-"`
}

// SourceConfig describes the repository kept in sync with its remote.
type SourceConfig struct {
	URL    string      `yaml:"url,omitempty"`
	Path   string      `yaml:"path"`
	Branch string      `yaml:"branch,omitempty"` // clone branch; empty follows the remote HEAD
	Ref    string      `yaml:"ref,omitempty"`    // checked out after each sync when set
	Remote string      `yaml:"remote,omitempty"`
	Clean  bool        `yaml:"clean,omitempty"`
	Depth  int         `yaml:"depth,omitempty"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
}

// PublishConfig describes the working copy whose changes are committed and pushed.
type PublishConfig struct {
	Enabled     bool        `yaml:"enabled"`
	Path        string      `yaml:"path,omitempty"`
	Remote      string      `yaml:"remote,omitempty"`
	Message     string      `yaml:"message,omitempty"`
	AuthorName  string      `yaml:"author_name,omitempty"`
	AuthorEmail string      `yaml:"author_email,omitempty"`
	Auth        *AuthConfig `yaml:"auth,omitempty"`
}

// VersionConfig locates the version script evaluated inside the source tree.
type VersionConfig struct {
	File     string `yaml:"file,omitempty"`
	Command  string `yaml:"command,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	BuildDir string `yaml:"build_dir,omitempty"`
}

type WatchConfig struct {
	Interval string `yaml:"interval,omitempty"`
}

// IntervalDuration parses Interval; an invalid value yields zero.
func (w WatchConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(w.Interval)
	return d
}

// NotifyConfig enables NATS sync events when NATSURL is set.
type NotifyConfig struct {
	NATSURL  string `yaml:"nats_url,omitempty"`
	Subject  string `yaml:"subject,omitempty"`
	KVBucket string `yaml:"kv_bucket,omitempty"`
}

func (n NotifyConfig) Enabled() bool { return n.NATSURL != "" }

// HistoryConfig enables the sqlite sync history when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig enables Prometheus metrics: a textfile written after each
// command and, in watch mode, an HTTP listener serving /metrics.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
	Listen   string `yaml:"listen,omitempty"`
}

func (m MetricsConfig) Enabled() bool { return m.Textfile != "" || m.Listen != "" }

// Load reads, expands, defaults and validates the configuration at configPath.
// .env files next to the config (and in the working directory) are loaded first.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve config path").Fatal().Build()
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "read config file").Fatal().Build()
	}

	baseDir := filepath.Dir(absPath)
	loadEnvFiles(baseDir)

	cfg, err := Parse(bytes.NewReader(data), baseDir)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration from r, resolving relative paths against baseDir.
// Environment references (${VAR}) are expanded before decoding.
func Parse(r io.Reader, baseDir string) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "read config").Fatal().Build()
	}
	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	cfg.BaseDir = baseDir

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	cfg.resolvePaths()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths() {
	c.Source.Path = c.abs(c.Source.Path)
	if c.Publish.Path != "" {
		c.Publish.Path = c.abs(c.Publish.Path)
	}
	if c.Version.File != "" && !filepath.IsAbs(c.Version.File) {
		c.Version.File = filepath.Join(c.Source.Path, c.Version.File)
	}
	if c.Version.BuildDir != "" {
		c.Version.BuildDir = c.abs(c.Version.BuildDir)
	}
	if c.History.Path != "" {
		c.History.Path = c.abs(c.History.Path)
	}
	if c.Metrics.Textfile != "" {
		c.Metrics.Textfile = c.abs(c.Metrics.Textfile)
	}
	for _, a := range []*AuthConfig{c.Source.Auth, c.Publish.Auth} {
		if a != nil && a.KeyPath != "" {
			a.KeyPath = c.abs(a.KeyPath)
		}
	}
}

func (c *Config) abs(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.BaseDir, p)
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}

	example := Config{
		Source: SourceConfig{
			URL:    "https://github.com/napframework/nap.git",
			Path:   "../nap",
			Remote: "origin",
		},
		Publish: PublishConfig{
			Enabled:     false,
			Path:        "..",
			Remote:      "origin",
			Message:     defaultPublishMessage,
			AuthorName:  defaultAuthorName,
			AuthorEmail: defaultAuthorEmail,
		},
		Version: VersionConfig{
			File:     defaultVersionFile,
			Command:  defaultVersionCommand,
			Prefix:   defaultVersionPrefix,
			BuildDir: "../build",
		},
		Retry: RetryConfig{
			MaxRetries:   2,
			Backoff:      RetryBackoffExponential,
			InitialDelay: "1s",
			MaxDelay:     "30s",
		},
		Watch: WatchConfig{Interval: defaultWatchInterval},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create config directory").Build()
		}
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
