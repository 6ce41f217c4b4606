package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = "docsite.yaml"

// Config is the complete, immutable description of a site build.
type Config struct {
	SourceDir string   `yaml:"source_dir"`
	OutputDir string   `yaml:"output_dir"`
	Include   string   `yaml:"include"`
	Exclude   []string `yaml:"exclude"`

	Site     SiteConfig     `yaml:"site"`
	Markdown MarkdownConfig `yaml:"markdown"`
	Build    BuildConfig    `yaml:"build"`
	History  HistoryConfig  `yaml:"history,omitempty"`
	Events   EventsConfig   `yaml:"events,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
	Serve    ServeConfig    `yaml:"serve"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig holds the copy and chrome shared by every page.
type SiteConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"` // fallback page description
	Lang        string `yaml:"lang"`
	HomeLabel   string `yaml:"home_label"`
	Nav         []Link `yaml:"nav"`

	QuickLinksTitle string `yaml:"quick_links_title"`
	QuickLinks      []Link `yaml:"quick_links"`

	RepositoryURL string `yaml:"repository_url,omitempty"`
	Copyright     string `yaml:"copyright,omitempty"`

	Layout       string `yaml:"layout,omitempty"`        // path to a layout skeleton overriding the embedded one
	IndexContent string `yaml:"index_content,omitempty"` // path to an HTML fragment for the landing page
}

// Link is a labelled site-relative or absolute URL.
type Link struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// MarkdownConfig tunes the renderer.
type MarkdownConfig struct {
	HighlightStyle string `yaml:"highlight_style"`
	TOCMinLevel    int    `yaml:"toc_min_level"`
	TOCMaxLevel    int    `yaml:"toc_max_level"`
}

// HistoryConfig enables the SQLite build history when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Enabled reports whether build history is recorded.
func (h HistoryConfig) Enabled() bool { return h.Path != "" }

// EventsConfig enables NATS publication of build events when NATSURL is set.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// Enabled reports whether build events are published.
func (e EventsConfig) Enabled() bool { return e.NATSURL != "" }

// MetricsConfig controls Prometheus textfile output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// ServeConfig controls the preview server.
type ServeConfig struct {
	Addr            string `yaml:"addr"`
	RebuildInterval string `yaml:"rebuild_interval,omitempty"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, expands, defaults and validates the configuration at path.
// Environment files next to the config are loaded first so ${VAR}
// references can point at them.
func Load(configPath string) (Config, error) {
	if err := loadEnvFiles(filepath.Dir(configPath)); err != nil {
		return Config{}, fmt.Errorf("failed to load environment files: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOptional behaves like Load but returns the defaults when the file does
// not exist.
func LoadOptional(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if envErr := loadEnvFiles(filepath.Dir(configPath)); envErr != nil {
			return Config{}, fmt.Errorf("failed to load environment files: %w", envErr)
		}
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	return Load(configPath)
}

// Parse decodes YAML configuration, expanding environment references, then
// applies defaults and validates the result. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return Config{}, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Clone returns a deep copy so callers can hand the value to a builder without
// sharing slices.
func (c Config) Clone() Config {
	out := c
	out.Exclude = slices.Clone(c.Exclude)
	out.Site.Nav = slices.Clone(c.Site.Nav)
	out.Site.QuickLinks = slices.Clone(c.Site.QuickLinks)
	return out
}

// EffectiveExcludes returns the configured exclude patterns plus the output
// directory, which is never a discovery source even when renamed.
func (c Config) EffectiveExcludes() []string {
	out := slices.Clone(c.Exclude)
	rel, ok := c.outputRelativeToSource()
	if !ok {
		return out
	}
	pattern := rel + "/**"
	if !slices.Contains(out, pattern) {
		out = append(out, pattern)
	}
	return out
}

// outputRelativeToSource returns the slash-separated output path relative to
// the source root when the output directory lies inside it.
func (c Config) outputRelativeToSource() (string, bool) {
	src, err := filepath.Abs(c.SourceDir)
	if err != nil {
		return "", false
	}
	out, err := filepath.Abs(c.OutputDir)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(src, out)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Init writes an annotated default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.History.Path = "docsite-history.db"
	example.Events.Subject = DefaultEventsSubject
	example.Site.RepositoryURL = "${DOCSITE_REPOSITORY_URL}"

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := "# docsite configuration\n# ${VAR} references are expanded from the environment (.env and .env.local are loaded first).\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
