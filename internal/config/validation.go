package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Validate checks the configuration for consistency. It assumes defaults have
// been applied.
func (c Config) Validate() error {
	return newConfigurationValidator(c).validate()
}

type configurationValidator struct {
	config Config
}

func newConfigurationValidator(config Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validatePatterns(); err != nil {
		return err
	}
	if err := cv.validateMarkdown(); err != nil {
		return err
	}
	if err := cv.validateSite(); err != nil {
		return err
	}
	if err := cv.validateBuild(); err != nil {
		return err
	}
	return cv.validateDurations()
}

func (cv *configurationValidator) validatePaths() error {
	c := cv.config
	if strings.TrimSpace(c.SourceDir) == "" {
		return fmt.Errorf("source_dir must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	src, err := filepath.Abs(c.SourceDir)
	if err != nil {
		return fmt.Errorf("resolve source_dir: %w", err)
	}
	out, err := filepath.Abs(c.OutputDir)
	if err != nil {
		return fmt.Errorf("resolve output_dir: %w", err)
	}
	if src == out {
		return fmt.Errorf("output_dir must differ from source_dir (%s)", c.OutputDir)
	}
	// The output directory is emptied before every build.
	if rel, err := filepath.Rel(out, src); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output_dir %s contains source_dir %s", c.OutputDir, c.SourceDir)
	}
	return nil
}

func (cv *configurationValidator) validatePatterns() error {
	if _, err := glob.Compile(cv.config.Include, '/'); err != nil {
		return fmt.Errorf("invalid include pattern %q: %w", cv.config.Include, err)
	}
	for _, p := range cv.config.Exclude {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("exclude patterns must not be empty")
		}
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
	}
	return nil
}

func (cv *configurationValidator) validateMarkdown() error {
	m := cv.config.Markdown
	if m.TOCMinLevel < 1 || m.TOCMaxLevel > 6 || m.TOCMinLevel > m.TOCMaxLevel {
		return fmt.Errorf("invalid toc levels %d..%d (expected 1 <= min <= max <= 6)", m.TOCMinLevel, m.TOCMaxLevel)
	}
	return nil
}

func (cv *configurationValidator) validateSite() error {
	for i, l := range cv.config.Site.Nav {
		if strings.TrimSpace(l.URL) == "" {
			return fmt.Errorf("site.nav[%d]: url required", i)
		}
	}
	for i, l := range cv.config.Site.QuickLinks {
		if strings.TrimSpace(l.URL) == "" {
			return fmt.Errorf("site.quick_links[%d]: url required", i)
		}
	}
	return nil
}

func (cv *configurationValidator) validateBuild() error {
	b := cv.config.Build
	if NormalizePagePolicy(string(b.OnPageError)) == "" {
		return fmt.Errorf("invalid build.on_page_error: %q", b.OnPageError)
	}
	if NormalizeLastModifiedSource(string(b.LastModified)) == "" {
		return fmt.Errorf("invalid build.last_modified: %q", b.LastModified)
	}
	if strings.TrimSpace(b.TimestampFormat) == "" {
		return fmt.Errorf("build.timestamp_format must not be empty")
	}
	return nil
}

func (cv *configurationValidator) validateDurations() error {
	if t := cv.config.Events.Timeout; t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid events.timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("events.timeout must be positive")
		}
	}
	if r := cv.config.Serve.RebuildInterval; r != "" {
		d, err := time.ParseDuration(r)
		if err != nil {
			return fmt.Errorf("invalid serve.rebuild_interval: %w", err)
		}
		if d < time.Second {
			return fmt.Errorf("serve.rebuild_interval must be at least 1s")
		}
	}
	return nil
}

// EventsTimeout returns the parsed publish timeout.
func (e EventsConfig) EventsTimeout() time.Duration {
	if d, err := time.ParseDuration(e.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultEventsTimeout
}

// Interval returns the periodic rebuild interval, zero when disabled.
func (s ServeConfig) Interval() time.Duration {
	if s.RebuildInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(s.RebuildInterval)
	if err != nil {
		return 0
	}
	return d
}
