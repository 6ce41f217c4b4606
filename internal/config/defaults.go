package config

import (
	"fmt"
	"time"
)

const (
	DefaultSourceDir        = "."
	DefaultOutputDir        = "dist"
	DefaultInclude          = "**/*.md"
	DefaultSiteName         = "Documentation Archive"
	DefaultSiteDescription  = "A structured archive of study notes and documentation"
	DefaultLang             = "en"
	DefaultHomeLabel        = "Home"
	DefaultQuickLinksTitle  = "Quick links"
	DefaultHighlightStyle   = "github"
	DefaultTOCMinLevel      = 1
	DefaultTOCMaxLevel      = 4
	DefaultTimestampFormat  = "2006-01-02 15:04"
	DefaultEventsSubject    = "docsite.builds"
	DefaultEventsTimeout    = 5 * time.Second
	DefaultServeAddr        = ":1316"
	DefaultRebuildDebounce  = 300 * time.Millisecond
	defaultCopyrightPattern = "© %d %s"
)

// DefaultExcludes lists the trees never searched for documents.
var DefaultExcludes = []string{
	"node_modules/**",
	"dist/**",
	".git/**",
	"automation/**",
	".github/**",
}

func defaultSections() []Link {
	return []Link{
		{Title: "Subjects", URL: "/subjects/"},
		{Title: "Research", URL: "/research/"},
		{Title: "Code", URL: "/code-examples/"},
		{Title: "Resources", URL: "/resources/"},
	}
}

func defaultQuickLinks() []Link {
	return []Link{
		{Title: "Notes by subject", URL: "/subjects/"},
		{Title: "Research material", URL: "/research/"},
		{Title: "Code examples", URL: "/code-examples/"},
		{Title: "References", URL: "/resources/"},
	}
}

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	// ApplyDefaults cannot fail on a zero value.
	_ = cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields and canonicalizes enumerations. Values the
// user supplied are left untouched.
func (c *Config) ApplyDefaults() error {
	if c.SourceDir == "" {
		c.SourceDir = DefaultSourceDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Include == "" {
		c.Include = DefaultInclude
	}
	if c.Exclude == nil {
		c.Exclude = append([]string(nil), DefaultExcludes...)
	}

	c.applySiteDefaults()

	if c.Markdown.HighlightStyle == "" {
		c.Markdown.HighlightStyle = DefaultHighlightStyle
	}
	if c.Markdown.TOCMinLevel == 0 {
		c.Markdown.TOCMinLevel = DefaultTOCMinLevel
	}
	if c.Markdown.TOCMaxLevel == 0 {
		c.Markdown.TOCMaxLevel = DefaultTOCMaxLevel
	}

	if err := c.applyBuildDefaults(); err != nil {
		return err
	}

	if c.Events.Enabled() {
		if c.Events.Subject == "" {
			c.Events.Subject = DefaultEventsSubject
		}
		if c.Events.Timeout == "" {
			c.Events.Timeout = DefaultEventsTimeout.String()
		}
	}

	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultServeAddr
	}

	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	return nil
}

func (c *Config) applySiteDefaults() {
	s := &c.Site
	if s.Name == "" {
		s.Name = DefaultSiteName
	}
	if s.Description == "" {
		s.Description = DefaultSiteDescription
	}
	if s.Lang == "" {
		s.Lang = DefaultLang
	}
	if s.HomeLabel == "" {
		s.HomeLabel = DefaultHomeLabel
	}
	if s.Nav == nil {
		s.Nav = defaultSections()
	}
	if s.QuickLinksTitle == "" {
		s.QuickLinksTitle = DefaultQuickLinksTitle
	}
	if s.QuickLinks == nil {
		s.QuickLinks = defaultQuickLinks()
	}
	if s.Copyright == "" {
		s.Copyright = fmt.Sprintf(defaultCopyrightPattern, time.Now().Year(), s.Name)
	}
}

func (c *Config) applyBuildDefaults() error {
	b := &c.Build
	if b.OnPageError == "" {
		b.OnPageError = PagePolicyFail
	} else {
		p := NormalizePagePolicy(string(b.OnPageError))
		if p == "" {
			return fmt.Errorf("invalid build.on_page_error: %q (expected fail or skip)", b.OnPageError)
		}
		b.OnPageError = p
	}
	if b.LastModified == "" {
		b.LastModified = LastModifiedBuild
	} else {
		s := NormalizeLastModifiedSource(string(b.LastModified))
		if s == "" {
			return fmt.Errorf("invalid build.last_modified: %q (expected build or git)", b.LastModified)
		}
		b.LastModified = s
	}
	if b.TimestampFormat == "" {
		b.TimestampFormat = DefaultTimestampFormat
	}
	return nil
}
