package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// logLevelEnv overrides the configured log level unless -v is given.
const logLevelEnv = "DOCSITE_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults apply when the file does not exist)" default:"docsite.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Render the source tree into the output directory"`
	Serve    ServeCmd    `cmd:"" help:"Serve the site locally and rebuild on change"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Discover DiscoverCmd `cmd:"" help:"List the documents a build would render"`
	History  HistoryCmd  `cmd:"" help:"Show recent builds from the history store"`

	stderr io.Writer `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.setupLogging(config.LoggingConfig{Level: config.LogLevelInfo, Format: config.LogFormatText})
	return nil
}

// LoadConfig reads the configuration named by --config, falling back to the
// defaults when the file is absent, and re-applies logging from it.
func (c *CLI) LoadConfig() (config.Config, error) {
	cfg, err := config.LoadOptional(c.Config)
	if err != nil {
		return config.Config{}, errors.WrapError(err, errors.CategoryConfig, "failed to load configuration").
			WithContext("path", c.Config).
			UserAction().
			Build()
	}
	c.setupLogging(cfg.Logging)
	return cfg, nil
}

func (c *CLI) setupLogging(lc config.LoggingConfig) {
	out := c.stderr
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: c.resolveLevel(lc.Level)}
	var handler slog.Handler
	if lc.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// resolveLevel applies the precedence -v > DOCSITE_LOG_LEVEL > config.
func (c *CLI) resolveLevel(configured config.LogLevel) slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	if env := strings.TrimSpace(os.Getenv(logLevelEnv)); env != "" {
		return config.NormalizeLogLevel(env).SlogLevel()
	}
	return config.NormalizeLogLevel(string(configured)).SlogLevel()
}

// applyDirs overrides the configured roots with command-line values and
// re-validates the result.
func applyDirs(cfg config.Config, source, output string) (config.Config, error) {
	if source == "" && output == "" {
		return cfg, nil
	}
	cfg = cfg.Clone()
	if source != "" {
		cfg.SourceDir = source
	}
	if output != "" {
		cfg.OutputDir = output
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, errors.WrapError(err, errors.CategoryValidation, "invalid directory override").
			UserAction().
			Build()
	}
	return cfg, nil
}
