package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Source      string `short:"s" name:"source" help:"Override source_dir"`
	Output      string `short:"o" name:"output" help:"Override output_dir"`
	OnPageError string `name:"on-page-error" enum:"fail,skip," default:"" help:"Override build.on_page_error (fail|skip)"`
	VerifyLinks bool   `name:"verify-links" help:"Check internal links after rendering"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	cfg, err = applyDirs(cfg, b.Source, b.Output)
	if err != nil {
		return err
	}
	if p := config.NormalizePagePolicy(b.OnPageError); p != "" {
		cfg.Build.OnPageError = p
		slog.Info("Page error policy overridden via CLI flag", logfields.Policy(string(p)))
	}
	if b.VerifyLinks {
		cfg.Build.VerifyLinks = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, cfg)
}

// RunBuild performs one build with every configured side channel.
func RunBuild(ctx context.Context, cfg config.Config) error {
	fmt.Println("Starting docsite build")

	runner := newBuildRunner(cfg)
	defer func() {
		if err := runner.Close(); err != nil {
			slog.Warn("Failed to close build side channels", logfields.Error(err))
		}
	}()

	report, err := runner.Build(ctx)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	fmt.Println(report.Summary())
	fmt.Println("Build completed successfully")
	return nil
}
