package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/site"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	Source string `short:"s" name:"source" help:"Override source_dir"`
}

func (d *DiscoverCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	cfg, err = applyDirs(cfg, d.Source, "")
	if err != nil {
		return err
	}
	return RunDiscover(context.Background(), cfg, os.Stdout)
}

// RunDiscover lists every document a build would render, with its output
// path, in build order.
func RunDiscover(ctx context.Context, cfg config.Config, w io.Writer) error {
	matcher, err := docs.NewMatcher(cfg.Include, cfg.EffectiveExcludes())
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid discovery patterns").Build()
	}
	documents, err := docs.NewDiscovery(cfg.SourceDir, matcher).Discover(ctx)
	if err != nil {
		return errors.WrapError(err, errors.CategoryDiscovery, "document discovery failed").
			WithContext("source_dir", cfg.SourceDir).
			Build()
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SOURCE\tOUTPUT\tSECTION")
	for _, doc := range documents {
		section := doc.Section
		if section == "" {
			section = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", doc.RelPath, site.OutputPath(doc.RelPath), section)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%d documents\n", len(documents))
	return nil
}
