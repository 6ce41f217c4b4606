package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// HistoryCmd lists recent builds from the SQLite history store.
type HistoryCmd struct {
	Limit int    `short:"n" name:"limit" default:"10" help:"Number of builds to show"`
	Build string `name:"build" help:"Show a single build by ID"`
	JSON  bool   `name:"json" help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	return RunHistory(context.Background(), cfg, *h, os.Stdout)
}

// RunHistory replays the history store and prints the selected builds.
func RunHistory(ctx context.Context, cfg config.Config, opts HistoryCmd, w io.Writer) error {
	if !cfg.History.Enabled() {
		return errors.ConfigError("build history is not configured (set history.path)").Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	size := limit
	if opts.Build != "" {
		// Lookups by ID consider the default retention window.
		size = 0
	}
	projection := eventstore.NewBuildHistoryProjection(store, size)
	if err := projection.Rebuild(ctx); err != nil {
		return err
	}

	var builds []eventstore.BuildSummary
	if opts.Build != "" {
		b, ok := projection.GetBuild(opts.Build)
		if !ok {
			return errors.ValidationError(fmt.Sprintf("build %s not found in history", opts.Build)).Build()
		}
		builds = []eventstore.BuildSummary{b}
	} else {
		builds = projection.GetHistory(limit)
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(builds)
	}
	return writeHistoryTable(w, builds)
}

func writeHistoryTable(w io.Writer, builds []eventstore.BuildSummary) error {
	if len(builds) == 0 {
		_, err := fmt.Fprintln(w, "no builds recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tSTATUS\tRENDERED\tSKIPPED\tWARNINGS\tDURATION")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.BuildID, b.StartedAt.Local().Format(time.DateTime), b.Status,
			b.Rendered, b.Skipped, b.Warnings, b.Duration.Truncate(time.Millisecond))
	}
	return tw.Flush()
}
