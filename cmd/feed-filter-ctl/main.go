package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/mikey/llm-feed-filter/internal/di"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/dig"
)

var version = "dev"

// CLI is the top-level command structure for feed-filter-ctl.
type CLI struct {
	Version kong.VersionFlag  `help:"Show version." short:"V"`
	Config  string            `help:"Path to config file." short:"c" type:"path"`
	Verbose bool              `help:"Enable verbose logging." short:"v"`
	JSONLog bool              `help:"Output logs in JSON format." name:"json-log"`
	Set     map[string]string `help:"Override a configuration key (key=value)." short:"s"`

	Stats    StatsCmd    `cmd:"" help:"Show cache, dedup and gateway call statistics."`
	Recheck  RecheckCmd  `cmd:"" help:"Run one scan of the feed now."`
	Reset    ResetCmd    `cmd:"" help:"Clear the verdict cache, dedup index and call counter."`
	Classify ClassifyCmd `cmd:"" help:"Classify a single text without touching pipeline state."`
}

// Globals is bound into every command's Run.
type Globals struct {
	Out     io.Writer
	Options *di.CLIOptions
}

// StatsCmd prints the pipeline statistics.
type StatsCmd struct {
	JSON bool `help:"Print statistics as JSON."`
}

// Run executes the stats command.
func (c *StatsCmd) Run(g *Globals) error {
	return withPipeline(g, func(p *core.Pipeline) error {
		stats := p.Stats()
		if c.JSON {
			enc := json.NewEncoder(g.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		printStats(g.Out, stats)
		return nil
	})
}

// RecheckCmd runs the pipeline once.
type RecheckCmd struct{}

// Run executes the recheck command.
func (c *RecheckCmd) Run(g *Globals) error {
	return withPipeline(g, func(p *core.Pipeline) error {
		report, err := p.Run(context.Background())
		if err != nil {
			return fmt.Errorf("recheck: %w", err)
		}
		printReport(g.Out, report)
		return nil
	})
}

// ResetCmd clears all pipeline state.
type ResetCmd struct{}

// Run executes the reset command.
func (c *ResetCmd) Run(g *Globals) error {
	return withPipeline(g, func(p *core.Pipeline) error {
		p.Reset(context.Background())
		color.New(color.FgGreen).Fprintln(g.Out, "State cleared")
		return nil
	})
}

// ClassifyCmd sends one text to the configured classifier.
type ClassifyCmd struct {
	Text    string        `arg:"" help:"Text to classify."`
	URL     string        `help:"Permalink of the item."`
	Author  string        `help:"Author of the item."`
	Timeout time.Duration `help:"Request timeout." default:"60s"`
}

// Run executes the classify command.
func (c *ClassifyCmd) Run(g *Globals) error {
	container, err := di.BuildCLIContainer(g.Options)
	if err != nil {
		return err
	}
	return container.Invoke(func(classifier core.Classifier) error {
		ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
		defer cancel()

		result, err := classifier.Classify(ctx, &core.ClassificationRequest{
			Text:   c.Text,
			URL:    c.URL,
			Author: c.Author,
		})
		if err != nil {
			return fmt.Errorf("classify: %w", err)
		}
		printClassification(g.Out, result)
		return nil
	})
}

// withPipeline builds the pipeline from configuration, runs fn and releases the store
func withPipeline(g *Globals, fn func(*core.Pipeline) error) error {
	container, err := di.BuildCLIContainer(g.Options)
	if err != nil {
		return err
	}
	return invokeAndStop(container, fn)
}

func invokeAndStop(container *dig.Container, fn func(*core.Pipeline) error) error {
	return container.Invoke(func(p *core.Pipeline, slots ports.SlotStore) error {
		if stopper, ok := slots.(interface{ Stop() }); ok {
			defer stopper.Stop()
		}
		return fn(p)
	})
}

func printStats(w io.Writer, stats core.Stats) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintln(w, "Feed filter statistics")
	green.Fprint(w, "  ▶ ")
	fmt.Fprintf(w, "Cache:          %d / %d\n", stats.Cache.Size, stats.Cache.Capacity)
	green.Fprint(w, "  ▶ ")
	fmt.Fprintf(w, "Most recent:    %s\n", orNone(stats.Cache.MostRecentKeyPrefix))
	green.Fprint(w, "  ▶ ")
	fmt.Fprintf(w, "Least recent:   %s\n", orNone(stats.Cache.LeastRecentKeyPrefix))
	green.Fprint(w, "  ▶ ")
	fmt.Fprintf(w, "Processed:      %d\n", stats.DedupSize)
	green.Fprint(w, "  ▶ ")
	fmt.Fprintf(w, "Gateway calls:  %d\n", stats.GatewayCalls)
	if !stats.LastRunAt.IsZero() {
		gray.Fprintf(w, "  last run %s\n", stats.LastRunAt.Format(time.RFC3339))
	}
}

func printReport(w io.Writer, r *core.RunReport) {
	color.New(color.FgCyan).Fprintf(w, "Run %s\n", r.RunID)
	fmt.Fprintf(w, "  scanned %d, skipped %d, allowlisted %d\n", r.Scanned, r.Skipped, r.Allowlisted)
	fmt.Fprintf(w, "  dedup hits %d, cache hits %d, gateway calls %d, errored %d\n",
		r.DedupHits, r.CacheHits, r.GatewayCalls, r.Errored)
	hidden := color.New(color.FgGreen)
	if r.Hidden > 0 {
		hidden = color.New(color.FgYellow)
	}
	hidden.Fprintf(w, "  hidden %d\n", r.Hidden)
}

func printClassification(w io.Writer, c *core.Classification) {
	if c.Reject {
		color.New(color.FgYellow).Fprintln(w, "REJECT")
	} else {
		color.New(color.FgGreen).Fprintln(w, "ACCEPT")
	}
	if c.Explanation != "" {
		fmt.Fprintf(w, "  %s\n", c.Explanation)
	}
	color.New(color.FgHiBlack).Fprintf(w, "  model %s\n", c.Model)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// options converts the parsed global flags into container options
func (cli *CLI) options() *di.CLIOptions {
	overrides := make(map[string]any, len(cli.Set))
	for k, v := range cli.Set {
		overrides[k] = v
	}
	return &di.CLIOptions{
		ConfigFile: cli.Config,
		Verbose:    cli.Verbose,
		JSONLog:    cli.JSONLog,
		Overrides:  overrides,
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("feed-filter-ctl"),
		kong.Description("Inspect and control the feed filter state."),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&Globals{Out: os.Stdout, Options: cli.options()})
	ctx.FatalIfErrorf(err)
}
