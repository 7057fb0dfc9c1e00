package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/tuannvm/engai/internal/api"
	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/usage"
)

func usageMain(args []string) error {
	fs := flag.NewFlagSet("usage", flag.ContinueOnError)

	var (
		configPath string
		remote     string
		jsonOut    bool
	)
	fs.StringVar(&configPath, "c", "", "config file path")
	fs.StringVar(&configPath, "config", "", "config file path")
	fs.StringVar(&remote, "remote", "", "read usage from a running server, e.g. http://localhost:8000")
	fs.BoolVar(&jsonOut, "json", false, "print the snapshot as JSON")

	fs.Usage = func() {
		fmt.Print(`Usage: engai usage [flags]

Show LLM calls and tokens, in total and per agent.

Without --remote the usage database from the config is read.

Examples:
  engai usage
  engai usage --remote http://localhost:8000 --json

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		snap usage.Snapshot
		err  error
	)
	if remote != "" {
		snap, err = remoteUsage(ctx, remote)
	} else {
		snap, err = localUsage(ctx, configPath)
	}
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return printUsageTable(os.Stdout, snap)
}

func remoteUsage(ctx context.Context, baseURL string) (usage.Snapshot, error) {
	snap, err := api.NewClient(baseURL).Usage(ctx)
	if err != nil {
		return usage.Snapshot{}, err
	}
	return *snap, nil
}

func localUsage(ctx context.Context, configPath string) (usage.Snapshot, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return usage.Snapshot{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.Usage.DBPath == "" {
		return usage.NewTracker().Snapshot(), nil
	}
	if _, err := os.Stat(cfg.Usage.DBPath); os.IsNotExist(err) {
		return usage.NewTracker().Snapshot(), nil
	}

	store, err := usage.OpenSQLite(cfg.Usage.DBPath)
	if err != nil {
		return usage.Snapshot{}, err
	}
	defer store.Close()

	tracker := usage.NewTracker(usage.WithStore(store))
	if err := tracker.Load(ctx); err != nil {
		return usage.Snapshot{}, err
	}
	return tracker.Snapshot(), nil
}

func printUsageTable(out io.Writer, snap usage.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AGENT\tCALLS\tINPUT\tOUTPUT\tTOTAL")
	for _, a := range snap.Agents {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", a.AgentName, a.APICalls, a.InputTokens, a.OutputTokens, a.TotalTokens)
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t%d\n", snap.TotalAPICalls, snap.TotalInputTokens, snap.TotalOutputTokens, snap.TotalTokens)
	return w.Flush()
}
