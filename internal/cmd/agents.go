package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/pipeline"
)

func agentsMain(args []string) error {
	fs := flag.NewFlagSet("agents", flag.ContinueOnError)
	var configPath string
	fs.StringVar(&configPath, "c", "", "config file path")
	fs.StringVar(&configPath, "config", "", "config file path")

	fs.Usage = func() {
		fmt.Print(`Usage: engai agents [-c config]

List the agents, the tool each one serves and the stage order.
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	printAgents(w, agent.Describe(agent.Defaults(agent.Config{})))
	_, _ = fmt.Fprintln(w)
	printStages(w, pipeline.Stages(cfg.Pipeline.RoutePlan))
	return w.Flush()
}

func printAgents(w *tabwriter.Writer, agents []agent.Info) {
	_, _ = fmt.Fprintln(w, "AGENT\tTOOL\tREQUIRED\tOUTPUT")
	for _, a := range agents {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.Tool, strings.Join(a.Required, ","), a.Output)
	}
}

func printStages(w *tabwriter.Writer, stages []pipeline.Stage) {
	_, _ = fmt.Fprintln(w, "#\tSTAGE\tTOOL\tINPUTS")
	for i, s := range stages {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, s.Name, s.Tool, strings.Join(s.Inputs, ","))
	}
}
