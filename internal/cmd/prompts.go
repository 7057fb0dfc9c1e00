package cmd

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/prompt"
)

func promptsMain(args []string) error {
	fs := flag.NewFlagSet("prompts", flag.ContinueOnError)
	var configPath string
	fs.StringVar(&configPath, "c", "", "config file path")
	fs.StringVar(&configPath, "config", "", "config file path")
	parseGlobalFlags(fs)

	fs.Usage = func() {
		fmt.Print(`Usage: engai prompts [agent]

List the prompt templates, or print the one used by an agent.
Templates in the configured prompts directory override the built-in ones.

Examples:
  engai prompts
  engai prompts architect
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	loader := prompt.NewLoader(cfg.Prompts.Dir).WithOverrides(cfg.Prompts.Overrides)

	if fs.NArg() > 0 {
		tmpl, err := loader.Load(fs.Arg(0))
		if err != nil {
			return err
		}
		logInfo("# %s (%s)", tmpl.Agent, tmpl.Origin)
		fmt.Println(tmpl.Text)
		return nil
	}

	templates, err := loader.ListAvailable()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AGENT\tSOURCE")
	for _, tmpl := range templates {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", tmpl.Agent, tmpl.Origin)
	}
	return w.Flush()
}
