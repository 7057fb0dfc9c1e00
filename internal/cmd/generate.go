package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/runner"
)

func generateMain(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)

	// Initialize with defaults
	opts := config.DefaultRunOptions(nil)
	opts.OutputDir = ""
	opts.Model = ""

	var noSave bool

	fs.StringVar(&opts.Description, "d", "", "application description (instead of an input file)")
	fs.StringVar(&opts.Description, "description", "", "application description (instead of an input file)")
	fs.StringVar(&opts.Requirements, "r", "", "additional requirements")
	fs.StringVar(&opts.Requirements, "requirements", "", "additional requirements")
	fs.StringVar(&opts.ProjectName, "n", "", "project name (default: project)")
	fs.StringVar(&opts.ProjectName, "name", "", "project name (default: project)")
	fs.StringVar(&opts.OutputDir, "o", "", "output directory")
	fs.StringVar(&opts.OutputDir, "output", "", "output directory")
	fs.StringVar(&opts.ConfigPath, "c", "", "config file path")
	fs.StringVar(&opts.ConfigPath, "config", "", "config file path")
	fs.StringVar(&opts.Model, "m", "", "Gemini model")
	fs.StringVar(&opts.Model, "model", "", "Gemini model")
	fs.BoolVar(&opts.RoutePlan, "route-plan", false, "plan API routes before the backend stage")
	fs.BoolVar(&noSave, "no-save", false, "print the summary without writing files")
	parseGlobalFlags(fs)

	fs.Usage = func() {
		fmt.Print(`Usage: engai generate [<input>] [flags]

Generate a project: architecture, database schema, backend code,
frontend and tests, each from a specialist agent.

Arguments:
  <input>    Description file or directory (.md, .txt, .yaml, .yml, .json).
             Files named like "requirements" are used as requirements.

Flags:
  -d, -description string   Application description (instead of <input>)
  -r, -requirements string  Additional requirements
  -n, -name string          Project name (default: project)
  -o, -output string        Output directory (default: ./generated_projects)
  -c, -config string        Config file path
  -m, -model string         Gemini model
  -route-plan               Plan API routes before the backend stage
  -no-save                  Do not write the project to disk
  -v, -verbose              Verbose output
  -q, -quiet                Quiet output (errors only)

Examples:
  engai generate ./idea.md
  engai generate ./ideas/todo/ -n todo
  engai generate -d "A todo list app" -r "Use PostgreSQL"
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() > 0 {
		opts.InputPath = fs.Arg(0)
	}
	if opts.InputPath == "" && opts.Description == "" {
		fs.Usage()
		return fmt.Errorf("missing required argument: input file, directory or -d description")
	}
	opts.SaveFiles = !noSave

	// Map verbosity
	if verbose {
		opts.Verbosity = config.VerbosityVerbose
	} else if quiet {
		opts.Verbosity = config.VerbosityQuiet
	}

	logVerbose("Pipeline: %s", opts.PipelineMode())

	// Execute using the shared runner
	logger := runner.NewStdLogger(verbose, quiet)
	_, err := runner.Execute(context.Background(), opts, logger, runner.WithLogger(newLogger(false)))
	return err
}
