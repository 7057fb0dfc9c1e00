package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/pipeline"
	"github.com/tuannvm/engai/internal/runner"
	"github.com/tuannvm/engai/internal/tui"
)

func uiMain(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)

	var accessible bool
	fs.BoolVar(&accessible, "accessible", false, "enable accessible mode for screen readers")

	fs.Usage = func() {
		fmt.Print(`Usage: engai ui [input] [flags]

Launch the interactive form for a generation.

Every generate option is available in the form.
Defaults are pre-filled from your .engai/config.yaml.

Arguments:
  [input]    Optional: pre-fill the description file or directory

Flags:
  --accessible    Enable accessible mode for screen readers

Examples:
  engai ui
  engai ui ./idea.md
  engai ui --accessible
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault("")
	if err != nil {
		cfg = config.Default()
	}

	prefilledInput := ""
	if fs.NArg() > 0 {
		prefilledInput = fs.Arg(0)
	}

	result, err := tui.RunDashboard(tui.DashboardOptions{
		PrefilledInput: prefilledInput,
		Config:         cfg,
		Accessible:     accessible,
	})
	if err != nil {
		return err
	}

	if result.Cancelled {
		logInfo("Cancelled")
		return nil
	}
	if !result.Ready() {
		return fmt.Errorf("no description or input file specified")
	}

	opts := result.RunOptions()
	verbose = opts.IsVerbose()
	quiet = opts.IsQuiet()

	out, err := runner.Execute(context.Background(), opts, runner.NewStdLogger(verbose, quiet), runner.WithLogger(newLogger(false)))
	if err != nil {
		return err
	}
	printStageResults(out, pipeline.Stages(opts.RoutePlan))
	return nil
}

// printStageResults renders the per-stage outcome with the dashboard styles.
func printStageResults(out *runner.Outcome, stages []pipeline.Stage) {
	if quiet || out == nil || out.Result == nil {
		return
	}
	res := out.Result

	rows := make([]tui.StageRow, len(stages))
	for i, stage := range stages {
		rows[i] = tui.StageRow{Name: stage.Name}
		switch {
		case res.Get(stage.Output) != "":
			rows[i].Status = tui.StageDone
			rows[i].Detail = "completed"
		case res.FailedStage == stage.Name:
			rows[i].Status = tui.StageFailed
			rows[i].Detail = res.Message
		}
	}

	savedTo := ""
	if out.Files != nil {
		savedTo = out.Files.ProjectPath
	}
	fmt.Println()
	fmt.Print(tui.RenderSummary(rows, savedTo))
}
