// options.go provides shared option definitions for CLI and TUI.
package config

// Option represents a selectable option with value and label
type Option struct {
	Value       string
	Label       string
	Description string
}

// RunOptions contains all parameters for a generation run.
// This is the single source of truth used by both CLI and TUI.
type RunOptions struct {
	InputPath    string // file or directory holding the description
	Description  string
	Requirements string
	ProjectName  string
	OutputDir    string
	SaveFiles    bool
	RoutePlan    bool
	Model        string
	ConfigPath   string
	Verbosity    string // "normal", "verbose", "quiet"
}

// VerbosityNormal, VerbosityVerbose, VerbosityQuiet are verbosity constants
const (
	VerbosityNormal  = "normal"
	VerbosityVerbose = "verbose"
	VerbosityQuiet   = "quiet"
)

var VerbosityOptions = []Option{
	{Value: VerbosityNormal, Label: "Normal", Description: "Standard output"},
	{Value: VerbosityVerbose, Label: "Verbose", Description: "Debug info"},
	{Value: VerbosityQuiet, Label: "Quiet", Description: "Errors only"},
}

// PipelineStandard, PipelineRoutePlan are pipeline mode constants
const (
	PipelineStandard  = "standard"
	PipelineRoutePlan = "route_plan"
)

var PipelineOptions = []Option{
	{Value: PipelineStandard, Label: "Standard", Description: "Five stages"},
	{Value: PipelineRoutePlan, Label: "With route plan", Description: "Plan API routes before the backend"},
}

// DefaultRunOptions returns RunOptions with sensible defaults from config
func DefaultRunOptions(cfg *Config) RunOptions {
	if cfg == nil {
		cfg = Default()
	}
	return RunOptions{
		OutputDir: cfg.OutputDir,
		SaveFiles: true,
		RoutePlan: cfg.Pipeline.RoutePlan,
		Model:     cfg.LLM.Model,
		Verbosity: VerbosityNormal,
	}
}

// IsVerbose returns true if verbosity is set to verbose
func (o RunOptions) IsVerbose() bool {
	return o.Verbosity == VerbosityVerbose
}

// IsQuiet returns true if verbosity is set to quiet
func (o RunOptions) IsQuiet() bool {
	return o.Verbosity == VerbosityQuiet
}

// PipelineMode returns the pipeline option value for the run.
func (o RunOptions) PipelineMode() string {
	if o.RoutePlan {
		return PipelineRoutePlan
	}
	return PipelineStandard
}
