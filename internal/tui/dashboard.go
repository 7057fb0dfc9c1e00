package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/tuannvm/engai/internal/config"
)

const (
	inputTyped  = "__typed__"
	inputBrowse = "__browse__"
)

// DashboardResult contains the user's selections from the dashboard
type DashboardResult struct {
	InputPath    string
	Description  string
	Requirements string
	ProjectName  string
	OutputDir    string
	SaveFiles    bool
	Pipeline     string // "standard", "route_plan"
	Model        string
	ConfigPath   string
	Verbosity    string // "normal", "verbose", "quiet"
	Cancelled    bool
}

// DashboardOptions configures the dashboard
type DashboardOptions struct {
	PrefilledInput string
	Config         *config.Config
	Accessible     bool
}

// RunOptions converts the selections into options for runner.Execute.
func (r *DashboardResult) RunOptions() config.RunOptions {
	opts := config.RunOptions{
		Description:  strings.TrimSpace(r.Description),
		Requirements: strings.TrimSpace(r.Requirements),
		ProjectName:  strings.TrimSpace(r.ProjectName),
		OutputDir:    r.OutputDir,
		SaveFiles:    r.SaveFiles,
		RoutePlan:    r.Pipeline == config.PipelineRoutePlan,
		Model:        r.Model,
		ConfigPath:   r.ConfigPath,
		Verbosity:    r.Verbosity,
	}
	if r.InputPath != inputTyped {
		opts.InputPath = r.InputPath
	}
	return opts
}

// Ready reports whether the selections name a description source.
func (r *DashboardResult) Ready() bool {
	switch r.InputPath {
	case "", inputBrowse:
		return false
	case inputTyped:
		return strings.TrimSpace(r.Description) != ""
	default:
		return true
	}
}

func newDashboardResult(opts DashboardOptions) *DashboardResult {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	defaults := config.DefaultRunOptions(cfg)

	result := &DashboardResult{
		InputPath: opts.PrefilledInput,
		OutputDir: defaults.OutputDir,
		SaveFiles: defaults.SaveFiles,
		Pipeline:  defaults.PipelineMode(),
		Model:     defaults.Model,
		Verbosity: defaults.Verbosity,
	}
	if result.InputPath == "" {
		result.InputPath = inputTyped
	}
	return result
}

// buildInputOptions lists the description sources: typing one in, the
// prefilled path, discovered candidates, then a file browser.
func buildInputOptions(prefilled string, candidates []Candidate) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption("✎ Type a description", inputTyped)}

	if prefilled != "" && prefilled != inputTyped && prefilled != inputBrowse {
		options = append(options, huh.NewOption(prefilled, prefilled))
	}
	for _, c := range candidates {
		if c.Path != prefilled {
			options = append(options, huh.NewOption(c.Label(), c.Path))
		}
	}
	return append(options, huh.NewOption("🔍 Browse...", inputBrowse))
}

func toHuhOptions(opts []config.Option) []huh.Option[string] {
	out := make([]huh.Option[string], len(opts))
	for i, o := range opts {
		out[i] = huh.NewOption(o.Label+" - "+o.Description, o.Value)
	}
	return out
}

// RunDashboard displays the interactive single-screen form
func RunDashboard(opts DashboardOptions) (*DashboardResult, error) {
	// Auto-enable accessible mode for non-terminals
	accessible := opts.Accessible || !isTerminal()

	result := newDashboardResult(opts)
	inputOptions := buildInputOptions(result.InputPath, DiscoverCandidates("."))

	var action string

	// === Main loop ===
	for {
		action = "run" // Reset

		// Print banner
		fmt.Print("\033[H\033[2J") // Clear screen
		fmt.Println(Banner())

		mainForm := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Input").
					Description("Describe the app or pick a file").
					Options(inputOptions...).
					Height(8).
					Value(&result.InputPath),
			),
			huh.NewGroup(
				huh.NewText().
					Title("Description").
					Placeholder("A todo list app with user authentication").
					Value(&result.Description),
			).WithHideFunc(func() bool { return result.InputPath != inputTyped }),
			huh.NewGroup(
				huh.NewText().
					Title("Requirements").
					Description("Optional").
					Value(&result.Requirements),

				huh.NewInput().
					Title("Project name").
					Placeholder(DefaultProjectName).
					Value(&result.ProjectName),

				huh.NewSelect[string]().
					Title("Pipeline").
					Options(toHuhOptions(config.PipelineOptions)...).
					Value(&result.Pipeline),

				huh.NewConfirm().
					Title("Save files").
					Value(&result.SaveFiles),

				huh.NewSelect[string]().
					Title("Action").
					Description("Shift+Tab go back").
					Options(
						huh.NewOption("▶ Generate", "run"),
						huh.NewOption("⚙ Advanced...", "advanced"),
						huh.NewOption("✕ Cancel", "cancel"),
					).
					Value(&action),
			),
		).WithTheme(EngaiTheme()).WithAccessible(accessible)

		if err := mainForm.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				result.Cancelled = true
				return result, nil
			}
			return nil, fmt.Errorf("form error: %w", err)
		}

		// Handle browse
		if result.InputPath == inputBrowse {
			browseForm := huh.NewForm(
				huh.NewGroup(
					huh.NewFilePicker().
						Title("Browse").
						Description("Enter=open/select • .=hidden").
						Picking(true).
						DirAllowed(false).
						FileAllowed(true).
						AllowedTypes([]string{".md", ".txt", ".yaml", ".yml", ".json"}).
						CurrentDirectory(".").
						ShowHidden(false).
						ShowSize(true).
						ShowPermissions(false).
						Height(15).
						Value(&result.InputPath),
				).Title("EngAi"),
			).WithTheme(EngaiTheme()).WithAccessible(accessible)

			if err := browseForm.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					result.InputPath = inputTyped // Reset and go back to main
					continue
				}
				return nil, err
			}
			// Add the browsed file to options and continue
			if result.InputPath != "" && result.InputPath != inputBrowse {
				inputOptions = buildInputOptions(result.InputPath, DiscoverCandidates("."))
			}
			continue
		}

		if action == "cancel" {
			result.Cancelled = true
			return result, nil
		}

		if action == "run" {
			if result.Ready() {
				break
			}
			continue
		}

		// action == "advanced"
		advancedForm := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Output").
					Placeholder("./generated_projects").
					Value(&result.OutputDir),

				huh.NewInput().
					Title("Model").
					Placeholder("gemini-2.5-flash-lite").
					Value(&result.Model),

				huh.NewInput().
					Title("Config file").
					Placeholder(".engai/config.yaml").
					Value(&result.ConfigPath),

				huh.NewSelect[string]().
					Title("Verbosity").
					Options(toHuhOptions(config.VerbosityOptions)...).
					Value(&result.Verbosity),
			).Title("Advanced").Description("Esc=back"),
		).WithTheme(EngaiTheme()).WithAccessible(accessible)

		if err := advancedForm.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				continue // Back to main
			}
			return nil, fmt.Errorf("form error: %w", err)
		}
	}

	return result, nil
}

// DefaultProjectName is shown as the project name placeholder.
const DefaultProjectName = "project"

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
