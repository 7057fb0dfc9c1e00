// Package prompt resolves and renders the per-agent prompt templates.
//
// A template is looked up in order: a configured override, a file named
// <agent>.md in the prompts directory, then the embedded default. Templates
// use text/template; the single-brace placeholders of older prompt files,
// such as {description}, are accepted too.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.md
var embeddedTemplates embed.FS

// ErrNotFound is returned for an agent without any template.
var ErrNotFound = errors.New("no prompt template")

// Origin says where a template came from.
type Origin string

const (
	OriginOverride Origin = "override"
	OriginDir      Origin = "dir"
	OriginEmbedded Origin = "embedded"
)

// Template is a resolved, unrendered prompt.
type Template struct {
	Agent  string
	Origin Origin
	Text   string
}

// Variables holds the template variables for prompt rendering
type Variables struct {
	AgentName      string
	Description    string
	Requirements   string
	Architecture   string
	DatabaseSchema string
	APIRoutePlan   string
	Code           string
	// Custom allows arbitrary key-value pairs
	Custom map[string]string
}

// HasRequirements reports whether the caller supplied requirements.
func (v Variables) HasRequirements() bool {
	return strings.TrimSpace(v.Requirements) != ""
}

// HasRoutePlan reports whether an API route plan is available.
func (v Variables) HasRoutePlan() bool {
	return strings.TrimSpace(v.APIRoutePlan) != ""
}

// HasSchema reports whether a database schema is available.
func (v Variables) HasSchema() bool {
	return strings.TrimSpace(v.DatabaseSchema) != ""
}

// Loader resolves and renders templates. It is safe for concurrent use;
// parsed templates are cached by source text.
type Loader struct {
	dir       string
	overrides map[string]string
	parsed    sync.Map // string -> *template.Template
}

// NewLoader creates a loader. dir may be empty to use only overrides and
// the embedded defaults.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// WithOverrides sets inline prompts per agent, typically from config.
func (l *Loader) WithOverrides(overrides map[string]string) *Loader {
	l.overrides = overrides
	return l
}

// Load resolves the template for agent.
func (l *Loader) Load(agent string) (Template, error) {
	if text := l.overrides[agent]; text != "" {
		return Template{Agent: agent, Origin: OriginOverride, Text: text}, nil
	}

	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, agent+".md"))
		switch {
		case err == nil:
			return Template{Agent: agent, Origin: OriginDir, Text: string(data)}, nil
		case !errors.Is(err, fs.ErrNotExist):
			return Template{}, fmt.Errorf("read prompt for %s: %w", agent, err)
		}
	}

	data, err := embeddedTemplates.ReadFile("templates/" + agent + ".md")
	if err != nil {
		return Template{}, fmt.Errorf("%w for agent %s", ErrNotFound, agent)
	}
	return Template{Agent: agent, Origin: OriginEmbedded, Text: string(data)}, nil
}

// Render executes text with vars. A variable the template names but vars
// lacks is an error.
func (l *Loader) Render(text string, vars Variables) (string, error) {
	tmpl, err := l.parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	return buf.String(), nil
}

// Prompt resolves and renders the template for agent.
func (l *Loader) Prompt(agent string, vars Variables) (string, error) {
	t, err := l.Load(agent)
	if err != nil {
		return "", err
	}
	return l.Render(t.Text, vars)
}

func (l *Loader) parse(text string) (*template.Template, error) {
	if cached, ok := l.parsed.Load(text); ok {
		return cached.(*template.Template), nil
	}
	tmpl, err := template.New("prompt").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"join": strings.Join,
			"trim": strings.TrimSpace,
		}).Parse(convertLegacyPlaceholders(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	l.parsed.Store(text, tmpl)
	return tmpl, nil
}

var legacyPlaceholders = strings.NewReplacer(
	"{application_description}", "{{.Description}}",
	"{description}", "{{.Description}}",
	"{requirements}", "{{.Requirements}}",
	"{architecture}", "{{.Architecture}}",
	"{database_schema}", "{{.DatabaseSchema}}",
	"{api_route_plan}", "{{.APIRoutePlan}}",
	"{code}", "{{.Code}}",
	"{agent_name}", "{{.AgentName}}",
)

func convertLegacyPlaceholders(text string) string {
	return legacyPlaceholders.Replace(text)
}

// ListAvailable returns every agent with a template, as Load would resolve
// it, sorted by agent name.
func (l *Loader) ListAvailable() ([]Template, error) {
	names := make(map[string]bool)
	for name := range l.overrides {
		names[name] = true
	}

	entries, err := embeddedTemplates.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	addMarkdown(names, entries)

	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read prompts dir: %w", err)
		}
		addMarkdown(names, entries)
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	out := make([]Template, 0, len(sorted))
	for _, name := range sorted {
		t, err := l.Load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func addMarkdown(names map[string]bool, entries []fs.DirEntry) {
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names[strings.TrimSuffix(e.Name(), ".md")] = true
		}
	}
}
