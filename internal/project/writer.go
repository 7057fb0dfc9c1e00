// Package project writes the outputs of a completed pipeline run to a
// per-run directory.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tuannvm/engai/internal/markdown"
	"github.com/tuannvm/engai/internal/pipeline"
)

// DefaultName is used when no project name is given.
const DefaultName = "project"

const maxNameLen = 50

// DefaultRequirements is written when the backend output names none.
const DefaultRequirements = "fastapi>=0.104.0\nuvicorn[standard]>=0.24.0\npydantic>=2.5.0\npytest>=7.0.0\n"

// Output is the text produced by the pipeline stages.
type Output struct {
	Architecture   string
	DatabaseSchema string
	APIRoutePlan   string
	RoutePlan      *pipeline.RoutePlan
	Code           string
	FrontendCode   string
	Tests          string
}

// FromResult converts a pipeline result.
func FromResult(res *pipeline.Result) Output {
	return Output{
		Architecture:   res.Architecture,
		DatabaseSchema: res.DatabaseSchema,
		APIRoutePlan:   res.APIRoutePlan,
		RoutePlan:      res.RoutePlan,
		Code:           res.Code,
		FrontendCode:   res.FrontendCode,
		Tests:          res.Tests,
	}
}

// Meta describes the request the output was generated for.
type Meta struct {
	ProjectName  string
	Description  string
	Requirements string
}

// Files lists the written paths by logical name.
type Files struct {
	ProjectPath    string            `json:"project_path"`
	Architecture   string            `json:"architecture_file"`
	DatabaseSchema string            `json:"database_schema_file"`
	Code           string            `json:"code_file"`
	Readme         string            `json:"readme_file"`
	Requirements   string            `json:"requirements_file"`
	APIRoutePlan   string            `json:"api_route_plan_file,omitempty"`
	FrontendPath   string            `json:"frontend_path,omitempty"`
	Frontend       map[string]string `json:"frontend_files,omitempty"`
	Tests          string            `json:"test_file,omitempty"`
}

// Writer writes projects under a base directory.
type Writer struct {
	baseDir string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock sets the time source used for folder timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a writer rooted at baseDir.
func NewWriter(baseDir string, opts ...Option) *Writer {
	w := &Writer{
		baseDir: baseDir,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// BaseDir returns the directory projects are written under.
func (w *Writer) BaseDir() string {
	return w.baseDir
}

// Write creates the project folder and writes every output file.
func (w *Writer) Write(out Output, meta Meta) (*Files, error) {
	dir, err := w.reserveDir(FolderName(meta.ProjectName, w.now()))
	if err != nil {
		return nil, err
	}

	files := &Files{ProjectPath: dir}

	if files.Architecture, err = writeFile(dir, "ARCHITECTURE.md", out.Architecture); err != nil {
		return files, err
	}
	if files.DatabaseSchema, err = writeFile(dir, filepath.Join("database", "schema.sql"), ExtractSQL(out.DatabaseSchema)); err != nil {
		return files, err
	}
	if files.Code, err = writeFile(dir, "main.py", ExtractCode(out.Code)); err != nil {
		return files, err
	}
	if files.Readme, err = writeFile(dir, "README.md", readme(meta)); err != nil {
		return files, err
	}
	if files.Requirements, err = writeFile(dir, "requirements.txt", ExtractRequirements(out.Code)); err != nil {
		return files, err
	}

	if plan := routePlanJSON(out); plan != "" {
		if files.APIRoutePlan, err = writeFile(dir, filepath.Join("docs", "api_route_plan.json"), plan); err != nil {
			return files, err
		}
	}

	if strings.TrimSpace(out.FrontendCode) != "" {
		files.FrontendPath = filepath.Join(dir, "frontend")
		files.Frontend = make(map[string]string)
		for rel, content := range FrontendFiles(out.FrontendCode) {
			p, err := writeFile(files.FrontendPath, rel, content)
			if err != nil {
				return files, err
			}
			files.Frontend[filepath.ToSlash(rel)] = p
		}
	}

	if strings.TrimSpace(out.Tests) != "" {
		if files.Tests, err = writeFile(dir, filepath.Join("tests", "test_main.py"), ExtractCode(out.Tests)); err != nil {
			return files, err
		}
	}

	w.logger.Info("project written", "path", dir, "frontend_files", len(files.Frontend))
	return files, nil
}

const maxFolderAttempts = 100

// reserveDir creates a fresh project directory named name, or name with a
// numeric suffix when another run already holds it.
func (w *Writer) reserveDir(name string) (string, error) {
	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create project directory: %w", err)
	}
	for i := 1; i <= maxFolderAttempts; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d", name, i)
		}
		dir := filepath.Join(w.baseDir, candidate)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create project directory: %w", err)
		}
	}
	return "", fmt.Errorf("failed to create project directory: %s taken after %d attempts", name, maxFolderAttempts)
}

func writeFile(dir, rel, content string) (string, error) {
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return p, nil
}

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	dashSpaces = regexp.MustCompile(`[-\s]+`)
)

// SanitizeName strips everything but word characters, spaces and dashes,
// collapses space and dash runs to a single dash and caps the length.
func SanitizeName(name string) string {
	name = nonWord.ReplaceAllString(name, "")
	name = dashSpaces.ReplaceAllString(name, "-")
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}
	if name == "" {
		return DefaultName
	}
	return name
}

// FolderName returns "<name>_YYYYMMDD_HHMMSS". Write appends "_N" when the
// folder already exists.
func FolderName(name string, t time.Time) string {
	return SanitizeName(name) + "_" + t.Format("20060102_150405")
}

// ExtractCode returns the first python block, else the first unlabelled
// block, else the trimmed text.
func ExtractCode(text string) string {
	blocks := markdown.Blocks(text)
	if b, ok := markdown.First(blocks, "python", "py"); ok {
		return strings.TrimSpace(b.Code) + "\n"
	}
	if b, ok := markdown.First(blocks, ""); ok {
		return strings.TrimSpace(b.Code) + "\n"
	}
	return strings.TrimSpace(text) + "\n"
}

// ExtractSQL returns the first sql block, else an unlabelled block holding
// a CREATE statement, else the trimmed text.
func ExtractSQL(text string) string {
	blocks := markdown.Blocks(text)
	if b, ok := markdown.First(blocks, "sql"); ok {
		return strings.TrimSpace(b.Code) + "\n"
	}
	for _, b := range blocks {
		if b.Lang == "" && strings.Contains(strings.ToUpper(b.Code), "CREATE") {
			return strings.TrimSpace(b.Code) + "\n"
		}
	}
	return strings.TrimSpace(text) + "\n"
}

// ExtractRequirements returns the requirements.txt block of the backend
// output, or DefaultRequirements.
func ExtractRequirements(code string) string {
	for _, b := range markdown.WithPath(markdown.Blocks(code)) {
		if b.Path == "requirements.txt" && strings.TrimSpace(b.Code) != "" {
			return strings.TrimSpace(b.Code) + "\n"
		}
	}
	return DefaultRequirements
}

func routePlanJSON(out Output) string {
	if out.RoutePlan != nil {
		data, err := json.MarshalIndent(map[string]any{"api_route_plan": out.RoutePlan}, "", "  ")
		if err == nil {
			return string(data) + "\n"
		}
	}
	if strings.TrimSpace(out.APIRoutePlan) == "" {
		return ""
	}
	if b, ok := markdown.First(markdown.Blocks(out.APIRoutePlan), "json"); ok {
		return strings.TrimSpace(b.Code) + "\n"
	}
	return strings.TrimSpace(out.APIRoutePlan) + "\n"
}

func readme(meta Meta) string {
	reqs := meta.Requirements
	if strings.TrimSpace(reqs) == "" {
		reqs = "None specified"
	}
	return fmt.Sprintf(readmeTemplate, meta.Description, reqs)
}

const readmeTemplate = "# Generated Project\n\n" +
	"## Description\n%s\n\n" +
	"## Requirements\n%s\n\n" +
	"## Generated Files\n" +
	"- `main.py`: FastAPI backend REST API\n" +
	"- `frontend/`: React JavaScript frontend\n" +
	"- `docs/api_route_plan.json`: API route plan (when planned)\n" +
	"- `database/schema.sql`: SQLite database schema\n" +
	"- `ARCHITECTURE.md`: Architecture document\n\n" +
	"## Running\n\n" +
	"### Backend\n```bash\npip install -r requirements.txt\nuvicorn main:app --reload\n```\n\n" +
	"The API will be available at `http://localhost:8000`, with docs at `http://localhost:8000/docs`.\n\n" +
	"### Frontend\n```bash\ncd frontend\nnpm install\nnpm start\n```\n\n" +
	"## Testing\n```bash\npytest tests/\n```\n"
