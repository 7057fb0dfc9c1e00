package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannvm/engai/internal/pipeline"
)

var fixedTime = time.Date(2025, 12, 7, 19, 56, 47, 0, time.UTC)

const backendOutput = "Here is the backend:\n\n```python\nfrom fastapi import FastAPI\napp = FastAPI()\n```\n\n" +
	"```txt:requirements.txt\nfastapi>=0.104.0\nuvicorn[standard]>=0.24.0\nsqlalchemy\n```\n"

const frontendOutput = "```html:public/index.html\n<div id=\"root\"></div>\n```\n\n" +
	"```javascript:src/App.jsx\nexport default function App() { return null; }\n```\n\n" +
	"```css:App.css\n.app { color: red; }\n```\n\n" +
	"```json:package.json\n{\"name\": \"todo-app\"}\n```\n\n" +
	"```javascript:../../etc/passwd.js\nconsole.log('escape');\n```\n"

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func TestWriteProject(t *testing.T) {
	base := t.TempDir()
	w := NewWriter(base, WithClock(func() time.Time { return fixedTime }))

	files, err := w.Write(Output{
		Architecture:   "# Architecture\nthree tiers",
		DatabaseSchema: "```sql\nCREATE TABLE todos (id INTEGER PRIMARY KEY);\n```",
		Code:           backendOutput,
		FrontendCode:   frontendOutput,
		Tests:          "```python\ndef test_ok():\n    assert True\n```",
	}, Meta{ProjectName: "Todo App!", Description: "a todo list app"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "Todo-App_20251207_195647"), files.ProjectPath)
	assert.Equal(t, "# Architecture\nthree tiers", readFile(t, files.Architecture))
	assert.Equal(t, "CREATE TABLE todos (id INTEGER PRIMARY KEY);\n", readFile(t, files.DatabaseSchema))
	assert.Equal(t, "from fastapi import FastAPI\napp = FastAPI()\n", readFile(t, files.Code))
	assert.Contains(t, readFile(t, files.Requirements), "sqlalchemy")
	assert.Contains(t, readFile(t, files.Tests), "def test_ok")
	assert.Equal(t, filepath.Join(files.ProjectPath, "tests", "test_main.py"), files.Tests)

	readmeText := readFile(t, files.Readme)
	assert.Contains(t, readmeText, "a todo list app")
	assert.Contains(t, readmeText, "None specified")

	assert.Empty(t, files.APIRoutePlan, "no route plan file without a plan")

	assert.ElementsMatch(t, []string{"public/index.html", "src/App.jsx", "src/App.css", "package.json"}, keys(files.Frontend))
	assert.FileExists(t, filepath.Join(files.ProjectPath, "frontend", "src", "App.css"))
	assert.NoFileExists(t, filepath.Join(base, "etc", "passwd.js"))
}

func TestWriteRoutePlan(t *testing.T) {
	base := t.TempDir()
	w := NewWriter(base, WithClock(func() time.Time { return fixedTime }))

	plan := &pipeline.RoutePlan{BaseURL: "/api", Routes: []pipeline.Route{{Method: "GET", Path: "/todos"}}}
	files, err := w.Write(Output{Architecture: "a", RoutePlan: plan, APIRoutePlan: "raw"}, Meta{})
	require.NoError(t, err)

	var decoded struct {
		Plan pipeline.RoutePlan `json:"api_route_plan"`
	}
	require.NoError(t, json.Unmarshal([]byte(readFile(t, files.APIRoutePlan)), &decoded))
	assert.Equal(t, "/todos", decoded.Plan.Routes[0].Path)
	assert.True(t, strings.HasPrefix(filepath.Base(files.ProjectPath), DefaultName+"_"))
}

func TestWriteDefaultsWithoutFences(t *testing.T) {
	w := NewWriter(t.TempDir())
	files, err := w.Write(Output{
		Architecture:   "arch",
		DatabaseSchema: "CREATE TABLE x (id INTEGER);",
		Code:           "print('hello')",
		FrontendCode:   "function App() { return null; }",
	}, Meta{Requirements: "auth"})
	require.NoError(t, err)

	assert.Equal(t, "CREATE TABLE x (id INTEGER);\n", readFile(t, files.DatabaseSchema))
	assert.Equal(t, "print('hello')\n", readFile(t, files.Code))
	assert.Equal(t, DefaultRequirements, readFile(t, files.Requirements))
	assert.Contains(t, readFile(t, files.Readme), "auth")
	require.Contains(t, files.Frontend, FallbackFrontendFile)
	assert.Empty(t, files.Tests)
}

func TestWriteSameNameSameSecondGetsDistinctFolders(t *testing.T) {
	base := t.TempDir()
	w := NewWriter(base, WithClock(func() time.Time { return fixedTime }))

	const runs = 8
	paths := make(chan string, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			files, err := w.Write(Output{Architecture: fmt.Sprintf("run %d", i)}, Meta{ProjectName: "todo-app"})
			if assert.NoError(t, err) {
				paths <- files.ProjectPath
			}
		}(i)
	}
	wg.Wait()
	close(paths)

	seen := make(map[string]bool)
	for p := range paths {
		assert.False(t, seen[p], "folder %s shared by two runs", p)
		seen[p] = true
		assert.True(t, strings.HasPrefix(filepath.Base(p), "todo-app_20251207_195647"))
	}
	assert.Len(t, seen, runs)
	assert.Contains(t, seen, filepath.Join(base, "todo-app_20251207_195647"))
	assert.Contains(t, seen, filepath.Join(base, "todo-app_20251207_195647_2"))
}

func TestWriteFailsOnUnwritableBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0644))

	_, err := NewWriter(base).Write(Output{Architecture: "a"}, Meta{})
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", DefaultName},
		{"!!!", DefaultName},
		{"todo app", "todo-app"},
		{"my  --  project", "my-project"},
		{"a/b\\c:d", "abcd"},
		{"snake_case ok", "snake_case-ok"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
}

func TestExtractSQLGenericFence(t *testing.T) {
	got := ExtractSQL("```\nselect 1;\n```\n\n```\ncreate table t (id int);\n```")
	assert.Equal(t, "create table t (id int);\n", got)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
