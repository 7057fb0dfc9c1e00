package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestDiscoverSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"todo.txt": "  A todo list app  \n"})

	src, err := Discover(filepath.Join(dir, "todo.txt"))
	require.NoError(t, err)
	assert.False(t, src.Dir)
	assert.Equal(t, "todo.txt", src.Summary())
	assert.Len(t, src.Files(), 1)

	text, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, "A todo list app", text.Description)
	assert.Empty(t, text.Requirements)
}

func TestDiscoverDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"notes.md":              "Users share lists.",
		"description.md":        "A todo list app.",
		"requirements.md":       "Use PostgreSQL.",
		"extra/api.yaml":        "paths: {}",
		"extra/requirements.md": "JWT auth.",
		"empty.txt":             "   ",
		"image.png":             "binary",
		".hidden/secret.md":     "skip me",
		".draft.md":             "skip me too",
	})

	src, err := Discover(dir)
	require.NoError(t, err)
	assert.True(t, src.Dir)
	assert.Equal(t, filepath.Join(dir, "description.md"), src.Primary)
	assert.Equal(t, []string{
		filepath.Join(dir, "empty.txt"),
		filepath.Join(dir, "extra", "api.yaml"),
		filepath.Join(dir, "notes.md"),
	}, src.Description)
	assert.Equal(t, []string{
		filepath.Join(dir, "extra", "requirements.md"),
		filepath.Join(dir, "requirements.md"),
	}, src.Requirements)
	assert.Len(t, src.Files(), 6)
	assert.Contains(t, src.Summary(), "(4 description, 2 requirements files)")

	text, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, "A todo list app.\n\npaths: {}\n\nUsers share lists.", text.Description)
	assert.Equal(t, "JWT auth.\n\nUse PostgreSQL.", text.Requirements)
}

func TestDiscoverErrors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := Discover(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := Discover(t.TempDir())
		assert.ErrorIs(t, err, ErrNoInput)
	})

	t.Run("only requirements", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"requirements.txt": "fastapi"})
		_, err := Discover(dir)
		assert.ErrorIs(t, err, ErrNoInput)
	})
}

func TestPrimary(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"description wins", []string{"/a/notes.md", "/a/readme.md", "/a/my-description.md"}, "/a/my-description.md"},
		{"idea before readme", []string{"/a/README.md", "/a/idea.md"}, "/a/idea.md"},
		{"any markdown", []string{"/a/api.yaml", "/a/notes.MD"}, "/a/notes.MD"},
		{"first file", []string{"/a/api.json", "/a/b.txt"}, "/a/api.json"},
		{"marker needs markdown", []string{"/a/description.txt", "/a/z.md"}, "/a/z.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, primary(tt.files))
		})
	}
}

func TestSupported(t *testing.T) {
	for _, path := range []string{"a.md", "a.TXT", "a.Yaml", "a.yml", "a.json"} {
		assert.True(t, supported(path), path)
	}
	for _, path := range []string{"a.go", "a.png", "Makefile"} {
		assert.False(t, supported(path), path)
	}
}

func TestIsRequirementsFile(t *testing.T) {
	assert.True(t, IsRequirementsFile("/x/requirements.md"))
	assert.True(t, IsRequirementsFile("/x/Extra-Requirement.txt"))
	assert.False(t, IsRequirementsFile("/x/requirements/description.md"))
	assert.False(t, IsRequirementsFile("/x/spec.md"))
}
