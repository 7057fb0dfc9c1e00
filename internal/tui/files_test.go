package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, root, rel, content string, mod time.Time) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverCandidates(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)

	touch(t, root, "idea.md", "a todo app", base)
	touch(t, root, "notes.txt", "more", base.Add(2*time.Minute))
	touch(t, root, "requirements.txt", "fastapi", base.Add(3*time.Minute))
	touch(t, root, "LICENSE.md", "MIT", base.Add(4*time.Minute))
	touch(t, root, "main.go", "package main", base.Add(5*time.Minute))
	touch(t, root, "ideas/blog.md", "a blog", base.Add(time.Minute))
	touch(t, root, "ideas/shop/description.md", "a shop", base)
	touch(t, root, "ideas/empty/requirements.md", "only reqs", base)
	touch(t, root, "ideas/.hidden/x.md", "hidden", base)

	got := DiscoverCandidates(root)

	want := []Candidate{
		{Path: "ideas", Dir: true},
		{Path: filepath.Join("ideas", "shop"), Dir: true},
		{Path: "notes.txt"},
		{Path: filepath.Join("ideas", "blog.md")},
		{Path: "idea.md"},
	}
	if len(got) != len(want) {
		t.Fatalf("DiscoverCandidates() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDiscoverCandidatesLimit(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	for i := 0; i < maxFileCandidates+5; i++ {
		touch(t, root, filepath.Join("inputs", string(rune('a'+i))+".md"), "x", now.Add(time.Duration(i)*time.Second))
	}

	var files int
	for _, c := range DiscoverCandidates(root) {
		if !c.Dir {
			files++
		}
	}
	if files != maxFileCandidates {
		t.Errorf("got %d files, want %d", files, maxFileCandidates)
	}
}

func TestCandidateLabel(t *testing.T) {
	if got := (Candidate{Path: "ideas", Dir: true}).Label(); got != "📁 ideas/" {
		t.Errorf("Label() = %q", got)
	}
	if got := (Candidate{Path: "idea.md"}).Label(); got != "idea.md" {
		t.Errorf("Label() = %q", got)
	}
}

func TestSkipFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"idea.md", false},
		{"ideas/todo.txt", false},
		{"requirements.txt", true},
		{"ideas/Requirements.md", true},
		{"LICENSE", true},
		{"CHANGELOG.md", true},
		{".draft.md", true},
		{"spec.yaml", true},
		{"main.go", true},
	}
	for _, tt := range tests {
		if got := skipFile(tt.path); got != tt.want {
			t.Errorf("skipFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsDescriptionFile(t *testing.T) {
	for _, p := range []string{"a.md", "a.MD", "a.txt"} {
		if !IsDescriptionFile(p) {
			t.Errorf("IsDescriptionFile(%q) = false", p)
		}
	}
	for _, p := range []string{"a.yaml", "a", "a.go"} {
		if IsDescriptionFile(p) {
			t.Errorf("IsDescriptionFile(%q) = true", p)
		}
	}
}
