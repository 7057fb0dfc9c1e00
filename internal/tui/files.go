package tui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tuannvm/engai/internal/input"
)

// inputDirs are the folders searched for application descriptions.
var inputDirs = []string{"inputs", "input", "examples", "ideas"}

// maxFileCandidates caps the files offered in the picker.
const maxFileCandidates = 10

// Candidate is a description source offered in the input picker.
type Candidate struct {
	Path string
	Dir  bool
}

// Label is the picker text for the candidate.
func (c Candidate) Label() string {
	if c.Dir {
		return "📁 " + c.Path + "/"
	}
	return c.Path
}

// DiscoverCandidates lists description sources under root: input folders
// (and their subfolders) that hold a description, then loose description
// files from root and the input folders, most recent first. Paths are
// relative to root.
func DiscoverCandidates(root string) []Candidate {
	var out []Candidate
	for _, dir := range candidateDirs(root) {
		out = append(out, Candidate{Path: dir, Dir: true})
	}
	for _, f := range candidateFiles(root) {
		out = append(out, Candidate{Path: f})
	}
	return out
}

func candidateDirs(root string) []string {
	var dirs []string
	for _, name := range inputDirs {
		entries, err := os.ReadDir(filepath.Join(root, name))
		if err != nil {
			continue
		}
		if hasDescription(root, name) {
			dirs = append(dirs, name)
		}
		for _, e := range entries {
			sub := filepath.Join(name, e.Name())
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") && hasDescription(root, sub) {
				dirs = append(dirs, sub)
			}
		}
	}
	return dirs
}

func hasDescription(root, dir string) bool {
	_, err := input.Discover(filepath.Join(root, dir))
	return err == nil
}

func candidateFiles(root string) []string {
	type file struct {
		path string
		mod  int64
	}
	var files []file
	seen := make(map[string]bool)

	for _, dir := range append([]string{"."}, inputDirs...) {
		entries, err := os.ReadDir(filepath.Join(root, dir))
		if err != nil {
			continue
		}
		for _, e := range entries {
			rel := filepath.Join(dir, e.Name())
			if e.IsDir() || seen[rel] || skipFile(rel) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			seen[rel] = true
			files = append(files, file{rel, info.ModTime().UnixNano()})
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].mod != files[j].mod {
			return files[i].mod > files[j].mod
		}
		return files[i].path < files[j].path
	})

	out := make([]string, 0, maxFileCandidates)
	for i := 0; i < len(files) && i < maxFileCandidates; i++ {
		out = append(out, files[i].path)
	}
	return out
}

// skipFile drops files that are never descriptions, such as a pip
// requirements.txt or a license.
func skipFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, ".") || input.IsRequirementsFile(base) {
		return true
	}
	switch base {
	case "license", "license.md", "changelog.md", "contributing.md":
		return true
	}
	return !IsDescriptionFile(path)
}

// IsDescriptionFile reports whether a loose file can hold a description.
func IsDescriptionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".txt"
}
