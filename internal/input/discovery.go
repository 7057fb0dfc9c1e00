// Package input finds the application description for a generation run.
// The source is one file, or a directory of notes where files named like
// "requirements" hold the requirements and everything else is description.
package input

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoInput is returned for a directory without any usable file.
var ErrNoInput = errors.New("no description files found")

// Extensions lists the file types read from a directory.
var Extensions = []string{".md", ".txt", ".yaml", ".yml", ".json"}

// descriptionMarkers name the file that leads the description, in order of
// preference.
var descriptionMarkers = []string{"description", "idea", "readme"}

// Source is a discovered description source.
type Source struct {
	// Root is the absolute input path.
	Root string
	Dir  bool
	// Primary leads the description.
	Primary string
	// Description and Requirements files, sorted, Primary excluded.
	Description  []string
	Requirements []string
}

// Text is the content read from a Source.
type Text struct {
	Description  string
	Requirements string
}

// Discover resolves path to a Source. A file is used as the description
// whatever its extension.
func Discover(path string) (*Source, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("path not found: %w", err)
	}
	if !info.IsDir() {
		return &Source{Root: root, Primary: root}, nil
	}

	files, err := walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	src := &Source{Root: root, Dir: true}
	var desc []string
	for _, f := range files {
		if IsRequirementsFile(f) {
			src.Requirements = append(src.Requirements, f)
		} else {
			desc = append(desc, f)
		}
	}
	if len(desc) == 0 {
		return nil, fmt.Errorf("%w in %s (supported: %s)", ErrNoInput, root, strings.Join(Extensions, ", "))
	}

	src.Primary = primary(desc)
	for _, f := range desc {
		if f != src.Primary {
			src.Description = append(src.Description, f)
		}
	}
	return src, nil
}

// walk lists supported files under dir, skipping hidden entries.
func walk(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		hidden := path != dir && strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if !hidden && supported(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// primary picks the leading description file: a markdown file named like a
// description, then any markdown file, then the first file.
func primary(files []string) string {
	for _, marker := range descriptionMarkers {
		for _, f := range files {
			name := strings.ToLower(filepath.Base(f))
			if strings.Contains(name, marker) && strings.HasSuffix(name, ".md") {
				return f
			}
		}
	}
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".md") {
			return f
		}
	}
	return files[0]
}

// IsRequirementsFile reports whether a file holds requirements rather than
// the description, judged by its name.
func IsRequirementsFile(path string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(path)), "requirement")
}

// Files returns every file of the source in read order.
func (s *Source) Files() []string {
	out := []string{s.Primary}
	out = append(out, s.Description...)
	return append(out, s.Requirements...)
}

// Summary describes the source for progress output.
func (s *Source) Summary() string {
	if !s.Dir {
		return filepath.Base(s.Primary)
	}
	return fmt.Sprintf("%s/ (%d description, %d requirements files)",
		filepath.Base(s.Root), len(s.Description)+1, len(s.Requirements))
}

// Read returns the text of the source. Files are trimmed, empty ones are
// dropped, and the rest are joined with blank lines.
func (s *Source) Read() (Text, error) {
	desc, err := readAll(append([]string{s.Primary}, s.Description...))
	if err != nil {
		return Text{}, err
	}
	reqs, err := readAll(s.Requirements)
	if err != nil {
		return Text{}, err
	}
	return Text{Description: desc, Requirements: reqs}, nil
}

func readAll(files []string) (string, error) {
	var parts []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", f, err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
