package project

import (
	"path"
	"strings"

	"github.com/tuannvm/engai/internal/markdown"
)

// FallbackFrontendFile receives the frontend output when it names no files.
const FallbackFrontendFile = "src/App.jsx"

const minFrontendContent = 10

var frontendLangs = map[string]bool{
	"javascript": true, "jsx": true, "js": true,
	"typescript": true, "tsx": true, "ts": true,
	"json": true, "css": true, "html": true,
}

var frontendExts = []string{".jsx", ".js", ".json", ".html", ".css", ".tsx", ".ts"}

var rootConfigs = map[string]bool{"package.json": true, "tsconfig.json": true}

// FrontendFiles splits frontend output into files keyed by their path
// relative to the frontend folder. Blocks are read from "lang:path" fences;
// invalid or escaping paths are dropped. Output without any file block is
// returned as FallbackFrontendFile.
func FrontendFiles(text string) map[string]string {
	files := make(map[string]string)
	blocks := markdown.Blocks(text)
	for _, b := range markdown.WithPath(blocks) {
		if !frontendLangs[b.Lang] {
			continue
		}
		content := strings.TrimSpace(b.Code)
		if len(content) < minFrontendContent {
			continue
		}
		p, ok := CleanFrontendPath(b.Path)
		if !ok {
			continue
		}
		files[p] = content + "\n"
	}
	if len(files) > 0 {
		return files
	}

	content := strings.TrimSpace(text)
	if b, ok := markdown.First(blocks); ok {
		content = strings.TrimSpace(b.Code)
	}
	files[FallbackFrontendFile] = content + "\n"
	return files
}

// CleanFrontendPath normalizes a path named in a fence and reports whether
// it is usable. Paths outside public/ and src/ are moved under src/,
// except root JSON config files.
func CleanFrontendPath(p string) (string, bool) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimLeft(p, "/")
	p = strings.TrimPrefix(p, "frontend/")
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}

	valid := rootConfigs[p]
	for _, ext := range frontendExts {
		if strings.HasSuffix(p, ext) {
			valid = true
			break
		}
	}
	if !valid || (len(p) < 5 && !rootConfigs[p]) {
		return "", false
	}

	switch {
	case rootConfigs[p]:
	case strings.HasPrefix(p, "public/"), strings.HasPrefix(p, "src/"):
	case !strings.Contains(p, "/") && strings.HasSuffix(p, ".json"):
	default:
		p = "src/" + p
	}
	return p, true
}
