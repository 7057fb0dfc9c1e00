// Package markdown extracts fenced code blocks from model output using
// goldmark for parsing.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Block is one fenced code block.
type Block struct {
	// Info is the full info string, e.g. "javascript:src/App.jsx".
	Info string
	// Lang is the language part of the info string, lower-cased.
	Lang string
	// Path is the file path after the colon in the info string, if any.
	Path string
	Code string
}

// Blocks returns the fenced code blocks of source in document order.
func Blocks(source string) []Block {
	if source == "" {
		return nil
	}
	src := []byte(source)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var blocks []Block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var info string
		if fcb.Info != nil {
			info = strings.TrimSpace(string(fcb.Info.Segment.Value(src)))
		}

		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}

		b := Block{Info: info, Code: buf.String()}
		b.Lang, b.Path = splitInfo(info)
		blocks = append(blocks, b)
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// splitInfo splits "lang:path extra" into its language and path.
func splitInfo(info string) (lang, path string) {
	if f := strings.Fields(info); len(f) > 0 {
		info = f[0]
	}
	lang, path, _ = strings.Cut(info, ":")
	return strings.ToLower(strings.TrimSpace(lang)), strings.TrimSpace(path)
}

// First returns the first block whose language is one of langs. With no
// langs it returns the first block.
func First(blocks []Block, langs ...string) (Block, bool) {
	for _, b := range blocks {
		if len(langs) == 0 {
			return b, true
		}
		for _, l := range langs {
			if b.Lang == l {
				return b, true
			}
		}
	}
	return Block{}, false
}

// WithPath returns the blocks that name a file path, in order.
func WithPath(blocks []Block) []Block {
	var out []Block
	for _, b := range blocks {
		if b.Path != "" {
			out = append(out, b)
		}
	}
	return out
}
