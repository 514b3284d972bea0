package pipeline

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	entryPrefixBytes = 4096
	placeholderAlt   = "paperpolish-main.tex"
)

var documentMarker = []byte(`\begin{document}`)

const placeholderDocument = "\\documentclass{article}\n\\begin{document}\nHello\n\\end{document}\n"

// Entry is the file the correction passes operate on.
type Entry struct {
	Path        string
	Synthesized bool
}

// LocateEntry picks the main document of the project in dir. Files are
// visited in lexical order; a candidate named main.tex beats any other, and
// among several the shallowest wins. When nothing looks like a main
// document a placeholder is written.
func LocateEntry(dir string) Entry {
	var candidates []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(d.Name()), ".tex") {
			return nil
		}
		if hasDocumentMarker(p) {
			candidates = append(candidates, p)
		}
		return nil
	})

	best, bestDepth := "", -1
	for _, c := range candidates {
		if filepath.Base(c) != mainTexName {
			continue
		}
		depth := strings.Count(c, string(filepath.Separator))
		if bestDepth < 0 || depth < bestDepth {
			best, bestDepth = c, depth
		}
	}
	if best != "" {
		return Entry{Path: best}
	}
	if len(candidates) > 0 {
		return Entry{Path: candidates[0]}
	}
	return synthesizeEntry(dir)
}

func hasDocumentMarker(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, entryPrefixBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	return bytes.Contains(buf[:n], documentMarker)
}

func synthesizeEntry(dir string) Entry {
	name := mainTexName
	if _, err := os.Lstat(filepath.Join(dir, name)); err == nil {
		name = placeholderAlt
	}
	p := filepath.Join(dir, name)
	_ = os.WriteFile(p, []byte(placeholderDocument), 0o644)
	return Entry{Path: p, Synthesized: true}
}
