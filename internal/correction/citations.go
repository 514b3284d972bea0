package correction

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	unresolvedMarker = "??"
	missingBibNotice = "No .bib file found. Add a bibliography or enable DOI→Bib generator."
)

// Keys never contain '}', so a match cannot run past the command it starts in.
var citeTrailingMarker = regexp.MustCompile(`\\(cite[pt]?\*?)\{([^}]+)\}\?`)

// NormalizeCitations drops unresolved "??" markers and the stray '?'
// after a citation command's closing brace. Applying it twice is the same
// as applying it once.
func NormalizeCitations(text string) string {
	text = strings.ReplaceAll(text, unresolvedMarker, "")
	return citeTrailingMarker.ReplaceAllString(text, `\${1}{${2}}`)
}

type CitationPass struct{}

func (CitationPass) Name() string { return "fix_citations" }

func (p CitationPass) Run(ctx context.Context, target Target) Outcome {
	info, err := os.Stat(target.Entry)
	if err != nil {
		return Failed(p.Name(), fmt.Sprintf("Citation fix skipped: %v", err))
	}
	raw, err := os.ReadFile(target.Entry)
	if err != nil {
		return Failed(p.Name(), fmt.Sprintf("Citation fix skipped: %v", err))
	}
	fixed := NormalizeCitations(string(raw))
	if fixed != string(raw) {
		if err := os.WriteFile(target.Entry, []byte(fixed), info.Mode().Perm()); err != nil {
			return Failed(p.Name(), fmt.Sprintf("Citation fix skipped: %v", err))
		}
	}

	hasBib, err := containsBibliography(target.Dir)
	if err != nil {
		return Applied(p.Name(), fmt.Sprintf("Could not check for .bib files: %v", err))
	}
	if !hasBib {
		return Applied(p.Name(), missingBibNotice)
	}
	return Applied(p.Name())
}

var errFound = errors.New("found")

func containsBibliography(dir string) (bool, error) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".bib") {
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return true, nil
	}
	return false, err
}
