package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paperpolish/paperpolish-go/internal/correction"
	"github.com/paperpolish/paperpolish-go/internal/domain"
)

const overlayPass = "template"

// ApplyTemplate copies the files of root/<template> into the project root.
// Template files replace uploaded files of the same name. A template that is
// not installed is skipped without a warning; an unknown or unsafe name
// warns.
func ApplyTemplate(root string, tpl domain.Template, dir string) correction.Outcome {
	name := strings.TrimSpace(string(tpl))
	if _, err := domain.ParseTemplate(name); err != nil || name == "" || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return correction.Skipped(overlayPass, fmt.Sprintf("Template %q is not available; skipped template files.", name))
	}
	notInstalled := correction.Outcome{Pass: overlayPass, Status: correction.StatusSkipped}
	if strings.TrimSpace(root) == "" {
		return notInstalled
	}
	src := filepath.Join(root, name)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return notInstalled
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return correction.Failed(overlayPass, fmt.Sprintf("Template %q could not be read: %v", name, err))
	}
	var warnings []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := copyFile(filepath.Join(src, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			warnings = append(warnings, fmt.Sprintf("Template file %s could not be copied: %v", e.Name(), err))
		}
	}
	return correction.Applied(overlayPass, warnings...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// A same-named directory in the upload cannot be replaced by a file.
	if info, err := os.Lstat(dst); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", filepath.Base(dst))
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
