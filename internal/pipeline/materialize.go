package pipeline

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	DefaultExtractMaxBytes int64 = 200 << 20
	DefaultExtractMaxFiles       = 5000

	mainTexName = "main.tex"
)

// ExtractLimits bounds what a single upload may expand to on disk.
type ExtractLimits struct {
	MaxBytes int64
	MaxFiles int
}

func DefaultExtractLimits() ExtractLimits {
	return ExtractLimits{MaxBytes: DefaultExtractMaxBytes, MaxFiles: DefaultExtractMaxFiles}
}

func (l ExtractLimits) normalized() ExtractLimits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultExtractMaxBytes
	}
	if l.MaxFiles <= 0 {
		l.MaxFiles = DefaultExtractMaxFiles
	}
	return l
}

// SupportedUpload reports whether filename has an extension Materialize
// accepts.
func SupportedUpload(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip", ".tex":
		return true
	default:
		return false
	}
}

// Materialize turns the uploaded stream into a project tree under ws.Dir.
func Materialize(ws *Workspace, filename string, body io.Reader, limits ExtractLimits) error {
	if ws == nil || body == nil {
		return newError(KindUnsupportedInput, nil, "no upload provided")
	}
	limits = limits.normalized()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return materializeZip(ws, body, limits)
	case ".tex":
		return materializeTex(ws.Dir, body, limits)
	default:
		return newError(KindUnsupportedInput, nil, "unsupported file type %q; upload a .zip or .tex file", filepath.Ext(filename))
	}
}

func materializeTex(dir string, body io.Reader, limits ExtractLimits) error {
	out, err := os.OpenFile(filepath.Join(dir, mainTexName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return newError(KindInvalidArchive, err, "could not store upload")
	}
	n, copyErr := io.Copy(out, io.LimitReader(body, limits.MaxBytes+1))
	closeErr := out.Close()
	if copyErr != nil {
		return newError(KindInvalidArchive, copyErr, "could not read upload")
	}
	if closeErr != nil {
		return newError(KindInvalidArchive, closeErr, "could not store upload")
	}
	if n > limits.MaxBytes {
		return newError(KindInvalidArchive, nil, "upload exceeds %d bytes", limits.MaxBytes)
	}
	return nil
}

func materializeZip(ws *Workspace, body io.Reader, limits ExtractLimits) error {
	spool, err := ws.scratchFile("upload-*.zip")
	if err != nil {
		return newError(KindInvalidArchive, err, "could not store upload")
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()
	size, err := io.Copy(spool, body)
	if err != nil {
		return newError(KindInvalidArchive, err, "could not read upload")
	}

	zr, err := zip.NewReader(spool, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return newError(KindInvalidArchive, err, "not a valid zip archive")
	}
	if zr == nil {
		return newError(KindInvalidArchive, err, "not a valid zip archive")
	}

	var (
		total int64
		files int
	)
	for _, f := range zr.File {
		rel, skip, err := entryPath(f.Name)
		if err != nil {
			return newError(KindInvalidArchive, nil, "%v", err)
		}
		if skip {
			continue
		}
		target := filepath.Join(ws.Dir, rel)
		mode := f.Mode()
		switch {
		case mode&fs.ModeSymlink != 0:
			return newError(KindInvalidArchive, nil, "archive entry %q is a symbolic link", f.Name)
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return newError(KindInvalidArchive, err, "could not create %q", rel)
			}
			continue
		case !mode.IsRegular():
			return newError(KindInvalidArchive, nil, "archive entry %q is not a regular file", f.Name)
		}

		files++
		if files > limits.MaxFiles {
			return newError(KindInvalidArchive, nil, "archive contains more than %d files", limits.MaxFiles)
		}
		remaining := limits.MaxBytes - total
		if f.UncompressedSize64 > uint64(remaining) {
			return newError(KindInvalidArchive, nil, "archive expands beyond %d bytes", limits.MaxBytes)
		}
		n, err := extractFile(f, target, remaining)
		if err != nil {
			return newError(KindInvalidArchive, err, "could not extract %q", f.Name)
		}
		total += n
		if total > limits.MaxBytes {
			return newError(KindInvalidArchive, nil, "archive expands beyond %d bytes", limits.MaxBytes)
		}
	}
	return nil
}

// entryPath validates a zip entry name and returns it as a local relative
// path. Metadata folders written by macOS are skipped.
func entryPath(name string) (string, bool, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if slashed == "" {
		return "", true, nil
	}
	if strings.HasPrefix(slashed, "/") || filepath.VolumeName(name) != "" || (len(slashed) > 1 && slashed[1] == ':') {
		return "", false, fmt.Errorf("archive entry %q has an absolute path", name)
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return "", true, nil
	}
	if cleaned == "__MACOSX" || strings.HasPrefix(cleaned, "__MACOSX/") {
		return "", true, nil
	}
	rel := filepath.FromSlash(cleaned)
	if !filepath.IsLocal(rel) {
		return "", false, fmt.Errorf("archive entry %q escapes the project", name)
	}
	return rel, false, nil
}

func extractFile(f *zip.File, target string, remaining int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(out, io.LimitReader(rc, remaining+1))
	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}
	return n, copyErr
}
