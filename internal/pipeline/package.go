package pipeline

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact is a packaged project. The caller owns the file at Path.
type Artifact struct {
	Path      string
	SizeBytes int64
	SHA256    string
}

// Package zips every regular file under dir into a new archive in outDir.
func Package(dir, outDir string) (Artifact, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Artifact{}, newError(KindPackagingFailed, err, "could not resolve project dir")
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return Artifact{}, newError(KindPackagingFailed, err, "could not resolve output dir")
	}
	if rel, err := filepath.Rel(absDir, absOut); err == nil && (rel == "." || filepath.IsLocal(rel)) {
		return Artifact{}, newError(KindPackagingFailed, nil, "output dir must be outside the project")
	}
	if err := os.MkdirAll(absOut, 0o755); err != nil {
		return Artifact{}, newError(KindPackagingFailed, err, "could not create output dir")
	}

	var names []string
	err = filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(absDir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return Artifact{}, newError(KindPackagingFailed, err, "could not list project files")
	}
	sort.Strings(names)

	out, err := os.CreateTemp(absOut, "paperpolish-*.zip")
	if err != nil {
		return Artifact{}, newError(KindPackagingFailed, err, "could not create archive")
	}
	artifact, err := writeArchive(out, absDir, names)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(out.Name())
		return Artifact{}, newError(KindPackagingFailed, err, "could not write archive")
	}
	artifact.Path = out.Name()
	return artifact, nil
}

func writeArchive(out *os.File, root string, names []string) (Artifact, error) {
	hasher := sha256.New()
	counter := &countingWriter{}
	zw := zip.NewWriter(io.MultiWriter(out, hasher, counter))

	for _, rel := range names {
		if err := addFile(zw, root, rel); err != nil {
			_ = zw.Close()
			return Artifact{}, err
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, err
	}
	if err := out.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return Artifact{}, err
	}
	return Artifact{SizeBytes: counter.n, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

func addFile(zw *zip.Writer, root, rel string) error {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	header := &zip.FileHeader{
		Name:     strings.TrimPrefix(rel, "/"),
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	header.SetMode(info.Mode().Perm())
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(full)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	return nil
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
