// Package kmz writes KMZ archives: a zip holding a KML document and the
// files it references.
package kmz

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/quidome/exif2kmz-go/pkg/plan"
)

// ErrNoEntries is returned when asked to write an empty archive.
var ErrNoEntries = errors.New("no archive entries")

// Result contains the outcome of packaging one entry.
type Result struct {
	Entry plan.Entry
	// Size is the uncompressed size in bytes.
	Size int64
}

// Write packages entries into a deflate-compressed zip at dest.
//
// It will:
// - Build the archive in a temp file next to dest
// - Replace any existing archive at dest only once every entry is written
// - Leave nothing behind on failure
func Write(dest string, entries []plan.Entry) (results []Result, err error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+"-*")
	if err != nil {
		return nil, fmt.Errorf("create temp archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	defer tmp.Close()

	zw := zip.NewWriter(tmp)
	results = make([]Result, 0, len(entries))
	for _, e := range entries {
		n, err := addFile(zw, e)
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("add %s: %w", e.ArchivePath, err)
		}
		results = append(results, Result{Entry: e, Size: n})
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	// Ensure data is written to disk
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp archive: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return nil, fmt.Errorf("chmod temp archive: %w", err)
	}
	if err := atomic.ReplaceFile(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("replace %s: %w", dest, err)
	}

	return results, nil
}

// addFile copies a single source file into the archive.
func addFile(zw *zip.Writer, e plan.Entry) (int64, error) {
	src, err := os.Open(e.SourcePath)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", e.SourcePath)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, fmt.Errorf("file header: %w", err)
	}
	hdr.Name = e.ArchivePath
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, fmt.Errorf("create entry: %w", err)
	}

	n, err := io.Copy(w, src)
	if err != nil {
		return 0, fmt.Errorf("copy content: %w", err)
	}
	return n, nil
}
