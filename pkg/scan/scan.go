package scan

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/quidome/exif2kmz-go/pkg/geotag"
)

// ErrInvalidRoot is returned when the scan root is not a readable directory.
var ErrInvalidRoot = errors.New("invalid image root")

// Classifier turns one path into an Outcome.
type Classifier interface {
	Classify(path string) geotag.Outcome
}

type Options struct {
	// MaxDepth limits recursion below root; -1 means unlimited.
	MaxDepth int

	// Extensions restricts classification to files with these extensions.
	// Empty means every file is classified.
	Extensions []string

	// Logger receives one entry per skipped file. Nil disables logging.
	Logger *zap.Logger
}

func DefaultOptions() Options {
	return Options{MaxDepth: -1}
}

// Result is the outcome of a scan.
type Result struct {
	// Records are the geotagged images in traversal order.
	Records []geotag.Record
	// Processed counts the files that produced a Record.
	Processed int
	// Skipped counts skipped files per reason.
	Skipped map[geotag.Reason]int
}

// SkippedTotal returns the number of skipped files.
func (r Result) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// ValidateRoot checks that root exists and is a readable directory.
func ValidateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}
	f, err := os.Open(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	return nil
}

// Scan walks root recursively in lexical order and classifies every
// non-directory entry. Per-file problems are counted as skips; only an
// invalid root is an error.
func Scan(root string, c Classifier, opts Options) (Result, error) {
	if opts.MaxDepth < -1 {
		return Result{}, fs.ErrInvalid
	}
	if err := ValidateRoot(root); err != nil {
		return Result{}, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	exts := normalizeExts(opts.Extensions)

	res := Result{Skipped: make(map[geotag.Reason]int)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn("walk", zap.String("path", path), zap.Error(err))
			res.Skipped[geotag.ReasonUnreadable]++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if opts.MaxDepth >= 0 && depth(rel) > opts.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if opts.MaxDepth >= 0 && depth(rel) > opts.MaxDepth {
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}

		out := c.Classify(path)
		if out.Skipped() {
			fields := []zap.Field{zap.String("path", path), zap.String("reason", string(out.Reason))}
			if out.Err != nil {
				fields = append(fields, zap.Error(out.Err))
			}
			log.Info("skipped", fields...)
			res.Skipped[out.Reason]++
			return nil
		}

		log.Debug("processed", zap.String("path", path), zap.String("timestamp", out.Record.GPSTimestamp))
		res.Records = append(res.Records, out.Record)
		res.Processed++
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	return res, nil
}

func normalizeExts(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.TrimSpace(strings.ToLower(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = true
	}
	return m
}

func depth(rel string) int {
	rel = filepath.Clean(rel)
	if rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/")
}
