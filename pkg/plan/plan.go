package plan

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// ImagesDir is the archive directory holding the packaged images.
const ImagesDir = "images"

// Entry represents one planned archive member.
type Entry struct {
	SourcePath  string
	ArchivePath string
}

// Outputs derives the markup and archive paths from the requested output
// name. Any extension is replaced: "trip", "trip.kml" and "trip.kmz" all
// give trip.kml and trip.kmz.
func Outputs(output string) (markup, archive string) {
	stem := strings.TrimSuffix(output, filepath.Ext(output))
	return stem + ".kml", stem + ".kmz"
}

// ImagePath returns the archive path for a file at rel below the image root.
//
// The path follows the pattern: images/<rel> with forward slashes.
func ImagePath(rel string) string {
	return path.Join(ImagesDir, filepath.ToSlash(rel))
}

// Archive computes the archive members for an image root and its markup file.
//
// Every regular file below root becomes images/<rel>, in lexical walk order.
// The markup file is appended last, at the top level under its base name.
// Paths in exclude are left out, which keeps the output files from being
// packaged into themselves when they are written inside root.
func Archive(root, markupPath string, exclude ...string) ([]Entry, error) {
	skip := make(map[string]bool, len(exclude)+1)
	for _, p := range append([]string{markupPath}, exclude...) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		skip[abs] = true
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if skip[abs] {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			SourcePath:  p,
			ArchivePath: ImagePath(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	entries = append(entries, Entry{
		SourcePath:  markupPath,
		ArchivePath: filepath.Base(markupPath),
	})
	return entries, nil
}
