// Package pipeline runs the conversion stages in order: scan the image root,
// write the KML document, then package everything into a KMZ archive.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/quidome/exif2kmz-go/pkg/geotag"
	"github.com/quidome/exif2kmz-go/pkg/kml"
	"github.com/quidome/exif2kmz-go/pkg/kmz"
	"github.com/quidome/exif2kmz-go/pkg/plan"
	"github.com/quidome/exif2kmz-go/pkg/scan"
)

// Params describes one run.
type Params struct {
	// Root is the image directory.
	Root string
	// Output names the archive; its extension is replaced by .kmz and the
	// KML document is written next to it.
	Output string

	RequireGPS bool
	// MaxDepth limits recursion below Root; -1 means unlimited.
	MaxDepth   int
	Extensions []string

	KML kml.Options
}

// Summary reports what a run produced.
type Summary struct {
	Processed   int
	Skipped     map[geotag.Reason]int
	MarkupPath  string
	ArchivePath string
	// Packaged is the number of archive members, the KML document included.
	Packaged int
}

type Runner struct {
	logger *zap.Logger
	reader geotag.Reader
	out    io.Writer
	params Params
}

// NewRunner returns a Runner reading metadata through reader and printing
// progress lines to out.
func NewRunner(logger *zap.Logger, reader geotag.Reader, out io.Writer, params Params) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		logger: logger,
		reader: reader,
		out:    out,
		params: params,
	}
}

// Run executes the stages in order and stops at the first error. The
// archive is only written after the KML document was written successfully.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	defer func() {
		r.logger.Debug("elapsed time", zap.Duration("elapsed", time.Since(start)))
	}()

	root, err := filepath.Abs(r.params.Root)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve root: %w", err)
	}
	markup, archive := plan.Outputs(r.params.Output)
	sum := Summary{MarkupPath: markup, ArchivePath: archive}

	fmt.Fprintf(r.out, "Reading images from: %s\n", r.params.Root)

	extractor := geotag.NewExtractor(r.reader, geotag.Options{
		Root:       root,
		RequireGPS: r.params.RequireGPS,
	})
	res, err := scan.Scan(root, extractor, scan.Options{
		MaxDepth:   r.params.MaxDepth,
		Extensions: r.params.Extensions,
		Logger:     r.logger,
	})
	if err != nil {
		return sum, fmt.Errorf("scan: %w", err)
	}
	sum.Processed = res.Processed
	sum.Skipped = res.Skipped
	r.logger.Info("scan finished",
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.SkippedTotal()),
	)
	for reason, n := range res.Skipped {
		r.logger.Debug("skip summary", zap.String("reason", string(reason)), zap.Int("count", n))
	}
	fmt.Fprintf(r.out, "Images processed: %d\n", res.Processed)

	if err := ctx.Err(); err != nil {
		return sum, err
	}

	if err := kml.WriteFile(markup, res.Records, r.params.KML); err != nil {
		return sum, err
	}
	r.logger.Info("kml written", zap.String("path", markup), zap.Int("placemarks", len(res.Records)))
	fmt.Fprintf(r.out, "KML created: %s\n", markup)

	if err := ctx.Err(); err != nil {
		return sum, err
	}

	entries, err := plan.Archive(root, markup, archive)
	if err != nil {
		return sum, fmt.Errorf("plan archive: %w", err)
	}
	results, err := kmz.Write(archive, entries)
	if err != nil {
		return sum, fmt.Errorf("write kmz: %w", err)
	}
	sum.Packaged = len(results)
	r.logger.Info("kmz written", zap.String("path", archive), zap.Int("entries", len(results)))
	fmt.Fprintf(r.out, "KMZ created: %s\n", archive)

	fmt.Fprintln(r.out, "Process finished")
	return sum, nil
}
