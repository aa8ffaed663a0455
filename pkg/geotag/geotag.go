package geotag

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrNoMetadata is returned by a Reader when the stream carries no
	// embedded metadata block.
	ErrNoMetadata = errors.New("no embedded metadata")

	// ErrInvalidTimestamp is returned when the GPS date and time do not form
	// a valid point in time.
	ErrInvalidTimestamp = errors.New("invalid gps timestamp")
)

// Record is one geotagged image.
type Record struct {
	// FileName is the base name of the source file.
	FileName string
	// RelPath is the slash-separated path relative to the scan root.
	RelPath string
	// Description is a pre-rendered HTML fragment with device and timestamp details.
	Description string
	// GPSTimestamp is the capture time as YYYY-MM-DDTHH:MM:SSZ.
	GPSTimestamp string
	Longitude    float64
	Latitude     float64
	// Altitude is in meters.
	Altitude float64
}

// Reason describes why a file did not produce a Record.
type Reason string

const (
	ReasonPathMissing         Reason = "path-missing"
	ReasonSymlink             Reason = "symlink"
	ReasonNotRegularFile      Reason = "not-regular-file"
	ReasonUnreadable          Reason = "unreadable"
	ReasonNoMetadata          Reason = "no-metadata"
	ReasonInvalidGPSTimestamp Reason = "invalid-gps-timestamp"
	ReasonNoGPSPosition       Reason = "no-gps-position"
)

// Outcome is the result of classifying one path: either a Record or a skip
// Reason. Err holds the underlying cause of a skip, if any.
type Outcome struct {
	Record Record
	Reason Reason
	Err    error
}

// Skipped reports whether the outcome carries no Record.
func (o Outcome) Skipped() bool {
	return o.Reason != ""
}

func recorded(r Record) Outcome {
	return Outcome{Record: r}
}

func skipped(reason Reason, err error) Outcome {
	return Outcome{Reason: reason, Err: err}
}

// Fields holds the raw metadata values a Reader exposes. Absent values are
// left as zero values; absent triples are nil.
type Fields struct {
	Make              string
	Model             string
	DateTimeOriginal  string
	DateTimeDigitized string

	GPSDateStamp string
	// GPSTimeStamp is hour, minute, second.
	GPSTimeStamp []float64

	// GPSLatitude and GPSLongitude are degrees, minutes, seconds.
	GPSLatitude     []float64
	GPSLatitudeRef  string
	GPSLongitude    []float64
	GPSLongitudeRef string

	GPSAltitude float64
	// GPSAltitudeRef is 1 when the altitude is below sea level.
	GPSAltitudeRef int
}

// HasPosition reports whether both coordinates are present.
func (f Fields) HasPosition() bool {
	return f.GPSLatitude != nil && f.GPSLongitude != nil
}

// Reader decodes embedded metadata from an image.
//
// Implementations return an error wrapping ErrNoMetadata when the file has
// no metadata block. Readers that hold external resources also implement
// io.Closer.
type Reader interface {
	Read(path string, r io.Reader) (Fields, error)
}

// Options configures an Extractor.
type Options struct {
	// Root is the scan root used to compute Record.RelPath.
	// If empty, RelPath is the file name.
	Root string
	// RequireGPS skips files whose metadata has no GPS position.
	RequireGPS bool
}

// Extractor classifies image files into Records.
type Extractor struct {
	reader Reader
	opts   Options
}

// NewExtractor returns an Extractor reading metadata through r.
func NewExtractor(r Reader, opts Options) *Extractor {
	return &Extractor{reader: r, opts: opts}
}

// Classify inspects path and returns its Outcome.
func (e *Extractor) Classify(path string) Outcome {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return skipped(ReasonPathMissing, err)
		}
		return skipped(ReasonUnreadable, err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return skipped(ReasonSymlink, nil)
	}
	if !info.Mode().IsRegular() {
		return skipped(ReasonNotRegularFile, nil)
	}

	fields, err := e.read(path)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoMetadata):
			return skipped(ReasonNoMetadata, err)
		case errors.Is(err, ErrInvalidTimestamp):
			return skipped(ReasonInvalidGPSTimestamp, err)
		}
		return skipped(ReasonUnreadable, err)
	}
	if e.opts.RequireGPS && !fields.HasPosition() {
		return skipped(ReasonNoGPSPosition, nil)
	}

	ts, err := GPSTimestamp(fields.GPSDateStamp, fields.GPSTimeStamp)
	if err != nil {
		return skipped(ReasonInvalidGPSTimestamp, err)
	}
	desc, err := describe(fields)
	if err != nil {
		return skipped(ReasonNoMetadata, err)
	}

	return recorded(Record{
		FileName:     filepath.Base(path),
		RelPath:      e.relPath(path),
		Description:  desc,
		GPSTimestamp: ts,
		Longitude:    Degrees(fields.GPSLongitude, fields.GPSLongitudeRef, "W"),
		Latitude:     Degrees(fields.GPSLatitude, fields.GPSLatitudeRef, "S"),
		Altitude:     altitude(fields),
	})
}

func (e *Extractor) read(path string) (Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fields{}, err
	}
	defer f.Close()

	return e.reader.Read(path, f)
}

func (e *Extractor) relPath(path string) string {
	if e.opts.Root == "" {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(e.opts.Root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func altitude(f Fields) float64 {
	if f.GPSAltitudeRef == 1 {
		return -f.GPSAltitude
	}
	return f.GPSAltitude
}
