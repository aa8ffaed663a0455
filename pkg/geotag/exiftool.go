package geotag

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/barasher/go-exiftool"
)

// exiftoolReader reads metadata through a long-running exiftool process.
// It reads files by path, so the stream handed to Read is ignored.
type exiftoolReader struct {
	et *exiftool.Exiftool
}

func newExiftoolReader(binary string) (*exiftoolReader, error) {
	opts := []func(*exiftool.Exiftool) error{exiftool.NoPrintConversion()}
	if binary != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(binary))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, err
	}
	return &exiftoolReader{et: et}, nil
}

func (e *exiftoolReader) Read(path string, _ io.Reader) (Fields, error) {
	fms := e.et.ExtractMetadata(path)
	if len(fms) != 1 {
		return Fields{}, fmt.Errorf("%s: exiftool returned %d results", path, len(fms))
	}
	fm := fms[0]
	if fm.Err != nil {
		return Fields{}, fmt.Errorf("%s: %w", path, fm.Err)
	}
	// exiftool reports the byte order of every EXIF block it finds.
	if _, err := fm.GetString("ExifByteOrder"); err != nil {
		return Fields{}, fmt.Errorf("%s: %w", path, ErrNoMetadata)
	}

	f := Fields{
		Make:              fmString(fm, "Make"),
		Model:             fmString(fm, "Model"),
		DateTimeOriginal:  fmString(fm, "DateTimeOriginal"),
		DateTimeDigitized: fmString(fm, "CreateDate"),
		GPSDateStamp:      fmString(fm, "GPSDateStamp"),
		GPSLatitude:       fmDegrees(fm, "GPSLatitude"),
		GPSLatitudeRef:    fmString(fm, "GPSLatitudeRef"),
		GPSLongitude:      fmDegrees(fm, "GPSLongitude"),
		GPSLongitudeRef:   fmString(fm, "GPSLongitudeRef"),
	}
	if s := fmString(fm, "GPSTimeStamp"); s != "" {
		clock, err := parseClock(s)
		if err != nil {
			return Fields{}, fmt.Errorf("%s: %w", path, err)
		}
		f.GPSTimeStamp = clock
	}
	if v, err := fm.GetFloat("GPSAltitude"); err == nil {
		f.GPSAltitude = v
	}
	if v, err := fm.GetInt("GPSAltitudeRef"); err == nil {
		f.GPSAltitudeRef = int(v)
	}
	return f, nil
}

func (e *exiftoolReader) Close() error {
	return e.et.Close()
}

func fmString(fm exiftool.FileMetadata, key string) string {
	s, err := fm.GetString(key)
	if err != nil {
		return ""
	}
	return s
}

// fmDegrees returns a numeric coordinate as a degrees-only triple. The sign
// is carried by the matching Ref tag.
func fmDegrees(fm exiftool.FileMetadata, key string) []float64 {
	v, err := fm.GetFloat(key)
	if err != nil {
		return nil
	}
	return []float64{math.Abs(v), 0, 0}
}

// parseClock parses an "H:M:S" time of day where S may be fractional.
func parseClock(s string) ([]float64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == ' ' })
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	clock := make([]float64, 0, 3)
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, s, err)
		}
		clock = append(clock, v)
	}
	return clock, nil
}
