package geotag

import (
	"fmt"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

type goexifReader struct{}

func (goexifReader) Read(path string, r io.Reader) (Fields, error) {
	x, err := exif.Decode(r)
	if err != nil {
		// non-critical errors still return the partially decoded block
		if x == nil || exif.IsCriticalError(err) {
			return Fields{}, fmt.Errorf("%s: %w: %v", path, ErrNoMetadata, err)
		}
	}

	return Fields{
		Make:              exifString(x, exif.Make),
		Model:             exifString(x, exif.Model),
		DateTimeOriginal:  exifString(x, exif.DateTimeOriginal),
		DateTimeDigitized: exifString(x, exif.DateTimeDigitized),
		GPSDateStamp:      exifString(x, exif.GPSDateStamp),
		GPSTimeStamp:      exifRationals(x, exif.GPSTimeStamp),
		GPSLatitude:       exifRationals(x, exif.GPSLatitude),
		GPSLatitudeRef:    exifString(x, exif.GPSLatitudeRef),
		GPSLongitude:      exifRationals(x, exif.GPSLongitude),
		GPSLongitudeRef:   exifString(x, exif.GPSLongitudeRef),
		GPSAltitude:       exifRational(x, exif.GPSAltitude),
		GPSAltitudeRef:    exifInt(x, exif.GPSAltitudeRef),
	}, nil
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

func exifRationals(x *exif.Exif, name exif.FieldName) []float64 {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.RatVal {
		return nil
	}

	vals := make([]float64, 0, tag.Count)
	for i := 0; i < int(tag.Count); i++ {
		v, ok := ratio(tag, i)
		if !ok {
			return nil
		}
		vals = append(vals, v)
	}
	return vals
}

func exifRational(x *exif.Exif, name exif.FieldName) float64 {
	tag, err := x.Get(name)
	if err != nil || tag.Count == 0 {
		return 0
	}
	v, _ := ratio(tag, 0)
	return v
}

func ratio(tag *tiff.Tag, i int) (float64, bool) {
	num, den, err := tag.Rat2(i)
	if err != nil || den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

func exifInt(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil || tag.Count == 0 {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}
