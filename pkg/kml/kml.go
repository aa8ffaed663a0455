// Package kml renders geotagged records as a KML document: one placemark per
// image and a path connecting them in capture order.
package kml

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"html/template"
	"image/color"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	gokml "github.com/twpayne/go-kml"

	"github.com/quidome/exif2kmz-go/pkg/geotag"
	"github.com/quidome/exif2kmz-go/pkg/plan"
)

const (
	PathStyleID     = "redLine"
	PathPlacemarkID = "track1"
	PathName        = "Photo Path"

	DefaultImageWidth = 500
	DefaultLineWidth  = 4
)

// DefaultLineColor is opaque red.
var DefaultLineColor = color.RGBA{R: 0xff, A: 0xff}

// Options controls the look of the generated document.
type Options struct {
	// LineColor and LineWidth style the path connecting the placemarks.
	LineColor color.Color
	LineWidth float64
	// ImageWidth is the max-width, in pixels, of the image in each
	// placemark description.
	ImageWidth int
}

func DefaultOptions() Options {
	return Options{
		LineColor:  DefaultLineColor,
		LineWidth:  DefaultLineWidth,
		ImageWidth: DefaultImageWidth,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LineColor == nil {
		o.LineColor = d.LineColor
	}
	if o.LineWidth <= 0 {
		o.LineWidth = d.LineWidth
	}
	if o.ImageWidth <= 0 {
		o.ImageWidth = d.ImageWidth
	}
	return o
}

// ParseColor parses a KML aabbggrr hex color.
func ParseColor(s string) (color.RGBA, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || len(b) != 4 {
		return color.RGBA{}, fmt.Errorf("invalid kml color %q: want aabbggrr", s)
	}
	return color.RGBA{A: b[0], B: b[1], G: b[2], R: b[3]}, nil
}

// Sorted returns a copy of records in ascending GPS timestamp order.
// Records with equal timestamps keep their relative order.
func Sorted(records []geotag.Record) []geotag.Record {
	out := make([]geotag.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GPSTimestamp < out[j].GPSTimestamp
	})
	return out
}

// Build returns the KML document for records. The document is named name.
func Build(name string, records []geotag.Record, opts Options) (gokml.Element, error) {
	opts = opts.withDefaults()

	style := gokml.SharedStyle(PathStyleID,
		gokml.LineStyle(
			gokml.Color(opts.LineColor),
			gokml.Width(opts.LineWidth),
		),
	)

	sorted := Sorted(records)
	children := make([]gokml.Element, 0, len(sorted)+3)
	children = append(children, gokml.Name(name), style)

	coords := make([]gokml.Coordinate, 0, len(sorted))
	for _, r := range sorted {
		pm, err := placemark(r, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.RelPath, err)
		}
		children = append(children, pm)
		coords = append(coords, coordinate(r))
	}

	track := gokml.Placemark(
		gokml.Name(PathName),
		gokml.StyleURL(style.URL()),
		gokml.LineString(gokml.Coordinates(coords...)),
	)
	track.Attr = append(track.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: PathPlacemarkID})
	children = append(children, track)

	return gokml.KML(gokml.Document(children...)), nil
}

// WriteFile renders records as KML and atomically writes it to path. The
// document is named after the file.
func WriteFile(path string, records []geotag.Record, opts Options) error {
	doc, err := Build(filepath.Base(path), records, opts)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := doc.WriteIndent(&buf, "", "  "); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write kml: %w", err)
	}
	return nil
}

func placemark(r geotag.Record, opts Options) (*gokml.CompoundElement, error) {
	when, err := time.Parse(time.RFC3339, r.GPSTimestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	desc, err := description(r, opts.ImageWidth)
	if err != nil {
		return nil, err
	}

	return gokml.Placemark(
		gokml.Name(r.FileName),
		CDATA("description", desc),
		gokml.TimeStamp(gokml.When(when)),
		gokml.Point(gokml.Coordinates(coordinate(r))),
	), nil
}

func coordinate(r geotag.Record) gokml.Coordinate {
	return gokml.Coordinate{Lon: r.Longitude, Lat: r.Latitude, Alt: r.Altitude}
}

var imageTmpl = template.Must(template.New("image").Parse(
	`<img style="max-width:{{.Width}}px;" src="{{.Src}}">{{.Details}}`))

func description(r geotag.Record, width int) (string, error) {
	rel := r.RelPath
	if rel == "" {
		rel = r.FileName
	}

	var b strings.Builder
	err := imageTmpl.Execute(&b, struct {
		Width   int
		Src     string
		Details template.HTML
	}{
		Width: width,
		Src:   path.Join(plan.ImagesDir, rel),
		// rendered and escaped by geotag
		Details: template.HTML(r.Description),
	})
	if err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}
	return b.String(), nil
}
