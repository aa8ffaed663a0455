package geotag

import (
	"fmt"
	"html/template"
	"strings"
)

const notAvailable = "N/A"

var descriptionTmpl = template.Must(template.New("description").Parse(
	`<hr><p>Device Information</p><ul>` +
		`<li>Make - {{.Make}}</li>` +
		`<li>Model - {{.Model}}</li>` +
		`</ul><p>Image Timestamps</p><ul>` +
		`<li>Datetime Original - {{.DateTimeOriginal}}</li>` +
		`<li>Datetime Digitized - {{.DateTimeDigitized}}</li>` +
		`<li>Date GPS - {{.DateGPS}}</li>` +
		`<li>Time GPS - {{.TimeGPS}}</li>` +
		`</ul>`))

type description struct {
	Make              string
	Model             string
	DateTimeOriginal  string
	DateTimeDigitized string
	DateGPS           string
	TimeGPS           string
}

func describe(f Fields) (string, error) {
	d := description{
		Make:              orNA(f.Make),
		Model:             orNA(f.Model),
		DateTimeOriginal:  orNA(f.DateTimeOriginal),
		DateTimeDigitized: orNA(f.DateTimeDigitized),
		DateGPS:           orNA(f.GPSDateStamp),
		TimeGPS:           notAvailable,
	}
	if f.GPSTimeStamp != nil {
		h, m, s := gpsClock(f.GPSTimeStamp)
		d.TimeGPS = fmt.Sprintf("%d:%d:%d", h, m, s)
	}

	var b strings.Builder
	if err := descriptionTmpl.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}
	return b.String(), nil
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return notAvailable
	}
	return s
}
