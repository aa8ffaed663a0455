package kml

import (
	"bytes"
	"encoding/xml"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/quidome/exif2kmz-go/pkg/geotag"
)

type kmlFile struct {
	XMLName  xml.Name `xml:"kml"`
	Document struct {
		Name  string `xml:"name"`
		Style struct {
			ID        string `xml:"id,attr"`
			LineStyle struct {
				Color string  `xml:"color"`
				Width float64 `xml:"width"`
			} `xml:"LineStyle"`
		} `xml:"Style"`
		Placemarks []struct {
			ID          string `xml:"id,attr"`
			Name        string `xml:"name"`
			Description string `xml:"description"`
			StyleURL    string `xml:"styleUrl"`
			When        string `xml:"TimeStamp>when"`
			Point       string `xml:"Point>coordinates"`
			LineString  string `xml:"LineString>coordinates"`
		} `xml:"Placemark"`
	} `xml:"Document"`
}

func parse(t *testing.T, b []byte) kmlFile {
	t.Helper()
	var f kmlFile
	if err := xml.Unmarshal(b, &f); err != nil {
		t.Fatalf("parse kml: %v\n%s", err, b)
	}
	return f
}

func records() []geotag.Record {
	return []geotag.Record{
		{FileName: "c.jpg", RelPath: "c.jpg", Description: "<p>c</p>", GPSTimestamp: "2020-05-01T12:00:00Z", Longitude: 4.5, Latitude: 52.25, Altitude: 10},
		{FileName: "a.jpg", RelPath: "day1/a.jpg", Description: "<p>a</p>", GPSTimestamp: "2020-05-01T09:00:00Z", Longitude: 4, Latitude: 52},
		{FileName: "b.jpg", RelPath: "b.jpg", Description: "<p>b</p>", GPSTimestamp: "2020-05-01T09:00:00Z", Longitude: -1.5, Latitude: -12.5},
	}
}

func TestSorted_StableByTimestamp(t *testing.T) {
	in := records()
	got := Sorted(in)

	var names []string
	for _, r := range got {
		names = append(names, r.FileName)
	}
	if want := []string{"a.jpg", "b.jpg", "c.jpg"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected order\n got: %v\nwant: %v", names, want)
	}
	if in[0].FileName != "c.jpg" {
		t.Fatalf("input slice was reordered")
	}
}

func TestBuild(t *testing.T) {
	doc, err := Build("trip.kml", records(), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := doc.WriteIndent(&buf, "", "  "); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := parse(t, buf.Bytes())

	if f.XMLName.Space != "http://www.opengis.net/kml/2.2" {
		t.Fatalf("unexpected namespace %q", f.XMLName.Space)
	}
	if f.Document.Name != "trip.kml" {
		t.Fatalf("unexpected document name\n got: %q\nwant: %q", f.Document.Name, "trip.kml")
	}
	if f.Document.Style.ID != PathStyleID || f.Document.Style.LineStyle.Color != "ff0000ff" || f.Document.Style.LineStyle.Width != 4 {
		t.Fatalf("unexpected style: %+v", f.Document.Style)
	}

	pms := f.Document.Placemarks
	if len(pms) != 4 {
		t.Fatalf("expected 3 placemarks and a path, got %d", len(pms))
	}

	var points []string
	for _, pm := range pms[:3] {
		if pm.LineString != "" {
			t.Fatalf("image placemark %s has a LineString", pm.Name)
		}
		points = append(points, pm.Point)
	}
	wantPoints := []string{"4,52", "-1.5,-12.5", "4.5,52.25,10"}
	if !reflect.DeepEqual(points, wantPoints) {
		t.Fatalf("unexpected points\n got: %v\nwant: %v", points, wantPoints)
	}
	if pms[0].When != "2020-05-01T09:00:00Z" {
		t.Fatalf("unexpected when\n got: %q\nwant: %q", pms[0].When, "2020-05-01T09:00:00Z")
	}

	wantDesc := `<img style="max-width:500px;" src="images/day1/a.jpg"><p>a</p>`
	if pms[0].Description != wantDesc {
		t.Fatalf("unexpected description\n got: %q\nwant: %q", pms[0].Description, wantDesc)
	}

	track := pms[3]
	if track.ID != PathPlacemarkID || track.Name != PathName || track.StyleURL != "#"+PathStyleID {
		t.Fatalf("unexpected path placemark: %+v", track)
	}
	if got := strings.Fields(track.LineString); !reflect.DeepEqual(got, wantPoints) {
		t.Fatalf("unexpected path vertices\n got: %v\nwant: %v", got, wantPoints)
	}
}

func TestBuild_DescriptionIsCDATA(t *testing.T) {
	doc, err := Build("x.kml", records()[:1], DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), `<description><![CDATA[<img style="max-width:500px;" src="images/c.jpg"><p>c</p>]]></description>`) {
		t.Fatalf("description not written as CDATA:\n%s", buf.String())
	}
}

func TestBuild_Empty(t *testing.T) {
	doc, err := Build("empty.kml", nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := parse(t, buf.Bytes())
	if len(f.Document.Placemarks) != 1 || f.Document.Placemarks[0].ID != PathPlacemarkID {
		t.Fatalf("expected only the path placemark, got %+v", f.Document.Placemarks)
	}
}

func TestBuild_InvalidTimestamp(t *testing.T) {
	_, err := Build("x.kml", []geotag.Record{{FileName: "a.jpg", GPSTimestamp: "yesterday"}}, DefaultOptions())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestBuild_Options(t *testing.T) {
	opts := Options{LineColor: color.RGBA{G: 0xff, A: 0x80}, LineWidth: 2.5, ImageWidth: 320}
	doc, err := Build("x.kml", records()[:1], opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := parse(t, buf.Bytes())
	if f.Document.Style.LineStyle.Color != "8000ff00" || f.Document.Style.LineStyle.Width != 2.5 {
		t.Fatalf("unexpected style: %+v", f.Document.Style.LineStyle)
	}
	if !strings.HasPrefix(f.Document.Placemarks[0].Description, `<img style="max-width:320px;"`) {
		t.Fatalf("unexpected description %q", f.Document.Placemarks[0].Description)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{in: "ff0000ff", want: color.RGBA{R: 0xff, A: 0xff}},
		{in: "#80ff0000", want: color.RGBA{B: 0xff, A: 0x80}},
		{in: "red", wantErr: true},
		{in: "ff00ff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected color\n got: %v\nwant: %v", got, tt.want)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trip.kml")
	if err := WriteFile(path, records(), DefaultOptions()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte(xml.Header)) {
		t.Fatalf("missing xml header")
	}
	if f := parse(t, b); f.Document.Name != "trip.kml" || len(f.Document.Placemarks) != 4 {
		t.Fatalf("unexpected document: name %q, %d placemarks", f.Document.Name, len(f.Document.Placemarks))
	}
}

func TestWriteFile_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFile(filepath.Join(blocker, "trip.kml"), records(), DefaultOptions()); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
