package geotag

import (
	"errors"
	"strings"
	"testing"
)

func TestGPSTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock []float64
		want  string
	}{
		{name: "fractional second rounds up", date: "2007:01:14", clock: []float64{21, 5, 2.3}, want: "2007-01-14T21:05:03Z"},
		{name: "hour and minute truncate", date: "2007:01:14", clock: []float64{21.9, 5.7, 2}, want: "2007-01-14T21:05:02Z"},
		{name: "unpadded date", date: "2019:3:7", clock: []float64{1, 2, 3}, want: "2019-03-07T01:02:03Z"},
		{name: "defaults", want: "1900-01-01T00:00:00Z"},
		{name: "missing clock", date: "2020:02:29", want: "2020-02-29T00:00:00Z"},
		{name: "short clock", date: "2020:02:29", clock: []float64{7}, want: "2020-02-29T07:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GPSTimestamp(tt.date, tt.clock)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected timestamp\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestGPSTimestamp_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock []float64
	}{
		{name: "second rounds up to 60", date: "2007:01:14", clock: []float64{21, 5, 59.5}},
		{name: "bad date", date: "2007:13:40", clock: []float64{0, 0, 0}},
		{name: "garbage date", date: "yesterday", clock: []float64{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GPSTimestamp(tt.date, tt.clock)
			if !errors.Is(err, ErrInvalidTimestamp) {
				t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
			}
		})
	}
}

func TestDegrees(t *testing.T) {
	tests := []struct {
		name string
		dms  []float64
		ref  string
		neg  string
		want float64
	}{
		{name: "south", dms: []float64{12, 30, 0}, ref: "S", neg: "S", want: -12.5},
		{name: "north", dms: []float64{12, 30, 0}, ref: "N", neg: "S", want: 12.5},
		{name: "west", dms: []float64{4, 0, 36}, ref: "W", neg: "W", want: -4.01},
		{name: "missing ref", dms: []float64{4, 0, 36}, neg: "W", want: 4.01},
		{name: "missing triple", ref: "W", neg: "W", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Degrees(tt.dms, tt.ref, tt.neg)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("unexpected degrees\n got: %v\nwant: %v", got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	got, err := parseClock("21:05:02.3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{21, 5, 2.3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected clock\n got: %v\nwant: %v", got, want)
		}
	}

	if _, err := parseClock("21:05"); !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	t.Run("all missing", func(t *testing.T) {
		got, err := describe(Fields{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "<hr><p>Device Information</p><ul><li>Make - N/A</li><li>Model - N/A</li></ul>" +
			"<p>Image Timestamps</p><ul><li>Datetime Original - N/A</li><li>Datetime Digitized - N/A</li>" +
			"<li>Date GPS - N/A</li><li>Time GPS - N/A</li></ul>"
		if got != want {
			t.Fatalf("unexpected description\n got: %s\nwant: %s", got, want)
		}
	})

	t.Run("populated", func(t *testing.T) {
		got, err := describe(Fields{
			Make:              "Canon",
			Model:             "EOS 5D",
			DateTimeOriginal:  "2007:01:14 21:05:02",
			DateTimeDigitized: "2007:01:14 21:05:02",
			GPSDateStamp:      "2007:01:14",
			GPSTimeStamp:      []float64{21, 5, 2.3},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "<hr><p>Device Information</p><ul><li>Make - Canon</li><li>Model - EOS 5D</li></ul>" +
			"<p>Image Timestamps</p><ul><li>Datetime Original - 2007:01:14 21:05:02</li>" +
			"<li>Datetime Digitized - 2007:01:14 21:05:02</li>" +
			"<li>Date GPS - 2007:01:14</li><li>Time GPS - 21:5:3</li></ul>"
		if got != want {
			t.Fatalf("unexpected description\n got: %s\nwant: %s", got, want)
		}
	})

	t.Run("escapes markup", func(t *testing.T) {
		got, err := describe(Fields{Make: "<b>Acme</b>"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := "<li>Make - &lt;b&gt;Acme&lt;/b&gt;</li>"; !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	})
}
