// Package exiftest builds small EXIF blocks for tests.
//
// The output is a little-endian TIFF stream, which EXIF readers accept as a
// raw metadata block. Files written with it carry no pixel data.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// Tags lists the values written into the block. Empty strings and nil
// slices are left out.
type Tags struct {
	Make              string
	Model             string
	DateTimeOriginal  string
	DateTimeDigitized string

	GPSDateStamp    string
	GPSTimeStamp    []float64
	GPSLatitude     []float64
	GPSLatitudeRef  string
	GPSLongitude    []float64
	GPSLongitudeRef string
	GPSAltitude     *float64
	GPSAltitudeRef  *byte
}

const (
	typeByte     = 1
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5

	tagMake              = 0x010F
	tagModel             = 0x0110
	tagExifPointer       = 0x8769
	tagGPSPointer        = 0x8825
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004

	tagGPSLatitudeRef  = 0x1
	tagGPSLatitude     = 0x2
	tagGPSLongitudeRef = 0x3
	tagGPSLongitude    = 0x4
	tagGPSAltitudeRef  = 0x5
	tagGPSAltitude     = 0x6
	tagGPSTimeStamp    = 0x7
	tagGPSDateStamp    = 0x1D

	rationalDenominator = 10000
)

var order = binary.LittleEndian

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// TIFF encodes t as a TIFF/EXIF block.
func TIFF(t Tags) []byte {
	var ifd0, exifIFD, gpsIFD []entry

	if t.Make != "" {
		ifd0 = append(ifd0, ascii(tagMake, t.Make))
	}
	if t.Model != "" {
		ifd0 = append(ifd0, ascii(tagModel, t.Model))
	}
	if t.DateTimeOriginal != "" {
		exifIFD = append(exifIFD, ascii(tagDateTimeOriginal, t.DateTimeOriginal))
	}
	if t.DateTimeDigitized != "" {
		exifIFD = append(exifIFD, ascii(tagDateTimeDigitized, t.DateTimeDigitized))
	}
	if t.GPSLatitudeRef != "" {
		gpsIFD = append(gpsIFD, ascii(tagGPSLatitudeRef, t.GPSLatitudeRef))
	}
	if t.GPSLatitude != nil {
		gpsIFD = append(gpsIFD, rationals(tagGPSLatitude, t.GPSLatitude...))
	}
	if t.GPSLongitudeRef != "" {
		gpsIFD = append(gpsIFD, ascii(tagGPSLongitudeRef, t.GPSLongitudeRef))
	}
	if t.GPSLongitude != nil {
		gpsIFD = append(gpsIFD, rationals(tagGPSLongitude, t.GPSLongitude...))
	}
	if t.GPSAltitudeRef != nil {
		gpsIFD = append(gpsIFD, entry{tag: tagGPSAltitudeRef, typ: typeByte, count: 1, data: []byte{*t.GPSAltitudeRef}})
	}
	if t.GPSAltitude != nil {
		gpsIFD = append(gpsIFD, rationals(tagGPSAltitude, *t.GPSAltitude))
	}
	if t.GPSTimeStamp != nil {
		gpsIFD = append(gpsIFD, rationals(tagGPSTimeStamp, t.GPSTimeStamp...))
	}
	if t.GPSDateStamp != "" {
		gpsIFD = append(gpsIFD, ascii(tagGPSDateStamp, t.GPSDateStamp))
	}

	// Pointer values are patched once the sub-IFD offsets are known; the
	// IFD0 length does not depend on them.
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, long(tagExifPointer, 0))
	}
	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, long(tagGPSPointer, 0))
	}

	const ifd0Offset = 8
	exifOffset := ifd0Offset + ifdLen(ifd0)
	gpsOffset := exifOffset
	if len(exifIFD) > 0 {
		gpsOffset += ifdLen(exifIFD)
	}
	for i := range ifd0 {
		switch ifd0[i].tag {
		case tagExifPointer:
			ifd0[i] = long(tagExifPointer, exifOffset)
		case tagGPSPointer:
			ifd0[i] = long(tagGPSPointer, gpsOffset)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, order, uint16(42))
	_ = binary.Write(&buf, order, uint32(ifd0Offset))
	buf.Write(encodeIFD(ifd0, ifd0Offset))
	if len(exifIFD) > 0 {
		buf.Write(encodeIFD(exifIFD, exifOffset))
	}
	if len(gpsIFD) > 0 {
		buf.Write(encodeIFD(gpsIFD, gpsOffset))
	}
	return buf.Bytes()
}

// WriteFile writes an EXIF block for t to path, creating parent directories.
func WriteFile(tb testing.TB, path string, t Tags) {
	tb.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, TIFF(t), 0o644); err != nil {
		tb.Fatalf("write exif fixture: %v", err)
	}
}

// Geotagged returns tags for a fully geotagged photo taken at the given GPS
// date and time of day.
func Geotagged(date string, hms [3]float64, lat, long []float64) Tags {
	alt := 100.0
	return Tags{
		Make:              "Canon",
		Model:             "EOS 5D",
		DateTimeOriginal:  "2007:01:14 21:05:02",
		DateTimeDigitized: "2007:01:14 21:05:02",
		GPSDateStamp:      date,
		GPSTimeStamp:      hms[:],
		GPSLatitude:       lat,
		GPSLatitudeRef:    "N",
		GPSLongitude:      long,
		GPSLongitudeRef:   "E",
		GPSAltitude:       &alt,
	}
}

func ascii(tag uint16, s string) entry {
	data := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

func long(tag uint16, v uint32) entry {
	data := make([]byte, 4)
	order.PutUint32(data, v)
	return entry{tag: tag, typ: typeLong, count: 1, data: data}
}

func rationals(tag uint16, vals ...float64) entry {
	data := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		num := uint32(math.Round(v * rationalDenominator))
		data = order.AppendUint32(data, num)
		data = order.AppendUint32(data, rationalDenominator)
	}
	return entry{tag: tag, typ: typeRational, count: uint32(len(vals)), data: data}
}

func ifdLen(entries []entry) uint32 {
	n := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			n += padded(len(e.data))
		}
	}
	return n
}

func padded(n int) uint32 {
	if n%2 == 1 {
		n++
	}
	return uint32(n)
}

func encodeIFD(entries []entry, offset uint32) []byte {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].tag < entries[j].tag
	})

	var head, tail bytes.Buffer
	dataOffset := offset + uint32(2+12*len(entries)+4)

	_ = binary.Write(&head, order, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(&head, order, e.tag)
		_ = binary.Write(&head, order, e.typ)
		_ = binary.Write(&head, order, e.count)
		if len(e.data) <= 4 {
			field := make([]byte, 4)
			copy(field, e.data)
			head.Write(field)
			continue
		}
		_ = binary.Write(&head, order, dataOffset+uint32(tail.Len()))
		tail.Write(e.data)
		if len(e.data)%2 == 1 {
			tail.WriteByte(0)
		}
	}
	// no next IFD
	_ = binary.Write(&head, order, uint32(0))

	head.Write(tail.Bytes())
	return head.Bytes()
}
