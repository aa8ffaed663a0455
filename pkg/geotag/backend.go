package geotag

import (
	"bytes"
	"errors"
	"fmt"
)

// Supported metadata backends.
const (
	BackendGoexif   = "goexif"
	BackendExiftool = "exiftool"
)

var (
	ErrUnknownBackend = errors.New("unknown metadata backend")
	ErrUnavailable    = errors.New("metadata backend unavailable")
)

// Backends lists the names accepted by Open.
var Backends = []string{BackendGoexif, BackendExiftool}

// BackendOptions configures Open.
type BackendOptions struct {
	// ExiftoolPath overrides the exiftool binary looked up on PATH.
	ExiftoolPath string
}

// probeBlock is a little-endian TIFF block holding a single GPS tag,
// GPSLatitudeRef = "N".
var probeBlock = []byte{
	'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00,
	// IFD0: GPS IFD pointer -> 26
	0x01, 0x00,
	0x25, 0x88, 0x04, 0x00, 0x01, 0x00, 0x00, 0x00, 0x1A, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
	// GPS IFD: GPSLatitudeRef "N"
	0x01, 0x00,
	0x01, 0x00, 0x02, 0x00, 0x02, 0x00, 0x00, 0x00, 'N', 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// Open returns the Reader for the named backend after checking that it can
// actually decode metadata. Callers close the Reader when it implements
// io.Closer.
func Open(backend string, opts BackendOptions) (Reader, error) {
	switch backend {
	case "", BackendGoexif:
		r := goexifReader{}
		f, err := r.Read("probe", bytes.NewReader(probeBlock))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, BackendGoexif, err)
		}
		if f.GPSLatitudeRef != "N" {
			return nil, fmt.Errorf("%w: %s: probe block decoded without gps tags", ErrUnavailable, BackendGoexif)
		}
		return r, nil
	case BackendExiftool:
		r, err := newExiftoolReader(opts.ExiftoolPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, BackendExiftool, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
