package wind

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

// Descriptor is an undecoded wind source: the time it is valid for and
// where to find it.
type Descriptor struct {
	Time    time.Time `json:"time"`
	Locator string    `json:"locator"`
}

func (d Descriptor) IsZero() bool {
	return d.Time.IsZero() && d.Locator == ""
}

func (d Descriptor) Equal(o Descriptor) bool {
	return d.Time.Equal(o.Time) && d.Locator == o.Locator
}

func (d Descriptor) String() string {
	return d.Time.Format("2006010215") + "(" + filepath.Base(d.Locator) + ")"
}

// Loader decodes a descriptor into a snapshot.
type Loader interface {
	Load(ctx context.Context, d Descriptor) (*Snapshot, error)
}

// FileLoader reads descriptors whose locator is a local file path. PNG
// rasters and GRIB files are supported, optionally zstd compressed.
type FileLoader struct {
	Scale float64
}

func (l FileLoader) Load(ctx context.Context, d Descriptor) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(d.Locator)
	if err != nil {
		return nil, fmt.Errorf("opening wind file '%s': %w", d.Locator, err)
	}
	defer f.Close()

	var r io.Reader = f
	name := filepath.Base(d.Locator)
	if strings.HasSuffix(name, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRaster, name, err)
		}
		defer zr.Close()
		r = zr
		name = strings.TrimSuffix(name, ".zst")
	}

	log.Debugf("Load %s %s", d.Time.Format("2006010215"), name)

	if strings.HasSuffix(name, ".png") {
		return DecodeRaster(r, d.Time, name, l.Scale)
	}
	return DecodeGrib(r, d.Time, name)
}
