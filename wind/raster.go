package wind

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"time"
)

// DefaultScale is the speed, in m/s, encoded by a saturated raster channel.
const DefaultScale = 30.0

var (
	// ErrMalformedRaster is returned when a wind buffer cannot be decoded
	// into a usable grid.
	ErrMalformedRaster = errors.New("malformed wind raster")
	// ErrNoWindData is returned when a source holds no U/V wind field.
	ErrNoWindData = errors.New("no wind data")
)

// channelSpeed maps an 8-bit channel onto [-scale,+scale] m/s.
func channelSpeed(c uint8, scale float64) float64 {
	return float64(c)/255*2*scale - scale
}

// DecodeRaster decodes a global equirectangular PNG wind texture: red holds
// U, green holds V. Column 0 is longitude 0 and columns cover [0,360);
// row 0 is the north pole and the last row the south pole.
func DecodeRaster(r io.Reader, date time.Time, file string, scale float64) (*Snapshot, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRaster, file, err)
	}
	return snapshotFromImage(img, date, file, scale)
}

func snapshotFromImage(img image.Image, date time.Time, file string, scale float64) (*Snapshot, error) {
	if scale <= 0 {
		scale = DefaultScale
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < 1 || height < 2 {
		return nil, fmt.Errorf("%w: %s: %dx%d image", ErrMalformedRaster, file, width, height)
	}

	w, err := newSnapshot(date, file, 90, 0, -180.0/float64(height-1), 360.0/float64(width), height, width)
	if err != nil {
		return nil, err
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			w.set(y, x, channelSpeed(c.R, scale), channelSpeed(c.G, scale))
		}
	}

	return w, nil
}
