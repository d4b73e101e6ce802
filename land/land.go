package land

import (
	"fmt"
	"math"
	"os"

	log "github.com/sirupsen/logrus"
)

// DefaultStep is the resolution of the world land mask, in degrees.
const DefaultStep = 360.0 / 43200.0

// Land contains one bit per grid point, 0 if sea and 1 if land, rows from
// the south pole northwards and columns from -180 eastwards.
type Land struct {
	lat0 float64
	latN float64
	lon0 float64
	lonN float64
	step float64
	data []byte
}

// InitLand loads the land mask file
func InitLand(file string) (*Land, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		log.WithError(err).Errorf("Error reading file '%s'", file)
		return nil, err
	}
	return NewLand(DefaultStep, b)
}

// NewLand wraps a bit mask sampled every step degrees.
func NewLand(step float64, data []byte) (*Land, error) {
	l := &Land{
		lat0: -90.0,
		latN: 90.0,
		lon0: -180.0,
		lonN: 180.00 - step,
		step: step,
		data: data}

	rows := int(math.Round((l.latN-l.lat0)/step)) + 1
	cols := int(math.Round((l.lonN-l.lon0)/step)) + 1
	if len(data)*8 < rows*cols {
		return nil, fmt.Errorf("land mask holds %d bits, %dx%d grid needs %d", len(data)*8, cols, rows, rows*cols)
	}
	return l, nil
}

// IsLand check if location is land or sea
func (l *Land) IsLand(lat float64, lon float64) bool {
	if lat < l.lat0 || lat > l.latN || math.IsNaN(lon) {
		return false
	}

	i := int(math.Round(lat / l.step))
	j := int(math.Round(lon / l.step))

	i0 := int(math.Round(l.lat0 / l.step))
	j0 := int(math.Round(l.lon0 / l.step))
	jN := int(math.Round(l.lonN / l.step))

	di := i - i0
	dj := j - j0
	nj := jN - j0 + 1

	dj %= nj
	if dj < 0 {
		dj += nj
	}

	p := di*nj + dj

	pB := p / 8
	pb := uint(p % 8)

	return ((l.data[pB] >> (7 - pb)) & 0x01) == 0x01
}
