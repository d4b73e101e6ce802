package wind

import (
	"fmt"
	"math"
	"time"
)

// Snapshot is one decoded wind field on a regular lat/lon grid. Row 0 is
// at Lat0 and rows step by ΔLat (negative when rows run from the north
// pole southwards). Columns start at Lon0 and step eastwards by ΔLon.
//
// A Snapshot is immutable once decoded.
type Snapshot struct {
	Date time.Time
	File string
	Lat0 float64
	Lon0 float64
	ΔLat float64
	ΔLon float64
	NLat int
	NLon int
	U    []float32
	V    []float32

	wraps bool
}

// Key identifies a snapshot by timestamp and resolution.
type Key struct {
	Date       time.Time
	Resolution float64
}

func (w *Snapshot) Key() Key {
	return Key{Date: w.Date, Resolution: w.ΔLon}
}

func (w *Snapshot) String() string {
	return fmt.Sprintf("%s(%s %dx%d)", w.Date.Format("2006010215"), w.File, w.NLon, w.NLat)
}

func newSnapshot(date time.Time, file string, lat0, lon0, Δlat, Δlon float64, nLat, nLon int) (*Snapshot, error) {
	if nLat < 1 || nLon < 1 || Δlat == 0 || Δlon <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d step %f/%f", ErrMalformedRaster, nLon, nLat, Δlon, Δlat)
	}
	return &Snapshot{
		Date:  date,
		File:  file,
		Lat0:  lat0,
		Lon0:  lon0,
		ΔLat:  Δlat,
		ΔLon:  Δlon,
		NLat:  nLat,
		NLon:  nLon,
		U:     make([]float32, nLat*nLon),
		V:     make([]float32, nLat*nLon),
		wraps: math.Floor(float64(nLon)*Δlon+1e-9) >= 360,
	}, nil
}

func (w *Snapshot) set(row, col int, u, v float64) {
	p := row*w.NLon + col
	w.U[p] = float32(u)
	w.V[p] = float32(v)
}

func (w *Snapshot) at(row, col int) (float64, float64) {
	p := row*w.NLon + col
	return float64(w.U[p]), float64(w.V[p])
}

func floorMod(a float64, n float64) float64 {
	return a - n*math.Floor(a/n)
}

func bilinearInterpolate(x float64, y float64, g00 Vector, g10 Vector, g01 Vector, g11 Vector) Vector {

	rx := (1 - x)
	ry := (1 - y)

	a := rx * ry
	b := x * ry
	c := rx * y
	d := x * y

	return Vector{
		U: g00.U*a + g10.U*b + g01.U*c + g11.U*d,
		V: g00.V*a + g10.V*b + g01.V*c + g11.V*d,
	}
}

// VectorAt returns the wind at a position. The second result is false
// when the position is outside the snapshot's latitude band (or outside
// its longitude range for grids that do not cover the whole globe).
func (w *Snapshot) VectorAt(lon, lat float64) (Vector, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return Vector{}, false
	}

	i := (lat - w.Lat0) / w.ΔLat
	if i < 0 || i > float64(w.NLat-1) {
		return Vector{}, false
	}

	j := floorMod(lon-w.Lon0, 360.0) / w.ΔLon
	if !w.wraps && j > float64(w.NLon-1) {
		return Vector{}, false
	}

	fi := int(i)
	fj := int(j)
	if fj >= w.NLon {
		fj = w.NLon - 1
	}

	ci := fi + 1
	if ci > w.NLat-1 {
		ci = fi
	}
	cj := fj + 1
	if cj > w.NLon-1 {
		if w.wraps {
			cj = 0
		} else {
			cj = fj
		}
	}

	u00, v00 := w.at(fi, fj)
	u10, v10 := w.at(fi, cj)
	u01, v01 := w.at(ci, fj)
	u11, v11 := w.at(ci, cj)

	return bilinearInterpolate(j-float64(fj), i-float64(fi),
		Vector{U: u00, V: v00}, Vector{U: u10, V: v10}, Vector{U: u01, V: v01}, Vector{U: u11, V: v11}), true
}

// Uniform is a global snapshot holding the same wind everywhere.
func Uniform(date time.Time, wind Vector) *Snapshot {
	w, _ := newSnapshot(date, "uniform", 90, 0, -180, 180, 2, 2)
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			w.set(row, col, wind.U, wind.V)
		}
	}
	return w
}
