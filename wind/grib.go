package wind

import (
	"fmt"
	"io"
	"time"

	"github.com/nilsmagnus/grib/griblib"
)

// DecodeGrib reads the 10 m U and V components out of a GRIB2 stream.
func DecodeGrib(r io.Reader, date time.Time, file string) (*Snapshot, error) {
	messages, err := griblib.ReadMessages(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRaster, file, err)
	}

	var w *Snapshot
	var u, v []float64

	for _, message := range messages {
		if message.Section0.Discipline != uint8(0) ||
			message.Section4.ProductDefinitionTemplate.ParameterCategory != uint8(2) ||
			message.Section4.ProductDefinitionTemplate.FirstSurface.Type != 103 ||
			message.Section4.ProductDefinitionTemplate.FirstSurface.Value != 10 {
			continue
		}

		grid0, ok := message.Section3.Definition.(*griblib.Grid0)
		if !ok {
			continue
		}

		if w == nil {
			Δlat := float64(grid0.Dj) / 1e6
			if grid0.La2 < grid0.La1 {
				Δlat = -Δlat
			}
			w, err = newSnapshot(date, file,
				float64(grid0.La1)/1e6, float64(grid0.Lo1)/1e6,
				Δlat, float64(grid0.Di)/1e6,
				int(grid0.Nj), int(grid0.Ni))
			if err != nil {
				return nil, err
			}
		}

		switch message.Section4.ProductDefinitionTemplate.ParameterNumber {
		case 2:
			u = message.Section7.Data
		case 3:
			v = message.Section7.Data
		}
	}

	if w == nil || u == nil || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoWindData, file)
	}

	n := w.NLat * w.NLon
	if len(u) < n || len(v) < n {
		return nil, fmt.Errorf("%w: %s: %d/%d values for %d points", ErrMalformedRaster, file, len(u), len(v), n)
	}

	for p := 0; p < n; p++ {
		w.U[p] = float32(u[p])
		w.V[p] = float32(v[p])
	}

	return w, nil
}
