package wind

import (
	"math"

	"github.com/a-bouts/nav-sim/latlon"
)

// MsToKnots converts meters per second to knots.
const MsToKnots = 1.9438444924406

// Vector is a wind velocity, east (U) and north (V) components in m/s.
type Vector struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// Speed in m/s.
func (w Vector) Speed() float64 {
	return math.Sqrt(w.U*w.U + w.V*w.V)
}

// Knots is the speed in knots.
func (w Vector) Knots() float64 {
	return w.Speed() * MsToKnots
}

// From is the direction the wind blows from, in degrees [0,360).
func (w Vector) From() float64 {
	return latlon.Wrap360(math.Atan2(w.U, w.V)*180/math.Pi + 180)
}

func lerp(a, b Vector, h float64) Vector {
	return Vector{
		U: b.U*h + a.U*(1-h),
		V: b.V*h + a.V*(1-h),
	}
}

// Twa is the signed true wind angle for a heading, in (-180,180].
// Positive means the wind comes over the starboard side.
func Twa(heading, wind float64) float64 {
	twa := wind - heading
	if twa <= -180 {
		twa += 360
	}
	if twa > 180 {
		twa -= 360
	}

	return twa
}

// Heading is the heading that holds `twa` to a wind from `wind`.
func Heading(twa, wind float64) float64 {
	heading := wind - twa
	if heading < 0 {
		heading += 360
	}
	if heading >= 360 {
		heading -= 360
	}

	return heading
}
