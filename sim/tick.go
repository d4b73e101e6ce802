package sim

import (
	"math"
	"time"

	"github.com/a-bouts/nav-sim/latlon"
	"github.com/a-bouts/nav-sim/polar"
	"github.com/a-bouts/nav-sim/race"
	"github.com/a-bouts/nav-sim/wind"
)

// WindField answers the blended wind at a position and time, with the
// blend factor. *wind.Interpolator is one.
type WindField interface {
	WindAt(pos latlon.LatLon, t time.Time) (wind.Vector, float64, bool)
}

// Collider vetoes moves. *land.Checker is one.
type Collider interface {
	IsOnLand(lon, lat float64) bool
	IsInExclusionZone(lon, lat float64) bool
}

// Environment is everything a tick reads besides the session. Course and
// Polar are required; a nil Wind is a calm, a nil Collision blocks nothing.
type Environment struct {
	Course    *race.Course
	Polar     *polar.Table
	Wind      WindField
	Collision Collider
}

const metersPerNauticalMile = 1852.0

// Tick advances a session by dt real seconds and returns the new session
// and the progress events of this tick. The input session is not
// modified.
func Tick(env Environment, s Session, dt float64) (Session, []Event) {
	next := s
	tf := env.Course.TimeFactor

	next.Clock += time.Duration(dt * float64(time.Second))
	next.Time = s.Time.Add(time.Duration(dt * tf * float64(time.Second)))

	var w wind.Vector
	var factor float64
	ok := false
	if env.Wind != nil {
		w, factor, ok = env.Wind.WindAt(s.Position, next.Time)
	}

	windFrom := s.WindFrom
	tws := 0.0
	if ok {
		windFrom = w.From()
		tws = w.Knots()
	}

	heading, helm := s.Steering.Step(s.Heading, windFrom, ok, dt)
	twa := wind.Twa(heading, windFrom)
	bs := env.Polar.BoatSpeed(tws, twa)

	next.Heading = heading
	next.Steering = helm
	next.HasWind = ok
	next.Tws = tws
	next.Twa = twa
	next.WindFrom = windFrom
	next.WindFactor = factor

	distance := bs * metersPerNauticalMile * dt * tf / 3600
	to := latlon.LatLonFlat{}.Destination(s.Position, heading, distance)

	next.Blocked = false
	if blocked(env.Collision, to.Normalize()) {
		next.Blocked = true
		bs = 0
		to = s.Position
	}
	next.BoatSpeed = bs
	// positive upwind, negative downwind
	next.Vmg = bs * math.Cos(twa*math.Pi/180)

	var events []Event
	if to != s.Position {
		progress, crossed := env.Course.Advance(s.Progress, s.Position, to, next.Time)
		if crossed {
			if progress.Finished() {
				events = append(events, finished(*progress.FinishTime))
			} else {
				events = append(events, gateCrossed(s.NextGate, next.Time))
			}
		}
		next.Progress = progress
	}
	next.Position = to.Normalize()

	next.DistanceToMark = 0
	if target, ok := env.Course.Target(next.NextGate); ok && !next.Finished() {
		next.DistanceToMark = latlon.LatLonHaversine{}.DistanceTo(next.Position, target.Center)
	}

	return next, events
}

func blocked(c Collider, p latlon.LatLon) bool {
	if c == nil {
		return false
	}
	return c.IsOnLand(p.Lon, p.Lat) || c.IsInExclusionZone(p.Lon, p.Lat)
}
