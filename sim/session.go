package sim

import (
	"time"

	"github.com/a-bouts/nav-sim/latlon"
	"github.com/a-bouts/nav-sim/polar"
	"github.com/a-bouts/nav-sim/race"
	"github.com/a-bouts/nav-sim/steering"
)

// Session is the state of one boat in a race. It has a single owner:
// steering calls and Tick must not run concurrently.
type Session struct {
	// Clock is the real time elapsed since the start.
	Clock time.Duration `json:"clock"`
	// Time is the simulated time, Clock accelerated by the course's
	// time factor from the start time.
	Time      time.Time      `json:"time"`
	Position  latlon.LatLon  `json:"position"`
	Heading   float64        `json:"heading"`
	BoatSpeed float64        `json:"boatSpeed"`
	Steering  steering.State `json:"-"`
	race.Progress

	// Instruments, as of the last tick.
	HasWind        bool    `json:"hasWind"`
	Tws            float64 `json:"tws"`
	Twa            float64 `json:"twa"`
	WindFrom       float64 `json:"windFrom"`
	WindFactor     float64 `json:"windFactor"`
	Vmg            float64 `json:"vmg"`
	Blocked        bool    `json:"blocked"`
	DistanceToMark float64 `json:"distanceToMark"`
}

// NewSession places a boat on the start of a course.
func NewSession(c *race.Course) Session {
	return Session{
		Time:     c.Start.Time,
		Position: c.Start.Position,
		Heading:  latlon.Wrap360(c.Start.Heading),
	}
}

func (s *Session) Turn(dir steering.Direction) {
	s.Steering = s.Steering.Turn(dir)
}

func (s *Session) StopTurn() {
	s.Steering = s.Steering.StopTurn()
}

// Tack needs a wind reading; before the first tick with wind it is
// ignored, like any other refused transition.
func (s *Session) Tack() {
	if !s.HasWind {
		return
	}
	s.Steering = s.Steering.Tack(s.Heading, s.WindFrom)
}

func (s *Session) ToggleLock() {
	if _, locked := s.Steering.LockedTWA(); !locked && !s.HasWind {
		return
	}
	s.Steering = s.Steering.ToggleLock(s.Heading, s.WindFrom)
}

// SteerVMG turns to the best VMG heading on the current tack. The target
// is computed once, from the last wind reading.
func (s *Session) SteerVMG(p *polar.Table, mode polar.Mode) {
	if !s.HasWind || p == nil {
		return
	}
	s.Steering = s.Steering.SteerTo(p.OptimalVMGHeading(s.WindFrom, s.Tws, s.Heading, mode))
}

// Mode names the steering mode, for display.
func (s Session) Mode() string {
	return s.Steering.Kind().String()
}

// LockedTWA is the held TWA, if any.
func (s Session) LockedTWA() (float64, bool) {
	return s.Steering.LockedTWA()
}
