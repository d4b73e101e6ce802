// Package steering resolves helm input into one heading per tick.
//
// A State is always in exactly one mode: free, turning, tacking or locked
// to a true wind angle. A tack started while locked carries the lock and
// resumes it, on the new tack, once the bow reaches the target.
//
// Signed TWA follows the wind package: positive means the wind comes over
// the starboard side. Transitions whose precondition fails return the
// state unchanged.
package steering

import (
	"math"

	"github.com/a-bouts/nav-sim/latlon"
)

const (
	// TurnRate is the manual helm rate, in degrees per second.
	TurnRate = 45.0
	// TackRate is the rate at which a tack or a VMG target is steered to.
	TackRate = 90.0
)

type Direction int

const (
	None  Direction = 0
	Left  Direction = -1
	Right Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "none"
}

type Kind int

const (
	Free Kind = iota
	Turning
	Tacking
	Locked
)

func (k Kind) String() string {
	switch k {
	case Turning:
		return "turning"
	case Tacking:
		return "tacking"
	case Locked:
		return "locked"
	}
	return "free"
}

type State struct {
	kind      Kind
	direction Direction
	target    float64
	twa       float64
	resume    bool
}

func (s State) Kind() Kind {
	return s.kind
}

// Direction is the helm direction while turning.
func (s State) Direction() Direction {
	if s.kind != Turning {
		return None
	}
	return s.direction
}

// TackTarget is the heading being steered to.
func (s State) TackTarget() (float64, bool) {
	return s.target, s.kind == Tacking
}

// LockedTWA is the held signed TWA.
func (s State) LockedTWA() (float64, bool) {
	return s.twa, s.kind == Locked
}

// PendingLock is the lock a tack will resume, sign not yet flipped.
func (s State) PendingLock() (float64, bool) {
	return s.twa, s.kind == Tacking && s.resume
}

// SignedTwa is the TWA of heading for a wind from windFrom, in (-180,180].
func SignedTwa(heading, windFrom float64) float64 {
	return latlon.Wrap180(windFrom - heading)
}

// Turn starts turning, or stops with None. It cancels any tack or lock.
func (s State) Turn(dir Direction) State {
	if dir == None {
		return s.StopTurn()
	}
	return State{kind: Turning, direction: dir}
}

func (s State) StopTurn() State {
	if s.kind != Turning {
		return s
	}
	return State{}
}

// Tack mirrors the heading across the wind axis at the same |TWA|. It is
// ignored while a tack is already running.
func (s State) Tack(heading, windFrom float64) State {
	if s.kind == Tacking {
		return s
	}

	target := latlon.Wrap360(windFrom + SignedTwa(heading, windFrom))
	next := State{kind: Tacking, target: target}
	if s.kind == Locked {
		next.twa = s.twa
		next.resume = true
	}
	return next
}

// ToggleLock locks the current TWA, or releases the lock. Mid-tack it only
// drops a lock the tack would resume.
func (s State) ToggleLock(heading, windFrom float64) State {
	switch s.kind {
	case Locked:
		return State{}
	case Tacking:
		if s.resume {
			return State{kind: Tacking, target: s.target}
		}
		return s
	}
	return State{kind: Locked, twa: SignedTwa(heading, windFrom)}
}

// SteerTo turns progressively to heading at the tack rate, then frees the
// helm. It is ignored mid-tack.
func (s State) SteerTo(heading float64) State {
	if s.kind == Tacking {
		return s
	}
	return State{kind: Tacking, target: latlon.Wrap360(heading)}
}

// Step advances the helm by dt seconds and returns the resulting heading.
// Without wind a lock holds the previous heading.
func (s State) Step(heading, windFrom float64, hasWind bool, dt float64) (float64, State) {
	switch s.kind {
	case Turning:
		return latlon.Wrap360(heading + TurnRate*float64(s.direction)*dt), s

	case Tacking:
		diff := latlon.ShortestDiff(heading, s.target)
		if math.Abs(diff) <= TackRate*dt {
			if s.resume {
				return s.target, State{kind: Locked, twa: -s.twa}
			}
			return s.target, State{}
		}
		return latlon.Wrap360(heading + math.Copysign(TackRate*dt, diff)), s

	case Locked:
		if !hasWind {
			return heading, s
		}
		return latlon.Wrap360(windFrom - s.twa + 360), s
	}

	return heading, s
}
