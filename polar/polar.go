package polar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/a-bouts/nav-sim/latlon"
)

// ErrEmptyTable is returned by Validate for tables that cannot be sampled.
var ErrEmptyTable = errors.New("empty polar table")

// Mode selects the side of the wind a VMG search looks at.
type Mode int

const (
	Upwind Mode = iota
	Downwind
)

func (m Mode) String() string {
	if m == Downwind {
		return "downwind"
	}
	return "upwind"
}

// ParseMode accepts "upwind" and "downwind".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "upwind", "up":
		return Upwind, nil
	case "downwind", "down":
		return Downwind, nil
	}
	return Upwind, fmt.Errorf("unknown vmg mode '%s'", s)
}

// Table is a boat polar: Speed[twa][tws] in knots, sampled at strictly
// increasing Tws (knots) and Twa (degrees, 0 to 180) tiers.
type Table struct {
	Id    string      `json:"id"`
	Label string      `json:"label"`
	Tws   []float64   `json:"tws"`
	Twa   []float64   `json:"twa"`
	Speed [][]float64 `json:"speed"`

	maxOnce  sync.Once
	maxSpeed float64
}

func Read(r io.Reader) (*Table, error) {
	var p Table
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding polar: %w", err)
	}
	return &p, nil
}

// Validate checks the table can be sampled. BoatSpeed assumes it does.
func (p *Table) Validate() error {
	if len(p.Tws) == 0 || len(p.Twa) == 0 {
		return ErrEmptyTable
	}
	if len(p.Speed) != len(p.Twa) {
		return fmt.Errorf("polar '%s': %d speed rows for %d twa tiers", p.Id, len(p.Speed), len(p.Twa))
	}
	for i, row := range p.Speed {
		if len(row) != len(p.Tws) {
			return fmt.Errorf("polar '%s': row %d has %d speeds for %d tws tiers", p.Id, i, len(row), len(p.Tws))
		}
	}
	for i := 1; i < len(p.Tws); i++ {
		if p.Tws[i] <= p.Tws[i-1] {
			return fmt.Errorf("polar '%s': tws tiers not increasing at %d", p.Id, i)
		}
	}
	for i := 1; i < len(p.Twa); i++ {
		if p.Twa[i] <= p.Twa[i-1] {
			return fmt.Errorf("polar '%s': twa tiers not increasing at %d", p.Id, i)
		}
	}
	return nil
}

// interpolationIndex brackets value in values, clamping it into the
// sampled range first. The factor weights the first index; a value on a
// tier gives a degenerate bracket (i, i, 1).
func interpolationIndex(values []float64, value float64) (int, int, float64) {

	last := len(values) - 1
	if value <= values[0] {
		return 0, 0, 1
	}
	if value >= values[last] {
		return last, last, 1
	}

	i := 0
	for values[i] < value {
		i++
	}

	if values[i] == value {
		return i, i, 1
	}

	return i - 1, i, (values[i] - value) / (values[i] - values[i-1])
}

func normalizeTwa(twa float64) float64 {
	t := math.Mod(math.Abs(twa), 360)
	if t > 180 {
		t = 360 - t
	}
	return t
}

// BoatSpeed is the bilinearly interpolated speed in knots for a true wind
// speed in knots and a true wind angle in degrees (any sign).
func (p *Table) BoatSpeed(tws float64, twa float64) float64 {
	t := normalizeTwa(twa)

	twsIndex0, twsIndex1, twsFactor := interpolationIndex(p.Tws, tws)
	twaIndex0, twaIndex1, twaFactor := interpolationIndex(p.Twa, t)

	ti0 := p.Speed[twaIndex0]
	ti1 := p.Speed[twaIndex1]

	return (ti0[twsIndex0]*twsFactor+ti0[twsIndex1]*(1-twsFactor))*twaFactor +
		(ti1[twsIndex0]*twsFactor+ti1[twsIndex1]*(1-twsFactor))*(1-twaFactor)
}

// MaxSpeed is the largest speed in the table, computed once.
func (p *Table) MaxSpeed() float64 {
	p.maxOnce.Do(func() {
		for _, row := range p.Speed {
			for _, s := range row {
				if s > p.maxSpeed {
					p.maxSpeed = s
				}
			}
		}
	})
	return p.maxSpeed
}

// OptimalVMGAngle scans whole degrees for the TWA giving the best velocity
// made good: [20,90] upwind, [90,180] downwind. The first best angle wins.
func (p *Table) OptimalVMGAngle(tws float64, mode Mode) float64 {
	lo, hi, fallback := 20, 90, 45.0
	if mode == Downwind {
		lo, hi, fallback = 90, 180, 135.0
	}

	best := 0.0
	angle := fallback
	for a := lo; a <= hi; a++ {
		twa := float64(a)
		vmg := math.Abs(p.BoatSpeed(tws, twa) * math.Cos(twa*math.Pi/180))
		if vmg > best {
			best = vmg
			angle = twa
		}
	}

	return angle
}

// OptimalVMGHeading is the heading sailing the optimal VMG angle on the
// tack the boat is currently on.
func (p *Table) OptimalVMGHeading(windFrom float64, tws float64, heading float64, mode Mode) float64 {
	angle := p.OptimalVMGAngle(tws, mode)

	side := 1.0
	if latlon.ShortestDiff(windFrom, heading) < 0 {
		side = -1.0
	}

	if mode == Downwind {
		return latlon.Wrap360(windFrom + 180 - side*(180-angle))
	}
	return latlon.Wrap360(windFrom + side*angle)
}
