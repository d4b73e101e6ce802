package race

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/nav-sim/land"
	"github.com/a-bouts/nav-sim/latlon"
)

var (
	ErrDegenerateGate = errors.New("degenerate gate")
	ErrNoFinish       = errors.New("course has no finish line")
)

// Gate is a line to cross, Length meters long, centered on Center and
// oriented along the Orientation bearing.
type Gate struct {
	Name        string        `json:"name,omitempty"`
	Center      latlon.LatLon `json:"center"`
	Orientation float64       `json:"orientation"`
	Length      float64       `json:"length"`
}

// Segment returns the gate's ends, computed on the flat Earth.
func (g Gate) Segment() latlon.Segment {
	flat := latlon.LatLonFlat{}
	return latlon.Segment{
		A: flat.Destination(g.Center, g.Orientation+180, g.Length/2),
		B: flat.Destination(g.Center, g.Orientation, g.Length/2),
	}
}

type Start struct {
	Position latlon.LatLon `json:"position"`
	Heading  float64       `json:"heading"`
	Time     time.Time     `json:"time"`
}

// Waypoint is a suggested route point, for display only.
type Waypoint struct {
	Name    string          `json:"name"`
	Latlons []latlon.LatLon `json:"latlons"`
}

type Course struct {
	Id         string            `json:"id"`
	Name       string            `json:"name"`
	Polar      string            `json:"polar"`
	Start      Start             `json:"start"`
	Gates      []Gate            `json:"gates"`
	Finish     *Gate             `json:"finish"`
	Exclusions [][]latlon.LatLon `json:"exclusions"`
	IceLimits  *land.IceLimits   `json:"ice_limits,omitempty"`
	Waypoints  []Waypoint        `json:"waypoints"`
	TimeFactor float64           `json:"timeFactor"`
}

// Validate rejects a course a session cannot run on. It must be called
// before starting a session.
func (c *Course) Validate() error {
	if c.Finish == nil {
		return ErrNoFinish
	}
	if c.Polar == "" {
		return fmt.Errorf("course '%s' has no polar", c.Id)
	}
	if !(c.TimeFactor > 0) {
		return fmt.Errorf("course '%s' has time factor %v", c.Id, c.TimeFactor)
	}

	check := func(name string, g Gate) error {
		if !(g.Length > 0) || math.IsInf(g.Length, 0) || math.IsNaN(g.Orientation) || g.Segment().Degenerate() {
			return fmt.Errorf("%s of course '%s': %w", name, c.Id, ErrDegenerateGate)
		}
		return nil
	}
	for i, g := range c.Gates {
		if err := check(fmt.Sprintf("gate %d", i), g); err != nil {
			return err
		}
	}
	if err := check("finish", *c.Finish); err != nil {
		return err
	}

	if _, err := land.NewZones(c.Exclusions); err != nil {
		return fmt.Errorf("course '%s': %w", c.Id, err)
	}
	return nil
}

// Checker builds the collision predicate for this course on top of a
// land mask, which may be nil.
func (c *Course) Checker(l *land.Land) (*land.Checker, error) {
	zones, err := land.NewZones(c.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("course '%s': %w", c.Id, err)
	}
	return &land.Checker{Land: l, Zones: zones, Ice: c.IceLimits}, nil
}

// Target is the line to cross next for a cursor: gate `cursor`, or the
// finish line once every gate is behind.
func (c *Course) Target(cursor int) (Gate, bool) {
	if cursor < len(c.Gates) {
		return c.Gates[cursor], true
	}
	if cursor == len(c.Gates) && c.Finish != nil {
		return *c.Finish, true
	}
	return Gate{}, false
}

// Progress is the position of a boat along the course.
type Progress struct {
	NextGate   int        `json:"nextGate"`
	FinishTime *time.Time `json:"finishTime,omitempty"`
}

func (p Progress) Finished() bool {
	return p.FinishTime != nil
}

// Advance checks the move from `from` to `to` against the pending target
// only, and reports whether it was crossed. At most one line is crossed
// per move; a finished boat never progresses again.
func (c *Course) Advance(p Progress, from, to latlon.LatLon, at time.Time) (Progress, bool) {
	if p.Finished() {
		return p, false
	}

	target, ok := c.Target(p.NextGate)
	if !ok {
		return p, false
	}

	move := latlon.Segment{A: from, B: to}
	if !move.Intersects(target.Segment().Near(from.Lon)) {
		return p, false
	}

	if p.NextGate < len(c.Gates) {
		return Progress{NextGate: p.NextGate + 1}, true
	}

	finish := at
	return Progress{NextGate: p.NextGate, FinishTime: &finish}, true
}

func Read(r io.Reader) (*Course, error) {
	var c Course
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	if c.TimeFactor == 0 {
		c.TimeFactor = 1
	}
	return &c, nil
}

func Load(file string) (*Course, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading course '%s': %w", file, err)
	}
	if c.Id == "" {
		c.Id = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}
	return c, nil
}

// Races holds the valid courses of a directory, by id.
type Races struct {
	dir   string
	lock  sync.RWMutex
	races map[string]*Course
}

func NewRaces(dir string) *Races {
	return &Races{dir: dir, races: make(map[string]*Course)}
}

// Reload reads every .json course of the directory. Invalid courses are
// logged and skipped.
func (r *Races) Reload() error {
	files, err := filepath.Glob(filepath.Join(r.dir, "*.json"))
	if err != nil {
		return err
	}

	races := make(map[string]*Course)
	for _, file := range files {
		c, err := Load(file)
		if err != nil {
			log.WithError(err).Errorf("Error loading course '%s'", file)
			continue
		}
		if err := c.Validate(); err != nil {
			log.WithError(err).Errorf("Invalid course '%s'", file)
			continue
		}
		log.Debugf("Loaded course '%s' (%d gates)", c.Id, len(c.Gates))
		races[c.Id] = c
	}

	r.lock.Lock()
	r.races = races
	r.lock.Unlock()

	log.Infof("Loaded %d courses from '%s'", len(races), r.dir)
	return nil
}

func (r *Races) Put(c *Course) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.races[c.Id] = c
}

func (r *Races) Get(id string) (*Course, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.races[id]
	return c, ok
}

func (r *Races) Ids() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	ids := make([]string, 0, len(r.races))
	for id := range r.races {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
