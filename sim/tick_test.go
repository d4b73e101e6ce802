package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-bouts/nav-sim/latlon"
	"github.com/a-bouts/nav-sim/polar"
	"github.com/a-bouts/nav-sim/race"
	"github.com/a-bouts/nav-sim/steering"
	"github.com/a-bouts/nav-sim/wind"
)

var start = time.Date(2020, 11, 8, 12, 0, 0, 0, time.UTC)

func testPolar() *polar.Table {
	return &polar.Table{
		Id:  "test",
		Tws: []float64{0, 10, 20, 40},
		Twa: []float64{0, 45, 90, 135, 180},
		Speed: [][]float64{
			{0, 0, 0, 0},
			{0, 8, 8, 8},
			{0, 10, 10, 10},
			{0, 9, 9, 9},
			{0, 7, 7, 7},
		},
	}
}

func testCourse(tf float64, gates ...race.Gate) *race.Course {
	finish := race.Gate{Center: latlon.LatLon{Lat: 80, Lon: 0}, Orientation: 90, Length: 1000}
	return &race.Course{
		Id:         "test",
		Polar:      "test",
		Start:      race.Start{Position: latlon.LatLon{Lat: 0, Lon: 0}, Heading: 90, Time: start},
		Gates:      gates,
		Finish:     &finish,
		TimeFactor: tf,
	}
}

type constantWind wind.Vector

func (c constantWind) WindAt(latlon.LatLon, time.Time) (wind.Vector, float64, bool) {
	return wind.Vector(c), 0, true
}

// blowing from north at 10 m/s
var north = constantWind{U: 0, V: -10}

// rotatingWind veers one degree per simulated second from north.
type rotatingWind struct{}

func (rotatingWind) WindAt(_ latlon.LatLon, t time.Time) (wind.Vector, float64, bool) {
	d := t.Sub(start).Seconds() * math.Pi / 180
	return wind.Vector{U: -10 * math.Sin(d), V: -10 * math.Cos(d)}, 0.5, true
}

type landEastOf float64

func (l landEastOf) IsOnLand(lon, lat float64) bool {
	return lon > float64(l)
}

func (landEastOf) IsInExclusionZone(lon, lat float64) bool {
	return false
}

func TestTickEndToEnd(t *testing.T) {
	env := Environment{Course: testCourse(1), Polar: testPolar(), Wind: north}
	s := NewSession(env.Course)

	var events []Event
	for i := 0; i < 3600; i++ {
		var e []Event
		s, e = Tick(env, s, 1)
		events = append(events, e...)
	}

	assert.Empty(t, events)
	assert.Equal(t, start.Add(time.Hour), s.Time)
	assert.Equal(t, time.Hour, s.Clock)
	assert.True(t, s.HasWind)
	assert.InDelta(t, 0, s.WindFrom, 1e-9)
	assert.InDelta(t, 10*wind.MsToKnots, s.Tws, 1e-9)
	assert.InDelta(t, -90, s.Twa, 1e-9)
	assert.InDelta(t, 10, s.BoatSpeed, 1e-9)
	assert.InDelta(t, 0, s.Vmg, 1e-9)
	assert.InDelta(t, 90, s.Heading, 1e-9)
	assert.InDelta(t, 0, s.Position.Lat, 1e-9)
	assert.InDelta(t, 18.52/latlon.KmPerDegree, s.Position.Lon, 1e-6)
}

func TestTickTimeFactor(t *testing.T) {
	env := Environment{Course: testCourse(60), Polar: testPolar(), Wind: north}
	s := NewSession(env.Course)
	s.Position = latlon.LatLon{Lat: 60, Lon: 0}

	for i := 0; i < 60; i++ {
		s, _ = Tick(env, s, 1)
	}

	assert.Equal(t, start.Add(time.Hour), s.Time)
	assert.Equal(t, time.Minute, s.Clock)
	assert.InDelta(t, 60, s.Position.Lat, 1e-9)
	assert.InDelta(t, 18.52/(latlon.KmPerDegree*math.Cos(math.Pi/3)), s.Position.Lon, 1e-6)
}

func TestTickDoesNotModifyInput(t *testing.T) {
	env := Environment{Course: testCourse(1), Polar: testPolar(), Wind: north}
	s := NewSession(env.Course)
	s.Turn(steering.Right)
	before := s

	next, _ := Tick(env, s, 1)

	assert.Equal(t, before, s)
	assert.InDelta(t, 90+steering.TurnRate, next.Heading, 1e-9)
	assert.NotEqual(t, s.Position, next.Position)
}

func TestTickCollisionVeto(t *testing.T) {
	env := Environment{Course: testCourse(1), Polar: testPolar(), Wind: north, Collision: landEastOf(0)}
	s := NewSession(env.Course)
	s.Turn(steering.Left)

	next, events := Tick(env, s, 1)

	assert.Empty(t, events)
	assert.True(t, next.Blocked)
	assert.Equal(t, 0.0, next.BoatSpeed)
	assert.Equal(t, s.Position, next.Position)
	assert.InDelta(t, 90-steering.TurnRate, next.Heading, 1e-9)
	assert.Equal(t, steering.Turning, next.Steering.Kind())

	// turning on until heading west frees the boat
	for i := 0; i < 3; i++ {
		next, _ = Tick(env, next, 1)
	}
	assert.InDelta(t, 270, next.Heading, 1e-9)
	assert.False(t, next.Blocked)
	assert.Less(t, next.Position.Lon, 0.0)
	assert.InDelta(t, 10, next.BoatSpeed, 1e-9)
	assert.InDelta(t, 0, next.Vmg, 1e-9)
}

func TestTickWithoutWind(t *testing.T) {
	env := Environment{Course: testCourse(1), Polar: testPolar()}
	s := NewSession(env.Course)

	next, events := Tick(env, s, 1)

	assert.Empty(t, events)
	assert.False(t, next.HasWind)
	assert.Equal(t, 0.0, next.BoatSpeed)
	assert.Equal(t, s.Position, next.Position)
	assert.Equal(t, start.Add(time.Second), next.Time)
}

func TestTickGatesAndFinish(t *testing.T) {
	gate := race.Gate{Center: latlon.LatLon{Lat: 0, Lon: 0.01}, Orientation: 0, Length: 2000}
	c := testCourse(100, gate)
	c.Finish = &race.Gate{Center: latlon.LatLon{Lat: 0, Lon: 0.02}, Orientation: 0, Length: 2000}
	require.NoError(t, c.Validate())

	env := Environment{Course: c, Polar: testPolar(), Wind: north}
	s := NewSession(c)

	var all [][]Event
	for i := 0; i < 6; i++ {
		var e []Event
		s, e = Tick(env, s, 1)
		all = append(all, e)
	}

	assert.Empty(t, all[0])
	assert.Empty(t, all[1])
	require.Len(t, all[2], 1)
	assert.Equal(t, GateCrossed, all[2][0].Kind)
	assert.Equal(t, 0, all[2][0].Gate)
	assert.Equal(t, start.Add(300*time.Second), all[2][0].Time)
	assert.Empty(t, all[3])
	require.Len(t, all[4], 1)
	assert.Equal(t, Finished, all[4][0].Kind)
	assert.Empty(t, all[5])

	assert.Equal(t, 1, s.NextGate)
	require.True(t, s.Finished())
	assert.Equal(t, start.Add(500*time.Second), *s.FinishTime)
	assert.Equal(t, 0.0, s.DistanceToMark)
}

func TestTickGateOnAntimeridian(t *testing.T) {
	gate := race.Gate{Center: latlon.LatLon{Lat: 0, Lon: 179.999}, Orientation: 0, Length: 20000}
	c := testCourse(100, gate)
	require.NoError(t, c.Validate())

	env := Environment{Course: c, Polar: testPolar(), Wind: north}
	s := NewSession(c)
	s.Position = latlon.LatLon{Lat: 0, Lon: -179.997}
	s.Heading = 270

	s, events := Tick(env, s, 1)
	require.Len(t, events, 1)
	assert.Equal(t, GateCrossed, events[0].Kind)
	assert.Equal(t, 1, s.NextGate)
	assert.Greater(t, s.Position.Lon, 179.99)
	assert.Less(t, s.Position.Lon, 179.999)

	for i := 0; i < 10; i++ {
		s, events = Tick(env, s, 1)
		assert.Empty(t, events)
	}
	assert.Equal(t, 1, s.NextGate)
}

func TestTickDistanceToMark(t *testing.T) {
	gate := race.Gate{Center: latlon.LatLon{Lat: 0, Lon: 1}, Orientation: 0, Length: 2000}
	env := Environment{Course: testCourse(1, gate), Polar: testPolar(), Wind: north}

	s, _ := Tick(env, NewSession(env.Course), 1)

	want := latlon.LatLonHaversine{}.DistanceTo(s.Position, gate.Center)
	assert.InDelta(t, want, s.DistanceToMark, 1e-6)
	assert.Greater(t, s.DistanceToMark, 100000.0)
}

func TestTickTack(t *testing.T) {
	env := Environment{Course: testCourse(1), Polar: testPolar(), Wind: north}
	s := NewSession(env.Course)
	s.Heading = 45

	// no wind reading yet
	s.Tack()
	assert.Equal(t, steering.Free, s.Steering.Kind())

	s, _ = Tick(env, s, 0)
	s.Tack()
	target, ok := s.Steering.TackTarget()
	require.True(t, ok)
	assert.InDelta(t, 315, target, 1e-9)

	s, _ = Tick(env, s, 0.5)
	assert.InDelta(t, 0, s.Heading, 1e-9)
	assert.Equal(t, steering.Tacking, s.Steering.Kind())

	s, _ = Tick(env, s, 0.5)
	assert.Equal(t, 315.0, s.Heading)
	assert.Equal(t, steering.Free, s.Steering.Kind())
}

func TestTickTWALock(t *testing.T) {
	env := Environment{Course: testCourse(1), Polar: testPolar(), Wind: rotatingWind{}}
	s := NewSession(env.Course)
	s.Heading = 45

	s, _ = Tick(env, s, 0)
	s.ToggleLock()
	twa, ok := s.LockedTWA()
	require.True(t, ok)
	assert.InDelta(t, -45, twa, 1e-9)

	for i := 0; i < 30; i++ {
		s, _ = Tick(env, s, 1)
		assert.InDelta(t, latlon.Wrap360(s.WindFrom-twa+360), s.Heading, 1e-9)
		assert.InDelta(t, twa, s.Twa, 1e-9)
	}
	assert.InDelta(t, 30, s.WindFrom, 1e-9)
	assert.InDelta(t, 75, s.Heading, 1e-9)
	assert.Equal(t, 0.5, s.WindFactor)

	s.ToggleLock()
	_, ok = s.LockedTWA()
	assert.False(t, ok)
	assert.Equal(t, "free", s.Mode())
}

func TestTickTackKeepsLock(t *testing.T) {
	env := Environment{Course: testCourse(1), Polar: testPolar(), Wind: north}
	s := NewSession(env.Course)
	s.Heading = 45

	s, _ = Tick(env, s, 0)
	s.ToggleLock()
	s.Tack()
	assert.Equal(t, "tacking", s.Mode())

	s, _ = Tick(env, s, 1)
	twa, ok := s.LockedTWA()
	require.True(t, ok)
	assert.InDelta(t, 45, twa, 1e-9)
	assert.InDelta(t, 315, s.Heading, 1e-9)

	s, _ = Tick(env, s, 1)
	assert.InDelta(t, 315, s.Heading, 1e-9)
}

func TestSteerVMG(t *testing.T) {
	p := testPolar()
	env := Environment{Course: testCourse(1), Polar: p, Wind: north}
	s := NewSession(env.Course)
	s.Heading = 60

	s, _ = Tick(env, s, 0)
	s.SteerVMG(p, polar.Upwind)
	target, ok := s.Steering.TackTarget()
	require.True(t, ok)
	assert.InDelta(t, p.OptimalVMGHeading(0, s.Tws, 60, polar.Upwind), target, 1e-9)

	for i := 0; i < 4; i++ {
		s, _ = Tick(env, s, 1)
	}
	assert.InDelta(t, target, s.Heading, 1e-9)
	assert.Equal(t, steering.Free, s.Steering.Kind())
}
