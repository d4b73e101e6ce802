package race

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-bouts/nav-sim/latlon"
)

// A north-south gate through lon 1 spanning lat -1..1, a second one
// through lon 3, finish through lon 5.
func testCourse() *Course {
	line := func(lon float64) Gate {
		return Gate{Center: latlon.LatLon{Lat: 0, Lon: lon}, Orientation: 0, Length: 2 * latlon.KmPerDegree * 1000}
	}
	finish := line(5)
	return &Course{
		Id:         "test",
		Polar:      "imoca",
		Start:      Start{Position: latlon.LatLon{Lat: 0, Lon: 0}, Heading: 90},
		Gates:      []Gate{line(1), line(3)},
		Finish:     &finish,
		TimeFactor: 1,
	}
}

func TestGateSegment(t *testing.T) {
	s := testCourse().Gates[0].Segment()
	assert.InDelta(t, -1, s.A.Lat, 1e-9)
	assert.InDelta(t, 1, s.B.Lat, 1e-9)
	assert.InDelta(t, 1, s.A.Lon, 1e-9)
	assert.InDelta(t, 1, s.B.Lon, 1e-9)
}

func TestValidate(t *testing.T) {
	c := testCourse()
	assert.NoError(t, c.Validate())

	c = testCourse()
	c.Finish = nil
	assert.ErrorIs(t, c.Validate(), ErrNoFinish)

	c = testCourse()
	c.Gates[1].Length = 0
	assert.ErrorIs(t, c.Validate(), ErrDegenerateGate)

	c = testCourse()
	c.Finish.Length = -3
	assert.True(t, errors.Is(c.Validate(), ErrDegenerateGate))

	c = testCourse()
	c.Polar = ""
	assert.Error(t, c.Validate())

	c = testCourse()
	c.Exclusions = [][]latlon.LatLon{{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}}
	assert.Error(t, c.Validate())

	c.Exclusions = [][]latlon.LatLon{{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 0}}}
	assert.Error(t, c.Validate())
}

func TestAdvanceInOrder(t *testing.T) {
	c := testCourse()
	at := time.Date(2020, 11, 8, 12, 0, 0, 0, time.UTC)
	p := Progress{}

	// jumping over gate 1 straight to gate 2 is not tested
	p, crossed := c.Advance(p, latlon.LatLon{Lat: 0, Lon: 2.5}, latlon.LatLon{Lat: 0, Lon: 3.5}, at)
	assert.False(t, crossed)
	assert.Equal(t, 0, p.NextGate)

	// passing beyond the gate end
	p, crossed = c.Advance(p, latlon.LatLon{Lat: 1.5, Lon: 0.5}, latlon.LatLon{Lat: 1.5, Lon: 1.5}, at)
	assert.False(t, crossed)
	assert.Equal(t, 0, p.NextGate)

	p, crossed = c.Advance(p, latlon.LatLon{Lat: 0.5, Lon: 0.5}, latlon.LatLon{Lat: 0.5, Lon: 1.5}, at)
	assert.True(t, crossed)
	assert.Equal(t, 1, p.NextGate)
	assert.False(t, p.Finished())

	p, crossed = c.Advance(p, latlon.LatLon{Lat: 0, Lon: 2.9}, latlon.LatLon{Lat: 0, Lon: 3.1}, at)
	assert.True(t, crossed)
	assert.Equal(t, 2, p.NextGate)

	g, ok := c.Target(p.NextGate)
	require.True(t, ok)
	assert.Equal(t, *c.Finish, g)
}

func TestAdvanceAcrossAntimeridian(t *testing.T) {
	c := &Course{
		Gates:  []Gate{{Center: latlon.LatLon{Lat: 0, Lon: -179.999}, Orientation: 0, Length: 20000}},
		Finish: &Gate{Center: latlon.LatLon{Lat: 0, Lon: 179.999}, Orientation: 0, Length: 20000},
	}

	// eastward over the gate just past the antimeridian
	p, crossed := c.Advance(Progress{}, latlon.LatLon{Lat: 0, Lon: 179.998}, latlon.LatLon{Lat: 0, Lon: 180.003}, time.Time{})
	assert.True(t, crossed)
	assert.Equal(t, 1, p.NextGate)

	// westward back over the finish just before it
	p, crossed = c.Advance(p, latlon.LatLon{Lat: 0, Lon: -179.997}, latlon.LatLon{Lat: 0, Lon: -180.002}, time.Time{})
	assert.True(t, crossed)
	assert.True(t, p.Finished())
}

func TestAdvanceTouchingEnd(t *testing.T) {
	c := testCourse()
	end := c.Gates[0].Segment().B

	p, crossed := c.Advance(Progress{}, latlon.LatLon{Lat: end.Lat, Lon: 0.5}, end, time.Time{})
	assert.True(t, crossed)
	assert.Equal(t, 1, p.NextGate)
}

func TestAdvanceFinish(t *testing.T) {
	c := testCourse()
	at := time.Date(2020, 11, 8, 12, 0, 0, 0, time.UTC)

	p, crossed := c.Advance(Progress{NextGate: 2}, latlon.LatLon{Lat: 0, Lon: 4.9}, latlon.LatLon{Lat: 0, Lon: 5.1}, at)
	require.True(t, crossed)
	require.True(t, p.Finished())
	assert.Equal(t, at, *p.FinishTime)
	assert.Equal(t, 2, p.NextGate)

	// finishing is terminal
	later := at.Add(time.Hour)
	q, crossed := c.Advance(p, latlon.LatLon{Lat: 0, Lon: 5.1}, latlon.LatLon{Lat: 0, Lon: 4.9}, later)
	assert.False(t, crossed)
	assert.Equal(t, at, *q.FinishTime)

	_, ok := c.Target(3)
	assert.False(t, ok)
}

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(`{
		"id": "vg",
		"name": "Vendee Globe",
		"polar": "imoca",
		"start": {"position": {"lat": 46.47, "lon": -1.78}, "heading": 270, "time": "2020-11-08T12:02:00Z"},
		"finish": {"center": {"lat": 46.4, "lon": -1.8}, "orientation": 0, "length": 1000},
		"ice_limits": {"south": [{"lat": -60, "lon": -180}, {"lat": -60, "lon": 180}], "minLat": -60, "maxLat": 90}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 1.0, c.TimeFactor)
	assert.Equal(t, "imoca", c.Polar)
	assert.Equal(t, 270.0, c.Start.Heading)
	assert.Equal(t, 2020, c.Start.Time.Year())
	require.NotNil(t, c.IceLimits)
	assert.NoError(t, c.Validate())

	checker, err := c.Checker(nil)
	require.NoError(t, err)
	assert.True(t, checker.IsInExclusionZone(0, -70))
	assert.False(t, checker.IsOnLand(0, -70))
}

func TestRaces(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.json"), []byte(`{
		"polar": "imoca",
		"finish": {"center": {"lat": 0, "lon": 0}, "orientation": 0, "length": 1000}
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nofinish.json"), []byte(`{"polar": "imoca"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{`), 0644))

	races := NewRaces(dir)
	require.NoError(t, races.Reload())

	assert.Equal(t, []string{"ok"}, races.Ids())
	c, ok := races.Get("ok")
	require.True(t, ok)
	assert.Equal(t, "ok", c.Id)

	_, ok = races.Get("nofinish")
	assert.False(t, ok)
}
