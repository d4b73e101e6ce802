package latlon

import "math"

// Segment is a bounded straight segment in (lon, lat) plane coordinates.
type Segment struct {
	A LatLon `json:"a"`
	B LatLon `json:"b"`
}

func orientation(p, q, r LatLon) int {
	v := (q.Lon-p.Lon)*(r.Lat-p.Lat) - (q.Lat-p.Lat)*(r.Lon-p.Lon)
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

func onSegment(p, q, r LatLon) bool {
	return min(p.Lon, r.Lon) <= q.Lon && q.Lon <= max(p.Lon, r.Lon) &&
		min(p.Lat, r.Lat) <= q.Lat && q.Lat <= max(p.Lat, r.Lat)
}

// Intersects reports whether the two bounded segments share at least one
// point. Touching an endpoint counts as an intersection.
func (s Segment) Intersects(o Segment) bool {
	o1 := orientation(s.A, s.B, o.A)
	o2 := orientation(s.A, s.B, o.B)
	o3 := orientation(o.A, o.B, s.A)
	o4 := orientation(o.A, o.B, s.B)

	if o1 != o2 && o3 != o4 {
		return true
	}

	if o1 == 0 && onSegment(s.A, o.A, s.B) {
		return true
	}
	if o2 == 0 && onSegment(s.A, o.B, s.B) {
		return true
	}
	if o3 == 0 && onSegment(o.A, s.A, o.B) {
		return true
	}
	if o4 == 0 && onSegment(o.A, s.B, o.B) {
		return true
	}

	return false
}

// Degenerate reports whether both ends are the same point.
func (s Segment) Degenerate() bool {
	return s.A == s.B
}

// Near returns the segment moved by a whole number of turns in longitude
// so that its middle is within 180° of lon.
func (s Segment) Near(lon float64) Segment {
	shift := 360 * math.Round((lon-(s.A.Lon+s.B.Lon)/2)/360)
	if shift == 0 {
		return s
	}
	s.A.Lon += shift
	s.B.Lon += shift
	return s
}
