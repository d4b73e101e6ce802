package land

import (
	"fmt"
	"math"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/peterstace/simplefeatures/rtree"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/nav-sim/latlon"
)

// Zones is an immutable set of exclusion polygons behind an R-tree of
// their bounding boxes. Coordinates are (lon, lat).
type Zones struct {
	polygons []geom.Geometry
	index    *rtree.RTree
}

// NewZones builds the index. Each zone is one outer ring; the closing
// point may be omitted.
func NewZones(rings [][]latlon.LatLon) (*Zones, error) {
	z := &Zones{}
	items := make([]rtree.BulkItem, 0, len(rings))

	for i, ring := range rings {
		if len(ring) < 3 {
			return nil, fmt.Errorf("exclusion zone %d has %d points", i, len(ring))
		}

		box := rtree.Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
		coords := make([]float64, 0, 2*(len(ring)+1))
		for _, p := range ring {
			coords = append(coords, p.Lon, p.Lat)
			box.MinX = math.Min(box.MinX, p.Lon)
			box.MinY = math.Min(box.MinY, p.Lat)
			box.MaxX = math.Max(box.MaxX, p.Lon)
			box.MaxY = math.Max(box.MaxY, p.Lat)
		}
		if ring[0] != ring[len(ring)-1] {
			coords = append(coords, ring[0].Lon, ring[0].Lat)
		}

		shell, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
		if err != nil {
			return nil, fmt.Errorf("exclusion zone %d: %w", i, err)
		}
		polygon, err := geom.NewPolygon([]geom.LineString{shell})
		if err != nil {
			return nil, fmt.Errorf("exclusion zone %d: %w", i, err)
		}

		z.polygons = append(z.polygons, polygon.AsGeometry())
		items = append(items, rtree.BulkItem{Box: box, RecordID: len(z.polygons) - 1})
	}

	z.index = rtree.BulkLoad(items)
	return z, nil
}

func (z *Zones) Len() int {
	if z == nil {
		return 0
	}
	return len(z.polygons)
}

// Contains reports whether the point lies inside or on the edge of a zone.
func (z *Zones) Contains(lon, lat float64) bool {
	if z.Len() == 0 {
		return false
	}

	point, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: lon, Y: lat}, Type: geom.DimXY})
	if err != nil {
		log.WithError(err).Warnf("Invalid point %v,%v", lat, lon)
		return false
	}
	pt := point.AsGeometry()

	found := false
	_ = z.index.RangeSearch(rtree.Box{MinX: lon, MinY: lat, MaxX: lon, MaxY: lat}, func(recordID int) error {
		if geom.Intersects(pt, z.polygons[recordID]) {
			found = true
			return rtree.Stop
		}
		return nil
	})
	return found
}
