package land

import (
	"github.com/a-bouts/nav-sim/latlon"
)

// Checker answers the two collision questions asked every tick. Any nil
// member is treated as empty.
type Checker struct {
	Land  *Land
	Zones *Zones
	Ice   *IceLimits
}

func (c *Checker) IsOnLand(lon, lat float64) bool {
	if c == nil || c.Land == nil {
		return false
	}
	return c.Land.IsLand(lat, lon)
}

func (c *Checker) IsInExclusionZone(lon, lat float64) bool {
	if c == nil {
		return false
	}
	if c.Zones.Contains(lon, lat) {
		return true
	}
	return c.Ice.IsInIceLimits(latlon.LatLon{Lat: lat, Lon: lon})
}

// Blocked is the combined predicate: the boat may not enter a position that
// is land or inside an exclusion zone.
func (c *Checker) Blocked(lon, lat float64) bool {
	return c.IsOnLand(lon, lat) || c.IsInExclusionZone(lon, lat)
}
