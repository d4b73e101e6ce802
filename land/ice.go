package land

import (
	"github.com/a-bouts/nav-sim/latlon"
)

// IceLimits bound the navigable ocean north and south with polylines
// sampled every 5° of longitude from -180. Inside the (MinLat, MaxLat)
// band nothing is ever excluded.
type IceLimits struct {
	North  []latlon.LatLon `json:"north"`
	South  []latlon.LatLon `json:"south"`
	MaxLat float64         `json:"maxLat"`
	MinLat float64         `json:"minLat"`
}

func limitAt(limit []latlon.LatLon, lon float64) (float64, bool) {
	for i := 0; i < len(limit)-1; i++ {
		if lon >= limit[i].Lon && lon <= limit[i+1].Lon {
			if limit[i+1].Lon == limit[i].Lon {
				return limit[i].Lat, true
			}
			lat := (lon-limit[i].Lon)/(limit[i+1].Lon-limit[i].Lon)*(limit[i+1].Lat-limit[i].Lat) + limit[i].Lat
			return lat, true
		}
	}
	return 0, false
}

func (iceLimits *IceLimits) IsInIceLimits(latLon latlon.LatLon) bool {
	if iceLimits == nil {
		return false
	}

	lon := latLon.Normalize().Lon

	if iceLimits.MinLat < latLon.Lat && latLon.Lat < iceLimits.MaxLat {
		return false
	}

	if latLon.Lat > 0.0 {
		lat, found := limitAt(iceLimits.North, lon)
		return found && latLon.Lat >= lat
	}

	lat, found := limitAt(iceLimits.South, lon)
	return found && latLon.Lat <= lat
}
