package proj

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// MidLat is an equirectangular projection in metres around an origin. It is
// accurate enough for areas and distances within a city-sized extract.
type MidLat struct {
	origin geo.LatLon
	cosPhi float64
}

// NewMidLat projects around origin, usually the southwest corner of the map
func NewMidLat(origin geo.LatLon) MidLat {
	return MidLat{origin: origin, cosPhi: geo.Cosd(origin.Lat)}
}

// ForBounds centres the scale factor on the middle latitude of b
func ForBounds(b geo.Bounds) MidLat {
	m := NewMidLat(b.Min)
	m.cosPhi = geo.Cosd((b.Min.Lat + b.Max.Lat) / 2)
	return m
}

// Project returns the position of p in metres east and north of the origin
func (m MidLat) Project(p geo.LatLon) orb.Point {
	return orb.Point{
		(p.Lon - m.origin.Lon) * m.cosPhi * geo.MetresPerDegreeLat,
		(p.Lat - m.origin.Lat) * geo.MetresPerDegreeLat,
	}
}

// Ring projects pts into a closed ring
func (m MidLat) Ring(pts []geo.LatLon) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, m.Project(p))
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Area is the unsigned area of the polygon through pts in square metres
func (m MidLat) Area(pts []geo.LatLon) float64 {
	if len(pts) < 3 {
		return 0
	}
	return math.Abs(planar.Area(m.Ring(pts)))
}

// Length is the length of the line through pts in metres
func (m MidLat) Length(pts []geo.LatLon) float64 {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = m.Project(p)
	}
	return planar.Length(ls)
}
