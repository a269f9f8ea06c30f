package geo

import (
	"fmt"
	"math"
)

// MetresPerDegreeLat is one nautical mile per arc minute of latitude.
const MetresPerDegreeLat = 1852.0 * 60.0

// LatLon is a geographic point in decimal degrees
type LatLon struct {
	Lat float64
	Lon float64
}

// NaN returns the "unset" point
func NaN() LatLon {
	return LatLon{Lat: math.NaN(), Lon: math.NaN()}
}

// IsNaN reports whether either coordinate is unset
func (p LatLon) IsNaN() bool {
	return math.IsNaN(p.Lat) || math.IsNaN(p.Lon)
}

func (p LatLon) String() string {
	return fmt.Sprintf("(%.7f,%.7f)", p.Lat, p.Lon)
}

// Cosd returns the cosine of an angle given in degrees
func Cosd(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180.0)
}

// Bounds is a lat/lon rectangle given by its southwest and northeast corners
type Bounds struct {
	Min LatLon // southwest
	Max LatLon // northeast
}

// NewBounds returns the rectangle spanned by two corners in any order
func NewBounds(a, b LatLon) Bounds {
	return Bounds{
		Min: LatLon{Lat: math.Min(a.Lat, b.Lat), Lon: math.Min(a.Lon, b.Lon)},
		Max: LatLon{Lat: math.Max(a.Lat, b.Lat), Lon: math.Max(a.Lon, b.Lon)},
	}
}

// EmptyBounds returns bounds that any call to Extend will replace
func EmptyBounds() Bounds {
	return Bounds{Min: NaN(), Max: NaN()}
}

// IsValid reports whether both corners are set and ordered
func (b Bounds) IsValid() bool {
	if b.Min.IsNaN() || b.Max.IsNaN() {
		return false
	}
	return b.Min.Lat <= b.Max.Lat && b.Min.Lon <= b.Max.Lon
}

// Extend grows the bounds to include p
func (b Bounds) Extend(p LatLon) Bounds {
	if p.IsNaN() {
		return b
	}
	if b.Min.IsNaN() || b.Max.IsNaN() {
		return Bounds{Min: p, Max: p}
	}
	return Bounds{
		Min: LatLon{Lat: math.Min(b.Min.Lat, p.Lat), Lon: math.Min(b.Min.Lon, p.Lon)},
		Max: LatLon{Lat: math.Max(b.Max.Lat, p.Lat), Lon: math.Max(b.Max.Lon, p.Lon)},
	}
}

// Contains checks if a point is within the bounds (edges included)
func (b Bounds) Contains(p LatLon) bool {
	return p.Lat >= b.Min.Lat && p.Lat <= b.Max.Lat && p.Lon >= b.Min.Lon && p.Lon <= b.Max.Lon
}

// Width is the east-west extent in degrees
func (b Bounds) Width() float64 { return b.Max.Lon - b.Min.Lon }

// Height is the north-south extent in degrees
func (b Bounds) Height() float64 { return b.Max.Lat - b.Min.Lat }

// Corner returns the requested corner of the rectangle
func (b Bounds) Corner(c Intercardinal) LatLon {
	switch c {
	case Northeast:
		return b.Max
	case Southeast:
		return LatLon{Lat: b.Min.Lat, Lon: b.Max.Lon}
	case Southwest:
		return b.Min
	default:
		return LatLon{Lat: b.Max.Lat, Lon: b.Min.Lon}
	}
}

// Corners returns the rectangle as a closed clockwise ring starting at the northwest corner
func (b Bounds) Corners() []LatLon {
	return []LatLon{
		b.Corner(Northwest),
		b.Corner(Northeast),
		b.Corner(Southeast),
		b.Corner(Southwest),
		b.Corner(Northwest),
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("%s-%s", b.Min, b.Max)
}
