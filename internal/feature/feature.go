// Package feature turns OSM ways and relations into named map features such
// as lakes, parks and islands. Multipolygon relations and coastlines are
// closed into rings with the closer package.
package feature

import (
	"fmt"
	"strings"

	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/geo"
	"github.com/wegman-software/osmmaps-go/internal/proj"
)

// Type is the kind of map feature
type Type uint8

const (
	Unknown Type = iota
	Park
	Beach
	Lake
	River
	Island
	Shoreline
	Building
	Greenspace
	Golfcourse
	Stream
)

var typeNames = [...]string{
	Unknown:    "unknown",
	Park:       "park",
	Beach:      "beach",
	Lake:       "lake",
	River:      "river",
	Island:     "island",
	Shoreline:  "shoreline",
	Building:   "building",
	Greenspace: "greenspace",
	Golfcourse: "golfcourse",
	Stream:     "stream",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType accepts the names returned by Type.String
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "golf_course" || s == "golf course" {
		return Golfcourse, nil
	}
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown feature type %q", s)
}

// NoName is used for features without a name tag
const NoName = "<noname>"

// Feature is one named map feature
type Feature struct {
	ID         int64
	EntityType osm.Type
	Type       Type
	Name       string
	Points     []geo.LatLon
	// Bounded is false when the feature was cut off by the map bounds and
	// closed along them.
	Bounded bool
}

// IsWater reports whether the feature is open water
func (f Feature) IsWater() bool {
	return f.Type == Lake || f.Type == River
}

// IsArea reports whether the feature should be drawn as a polygon
func (f Feature) IsArea() bool {
	return f.Type != Stream && f.Type != Shoreline && len(f.Points) >= 3
}

// Area returns the area in square metres, or 0 for lines
func (f Feature) Area() float64 {
	if !f.IsArea() {
		return 0
	}
	b := geo.EmptyBounds()
	for _, p := range f.Points {
		b = b.Extend(p)
	}
	return proj.ForBounds(b).Area(f.Points)
}

func (f Feature) String() string {
	return fmt.Sprintf("%s %s/%d %q (%d points, bounded=%t)", f.Type, f.EntityType, f.ID, f.Name, len(f.Points), f.Bounded)
}

// Name picks name:en, then name
func Name(tags osm.Tags) string {
	if n := tags.Find("name:en"); n != "" {
		return n
	}
	if n := tags.Find("name"); n != "" {
		return n
	}
	return NoName
}
