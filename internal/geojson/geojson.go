// Package geojson renders features, closer loops and road networks as
// GeoJSON feature collections.
package geojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/feature"
	"github.com/wegman-software/osmmaps-go/internal/geo"
	"github.com/wegman-software/osmmaps-go/internal/network"
)

func lineString(pts []geo.LatLon) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}

func polygon(pts []geo.LatLon) orb.Polygon {
	ring := slices.Clone([]orb.Point(lineString(pts)))
	if len(ring) > 0 && ring[len(ring)-1] != ring[0] {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{orb.Ring(ring)}
}

// FromFeatures builds a collection with polygons for area features and
// linestrings for everything else
func FromFeatures(features []feature.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		var g orb.Geometry
		if f.IsArea() {
			g = polygon(f.Points)
		} else {
			g = lineString(f.Points)
		}
		gf := geojson.NewFeature(g)
		gf.ID = f.ID
		gf.Properties["osm_id"] = f.ID
		gf.Properties["osm_type"] = string(f.EntityType)
		gf.Properties["type"] = f.Type.String()
		gf.Properties["name"] = f.Name
		gf.Properties["bounded"] = f.Bounded
		fc.Append(gf)
	}
	return fc
}

// FromLoops builds one polygon per closed loop
func FromLoops(loops []closer.Loop) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, l := range loops {
		gf := geojson.NewFeature(polygon(l.Points))
		gf.ID = i
		gf.Properties["bounded"] = l.Bounded
		gf.Properties["ways"] = l.Ways
		fc.Append(gf)
	}
	return fc
}

// FromNetwork builds one linestring per street segment
func FromNetwork(n *network.Network) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range n.Segments {
		gf := geojson.NewFeature(lineString(n.Path(s.ID)))
		gf.ID = s.ID
		gf.Properties["way_id"] = int64(s.WayID)
		gf.Properties["street"] = n.Streets[s.Street]
		gf.Properties["oneway"] = s.OneWay.String()
		gf.Properties["maxspeed"] = s.MaxSpeed
		fc.Append(gf)
	}
	return fc
}

// Write encodes fc to w, tab-indented unless compact is set
func Write(w io.Writer, fc *geojson.FeatureCollection, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "\t")
	}
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	return nil
}

// WriteFile writes fc to path; "-" writes to stdout
func WriteFile(path string, fc *geojson.FeatureCollection, compact bool) error {
	if path == "" || path == "-" {
		return Write(os.Stdout, fc, compact)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, fc, compact); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
