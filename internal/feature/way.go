package feature

import (
	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
)

// Classifier decides the feature type of a way. ok=false defers to the
// built-in rules.
type Classifier interface {
	ClassifyWay(w *osm.Way, closed bool) (typeName string, ok bool, err error)
}

// WayFactory makes features from single ways
type WayFactory struct {
	db         *osmdb.Database
	classifier Classifier
}

func NewWayFactory(db *osmdb.Database, classifier Classifier) *WayFactory {
	return &WayFactory{db: db, classifier: classifier}
}

// Classify applies the built-in tag rules. The first matching key decides;
// highway, tourism and amenity ways are never features.
func Classify(tags osm.Tags, closed bool) Type {
	if v := tags.Find("highway"); v != "" {
		return Unknown
	}
	if v := tags.Find("building"); v != "" {
		return Building
	}
	if v := tags.Find("natural"); v != "" {
		switch v {
		case "wood", "wetland", "scrub":
			return Greenspace
		case "water":
			return Lake
		case "beach":
			return Beach
		}
		return Unknown
	}
	if tags.Find("tourism") != "" || tags.Find("amenity") != "" {
		return Unknown
	}
	if v := tags.Find("water"); v != "" {
		switch {
		case v == "river":
			return River
		case v == "lake" || v == "pond" || v == "reservoir":
			return Lake
		case closed:
			return River
		default:
			return Stream
		}
	}
	if v := tags.Find("waterway"); v != "" {
		if closed {
			return River
		}
		return Stream
	}
	if v := tags.Find("leisure"); v != "" {
		switch v {
		case "park", "nature_reserve":
			return Park
		case "golf_course":
			return Golfcourse
		}
		return Unknown
	}
	if tags.Find("place") == "island" {
		return Island
	}
	return Unknown
}

// Feature returns the feature for w, or a Feature of type Unknown when w is
// not one. Missing nodes are skipped and reported.
func (f *WayFactory) Feature(w *osm.Way) (Feature, []closer.Diagnostic, error) {
	if len(w.Tags) == 0 {
		return Feature{}, nil, nil
	}
	closed := osmdb.IsClosed(w)

	t := Unknown
	decided := false
	if f.classifier != nil {
		name, ok, err := f.classifier.ClassifyWay(w, closed)
		if err != nil {
			return Feature{}, nil, err
		}
		if ok {
			if t, err = ParseType(name); err != nil {
				return Feature{}, nil, err
			}
			decided = true
		}
	}
	if !decided {
		t = Classify(w.Tags, closed)
	}
	if t == Unknown {
		return Feature{}, nil, nil
	}

	pts, dangling := f.db.ExtractPoly(w)
	var diags []closer.Diagnostic
	for _, id := range dangling {
		diags = append(diags, danglingNode(int64(w.ID), id))
	}

	return Feature{
		ID:         int64(w.ID),
		EntityType: osm.TypeWay,
		Type:       t,
		Name:       Name(w.Tags),
		Points:     pts,
		Bounded:    true,
	}, diags, nil
}
