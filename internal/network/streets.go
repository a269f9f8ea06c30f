package network

import (
	"slices"
	"strings"

	"github.com/paulmach/osm"
)

// assignStreets groups segments into streets. Starting from each unassigned
// named segment, the street floods outward through intersections along
// segments of the same way or with the same name.
func (b *builder) assignStreets() {
	b.Streets = []string{UnknownStreet}
	names := make(map[osm.WayID]string)
	nameOf := func(id osm.WayID) string {
		if s, ok := names[id]; ok {
			return s
		}
		var s string
		if w, ok := b.db.Way(id); ok {
			s = streetName(w.Tags)
		}
		names[id] = s
		return s
	}

	type visit struct {
		v   int
		way osm.WayID
	}
	for i := range b.Segments {
		seed := &b.Segments[i]
		if seed.Street != 0 {
			continue
		}
		name := nameOf(seed.WayID)
		if name == "" {
			continue
		}
		street := len(b.Streets)
		b.Streets = append(b.Streets, name)
		seed.Street = street

		stack := []visit{{seed.From, seed.WayID}, {seed.To, seed.WayID}}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, id := range b.Intersections[cur.v].Segments {
				s := &b.Segments[id]
				if s.Street != 0 {
					continue
				}
				if s.WayID != cur.way && nameOf(s.WayID) != name {
					continue
				}
				s.Street = street
				stack = append(stack, visit{s.Other(cur.v), s.WayID})
			}
		}
	}
}

func streetName(tags osm.Tags) string {
	if s := tags.Find("name:en"); s != "" {
		return s
	}
	return tags.Find("name")
}

// IntersectionName joins the distinct street names meeting at an
// intersection with " & ", in street order
func (n *Network) IntersectionName(id int) string {
	var streets []int
	for _, s := range n.Intersections[id].Segments {
		streets = append(streets, n.Segments[s].Street)
	}
	slices.Sort(streets)
	streets = slices.Compact(streets)

	names := make([]string, len(streets))
	for i, s := range streets {
		names[i] = n.Streets[s]
	}
	return strings.Join(names, " & ")
}

// StreetSegments returns the segment IDs belonging to a street
func (n *Network) StreetSegments(street int) []int {
	var ids []int
	for _, s := range n.Segments {
		if s.Street == street {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
