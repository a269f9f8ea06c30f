package osmdb

import (
	"cmp"
	"slices"

	"github.com/paulmach/osm"
)

// TagCount is a tag key or value with the number of entities using it
type TagCount struct {
	Text  string
	Count int
}

func (db *Database) tagsOf(kind osm.Type) []osm.Tags {
	var out []osm.Tags
	switch kind {
	case osm.TypeNode:
		for _, n := range db.nodes {
			out = append(out, n.Tags)
		}
	case osm.TypeWay:
		for _, w := range db.ways {
			out = append(out, w.Tags)
		}
	case osm.TypeRelation:
		for _, r := range db.relations {
			out = append(out, r.Tags)
		}
	}
	return out
}

func sortedCounts(counts map[string]int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for text, n := range counts {
		out = append(out, TagCount{Text: text, Count: n})
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if r := cmp.Compare(b.Count, a.Count); r != 0 {
			return r
		}
		return cmp.Compare(a.Text, b.Text)
	})
	return out
}

// TagKeys counts tag keys used by entities of one kind, most common first
func (db *Database) TagKeys(kind osm.Type) []TagCount {
	counts := make(map[string]int)
	for _, tags := range db.tagsOf(kind) {
		for _, t := range tags {
			counts[t.Key]++
		}
	}
	return sortedCounts(counts)
}

// TagValuesForKey counts the values of key on entities of one kind
func (db *Database) TagValuesForKey(kind osm.Type, key string) []TagCount {
	counts := make(map[string]int)
	for _, tags := range db.tagsOf(kind) {
		if v := tags.Find(key); v != "" {
			counts[v]++
		}
	}
	return sortedCounts(counts)
}
