package network

import (
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// indexedIntersection wraps an intersection for R-tree storage. Coordinates
// are projected to metres so tree distances are comparable in both axes.
type indexedIntersection struct {
	id int
	pt rtreego.Point
}

// Bounds implements rtreego.Spatial. The tree needs non-zero extents.
func (i *indexedIntersection) Bounds() rtreego.Rect {
	const epsilon = 0.01
	rect, _ := rtreego.NewRect(i.pt, []float64{epsilon, epsilon})
	return rect
}

func (n *Network) point(p geo.LatLon) rtreego.Point {
	xy := n.proj.Project(p)
	return rtreego.Point{xy.X(), xy.Y()}
}

func (n *Network) buildIndex() {
	n.index = rtreego.NewTree(2, 25, 50)
	for _, in := range n.Intersections {
		n.index.Insert(&indexedIntersection{id: in.ID, pt: n.point(in.Point)})
	}
}

// Nearest returns the intersection closest to p. ok is false for an empty
// network.
func (n *Network) Nearest(p geo.LatLon) (Intersection, bool) {
	if n.index == nil || n.index.Size() == 0 {
		return Intersection{}, false
	}
	s, ok := n.index.NearestNeighbor(n.point(p)).(*indexedIntersection)
	if !ok {
		return Intersection{}, false
	}
	return n.Intersections[s.id], true
}

// Within returns the intersections inside bounds
func (n *Network) Within(b geo.Bounds) []Intersection {
	if n.index == nil || !b.IsValid() {
		return nil
	}
	lo, hi := n.point(b.Min), n.point(b.Max)
	rect, err := rtreego.NewRect(lo, []float64{hi[0] - lo[0] + 0.01, hi[1] - lo[1] + 0.01})
	if err != nil {
		return nil
	}
	var out []Intersection
	for _, s := range n.index.SearchIntersect(rect) {
		out = append(out, n.Intersections[s.(*indexedIntersection).id])
	}
	slices.SortFunc(out, func(a, b Intersection) int { return a.ID - b.ID })
	return out
}
