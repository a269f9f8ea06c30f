package closer

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// walkOrder returns the boundary points sorted in walking order with the
// rectangle's corners inserted where the walk passes them. The northwest
// corner is always first.
func (c *Closer) walkOrder() []int {
	points := slices.Clone(c.boundary)
	slices.SortStableFunc(points, func(a, b int) int {
		r := cmp.Compare(c.segs[a].cwDist, c.segs[b].cwDist)
		if c.dir == CCW {
			r = -r
		}
		return r
	})

	delta, edgeToCorner := 2, 1
	if c.dir == CCW {
		delta, edgeToCorner = -2, -1
	}
	nw := geo.Northwest.Principal()

	order := make([]int, 0, len(points)+4)
	order = append(order, c.newCornerSegment(geo.Northwest))
	corner := nw.Add(delta)

	addCorner := func() {
		ic, _ := corner.Intercardinal()
		order = append(order, c.newCornerSegment(ic))
		corner = corner.Add(delta)
	}

	for _, p := range points {
		loc := c.segs[p].loc
		for corner != nw && loc.Add(edgeToCorner) != corner {
			addCorner()
		}
		order = append(order, p)
	}
	for corner != nw {
		addCorner()
	}
	return order
}

// closeAroundBoundary connects every end boundary point to the next start
// boundary point in walking order, through any corners in between.
func (c *Closer) closeAroundBoundary() {
	if len(c.boundary) == 0 {
		return
	}
	order := c.walkOrder()

	first := slices.IndexFunc(order, func(s int) bool { return c.segs[s].isEnd })
	if first < 0 {
		c.report(TraversalAnomaly, 0, "no boundary point leaves the rectangle")
		return
	}

	pending := noLink
	connected := 0
	for k := range order {
		s := order[(first+k)%len(order)]
		seg := &c.segs[s]

		switch {
		case seg.isStart:
			if pending == noLink {
				c.report(TraversalAnomaly, 0, "%s reached with no open connection", c.describe(s))
				continue
			}
			if !c.link(pending, s) {
				c.report(InvariantViolation, 0, "cannot link %s to %s", c.describe(pending), c.describe(s))
			} else {
				connected++
			}
			pending = noLink
		case seg.isEnd:
			if pending != noLink {
				c.report(TraversalAnomaly, 0, "%s reached while %s is still open", c.describe(s), c.describe(pending))
				continue
			}
			pending = s
		default:
			if pending == noLink {
				continue
			}
			if !c.link(pending, s) {
				c.report(InvariantViolation, 0, "cannot link %s to corner %s", c.describe(pending), c.describe(s))
				pending = noLink
				continue
			}
			pending = s
		}
	}
	if pending != noLink {
		c.report(TraversalAnomaly, 0, "boundary walk ended with %s still open", c.describe(pending))
	}

	c.log.Debug("Closed around boundary",
		zap.Stringer("direction", c.dir),
		zap.Int("walk_points", len(order)),
		zap.Int("connections", connected))
}
