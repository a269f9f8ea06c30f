package closer

import (
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// buildLoops records the head of every closed chain. Heads are way segments,
// so each loop is found from its lowest way index.
func (c *Closer) buildLoops() {
	c.added = make([]bool, len(c.ways))
	for i := range c.ways {
		if !c.usable[i] || c.added[i] {
			continue
		}
		if !c.closedLoop(i) {
			c.report(Unresolved, c.ways[i].ID, "way is not part of a closed loop")
			continue
		}

		s := i
		for {
			if seg := &c.segs[s]; seg.kind == waySegment {
				if c.added[seg.way] {
					c.report(InvariantViolation, c.ways[seg.way].ID, "way appears in more than one loop")
				}
				c.added[seg.way] = true
			}
			s = c.segs[s].next
			if s == i {
				break
			}
		}
		c.loops = append(c.loops, i)
	}

	c.log.Debug("Built loops",
		zap.Int("ways", len(c.ways)),
		zap.Int("loops", len(c.loops)),
		zap.Int("bounded", c.LoopCount(Bounded)))
}

func (c *Closer) isBounded(head int) bool {
	for s := c.segs[head].next; ; s = c.segs[s].next {
		if c.segs[s].kind == boundarySegment {
			return false
		}
		if s == head {
			return true
		}
	}
}

func (b Boundedness) match(bounded bool) bool {
	switch b {
	case Bounded:
		return bounded
	case Unbounded:
		return !bounded
	default:
		return true
	}
}

// Loops returns the closed loops matching filter
func (c *Closer) Loops(filter Boundedness) []Loop {
	var out []Loop
	for _, head := range c.loops {
		bounded := c.isBounded(head)
		if !filter.match(bounded) {
			continue
		}

		loop := Loop{Bounded: bounded}
		s := head
		for {
			loop.Points = c.appendPoints(loop.Points, s)
			if seg := &c.segs[s]; seg.kind == waySegment {
				loop.Ways = append(loop.Ways, c.ways[seg.way].ID)
			}
			s = c.segs[s].next
			if s == head {
				break
			}
		}
		out = append(out, loop)
	}
	return out
}

// LoopCount returns the number of loops matching filter
func (c *Closer) LoopCount(filter Boundedness) int {
	n := 0
	for _, head := range c.loops {
		if filter.match(c.isBounded(head)) {
			n++
		}
	}
	return n
}

// UnresolvedWays returns the points of every usable way that is not part of
// a loop.
func (c *Closer) UnresolvedWays() [][]geo.LatLon {
	var out [][]geo.LatLon
	for i, w := range c.ways {
		if c.usable[i] && !c.added[i] {
			out = append(out, w.Points)
		}
	}
	return out
}

// UnresolvedWayIDs returns the OSM IDs of the ways UnresolvedWays reports
func (c *Closer) UnresolvedWayIDs() []int64 {
	var out []int64
	for i, w := range c.ways {
		if c.usable[i] && !c.added[i] {
			out = append(out, w.ID)
		}
	}
	return out
}
