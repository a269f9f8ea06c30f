package closer

import (
	"fmt"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

const noLink = -1

type segmentKind uint8

const (
	waySegment segmentKind = iota
	boundarySegment
)

// segment is one link in a loop chain: either a whole way, or a single
// synthetic point on the bounds. Links are arena indices.
type segment struct {
	kind segmentKind
	next int
	prev int

	// way segment
	way      int
	reversed bool

	// boundary point segment
	loc      geo.Principal // edge for snapped ends, corner otherwise
	point    geo.LatLon
	edgeDist float64 // metres from the snapped way end
	cwDist   float64 // clockwise distance from the northwest corner
	isStart  bool    // precedes a way's first point
	isEnd    bool    // follows a way's last point
}

func newWaySegment(way int) segment {
	return segment{kind: waySegment, next: noLink, prev: noLink, way: way}
}

func (c *Closer) addSegment(s segment) int {
	s.next, s.prev = noLink, noLink
	c.segs = append(c.segs, s)
	return len(c.segs) - 1
}

// link makes b follow a. It fails without changes if a already has a
// successor or b a predecessor.
func (c *Closer) link(a, b int) bool {
	if a == noLink || b == noLink {
		return false
	}
	if c.segs[a].next != noLink || c.segs[b].prev != noLink {
		return false
	}
	c.segs[a].next = b
	c.segs[b].prev = a
	return true
}

func (c *Closer) linkSelf(s int) bool {
	return c.link(s, s)
}

// reverseChain flips the orientation of every segment in the open chain
// containing s.
func (c *Closer) reverseChain(s int) {
	head := s
	for steps := 0; c.segs[head].prev != noLink && steps < len(c.segs); steps++ {
		head = c.segs[head].prev
		if head == s {
			// closed loops have no orientation to fix
			return
		}
	}

	var chain []int
	for i, steps := head, 0; i != noLink && steps < len(c.segs); i, steps = c.segs[i].next, steps+1 {
		chain = append(chain, i)
	}
	for _, i := range chain {
		seg := &c.segs[i]
		seg.next, seg.prev = seg.prev, seg.next
		if seg.kind == waySegment {
			seg.reversed = !seg.reversed
		}
	}
}

// closedLoop reports whether following next links, and prev links, from s
// both return to s.
func (c *Closer) closedLoop(s int) bool {
	return c.walkReturns(s, func(i int) int { return c.segs[i].next }) &&
		c.walkReturns(s, func(i int) int { return c.segs[i].prev })
}

func (c *Closer) walkReturns(s int, step func(int) int) bool {
	i := step(s)
	for n := 0; n < len(c.segs); n++ {
		switch i {
		case noLink:
			return false
		case s:
			return true
		}
		i = step(i)
	}
	return false
}

// appendPoints adds the points of segment s to dst in chain order
func (c *Closer) appendPoints(dst []geo.LatLon, s int) []geo.LatLon {
	seg := &c.segs[s]
	if seg.kind == boundarySegment {
		return append(dst, seg.point)
	}
	pts := c.ways[seg.way].Points
	if !seg.reversed {
		return append(dst, pts...)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		dst = append(dst, pts[i])
	}
	return dst
}

func (c *Closer) describe(s int) string {
	seg := &c.segs[s]
	if seg.kind == waySegment {
		r := ""
		if seg.reversed {
			r = "R"
		}
		return fmt.Sprintf("S%d%s", seg.way, r)
	}
	role := "corner"
	switch {
	case seg.isStart:
		role = "start"
	case seg.isEnd:
		role = "end"
	}
	return fmt.Sprintf("[%s point %s %s]", role, seg.point, seg.loc)
}
