package closer

import (
	"cmp"
	"slices"

	"go.uber.org/zap"
)

// endpoint is one end of a way waiting to be linked
type endpoint struct {
	node  int64
	first bool // way's first node, before any reversal
	seg   int
}

// head reports whether the endpoint currently starts its segment
func (c *Closer) head(e endpoint) bool {
	return e.first != c.segs[e.seg].reversed
}

func (c *Closer) wayID(seg int) int64 {
	return c.ways[c.segs[seg].way].ID
}

// matchEndpointsByNodeID links pairs of ends sharing a node. Whatever
// cannot be paired stays in c.unresolved.
func (c *Closer) matchEndpointsByNodeID() {
	eps := c.unresolved
	slices.SortStableFunc(eps, func(a, b endpoint) int {
		if r := cmp.Compare(a.node, b.node); r != 0 {
			return r
		}
		// last ends sort before first ends
		switch {
		case a.first == b.first:
			return 0
		case !a.first:
			return -1
		default:
			return 1
		}
	})

	var left []endpoint
	for i := 0; i < len(eps); {
		j := i + 1
		for j < len(eps) && eps[j].node == eps[i].node {
			j++
		}
		run := eps[i:j]
		i = j

		switch len(run) {
		case 1:
			c.report(LonelyTerminal, c.wayID(run[0].seg), "node %d is not shared with another way", run[0].node)
			left = append(left, run[0])
		case 2:
			if !c.matchPair(run[0], run[1]) {
				left = append(left, run...)
			}
		default:
			ways := make([]int64, len(run))
			for k, e := range run {
				ways[k] = c.wayID(e.seg)
			}
			c.report(TopologyAnomaly, ways[0], "%d way ends meet at node %d (ways %v)", len(run), run[0].node, ways)
			left = append(left, run...)
		}
	}
	c.unresolved = left

	c.log.Debug("Matched endpoints",
		zap.Int("endpoints", len(eps)),
		zap.Int("unresolved", len(left)))
}

func (c *Closer) matchPair(a, b endpoint) bool {
	if a.seg == b.seg {
		if !c.linkSelf(a.seg) {
			c.report(InvariantViolation, c.wayID(a.seg), "cannot close way on itself at node %d", a.node)
			return false
		}
		return true
	}

	if c.head(a) == c.head(b) {
		c.report(OrientationMismatch, c.wayID(a.seg),
			"ways %d and %d meet at node %d with the same orientation", c.wayID(a.seg), c.wayID(b.seg), a.node)
		if a.first {
			c.reverseChain(a.seg)
		} else {
			c.reverseChain(b.seg)
		}
		if c.head(a) == c.head(b) {
			c.report(InvariantViolation, c.wayID(a.seg), "orientation still mismatched at node %d after reversal", a.node)
			return false
		}
	}

	from, to := a.seg, b.seg
	if c.head(a) {
		from, to = b.seg, a.seg
	}
	if !c.link(from, to) {
		c.report(InvariantViolation, c.wayID(from), "cannot link %s to %s at node %d", c.describe(from), c.describe(to), a.node)
		return false
	}
	return true
}
