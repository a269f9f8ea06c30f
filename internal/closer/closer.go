// Package closer stitches way fragments into closed loops.
//
// Fragments that share an OSM node at their ends are joined directly. Ends
// that remain open are snapped to the nearest edge of the map bounds and
// joined by walking around the bounds rectangle, adding corner points where
// the walk turns a corner. A loop that needed the rectangle is unbounded: the
// real feature extends past the extract.
package closer

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// Direction selects how open ends are joined around the bounds
type Direction int8

const (
	CCW  Direction = -1
	None Direction = 0 // do not add boundary points
	CW   Direction = 1
)

func (d Direction) String() string {
	switch d {
	case CW:
		return "cw"
	case CCW:
		return "ccw"
	case None:
		return "none"
	default:
		return fmt.Sprintf("Direction(%d)", int8(d))
	}
}

// ParseDirection parses "cw", "ccw" or "none"
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cw", "clockwise":
		return CW, nil
	case "ccw", "counterclockwise", "anticlockwise":
		return CCW, nil
	case "none", "":
		return None, nil
	default:
		return None, fmt.Errorf("invalid closing direction %q (expected cw, ccw or none)", s)
	}
}

// Boundedness filters loops by whether they touch the bounds
type Boundedness int

const (
	All Boundedness = iota
	Bounded
	Unbounded
)

// Way is one input fragment. NodeIDs and Points run in parallel; only the
// first and last node IDs take part in matching.
type Way struct {
	ID      int64
	NodeIDs []int64
	Points  []geo.LatLon
}

// Loop is one closed output ring
type Loop struct {
	Points  []geo.LatLon
	Bounded bool
	Ways    []int64 // OSM IDs of the member ways in ring order
}

// Option configures a Closer
type Option func(*Closer)

// WithDirection sets the boundary closing direction (default CW)
func WithDirection(d Direction) Option {
	return func(c *Closer) { c.dir = d }
}

// WithMaxBoundaryDistance rejects boundary snaps longer than metres
func WithMaxBoundaryDistance(metres float64) Option {
	return func(c *Closer) { c.maxDist = metres }
}

// WithLogger routes per-step logging to log
func WithLogger(log *zap.Logger) Option {
	return func(c *Closer) {
		if log != nil {
			c.log = log
		}
	}
}

// Closer joins a set of ways into loops. It runs to completion in New and is
// read-only afterwards.
type Closer struct {
	bounds  geo.Bounds
	dir     Direction
	maxDist float64
	log     *zap.Logger

	ways   []Way
	usable []bool

	// segs holds one way segment per input way at the same index, followed by
	// boundary point segments.
	segs []segment

	unresolved []endpoint
	boundary   []int
	loops      []int
	added      []bool

	diags []Diagnostic
}

// New builds loops from ways within bounds
func New(bounds geo.Bounds, ways []Way, opts ...Option) *Closer {
	c := &Closer{
		bounds:  bounds,
		dir:     CW,
		maxDist: math.Inf(1),
		log:     zap.NewNop(),
		ways:    ways,
		usable:  make([]bool, len(ways)),
		segs:    make([]segment, len(ways), segmentCapacity(len(ways))),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.unresolved = make([]endpoint, 0, 2*len(ways))
	for i, w := range ways {
		c.segs[i] = newWaySegment(i)

		if len(w.Points) < 2 || len(w.NodeIDs) < 2 {
			c.report(InvalidWay, w.ID, "way has fewer than two points")
			continue
		}
		c.usable[i] = true
		c.unresolved = append(c.unresolved,
			endpoint{node: w.NodeIDs[0], first: true, seg: i},
			endpoint{node: w.NodeIDs[len(w.NodeIDs)-1], first: false, seg: i},
		)
	}

	c.matchEndpointsByNodeID()
	if c.dir != None {
		if !c.bounds.IsValid() {
			c.log.Warn("Bounds not set, skipping boundary closing", zap.Stringer("bounds", c.bounds))
		} else {
			c.closeEndpointsToBoundary()
			c.closeAroundBoundary()
		}
	}
	c.buildLoops()

	return c
}

// Direction returns the closing direction in use
func (c *Closer) Direction() Direction { return c.dir }

// Diagnostics returns everything unusual seen while closing, in order
func (c *Closer) Diagnostics() []Diagnostic { return c.diags }

// segmentCapacity is the most segments n ways can need: one per way, a
// boundary point per way end and the four corners.
func segmentCapacity(n int) int {
	return 3*n + 4
}
