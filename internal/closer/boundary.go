package closer

import (
	"math"

	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// edgeDistances returns the distance in metres from p to each edge of b,
// indexed by geo.Cardinal.
func edgeDistances(b geo.Bounds, p geo.LatLon) [4]float64 {
	lonScale := geo.Cosd(p.Lat) * geo.MetresPerDegreeLat
	return [4]float64{
		geo.North: math.Abs(b.Max.Lat-p.Lat) * geo.MetresPerDegreeLat,
		geo.East:  math.Abs((b.Max.Lon - p.Lon) * lonScale),
		geo.South: math.Abs(p.Lat-b.Min.Lat) * geo.MetresPerDegreeLat,
		geo.West:  math.Abs((p.Lon - b.Min.Lon) * lonScale),
	}
}

// nearestEdge picks the closest edge. Ties go to the earlier edge in
// north, east, south, west order.
func nearestEdge(b geo.Bounds, p geo.LatLon) (geo.Cardinal, float64) {
	dists := edgeDistances(b, p)
	best := geo.North
	for e := geo.East; e <= geo.West; e++ {
		if dists[e] < dists[best] {
			best = e
		}
	}
	return best, dists[best]
}

// snapToEdge moves p onto edge e, clamped to the rectangle
func snapToEdge(b geo.Bounds, e geo.Cardinal, p geo.LatLon) geo.LatLon {
	lat := clamp(p.Lat, b.Min.Lat, b.Max.Lat)
	lon := clamp(p.Lon, b.Min.Lon, b.Max.Lon)
	switch e {
	case geo.North:
		return geo.LatLon{Lat: b.Max.Lat, Lon: lon}
	case geo.East:
		return geo.LatLon{Lat: lat, Lon: b.Max.Lon}
	case geo.South:
		return geo.LatLon{Lat: b.Min.Lat, Lon: lon}
	default:
		return geo.LatLon{Lat: lat, Lon: b.Min.Lon}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// clockwiseDistance orders points on the perimeter of b, starting from the
// northwest corner and increasing clockwise. Units are degrees of perimeter.
func clockwiseDistance(b geo.Bounds, loc geo.Principal, p geo.LatLon) float64 {
	ew := b.Width()
	ns := b.Height()
	switch loc {
	case geo.North.Principal():
		return p.Lon - b.Min.Lon
	case geo.Northeast.Principal():
		return ew
	case geo.East.Principal():
		return ew + b.Max.Lat - p.Lat
	case geo.Southeast.Principal():
		return ew + ns
	case geo.South.Principal():
		return ew + ns + b.Max.Lon - p.Lon
	case geo.Southwest.Principal():
		return 2*ew + ns
	case geo.West.Principal():
		return 2*ew + ns + p.Lat - b.Min.Lat
	default: // northwest
		return 0
	}
}

func (c *Closer) newCornerSegment(corner geo.Intercardinal) int {
	loc := corner.Principal()
	p := c.bounds.Corner(corner)
	return c.addSegment(segment{
		kind:   boundarySegment,
		loc:    loc,
		point:  p,
		cwDist: clockwiseDistance(c.bounds, loc, p),
	})
}

// closeEndpointsToBoundary snaps each unresolved end to its nearest edge and
// links the way to a new boundary point there.
func (c *Closer) closeEndpointsToBoundary() {
	var left []endpoint
	for _, e := range c.unresolved {
		w := c.ways[c.segs[e.seg].way]
		p := w.Points[len(w.Points)-1]
		if e.first {
			p = w.Points[0]
		}

		edge, dist := nearestEdge(c.bounds, p)
		if !(dist < c.maxDist) {
			c.report(DistanceRejected, w.ID, "end at %s is %.0fm from the %s edge, limit %.0fm", p, dist, edge.Principal(), c.maxDist)
			left = append(left, e)
			continue
		}

		loc := edge.Principal()
		snapped := snapToEdge(c.bounds, edge, p)
		isStart := c.head(e)
		bp := c.addSegment(segment{
			kind:     boundarySegment,
			loc:      loc,
			point:    snapped,
			edgeDist: dist,
			cwDist:   clockwiseDistance(c.bounds, loc, snapped),
			isStart:  isStart,
			isEnd:    !isStart,
		})
		c.boundary = append(c.boundary, bp)

		var ok bool
		if isStart {
			ok = c.link(bp, e.seg)
		} else {
			ok = c.link(e.seg, bp)
		}
		if !ok {
			c.report(InvariantViolation, w.ID, "cannot link %s with %s", c.describe(e.seg), c.describe(bp))
			left = append(left, e)
		}
	}
	c.unresolved = left

	c.log.Debug("Snapped endpoints to boundary",
		zap.Int("boundary_points", len(c.boundary)),
		zap.Int("rejected", len(left)))
}
