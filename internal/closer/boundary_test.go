package closer

import (
	"math"
	"testing"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

func TestNearestEdge(t *testing.T) {
	tests := []struct {
		name string
		p    geo.LatLon
		want geo.Cardinal
	}{
		{"north", ll(9.5, 5), geo.North},
		{"east", ll(5, 9.5), geo.East},
		{"south", ll(0.5, 5), geo.South},
		{"west", ll(5, 0.5), geo.West},
		{"outside north", ll(10.2, 5), geo.North},
		{"tie goes north", ll(10, 10), geo.North},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := nearestEdge(testBounds, tt.p)
			if got != tt.want {
				t.Errorf("nearestEdge(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestEdgeDistancesScaleLongitude(t *testing.T) {
	b := geo.NewBounds(ll(59, 0), ll(61, 2))
	d := edgeDistances(b, ll(60, 1))

	wantLat := geo.MetresPerDegreeLat
	if math.Abs(d[geo.North]-wantLat) > 1e-6 {
		t.Errorf("north distance = %f, want %f", d[geo.North], wantLat)
	}
	// one degree of longitude at 60N is half a degree of latitude
	if math.Abs(d[geo.East]-wantLat/2) > 1e-6 {
		t.Errorf("east distance = %f, want %f", d[geo.East], wantLat/2)
	}
}

func TestClockwiseDistance(t *testing.T) {
	n, e, s, w := geo.North.Principal(), geo.East.Principal(), geo.South.Principal(), geo.West.Principal()
	tests := []struct {
		name string
		loc  geo.Principal
		p    geo.LatLon
		want float64
	}{
		{"north edge", n, ll(10, 3), 3},
		{"northeast corner", geo.Northeast.Principal(), ll(10, 10), 10},
		{"east edge", e, ll(7, 10), 13},
		{"southeast corner", geo.Southeast.Principal(), ll(0, 10), 20},
		{"south edge", s, ll(0, 4), 26},
		{"southwest corner", geo.Southwest.Principal(), ll(0, 0), 30},
		{"west edge", w, ll(2, 0), 32},
		{"northwest corner", geo.Northwest.Principal(), ll(10, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clockwiseDistance(testBounds, tt.loc, tt.p); got != tt.want {
				t.Errorf("clockwiseDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapToEdgeClamps(t *testing.T) {
	got := snapToEdge(testBounds, geo.North, ll(10.5, 12))
	if want := ll(10, 10); got != want {
		t.Errorf("snapToEdge = %v, want %v", got, want)
	}
}

func TestWalkOrderCorners(t *testing.T) {
	tests := []struct {
		name string
		dir  Direction
		at   geo.LatLon // single east edge point
		want []geo.Principal
	}{
		{
			name: "cw",
			dir:  CW,
			at:   ll(5, 9.9),
			want: []geo.Principal{7, 1, 2, 3, 5},
		},
		{
			name: "ccw",
			dir:  CCW,
			at:   ll(5, 9.9),
			want: []geo.Principal{7, 5, 3, 2, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Closer{bounds: testBounds, dir: tt.dir}
			bp := c.addSegment(segment{
				kind:   boundarySegment,
				loc:    geo.East.Principal(),
				point:  ll(5, 10),
				cwDist: clockwiseDistance(testBounds, geo.East.Principal(), ll(5, 10)),
				isEnd:  true,
			})
			c.boundary = []int{bp}

			order := c.walkOrder()
			if len(order) != len(tt.want) {
				t.Fatalf("walk has %d points, want %d", len(order), len(tt.want))
			}
			for i, s := range order {
				if c.segs[s].loc != tt.want[i] {
					t.Errorf("walk[%d] = %v, want %v", i, c.segs[s].loc, tt.want[i])
				}
			}
		})
	}
}
