package closer

import (
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wegman-software/osmmaps-go/internal/geo"
)

var testBounds = geo.NewBounds(geo.LatLon{Lat: 0, Lon: 0}, geo.LatLon{Lat: 10, Lon: 10})

func ll(lat, lon float64) geo.LatLon { return geo.LatLon{Lat: lat, Lon: lon} }

func newWay(id int64, nodes []int64, pts ...geo.LatLon) Way {
	return Way{ID: id, NodeIDs: nodes, Points: pts}
}

func countKind(diags []Diagnostic, kind DiagnosticKind) int {
	return CountDiagnostics(diags)[kind]
}

// checkRoundTrip verifies every loop holds all points of its ways plus only
// boundary points, and that no way is used twice.
func checkRoundTrip(t *testing.T, c *Closer, ways []Way) {
	t.Helper()
	sizes := make(map[int64]int, len(ways))
	for _, w := range ways {
		sizes[w.ID] = len(w.Points)
	}

	seen := make(map[int64]bool)
	for _, loop := range c.Loops(All) {
		want := 0
		for _, id := range loop.Ways {
			if seen[id] {
				t.Errorf("way %d appears in more than one loop", id)
			}
			seen[id] = true
			want += sizes[id]
		}
		extra := len(loop.Points) - want
		if extra < 0 {
			t.Errorf("loop %v has %d points, fewer than its ways' %d", loop.Ways, len(loop.Points), want)
		}
		if loop.Bounded && extra != 0 {
			t.Errorf("bounded loop %v has %d extra points", loop.Ways, extra)
		}
		if !loop.Bounded && extra == 0 {
			t.Errorf("unbounded loop %v has no boundary points", loop.Ways)
		}
	}
}

func TestSelfClosingWay(t *testing.T) {
	w := newWay(1, []int64{1, 2, 3, 1}, ll(5, 5), ll(5, 6), ll(6, 6), ll(5, 5))
	c := New(testBounds, []Way{w})

	loops := c.Loops(All)
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	if !loops[0].Bounded {
		t.Error("self-closing way should be bounded")
	}
	if !slices.Equal(loops[0].Points, w.Points) {
		t.Errorf("points = %v, want %v", loops[0].Points, w.Points)
	}
	if n := len(c.UnresolvedWays()); n != 0 {
		t.Errorf("got %d unresolved ways, want 0", n)
	}
}

func TestTwoFragmentJoin(t *testing.T) {
	a := newWay(10, []int64{1, 2, 3, 100}, ll(5, 5), ll(5, 6), ll(6, 6), ll(6, 5))
	b := newWay(11, []int64{100, 4, 1}, ll(6, 5), ll(5.5, 4.5), ll(5, 5))
	ways := []Way{a, b}
	c := New(testBounds, ways)

	loops := c.Loops(All)
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	loop := loops[0]
	if !loop.Bounded {
		t.Error("joined loop should be bounded")
	}
	want := append(slices.Clone(a.Points), b.Points...)
	if !slices.Equal(loop.Points, want) {
		t.Errorf("points = %v, want %v", loop.Points, want)
	}
	if !slices.Equal(loop.Ways, []int64{10, 11}) {
		t.Errorf("ways = %v, want [10 11]", loop.Ways)
	}
	if c.LoopCount(Bounded) != 1 || c.LoopCount(Unbounded) != 0 {
		t.Errorf("LoopCount bounded=%d unbounded=%d", c.LoopCount(Bounded), c.LoopCount(Unbounded))
	}
	checkRoundTrip(t, c, ways)
}

func TestBoundaryCompletion(t *testing.T) {
	ne, se, sw, nw := ll(10, 10), ll(0, 10), ll(0, 0), ll(10, 0)

	tests := []struct {
		name string
		way  Way
		want []geo.LatLon
	}{
		{
			name: "short arc",
			way:  newWay(1, []int64{1, 2, 3}, ll(9.9, 8), ll(5, 5), ll(9.9, 2)),
			want: []geo.LatLon{ll(9.9, 8), ll(5, 5), ll(9.9, 2), ll(10, 2), ll(10, 8)},
		},
		{
			name: "long way round",
			way:  newWay(1, []int64{1, 2, 3}, ll(9.9, 2), ll(5, 5), ll(9.9, 8)),
			want: []geo.LatLon{ll(9.9, 2), ll(5, 5), ll(9.9, 8), ll(10, 8), ne, se, sw, nw, ll(10, 2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(testBounds, []Way{tt.way}, WithDirection(CW))

			loops := c.Loops(All)
			if len(loops) != 1 {
				t.Fatalf("got %d loops, want 1 (diagnostics %v)", len(loops), c.Diagnostics())
			}
			if loops[0].Bounded {
				t.Error("boundary-completed loop should be unbounded")
			}
			if !slices.Equal(loops[0].Points, tt.want) {
				t.Errorf("points = %v, want %v", loops[0].Points, tt.want)
			}
			if got := len(c.Loops(Bounded)); got != 0 {
				t.Errorf("Loops(Bounded) returned %d loops", got)
			}
			checkRoundTrip(t, c, []Way{tt.way})
		})
	}
}

func TestOrientationMismatch(t *testing.T) {
	a := newWay(1, []int64{1, 10, 2}, ll(5, 5), ll(5, 6), ll(6, 6))
	b := newWay(2, []int64{1, 20, 2}, ll(5, 5), ll(4, 5), ll(6, 6))
	ways := []Way{a, b}
	c := New(testBounds, ways)

	loops := c.Loops(All)
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	if len(loops[0].Points) != 6 {
		t.Errorf("got %d points, want 6", len(loops[0].Points))
	}
	if !loops[0].Bounded {
		t.Error("loop should be bounded")
	}
	if countKind(c.Diagnostics(), OrientationMismatch) == 0 {
		t.Error("expected an orientation mismatch diagnostic")
	}

	// consecutive points must be continuous across the join
	pts := loops[0].Points
	if pts[2] != pts[3] || pts[5] != pts[0] {
		t.Errorf("loop is not continuous: %v", pts)
	}
	checkRoundTrip(t, c, ways)
}

func TestDistanceThreshold(t *testing.T) {
	w := newWay(7, []int64{1, 2}, ll(5, 5), ll(5, 6))
	c := New(testBounds, []Way{w}, WithMaxBoundaryDistance(1000))

	if n := c.LoopCount(All); n != 0 {
		t.Fatalf("got %d loops, want 0", n)
	}
	unresolved := c.UnresolvedWays()
	if len(unresolved) != 1 || !slices.Equal(unresolved[0], w.Points) {
		t.Errorf("UnresolvedWays() = %v", unresolved)
	}
	if ids := c.UnresolvedWayIDs(); !slices.Equal(ids, []int64{7}) {
		t.Errorf("UnresolvedWayIDs() = %v", ids)
	}
	if n := countKind(c.Diagnostics(), DistanceRejected); n != 2 {
		t.Errorf("got %d distance rejections, want 2", n)
	}
	if n := countKind(c.Diagnostics(), Unresolved); n != 1 {
		t.Errorf("got %d unresolved diagnostics, want 1", n)
	}
}

func groupings(c *Closer) [][]int64 {
	var out [][]int64
	for _, loop := range c.Loops(All) {
		ids := slices.Clone(loop.Ways)
		slices.Sort(ids)
		out = append(out, ids)
	}
	slices.SortFunc(out, func(a, b []int64) int { return slices.Compare(a, b) })
	return out
}

func TestDirectionSymmetry(t *testing.T) {
	ways := []Way{
		newWay(1, []int64{1, 2}, ll(9.9, 2), ll(8, 3)),
		newWay(2, []int64{2, 3}, ll(8, 3), ll(9.9, 4)),
		newWay(3, []int64{5, 6, 7, 5}, ll(3, 3), ll(3, 4), ll(4, 4), ll(3, 3)),
	}

	cw := New(testBounds, ways, WithDirection(CW))
	ccw := New(testBounds, ways, WithDirection(CCW))

	want := [][]int64{{1, 2}, {3}}
	for name, c := range map[string]*Closer{"cw": cw, "ccw": ccw} {
		if got := groupings(c); !slices.EqualFunc(got, want, slices.Equal[[]int64]) {
			t.Errorf("%s groupings = %v, want %v", name, got, want)
		}
		checkRoundTrip(t, c, ways)
	}

	// CW takes the long way round from lon 4 back to lon 2, CCW the short arc
	if n := len(cw.Loops(Unbounded)[0].Points); n != 4+6 {
		t.Errorf("cw unbounded loop has %d points, want 10", n)
	}
	if n := len(ccw.Loops(Unbounded)[0].Points); n != 4+2 {
		t.Errorf("ccw unbounded loop has %d points, want 6", n)
	}
}

func TestDirectionNone(t *testing.T) {
	w := newWay(1, []int64{1, 2, 3}, ll(9.9, 8), ll(5, 5), ll(9.9, 2))
	c := New(testBounds, []Way{w}, WithDirection(None))

	if n := c.LoopCount(All); n != 0 {
		t.Errorf("got %d loops, want 0", n)
	}
	if len(c.boundary) != 0 {
		t.Errorf("got %d boundary points, want 0", len(c.boundary))
	}
	if n := countKind(c.Diagnostics(), LonelyTerminal); n != 2 {
		t.Errorf("got %d lonely terminals, want 2", n)
	}
}

func TestTopologyAnomaly(t *testing.T) {
	ways := []Way{
		newWay(1, []int64{1, 2}, ll(5, 5), ll(5, 6)),
		newWay(2, []int64{1, 3}, ll(5, 5), ll(6, 5)),
		newWay(3, []int64{4, 1}, ll(4, 5), ll(5, 5)),
	}
	c := New(testBounds, ways, WithDirection(None))

	if n := countKind(c.Diagnostics(), TopologyAnomaly); n != 1 {
		t.Errorf("got %d topology anomalies, want 1", n)
	}
	if n := len(c.UnresolvedWays()); n != 3 {
		t.Errorf("got %d unresolved ways, want 3", n)
	}
}

func TestInvalidWaySkipped(t *testing.T) {
	ways := []Way{
		newWay(1, []int64{1}, ll(5, 5)),
		newWay(2, []int64{1, 2, 3, 1}, ll(5, 5), ll(5, 6), ll(6, 6), ll(5, 5)),
	}
	c := New(testBounds, ways)

	if n := countKind(c.Diagnostics(), InvalidWay); n != 1 {
		t.Errorf("got %d invalid way diagnostics, want 1", n)
	}
	if n := c.LoopCount(All); n != 1 {
		t.Errorf("got %d loops, want 1", n)
	}
	if n := len(c.UnresolvedWays()); n != 0 {
		t.Errorf("invalid ways should not be reported unresolved, got %d", n)
	}
}

func TestBoundaryWalkJoinsFragments(t *testing.T) {
	ne, se, sw, nw := ll(10, 10), ll(0, 10), ll(0, 0), ll(10, 0)

	// way 1 crosses the rectangle west to east, way 2 east to west below it
	crossing := []Way{
		newWay(1, []int64{1, 2}, ll(5, 0.1), ll(5, 9.9)),
		newWay(2, []int64{3, 4}, ll(3, 9.9), ll(3, 0.1)),
	}
	// both ways run north to south, so two ends meet in a row on the
	// south edge and two starts on the north edge
	parallel := []Way{
		newWay(1, []int64{1, 2, 3}, ll(9.9, 2), ll(5, 5), ll(0.1, 5)),
		newWay(2, []int64{4, 5}, ll(9.9, 4), ll(0.1, 6)),
	}

	tests := []struct {
		name           string
		ways           []Way
		dir            Direction
		wantLoops      [][]geo.LatLon
		wantAnomalies  int
		wantUnresolved []int64
	}{
		{
			name: "crossing cw",
			ways: crossing,
			dir:  CW,
			wantLoops: [][]geo.LatLon{
				{ll(5, 0.1), ll(5, 9.9), ll(5, 10), ll(3, 10), ll(3, 9.9), ll(3, 0.1), ll(3, 0), ll(5, 0)},
			},
		},
		{
			name: "crossing ccw",
			ways: crossing,
			dir:  CCW,
			wantLoops: [][]geo.LatLon{
				{ll(5, 0.1), ll(5, 9.9), ll(5, 10), ne, nw, ll(5, 0)},
				{ll(3, 9.9), ll(3, 0.1), ll(3, 0), sw, se, ll(3, 10)},
			},
		},
		{
			name:           "consecutive ends and starts",
			ways:           parallel,
			dir:            CW,
			wantAnomalies:  2,
			wantUnresolved: []int64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(testBounds, tt.ways, WithDirection(tt.dir))

			loops := c.Loops(All)
			if len(loops) != len(tt.wantLoops) {
				t.Fatalf("got %d loops, want %d (diagnostics %v)", len(loops), len(tt.wantLoops), c.Diagnostics())
			}
			for i, loop := range loops {
				if loop.Bounded {
					t.Errorf("loop %d should be unbounded", i)
				}
				if !slices.Equal(loop.Points, tt.wantLoops[i]) {
					t.Errorf("loop %d points = %v, want %v", i, loop.Points, tt.wantLoops[i])
				}
			}
			if n := countKind(c.Diagnostics(), TraversalAnomaly); n != tt.wantAnomalies {
				t.Errorf("got %d traversal anomalies, want %d", n, tt.wantAnomalies)
			}
			if ids := c.UnresolvedWayIDs(); !slices.Equal(ids, tt.wantUnresolved) {
				t.Errorf("UnresolvedWayIDs() = %v, want %v", ids, tt.wantUnresolved)
			}
			checkRoundTrip(t, c, tt.ways)
		})
	}

	// every way end on the boundary plus all four corners fit the arena
	c := New(testBounds, crossing, WithDirection(CW))
	if got, want := cap(c.segs), segmentCapacity(len(crossing)); got != want || len(c.segs) != want {
		t.Errorf("segments len=%d cap=%d, want both %d", len(c.segs), got, want)
	}
	if got := groupings(c); !slices.EqualFunc(got, [][]int64{{1, 2}}, slices.Equal[[]int64]) {
		t.Errorf("cw groupings = %v, want [[1 2]]", got)
	}
}

func TestTraversalWithoutEnd(t *testing.T) {
	// only the first end is near enough to snap, so nothing leaves the rectangle
	w := newWay(1, []int64{1, 2}, ll(9.99, 5), ll(5, 5))
	c := New(testBounds, []Way{w}, WithMaxBoundaryDistance(5000))

	if n := countKind(c.Diagnostics(), TraversalAnomaly); n != 1 {
		t.Errorf("got %d traversal anomalies, want 1", n)
	}
	if n := c.LoopCount(All); n != 0 {
		t.Errorf("got %d loops, want 0", n)
	}
}

func TestEmptyInput(t *testing.T) {
	c := New(testBounds, nil)
	if c.LoopCount(All) != 0 || len(c.UnresolvedWays()) != 0 || len(c.Diagnostics()) != 0 {
		t.Errorf("empty input produced output: loops=%d diags=%v", c.LoopCount(All), c.Diagnostics())
	}
}

func TestInvalidBoundsSkipsBoundary(t *testing.T) {
	w := newWay(1, []int64{1, 2}, ll(5, 5), ll(5, 6))
	c := New(geo.EmptyBounds(), []Way{w})
	if len(c.boundary) != 0 {
		t.Errorf("got %d boundary points with invalid bounds", len(c.boundary))
	}
	if n := len(c.UnresolvedWays()); n != 1 {
		t.Errorf("got %d unresolved ways, want 1", n)
	}
}

func TestDiagnosticsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	w := newWay(7, []int64{1, 2}, ll(5, 5), ll(5, 6))
	New(testBounds, []Way{w}, WithLogger(zap.New(core)), WithMaxBoundaryDistance(1))

	if logs.FilterField(zap.Int64("way_id", 7)).Len() == 0 {
		t.Error("expected diagnostics logged with way_id field")
	}
	if logs.FilterMessageSnippet("not shared").Len() != 2 {
		t.Errorf("expected two lonely terminal log lines, got %d", logs.FilterMessageSnippet("not shared").Len())
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"cw", CW, false},
		{"CCW", CCW, false},
		{"clockwise", CW, false},
		{"none", None, false},
		{"", None, false},
		{"sideways", None, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirection(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
