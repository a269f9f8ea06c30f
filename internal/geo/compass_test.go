package geo

import "testing"

func TestCardinalToPrincipal(t *testing.T) {
	tests := []struct {
		c    Cardinal
		want Principal
		name string
	}{
		{North, 0, "north"},
		{East, 2, "east"},
		{South, 4, "south"},
		{West, 6, "west"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Principal(); got != tt.want {
				t.Errorf("%v.Principal() = %d, want %d", tt.c, got, tt.want)
			}
			if tt.c.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.c.String(), tt.name)
			}
			back, ok := tt.want.Cardinal()
			if !ok || back != tt.c {
				t.Errorf("round trip = (%v, %v), want (%v, true)", back, ok, tt.c)
			}
			if _, ok := tt.want.Intercardinal(); ok {
				t.Error("cardinal point should not narrow to intercardinal")
			}
		})
	}
}

func TestIntercardinalToPrincipal(t *testing.T) {
	tests := []struct {
		c    Intercardinal
		want Principal
		name string
	}{
		{Northeast, 1, "northeast"},
		{Southeast, 3, "southeast"},
		{Southwest, 5, "southwest"},
		{Northwest, 7, "northwest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.c.Principal()
			if p != tt.want {
				t.Errorf("%v.Principal() = %d, want %d", tt.c, p, tt.want)
			}
			if !p.IsCorner() {
				t.Error("expected a corner")
			}
			back, ok := p.Intercardinal()
			if !ok || back != tt.c {
				t.Errorf("round trip = (%v, %v), want (%v, true)", back, ok, tt.c)
			}
			if _, ok := p.Cardinal(); ok {
				t.Error("corner should not narrow to cardinal")
			}
		})
	}
}

func TestPrincipalAdd(t *testing.T) {
	nw := Northwest.Principal()

	if got := nw.Add(2); got != Northeast.Principal() {
		t.Errorf("NW+2 = %v, want northeast", got)
	}
	if got := nw.Add(-2); got != Southwest.Principal() {
		t.Errorf("NW-2 = %v, want southwest", got)
	}
	if got := North.Principal().Add(-1); got != nw {
		t.Errorf("N-1 = %v, want northwest", got)
	}
	if got := West.Principal().Add(1); got != nw {
		t.Errorf("W+1 = %v, want northwest", got)
	}
	if got := South.Principal().Add(-10); got != East.Principal() {
		t.Errorf("S-10 = %v, want east", got)
	}
}

func TestNewPrincipal(t *testing.T) {
	if p, err := NewPrincipal(3); err != nil || p != Southeast.Principal() {
		t.Errorf("NewPrincipal(3) = (%v, %v)", p, err)
	}
	if _, err := NewPrincipal(8); err == nil {
		t.Error("expected error for index 8")
	}
	if _, err := NewPrincipal(-1); err == nil {
		t.Error("expected error for index -1")
	}
}
