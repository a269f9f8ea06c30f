package geo

import "fmt"

// Cardinal is one of the four edges of a rectangle: north, east, south, west
type Cardinal uint8

const (
	North Cardinal = iota
	East
	South
	West
)

// Intercardinal is one of the four corners of a rectangle
type Intercardinal uint8

const (
	Northeast Intercardinal = iota
	Southeast
	Southwest
	Northwest
)

// Principal covers all eight compass points, numbered clockwise from north.
// Even values are cardinal points and odd values are intercardinal points.
type Principal uint8

var principalNames = [8]string{
	"north",
	"northeast",
	"east",
	"southeast",
	"south",
	"southwest",
	"west",
	"northwest",
}

// NewPrincipal converts an integer to a principal point
func NewPrincipal(u int) (Principal, error) {
	if u < 0 || u > 7 {
		return 0, fmt.Errorf("invalid compass point index %d", u)
	}
	return Principal(u), nil
}

// Principal widens the cardinal point
func (c Cardinal) Principal() Principal { return Principal(c << 1) }

func (c Cardinal) String() string { return c.Principal().String() }

// Principal widens the intercardinal point
func (c Intercardinal) Principal() Principal { return Principal(c<<1 | 1) }

func (c Intercardinal) String() string { return c.Principal().String() }

// Cardinal narrows to an edge; ok is false for corners
func (p Principal) Cardinal() (Cardinal, bool) {
	if p%2 != 0 {
		return 0, false
	}
	return Cardinal(p >> 1), true
}

// Intercardinal narrows to a corner; ok is false for edges
func (p Principal) Intercardinal() (Intercardinal, bool) {
	if p%2 != 1 {
		return 0, false
	}
	return Intercardinal(p >> 1), true
}

// IsCorner reports whether p is an intercardinal point
func (p Principal) IsCorner() bool { return p%2 == 1 }

// Add rotates clockwise by delta eighths of a turn (counterclockwise when negative)
func (p Principal) Add(delta int) Principal {
	return Principal(((int(p)+delta)%8 + 8) % 8)
}

func (p Principal) String() string {
	if int(p) < len(principalNames) {
		return principalNames[p]
	}
	return fmt.Sprintf("Principal(%d)", uint8(p))
}
