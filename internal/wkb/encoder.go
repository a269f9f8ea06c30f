package wkb

import (
	"encoding/binary"
	"math"

	"github.com/wegman-software/osmmaps-go/internal/geo"
	"github.com/wegman-software/osmmaps-go/internal/proj"
)

// WKB type constants (ISO SQL/MM specification)
const (
	wkbPoint        = 1
	wkbLineString   = 2
	wkbPolygon      = 3
	wkbMultiPolygon = 6

	// SRID flag for EWKB (PostGIS extended WKB)
	wkbSRIDFlag = 0x20000000
)

// Encoder encodes geometries to WKB format
// Uses little-endian byte order and includes SRID (EWKB format)
type Encoder struct {
	buf  []byte
	srid uint32
	tr   *proj.Transformer
}

// NewEncoder creates an encoder writing lat/lon coordinates with SRID 4326
func NewEncoder(initialSize int) *Encoder {
	return &Encoder{
		buf:  make([]byte, 0, initialSize),
		srid: proj.SRID4326,
	}
}

// NewEncoderWithSRID creates an encoder that projects coordinates to srid
func NewEncoderWithSRID(initialSize int, srid int) (*Encoder, error) {
	tr, err := proj.NewTransformer(proj.SRID4326, srid)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		buf:  make([]byte, 0, initialSize),
		srid: uint32(srid),
		tr:   tr,
	}, nil
}

// SRID returns the encoder's current SRID
func (e *Encoder) SRID() int {
	return int(e.srid)
}

// Reset clears the buffer for reuse
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded WKB bytes. They are only valid until the next
// Encode call.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) header(geomType uint32) {
	e.Reset()
	e.buf = append(e.buf, 0x01)
	e.appendUint32(geomType | wkbSRIDFlag)
	e.appendUint32(e.srid)
}

// EncodePoint encodes a point as EWKB with SRID
func (e *Encoder) EncodePoint(p geo.LatLon) []byte {
	e.ensureCapacity(25)
	e.header(wkbPoint)
	e.appendLatLon(p)
	return e.buf
}

// EncodeLineString encodes a linestring as EWKB with SRID
func (e *Encoder) EncodeLineString(pts []geo.LatLon) []byte {
	e.ensureCapacity(13 + len(pts)*16)
	e.header(wkbLineString)
	e.appendUint32(uint32(len(pts)))
	for _, p := range pts {
		e.appendLatLon(p)
	}
	return e.buf
}

// EncodePolygon encodes a polygon with an outer ring and optional holes.
// Rings that do not end at their first point are closed.
func (e *Encoder) EncodePolygon(rings ...[]geo.LatLon) []byte {
	if len(rings) == 0 {
		e.Reset()
		return nil
	}
	e.ensureCapacity(13 + ringsSize(rings))
	e.header(wkbPolygon)
	e.appendRings(rings)
	return e.buf
}

// EncodeMultiPolygon encodes multiple polygons, each a slice of rings
func (e *Encoder) EncodeMultiPolygon(polygons [][][]geo.LatLon) []byte {
	if len(polygons) == 0 {
		e.Reset()
		return nil
	}
	size := 13
	for _, poly := range polygons {
		size += 9 + ringsSize(poly)
	}
	e.ensureCapacity(size)
	e.header(wkbMultiPolygon)
	e.appendUint32(uint32(len(polygons)))

	// embedded polygons carry no SRID
	for _, poly := range polygons {
		e.buf = append(e.buf, 0x01)
		e.appendUint32(wkbPolygon)
		e.appendRings(poly)
	}
	return e.buf
}

func ringsSize(rings [][]geo.LatLon) int {
	n := 4
	for _, r := range rings {
		n += 4 + (len(r)+1)*16
	}
	return n
}

func closed(ring []geo.LatLon) bool {
	return len(ring) > 0 && ring[0] == ring[len(ring)-1]
}

func (e *Encoder) appendRings(rings [][]geo.LatLon) {
	e.appendUint32(uint32(len(rings)))
	for _, ring := range rings {
		n := len(ring)
		if !closed(ring) && n > 0 {
			n++
		}
		e.appendUint32(uint32(n))
		for _, p := range ring {
			e.appendLatLon(p)
		}
		if n > len(ring) {
			e.appendLatLon(ring[0])
		}
	}
}

func (e *Encoder) appendLatLon(p geo.LatLon) {
	x, y := e.tr.Transform(p)
	e.appendFloat64(x)
	e.appendFloat64(y)
}

func (e *Encoder) ensureCapacity(n int) {
	if cap(e.buf) < n {
		e.buf = make([]byte, 0, n)
	}
}

func (e *Encoder) appendUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) appendFloat64(v float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}
