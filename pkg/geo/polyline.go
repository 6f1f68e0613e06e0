package geo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/twpayne/go-polyline"
)

var ErrInvalidPath = errors.New("invalid path")

// PolylineFromCoords encodes coords with the Google polyline algorithm (precision 5).
func PolylineFromCoords(coords []Coordinate) string {
	pts := make([][]float64, len(coords))
	for i, c := range coords {
		pts[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(pts))
}

// CoordsFromPolyline decodes a Google polyline (precision 5).
func CoordsFromPolyline(s string) ([]Coordinate, error) {
	pts, rest, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidPath, len(rest))
	}
	coords := make([]Coordinate, len(pts))
	for i, p := range pts {
		coords[i] = NewCoordinate(p[0], p[1])
	}
	return coords, nil
}

// ParsePath reads a WKT LINESTRING or, failing the prefix, a Google polyline. The result has at
// least two vertices.
func ParsePath(s string) ([]Coordinate, error) {
	s = strings.TrimSpace(s)

	var (
		coords []Coordinate
		err    error
	)
	if strings.HasPrefix(strings.ToUpper(s), "LINESTRING") {
		var ls orb.LineString
		ls, err = wkt.UnmarshalLineString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		coords = FromOrbLineString(ls)
	} else {
		coords, err = CoordsFromPolyline(s)
		if err != nil {
			return nil, err
		}
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("%w: %d vertices", ErrInvalidPath, len(coords))
	}
	return coords, nil
}

func FromOrbPoint(p orb.Point) Coordinate {
	return NewCoordinate(p.Lat(), p.Lon())
}

func ToOrbPoint(c Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func FromOrbLineString(ls orb.LineString) []Coordinate {
	coords := make([]Coordinate, len(ls))
	for i, p := range ls {
		coords[i] = FromOrbPoint(p)
	}
	return coords
}

func ToOrbLineString(coords []Coordinate) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = ToOrbPoint(c)
	}
	return ls
}
