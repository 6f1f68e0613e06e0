package openlr

import (
	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
)

// Location is the result of decoding a reference against a map.
type Location interface {
	Type() LocationType
	Coordinates() []geo.Coordinate
}

// LineLocation is a path of directed lines. PositiveOffset is trimmed from the start of the first
// line and NegativeOffset from the end of the last one, both in meters.
type LineLocation struct {
	Lines          []*datastructure.DirectedLine
	PositiveOffset float64
	NegativeOffset float64
}

func (l *LineLocation) Type() LocationType {
	return LineLocationType
}

// Length is the sum of the lengths of the lines, offsets not subtracted.
func (l *LineLocation) Length() float64 {
	total := 0.0
	for _, line := range l.Lines {
		total += line.Length
	}
	return total
}

// Coordinates is the geometry of the path with both offsets cut off.
func (l *LineLocation) Coordinates() []geo.Coordinate {
	paths := make([][]geo.Coordinate, len(l.Lines))
	for i, line := range l.Lines {
		paths[i] = line.Geometry
	}
	joined, err := geo.JoinPaths(paths)
	if err != nil || len(joined) < 2 {
		return joined
	}

	// offsets are in stored lengths, the geometry may measure differently.
	geomLen := geo.PathLength(joined)
	scale := 1.0
	if total := l.Length(); total > 0 {
		scale = geomLen / total
	}
	pOff := l.PositiveOffset * scale
	nOff := l.NegativeOffset * scale
	if pOff+nOff >= geomLen {
		p := geo.PointAlong(joined, pOff)
		return []geo.Coordinate{p, p}
	}

	_, tail := geo.SplitPath(joined, pOff)
	head, _ := geo.SplitPath(tail, geomLen-pOff-nOff)
	return head
}

// PointAlongLine is a position on a single directed line, PositiveOffset meters from its start.
type PointAlongLine struct {
	Line           *datastructure.DirectedLine
	PositiveOffset float64
	Orientation    Orientation
	SideOfRoad     SideOfRoad
}

func (p *PointAlongLine) Type() LocationType {
	return PointAlongLineType
}

func (p *PointAlongLine) Coordinate() geo.Coordinate {
	scale := 1.0
	if p.Line.Length > 0 {
		scale = p.Line.GeometryLength() / p.Line.Length
	}
	return geo.PointAlong(p.Line.Geometry, p.PositiveOffset*scale)
}

func (p *PointAlongLine) Coordinates() []geo.Coordinate {
	return []geo.Coordinate{p.Coordinate()}
}

// GeoCoordinate needs no map at all.
type GeoCoordinate struct {
	Coord geo.Coordinate
}

func (g *GeoCoordinate) Type() LocationType {
	return GeoCoordinateType
}

func (g *GeoCoordinate) Coordinates() []geo.Coordinate {
	return []geo.Coordinate{g.Coord}
}
