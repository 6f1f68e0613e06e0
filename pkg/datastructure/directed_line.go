package datastructure

import (
	"slices"

	"github.com/lintang-b-s/olrwebtool/pkg/geo"
)

// DirectedLine is a single-direction view of a StoredRoad. Geometry is already oriented in
// the direction of travel, so its first vertex is at StartNode and its last at EndNode.
type DirectedLine struct {
	ID        LineID           `json:"id"`
	StartNode int64            `json:"start_node"`
	EndNode   int64            `json:"end_node"`
	Length    float64          `json:"length"`
	Geometry  []geo.Coordinate `json:"geometry"`
	FOW       FOW              `json:"fow"`
	FRC       FRC              `json:"frc"`
	Meta      string           `json:"meta"`
}

func (l *DirectedLine) RoadID() int64 {
	return l.ID.Road
}

func (l *DirectedLine) Direction() Direction {
	return l.ID.Dir
}

func (l *DirectedLine) StartCoord() geo.Coordinate {
	return l.Geometry[0]
}

func (l *DirectedLine) EndCoord() geo.Coordinate {
	return l.Geometry[len(l.Geometry)-1]
}

// Bearings are computed from the oriented geometry, never derived from the other leg.
func (l *DirectedLine) Bearings() []float64 {
	return geo.Bearings(l.Geometry)
}

func (l *DirectedLine) CumulativeLengths() []float64 {
	return geo.CumulativeLengths(l.Geometry)
}

// GeometryLength is the measured length of the geometry, which may differ from the stored Length.
func (l *DirectedLine) GeometryLength() float64 {
	return geo.PathLength(l.Geometry)
}

func (l *DirectedLine) Equal(o *DirectedLine) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.ID == o.ID && l.StartNode == o.StartNode && l.EndNode == o.EndNode &&
		l.Length == o.Length && l.FOW == o.FOW && l.FRC == o.FRC && l.Meta == o.Meta &&
		slices.Equal(l.Geometry, o.Geometry)
}
