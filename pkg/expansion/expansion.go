// Package expansion turns stored roads, which carry a flow direction, into the strictly directed
// lines the OpenLR decoder traverses.
package expansion

import (
	"errors"
	"fmt"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
)

var ErrDirectionNotAllowed = errors.New("direction not allowed by flow direction")

// Allows reports whether a road with flow code flow can be traversed in dir.
// REVERSE_ONLY roads are traversable end to start only.
func Allows(flow datastructure.FlowDirection, dir datastructure.Direction) bool {
	switch flow {
	case datastructure.Bidirectional:
		return true
	case datastructure.ForwardOnly:
		return dir == datastructure.Forward
	case datastructure.ReverseOnly:
		return dir == datastructure.Reverse
	}
	return false
}

// Directions lists the legs a flow code produces, forward first.
func Directions(flow datastructure.FlowDirection) []datastructure.Direction {
	switch flow {
	case datastructure.Bidirectional:
		return []datastructure.Direction{datastructure.Forward, datastructure.Reverse}
	case datastructure.ForwardOnly:
		return []datastructure.Direction{datastructure.Forward}
	case datastructure.ReverseOnly:
		return []datastructure.Direction{datastructure.Reverse}
	}
	return nil
}

// Expand returns the directed lines of road: two for BIDIRECTIONAL, one otherwise.
func Expand(road *datastructure.StoredRoad) ([]*datastructure.DirectedLine, error) {
	if err := road.Validate(); err != nil {
		return nil, err
	}

	dirs := Directions(road.Flow)
	lines := make([]*datastructure.DirectedLine, 0, len(dirs))
	for _, dir := range dirs {
		lines = append(lines, orient(road, dir))
	}
	return lines, nil
}

// ExpandDirection builds the single leg of road traversed in dir.
func ExpandDirection(road *datastructure.StoredRoad, dir datastructure.Direction) (*datastructure.DirectedLine, error) {
	if err := road.Validate(); err != nil {
		return nil, err
	}
	if !Allows(road.Flow, dir) {
		return nil, fmt.Errorf("road %d (%s) in direction %s: %w", road.ID, road.Flow, dir, ErrDirectionNotAllowed)
	}
	return orient(road, dir), nil
}

func orient(road *datastructure.StoredRoad, dir datastructure.Direction) *datastructure.DirectedLine {
	line := &datastructure.DirectedLine{
		ID:        datastructure.NewLineID(road.ID, dir),
		StartNode: road.StartNode,
		EndNode:   road.EndNode,
		Length:    road.Length,
		FOW:       road.FOW,
		FRC:       road.FRC,
		Meta:      road.Meta,
	}
	if dir == datastructure.Reverse {
		line.StartNode, line.EndNode = road.EndNode, road.StartNode
		line.Geometry = geo.ReversePath(road.Geometry)
	} else {
		line.Geometry = append([]geo.Coordinate(nil), road.Geometry...)
	}
	return line
}

// ReverseIdentity is the id of the reverse leg of the road a forward id belongs to.
// Applied to a reverse id it returns the forward id.
func ReverseIdentity(id datastructure.LineID) datastructure.LineID {
	return datastructure.NewLineID(id.Road, id.Dir.Opposite())
}

// ToStored recovers the stored road and the traversal direction of a directed line id.
func ToStored(id datastructure.LineID) (int64, datastructure.Direction) {
	return id.Road, id.Dir
}

// ArePeers reports whether a and b are the two legs of the same road.
func ArePeers(a, b datastructure.LineID) bool {
	return a.Road == b.Road && a.Dir != b.Dir
}
