package datastructure

import (
	"errors"
	"fmt"

	"github.com/lintang-b-s/olrwebtool/pkg/geo"
)

var (
	ErrInvalidFlowDirection = errors.New("invalid flow direction")
	ErrDegenerateGeometry   = errors.New("degenerate geometry")
)

// FlowDirection is the flowdir column of the lines table.
type FlowDirection uint8

const (
	Bidirectional FlowDirection = 1
	ReverseOnly   FlowDirection = 2
	ForwardOnly   FlowDirection = 3
)

func (f FlowDirection) Valid() bool {
	return f >= Bidirectional && f <= ForwardOnly
}

func (f FlowDirection) String() string {
	switch f {
	case Bidirectional:
		return "BIDIRECTIONAL"
	case ReverseOnly:
		return "REVERSE_ONLY"
	case ForwardOnly:
		return "FORWARD_ONLY"
	}
	return fmt.Sprintf("FlowDirection(%d)", uint8(f))
}

// FOW is the OpenLR form of way.
type FOW uint8

const (
	FOWUndefined FOW = iota
	FOWMotorway
	FOWMultipleCarriageway
	FOWSingleCarriageway
	FOWRoundabout
	FOWTrafficSquare
	FOWSlipRoad
	FOWOther
)

// FRC is the OpenLR functional road class, 0 (main road) to 7 (other).
type FRC uint8

const (
	FRC0 FRC = iota
	FRC1
	FRC2
	FRC3
	FRC4
	FRC5
	FRC6
	FRC7
)

// StoredRoad is one row of the lines table. Geometry is digitized from StartNode to EndNode.
type StoredRoad struct {
	ID        int64            `json:"id"`
	Meta      string           `json:"meta"`
	FOW       FOW              `json:"fow"`
	FRC       FRC              `json:"frc"`
	Flow      FlowDirection    `json:"flowdir"`
	StartNode int64            `json:"from_int"`
	EndNode   int64            `json:"to_int"`
	Length    float64          `json:"len"`
	Geometry  []geo.Coordinate `json:"geometry"`
}

// Validate checks the flow code, the geometry and the length of the row.
func (r *StoredRoad) Validate() error {
	if !r.Flow.Valid() {
		return fmt.Errorf("road %d: %w: %d", r.ID, ErrInvalidFlowDirection, uint8(r.Flow))
	}
	if len(r.Geometry) < 2 {
		return fmt.Errorf("road %d: %w: %d vertices", r.ID, ErrDegenerateGeometry, len(r.Geometry))
	}
	for i := 1; i < len(r.Geometry); i++ {
		if r.Geometry[i] == r.Geometry[i-1] {
			return fmt.Errorf("road %d: %w: duplicate vertex at %d", r.ID, ErrDegenerateGeometry, i)
		}
	}
	if !(r.Length > 0) {
		return fmt.Errorf("road %d: %w: length %v", r.ID, ErrDegenerateGeometry, r.Length)
	}
	return nil
}

// StoredNode is one row of the nodes table.
type StoredNode struct {
	ID    int64          `json:"id"`
	Coord geo.Coordinate `json:"coord"`
}

func NewStoredNode(id int64, lat, lon float64) StoredNode {
	return StoredNode{ID: id, Coord: geo.NewCoordinate(lat, lon)}
}
