// Package storage reads rows of the lines and nodes tables. Nothing here knows about flow
// directions: roads come back exactly as they are stored.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
)

var ErrNotFound = errors.New("row not found")

// RowFetcher is a read-only source of stored roads and nodes. Implementations must be safe
// for concurrent use.
type RowFetcher interface {
	GetRoad(ctx context.Context, id int64) (*datastructure.StoredRoad, error)
	GetNode(ctx context.Context, id int64) (datastructure.StoredNode, error)
	// FindRoadsWithin returns the roads whose geometry passes within radius meters of c.
	FindRoadsWithin(ctx context.Context, c geo.Coordinate, radius float64) ([]*datastructure.StoredRoad, error)
	FindNodesWithin(ctx context.Context, c geo.Coordinate, radius float64) ([]datastructure.StoredNode, error)
	// RoadsTouchingNode returns the roads that start or end at node.
	RoadsTouchingNode(ctx context.Context, node int64) ([]*datastructure.StoredRoad, error)
	Close() error
}

// RoadWithin reports whether any part of the road geometry is at most radius meters from c.
func RoadWithin(road *datastructure.StoredRoad, c geo.Coordinate, radius float64) bool {
	return geo.ProjectOntoPath(road.Geometry, c).Distance <= radius
}

// SortRoads orders roads by id so every fetcher returns them in the same order.
func SortRoads(roads []*datastructure.StoredRoad) {
	slices.SortFunc(roads, func(a, b *datastructure.StoredRoad) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

func SortNodes(nodes []datastructure.StoredNode) {
	slices.SortFunc(nodes, func(a, b datastructure.StoredNode) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// CheckReferences verifies that every road starts and ends at a known node.
func CheckReferences(roads []*datastructure.StoredRoad, nodes map[int64]datastructure.StoredNode) error {
	for _, r := range roads {
		for _, n := range []int64{r.StartNode, r.EndNode} {
			if _, ok := nodes[n]; !ok {
				return &DanglingNodeError{Road: r.ID, Node: n}
			}
		}
	}
	return nil
}

type DanglingNodeError struct {
	Road int64
	Node int64
}

func (e *DanglingNodeError) Error() string {
	return fmt.Sprintf("road %d references missing node %d", e.Road, e.Node)
}

func (e *DanglingNodeError) Unwrap() error {
	return ErrNotFound
}

// Counter is implemented by fetchers that can report table sizes.
type Counter interface {
	Count(ctx context.Context) (roads, nodes int64, err error)
}
