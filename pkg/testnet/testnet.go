// Package testnet is a small road network shared by tests.
//
//	        5
//	        |  103 (reverse-only, digitized 5->2, traversable 2->5)
//	1 ----- 2 ----- 3 ----> 4
//	   100     101     102 (forward-only)
//
// Roads 100 and 101 are bidirectional. Nodes lie on latitude 52 except node 5.
package testnet

import (
	"fmt"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/memory"
	"go.uber.org/zap"
)

func Nodes() []datastructure.StoredNode {
	return []datastructure.StoredNode{
		datastructure.NewStoredNode(1, 52.000, 13.000),
		datastructure.NewStoredNode(2, 52.000, 13.002),
		datastructure.NewStoredNode(3, 52.000, 13.004),
		datastructure.NewStoredNode(4, 52.000, 13.006),
		datastructure.NewStoredNode(5, 52.002, 13.002),
	}
}

func road(id int64, flow datastructure.FlowDirection, from, to int64, coords ...geo.Coordinate) *datastructure.StoredRoad {
	return &datastructure.StoredRoad{
		ID:        id,
		Meta:      fmt.Sprintf("way/%d", id*10),
		FOW:       datastructure.FOWSingleCarriageway,
		FRC:       datastructure.FRC3,
		Flow:      flow,
		StartNode: from,
		EndNode:   to,
		Length:    geo.PathLength(coords),
		Geometry:  coords,
	}
}

func Roads() []*datastructure.StoredRoad {
	c := geo.NewCoordinate
	return []*datastructure.StoredRoad{
		road(100, datastructure.Bidirectional, 1, 2, c(52.000, 13.000), c(52.000, 13.001), c(52.000, 13.002)),
		road(101, datastructure.Bidirectional, 2, 3, c(52.000, 13.002), c(52.000, 13.004)),
		road(102, datastructure.ForwardOnly, 3, 4, c(52.000, 13.004), c(52.000, 13.006)),
		road(103, datastructure.ReverseOnly, 5, 2, c(52.002, 13.002), c(52.000, 13.002)),
	}
}

// Store returns a memory store holding the network.
func Store() *memory.Store {
	s, err := memory.New(Roads(), Nodes(), zap.NewNop())
	if err != nil {
		panic(err)
	}
	return s
}

// Node returns the coordinate of node id.
func Node(id int64) geo.Coordinate {
	for _, n := range Nodes() {
		if n.ID == id {
			return n.Coord
		}
	}
	panic("unknown test node")
}
