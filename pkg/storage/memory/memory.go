// Package memory is a RowFetcher that keeps the whole network in memory, loaded from GeoJSON.
package memory

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/spatialindex"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"go.uber.org/zap"
)

type Store struct {
	roads     map[int64]*datastructure.StoredRoad
	nodes     map[int64]datastructure.StoredNode
	touching  map[int64][]int64
	roadIndex *spatialindex.Rtree
	nodeIndex *spatialindex.Rtree
	log       *zap.Logger
}

// New indexes roads and nodes. Every road must reference existing nodes.
func New(roads []*datastructure.StoredRoad, nodes []datastructure.StoredNode, log *zap.Logger) (*Store, error) {
	s := &Store{
		roads:     make(map[int64]*datastructure.StoredRoad, len(roads)),
		nodes:     make(map[int64]datastructure.StoredNode, len(nodes)),
		touching:  make(map[int64][]int64),
		roadIndex: spatialindex.NewRtree(),
		nodeIndex: spatialindex.NewRtree(),
		log:       log,
	}

	for _, n := range nodes {
		if _, dup := s.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		s.nodes[n.ID] = n
		s.nodeIndex.InsertPoint(n.ID, n.Coord)
	}
	if err := storage.CheckReferences(roads, s.nodes); err != nil {
		return nil, err
	}

	i := 0
	s.roadIndex.Build(func() (int64, []geo.Coordinate, bool) {
		for i < len(roads) {
			r := roads[i]
			i++
			if _, dup := s.roads[r.ID]; dup {
				log.Warn("skipping duplicate road id", zap.Int64("road", r.ID))
				continue
			}
			s.roads[r.ID] = r
			s.touching[r.StartNode] = append(s.touching[r.StartNode], r.ID)
			if r.EndNode != r.StartNode {
				s.touching[r.EndNode] = append(s.touching[r.EndNode], r.ID)
			}
			return r.ID, r.Geometry, true
		}
		return 0, nil, false
	}, log)

	log.Info("memory store ready", zap.Int("roads", len(s.roads)), zap.Int("nodes", len(s.nodes)))
	return s, nil
}

func copyRoad(r *datastructure.StoredRoad) *datastructure.StoredRoad {
	c := *r
	c.Geometry = append([]geo.Coordinate(nil), r.Geometry...)
	return &c
}

func (s *Store) GetRoad(ctx context.Context, id int64) (*datastructure.StoredRoad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := s.roads[id]
	if !ok {
		return nil, fmt.Errorf("road %d: %w", id, storage.ErrNotFound)
	}
	return copyRoad(r), nil
}

func (s *Store) GetNode(ctx context.Context, id int64) (datastructure.StoredNode, error) {
	if err := ctx.Err(); err != nil {
		return datastructure.StoredNode{}, err
	}
	n, ok := s.nodes[id]
	if !ok {
		return datastructure.StoredNode{}, fmt.Errorf("node %d: %w", id, storage.ErrNotFound)
	}
	return n, nil
}

func (s *Store) FindRoadsWithin(ctx context.Context, c geo.Coordinate, radius float64) ([]*datastructure.StoredRoad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var roads []*datastructure.StoredRoad
	for _, id := range s.roadIndex.SearchWithinRadius(c.Lat, c.Lon, radius) {
		r := s.roads[id]
		if storage.RoadWithin(r, c, radius) {
			roads = append(roads, copyRoad(r))
		}
	}
	storage.SortRoads(roads)
	return roads, nil
}

func (s *Store) FindNodesWithin(ctx context.Context, c geo.Coordinate, radius float64) ([]datastructure.StoredNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var nodes []datastructure.StoredNode
	for _, id := range s.nodeIndex.SearchWithinRadius(c.Lat, c.Lon, radius) {
		n := s.nodes[id]
		if geo.DistanceMeters(c, n.Coord) <= radius {
			nodes = append(nodes, n)
		}
	}
	storage.SortNodes(nodes)
	return nodes, nil
}

func (s *Store) RoadsTouchingNode(ctx context.Context, node int64) ([]*datastructure.StoredRoad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := s.touching[node]
	roads := make([]*datastructure.StoredRoad, 0, len(ids))
	for _, id := range ids {
		roads = append(roads, copyRoad(s.roads[id]))
	}
	storage.SortRoads(roads)
	return roads, nil
}

// Roads returns every stored road ordered by id.
func (s *Store) Roads() []*datastructure.StoredRoad {
	roads := make([]*datastructure.StoredRoad, 0, len(s.roads))
	for _, r := range s.roads {
		roads = append(roads, copyRoad(r))
	}
	storage.SortRoads(roads)
	return roads
}

func (s *Store) Nodes() []datastructure.StoredNode {
	nodes := make([]datastructure.StoredNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	storage.SortNodes(nodes)
	return nodes
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, int64, error) {
	return int64(len(s.roads)), int64(len(s.nodes)), ctx.Err()
}
