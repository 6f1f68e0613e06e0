// Package badgerstore is a RowFetcher backed by an embedded BadgerDB. Roads and nodes are
// written once by Import and read afterwards; an r-tree over their bounding boxes is kept in memory.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/spatialindex"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"go.uber.org/zap"
)

type Store struct {
	db  *badger.DB
	log *zap.Logger

	mu        sync.RWMutex
	roadIndex *spatialindex.Rtree
	nodeIndex *spatialindex.Rtree
}

// Open opens the database at path and indexes its contents.
func Open(path string, readOnly bool, log *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ReadOnly = readOnly
	return open(opts, log)
}

// OpenInMemory opens an empty database that lives only in memory.
func OpenInMemory(log *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, log)
}

func open(opts badger.Options, log *zap.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.reindex(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

type indexedRoad struct {
	id     int64
	coords []geo.Coordinate
}

func (s *Store) reindex() error {
	roadIndex := spatialindex.NewRtree()
	nodeIndex := spatialindex.NewRtree()

	var roads []indexedRoad
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = roadPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := decodeID(item.Key()[len(roadPrefix):])
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			r, err := decodeRoad(id, val)
			if err != nil {
				return err
			}
			roads = append(roads, indexedRoad{id: id, coords: r.Geometry})
		}

		return s.scanNodes(txn, func(n datastructure.StoredNode) {
			nodeIndex.InsertPoint(n.ID, n.Coord)
		})
	})
	if err != nil {
		return fmt.Errorf("index badger db: %w", err)
	}

	i := 0
	roadIndex.Build(func() (int64, []geo.Coordinate, bool) {
		if i >= len(roads) {
			return 0, nil, false
		}
		r := roads[i]
		i++
		return r.id, r.coords, true
	}, s.log)

	s.mu.Lock()
	s.roadIndex, s.nodeIndex = roadIndex, nodeIndex
	s.mu.Unlock()
	return nil
}

func (s *Store) scanNodes(txn *badger.Txn, fn func(datastructure.StoredNode)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = nodePrefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(nodePrefix); it.Valid(); it.Next() {
		item := it.Item()
		id := decodeID(item.Key()[len(nodePrefix):])
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		n, err := decodeNode(id, val)
		if err != nil {
			return err
		}
		fn(n)
	}
	return nil
}

// Import writes roads and nodes and rebuilds the spatial index. Node references are checked
// against nodes plus the nodes already stored.
func (s *Store) Import(ctx context.Context, roads []*datastructure.StoredRoad, nodes []datastructure.StoredNode) error {
	known := make(map[int64]datastructure.StoredNode, len(nodes))
	err := s.db.View(func(txn *badger.Txn) error {
		return s.scanNodes(txn, func(n datastructure.StoredNode) { known[n.ID] = n })
	})
	if err != nil {
		return err
	}
	for _, n := range nodes {
		known[n.ID] = n
	}
	if err := storage.CheckReferences(roads, known); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, n := range nodes {
		if err := wb.Set(nodeKey(n.ID), encodeNode(n)); err != nil {
			return err
		}
	}
	for i, r := range roads {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		val, err := encodeRoad(r)
		if err != nil {
			return err
		}
		if err := wb.Set(roadKey(r.ID), val); err != nil {
			return err
		}
		if err := wb.Set(adjacencyKey(r.StartNode, r.ID), nil); err != nil {
			return err
		}
		if err := wb.Set(adjacencyKey(r.EndNode, r.ID), nil); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush import: %w", err)
	}

	s.log.Info("imported rows", zap.Int("roads", len(roads)), zap.Int("nodes", len(nodes)))
	return s.reindex()
}

func (s *Store) getRoad(txn *badger.Txn, id int64) (*datastructure.StoredRoad, error) {
	item, err := txn.Get(roadKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("road %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeRoad(id, val)
}

func (s *Store) getRoads(ctx context.Context, ids []int64, keep func(*datastructure.StoredRoad) bool) ([]*datastructure.StoredRoad, error) {
	var roads []*datastructure.StoredRoad
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := s.getRoad(txn, id)
			if err != nil {
				return err
			}
			if keep == nil || keep(r) {
				roads = append(roads, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	storage.SortRoads(roads)
	return roads, nil
}

func (s *Store) GetRoad(ctx context.Context, id int64) (*datastructure.StoredRoad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var r *datastructure.StoredRoad
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = s.getRoad(txn, id)
		return err
	})
	return r, err
}

func (s *Store) GetNode(ctx context.Context, id int64) (datastructure.StoredNode, error) {
	if err := ctx.Err(); err != nil {
		return datastructure.StoredNode{}, err
	}
	var n datastructure.StoredNode
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("node %d: %w", id, storage.ErrNotFound)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			n, err = decodeNode(id, val)
			return err
		})
	})
	return n, err
}

func (s *Store) FindRoadsWithin(ctx context.Context, c geo.Coordinate, radius float64) ([]*datastructure.StoredRoad, error) {
	s.mu.RLock()
	ids := s.roadIndex.SearchWithinRadius(c.Lat, c.Lon, radius)
	s.mu.RUnlock()

	return s.getRoads(ctx, ids, func(r *datastructure.StoredRoad) bool {
		return storage.RoadWithin(r, c, radius)
	})
}

func (s *Store) FindNodesWithin(ctx context.Context, c geo.Coordinate, radius float64) ([]datastructure.StoredNode, error) {
	s.mu.RLock()
	ids := s.nodeIndex.SearchWithinRadius(c.Lat, c.Lon, radius)
	s.mu.RUnlock()

	var nodes []datastructure.StoredNode
	for _, id := range ids {
		n, err := s.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
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
	prefix := prefixed(adjacencyPrefix, encodeID(node))

	var ids []int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.Valid(); it.Next() {
			key := it.Item().Key()
			road := decodeID(key[len(prefix):])
			if len(ids) == 0 || ids[len(ids)-1] != road {
				ids = append(ids, road)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getRoads(ctx, ids, nil)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Count reports the number of indexed roads and nodes.
func (s *Store) Count(ctx context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(s.roadIndex.Len()), int64(s.nodeIndex.Len()), ctx.Err()
}
