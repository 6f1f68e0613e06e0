// Package mapreader exposes the stored network to the OpenLR decoder as a graph of directed lines.
package mapreader

import (
	"context"
	"errors"
	"sync"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/expansion"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"go.uber.org/zap"
)

var (
	ErrLineNotFound = errors.New("line not found")
	ErrNodeNotFound = errors.New("node not found")
)

// MapReader is everything the decoder needs from a map. Lines returned by the search methods
// are identical to what GetLine returns for their id.
type MapReader interface {
	GetLine(ctx context.Context, id datastructure.LineID) (*datastructure.DirectedLine, error)
	GetNode(ctx context.Context, id int64) (datastructure.StoredNode, error)
	FindLinesCloseTo(ctx context.Context, c geo.Coordinate, radius float64) ([]*datastructure.DirectedLine, error)
	OutgoingLines(ctx context.Context, node int64) ([]*datastructure.DirectedLine, error)
}

// WebToolMapReader reads stored roads through a RowFetcher and expands them into directed lines
// on every call.
type WebToolMapReader struct {
	rows storage.RowFetcher
	log  *zap.Logger

	cacheMu sync.RWMutex
	cache   map[int64]*datastructure.StoredRoad
}

type Option func(*WebToolMapReader)

// WithCache keeps every road row the reader has fetched. Meant for a single decode session.
func WithCache() Option {
	return func(r *WebToolMapReader) {
		r.cache = make(map[int64]*datastructure.StoredRoad)
	}
}

func NewWebToolMapReader(rows storage.RowFetcher, log *zap.Logger, opts ...Option) *WebToolMapReader {
	r := &WebToolMapReader{rows: rows, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *WebToolMapReader) cached(id int64) (*datastructure.StoredRoad, bool) {
	if r.cache == nil {
		return nil, false
	}
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	road, ok := r.cache[id]
	return road, ok
}

func (r *WebToolMapReader) remember(roads ...*datastructure.StoredRoad) {
	if r.cache == nil {
		return
	}
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	for _, road := range roads {
		r.cache[road.ID] = road
	}
}

// ClearCache drops all cached rows.
func (r *WebToolMapReader) ClearCache() {
	if r.cache == nil {
		return
	}
	r.cacheMu.Lock()
	clear(r.cache)
	r.cacheMu.Unlock()
}

func (r *WebToolMapReader) road(ctx context.Context, id int64) (*datastructure.StoredRoad, error) {
	if road, ok := r.cached(id); ok {
		return road, nil
	}
	road, err := r.rows.GetRoad(ctx, id)
	if err != nil {
		return nil, err
	}
	r.remember(road)
	return road, nil
}

// expandAll expands every road. A malformed row fails the whole call.
func (r *WebToolMapReader) expandAll(roads []*datastructure.StoredRoad, keep func(*datastructure.DirectedLine) bool) ([]*datastructure.DirectedLine, error) {
	r.remember(roads...)

	lines := make([]*datastructure.DirectedLine, 0, 2*len(roads))
	for _, road := range roads {
		expanded, err := expansion.Expand(road)
		if err != nil {
			r.log.Error("malformed road row", zap.Int64("road", road.ID), zap.Error(err))
			return nil, util.WrapErrorf(err, util.ErrInternalServerError, "expand road %d", road.ID)
		}
		for _, l := range expanded {
			if keep == nil || keep(l) {
				lines = append(lines, l)
			}
		}
	}
	return lines, nil
}

// GetLine resolves id to its stored road and rebuilds the requested leg.
func (r *WebToolMapReader) GetLine(ctx context.Context, id datastructure.LineID) (*datastructure.DirectedLine, error) {
	roadID, dir := expansion.ToStored(id)
	road, err := r.road(ctx, roadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, util.WrapErrorf(ErrLineNotFound, util.ErrNotFound, "line %s", id)
		}
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "fetch road %d", roadID)
	}

	line, err := expansion.ExpandDirection(road, dir)
	switch {
	case errors.Is(err, expansion.ErrDirectionNotAllowed):
		return nil, util.WrapErrorf(ErrLineNotFound, util.ErrNotFound, "line %s: road %d is %s", id, roadID, road.Flow)
	case err != nil:
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "expand road %d", roadID)
	}
	return line, nil
}

func (r *WebToolMapReader) GetNode(ctx context.Context, id int64) (datastructure.StoredNode, error) {
	n, err := r.rows.GetNode(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return n, util.WrapErrorf(ErrNodeNotFound, util.ErrNotFound, "node %d", id)
		}
		return n, util.WrapErrorf(err, util.ErrInternalServerError, "fetch node %d", id)
	}
	return n, nil
}

// FindLinesCloseTo returns every directed line of the roads within radius meters of c.
func (r *WebToolMapReader) FindLinesCloseTo(ctx context.Context, c geo.Coordinate, radius float64) ([]*datastructure.DirectedLine, error) {
	roads, err := r.rows.FindRoadsWithin(ctx, c, radius)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "find roads near %v", c)
	}
	return r.expandAll(roads, nil)
}

func (r *WebToolMapReader) FindNodesCloseTo(ctx context.Context, c geo.Coordinate, radius float64) ([]datastructure.StoredNode, error) {
	nodes, err := r.rows.FindNodesWithin(ctx, c, radius)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "find nodes near %v", c)
	}
	return nodes, nil
}

// OutgoingLines returns the directed lines that start at node, including reverse legs of roads
// stored as ending there.
func (r *WebToolMapReader) OutgoingLines(ctx context.Context, node int64) ([]*datastructure.DirectedLine, error) {
	roads, err := r.rows.RoadsTouchingNode(ctx, node)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "roads at node %d", node)
	}
	return r.expandAll(roads, func(l *datastructure.DirectedLine) bool { return l.StartNode == node })
}

// IncomingLines returns the directed lines that end at node.
func (r *WebToolMapReader) IncomingLines(ctx context.Context, node int64) ([]*datastructure.DirectedLine, error) {
	roads, err := r.rows.RoadsTouchingNode(ctx, node)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "roads at node %d", node)
	}
	return r.expandAll(roads, func(l *datastructure.DirectedLine) bool { return l.EndNode == node })
}

// Count reports the number of stored roads and nodes when the fetcher supports it.
func (r *WebToolMapReader) Count(ctx context.Context) (int64, int64, bool, error) {
	c, ok := r.rows.(storage.Counter)
	if !ok {
		return 0, 0, false, nil
	}
	roads, nodes, err := c.Count(ctx)
	return roads, nodes, true, err
}
