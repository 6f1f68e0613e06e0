// Package postgis is a RowFetcher over the lines and nodes tables of a PostGIS database.
package postgis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"go.uber.org/zap"
)

type Config struct {
	DSN          string
	Schema       string
	LinesTable   string
	NodesTable   string
	QueryTimeout time.Duration
}

type queries struct {
	roadByID      string
	roadsWithin   string
	roadsTouching string
	nodeByID      string
	nodesWithin   string
	countRoads    string
	countNodes    string
}

const (
	lineColumns = "id, coalesce(meta, ''), fow, frc, flowdir, from_int, to_int, len, st_asbinary(geom)"
	nodeColumns = "id, st_y(geom), st_x(geom)"
	// $1 lon, $2 lat, $3 radius in meters.
	withinClause = "geom && st_buffer(st_setsrid(st_makepoint($1, $2), 4326)::geography, $3)::geometry" +
		" and st_dwithin(geom::geography, st_setsrid(st_makepoint($1, $2), 4326)::geography, $3)"
)

func buildQueries(cfg Config) queries {
	lines := pgx.Identifier{cfg.Schema, cfg.LinesTable}.Sanitize()
	nodes := pgx.Identifier{cfg.Schema, cfg.NodesTable}.Sanitize()
	if cfg.Schema == "" {
		lines = pgx.Identifier{cfg.LinesTable}.Sanitize()
		nodes = pgx.Identifier{cfg.NodesTable}.Sanitize()
	}

	return queries{
		roadByID:      fmt.Sprintf("select %s from %s where id = $1", lineColumns, lines),
		roadsWithin:   fmt.Sprintf("select %s from %s where %s order by id", lineColumns, lines, withinClause),
		roadsTouching: fmt.Sprintf("select %s from %s where from_int = $1 or to_int = $1 order by id", lineColumns, lines),
		nodeByID:      fmt.Sprintf("select %s from %s where id = $1", nodeColumns, nodes),
		nodesWithin:   fmt.Sprintf("select %s from %s where %s order by id", nodeColumns, nodes, withinClause),
		countRoads:    fmt.Sprintf("select count(1) from %s", lines),
		countNodes:    fmt.Sprintf("select count(1) from %s", nodes),
	}
}

type Store struct {
	pool    *pgxpool.Pool
	q       queries
	timeout time.Duration
	log     *zap.Logger
}

// Open connects a pool. The pool is shared by concurrent decodes.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgis: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgis: %w", err)
	}
	log.Info("connected to postgis", zap.String("lines", cfg.LinesTable), zap.String("nodes", cfg.NodesTable))
	return &Store{pool: pool, q: buildQueries(cfg), timeout: cfg.QueryTimeout, log: log}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func scanRoad(row pgx.Row) (*datastructure.StoredRoad, error) {
	var (
		r              datastructure.StoredRoad
		fow, frc, flow int16
		geomWKB        []byte
	)
	if err := row.Scan(&r.ID, &r.Meta, &fow, &frc, &flow, &r.StartNode, &r.EndNode, &r.Length, &geomWKB); err != nil {
		return nil, err
	}
	r.FOW = datastructure.FOW(fow)
	r.FRC = datastructure.FRC(frc)
	r.Flow = datastructure.FlowDirection(flow)

	g, err := wkb.Unmarshal(geomWKB)
	if err != nil {
		return nil, fmt.Errorf("road %d geometry: %w", r.ID, err)
	}
	ls, ok := g.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("road %d geometry is %s, want LineString", r.ID, g.GeoJSONType())
	}
	r.Geometry = geo.FromOrbLineString(ls)
	return &r, nil
}

func (s *Store) queryRoads(ctx context.Context, sql string, args ...any) ([]*datastructure.StoredRoad, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	roads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*datastructure.StoredRoad, error) {
		return scanRoad(row)
	})
	if err != nil {
		s.log.Error("road query failed", zap.Error(err))
		return nil, err
	}
	return roads, nil
}

func (s *Store) GetRoad(ctx context.Context, id int64) (*datastructure.StoredRoad, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	r, err := scanRoad(s.pool.QueryRow(ctx, s.q.roadByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("road %d: %w", id, storage.ErrNotFound)
	}
	return r, err
}

func (s *Store) GetNode(ctx context.Context, id int64) (datastructure.StoredNode, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n datastructure.StoredNode
	err := s.pool.QueryRow(ctx, s.q.nodeByID, id).Scan(&n.ID, &n.Coord.Lat, &n.Coord.Lon)
	if errors.Is(err, pgx.ErrNoRows) {
		return n, fmt.Errorf("node %d: %w", id, storage.ErrNotFound)
	}
	return n, err
}

func (s *Store) FindRoadsWithin(ctx context.Context, c geo.Coordinate, radius float64) ([]*datastructure.StoredRoad, error) {
	return s.queryRoads(ctx, s.q.roadsWithin, c.Lon, c.Lat, radius)
}

func (s *Store) FindNodesWithin(ctx context.Context, c geo.Coordinate, radius float64) ([]datastructure.StoredNode, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, s.q.nodesWithin, c.Lon, c.Lat, radius)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (datastructure.StoredNode, error) {
		var n datastructure.StoredNode
		err := row.Scan(&n.ID, &n.Coord.Lat, &n.Coord.Lon)
		return n, err
	})
}

func (s *Store) RoadsTouchingNode(ctx context.Context, node int64) ([]*datastructure.StoredRoad, error) {
	return s.queryRoads(ctx, s.q.roadsTouching, node)
}

// Count returns the number of rows in the lines and nodes tables.
func (s *Store) Count(ctx context.Context) (roads, nodes int64, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err = s.pool.QueryRow(ctx, s.q.countRoads).Scan(&roads); err != nil {
		return 0, 0, err
	}
	if err = s.pool.QueryRow(ctx, s.q.countNodes).Scan(&nodes); err != nil {
		return 0, 0, err
	}
	return roads, nodes, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
