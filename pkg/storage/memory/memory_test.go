package memory

import (
	"context"
	"testing"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const network = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [13.000, 52.0]}, "properties": {"id": 1}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [13.002, 52.0]}, "properties": {"id": 2}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [13.004, 52.0]}, "properties": {"id": "3"}},
    {"type": "Feature",
     "geometry": {"type": "LineString", "coordinates": [[13.000, 52.0], [13.001, 52.0], [13.002, 52.0]]},
     "properties": {"id": 100, "meta": "way/1", "fow": 3, "frc": 4, "flowdir": 1, "from_int": 1, "to_int": 2, "len": 137.0}},
    {"type": "Feature",
     "geometry": {"type": "LineString", "coordinates": [[13.002, 52.0], [13.004, 52.0]]},
     "properties": {"id": 101, "fow": 3, "frc": 4, "flowdir": 3, "from_int": 2, "to_int": 3}}
  ]
}`

func TestParseGeoJSON(t *testing.T) {
	s, err := ParseGeoJSON([]byte(network), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	r, err := s.GetRoad(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "way/1", r.Meta)
	assert.Equal(t, datastructure.Bidirectional, r.Flow)
	assert.Equal(t, datastructure.FRC4, r.FRC)
	assert.Equal(t, 137.0, r.Length)
	assert.Len(t, r.Geometry, 3)
	assert.Equal(t, geo.NewCoordinate(52.0, 13.0), r.Geometry[0])

	r, err = s.GetRoad(ctx, 101)
	require.NoError(t, err)
	assert.InDelta(t, geo.PathLength(r.Geometry), r.Length, 1e-9, "missing len falls back to the geometry length")

	n, err := s.GetNode(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, geo.NewCoordinate(52.0, 13.004), n.Coord)
}

func TestDecodeFeaturesRejectsNonIntegers(t *testing.T) {
	row := func(props string) string {
		return `{"type": "FeatureCollection", "features": [
		  {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]},
		   "properties": ` + props + `}]}`
	}

	testCases := []struct {
		name  string
		props string
		key   string
	}{
		{name: "fractional flowdir", props: `{"id": 1, "fow": 0, "frc": 0, "flowdir": 2.5, "from_int": 1, "to_int": 2}`, key: "flowdir"},
		{name: "fractional node", props: `{"id": 1, "fow": 0, "frc": 0, "flowdir": 1, "from_int": 1.9, "to_int": 2}`, key: "from_int"},
		{name: "id overflows", props: `{"id": 1e19, "fow": 0, "frc": 0, "flowdir": 1, "from_int": 1, "to_int": 2}`, key: "id"},
		{name: "string fraction", props: `{"id": 1, "fow": "0.5", "frc": 0, "flowdir": 1, "from_int": 1, "to_int": 2}`, key: "fow"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			roads, _, err := DecodeFeatures([]byte(row(tt.props)))
			require.Error(t, err)
			assert.Nil(t, roads)
			assert.Contains(t, err.Error(), tt.key)
		})
	}

	roads, _, err := DecodeFeatures([]byte(row(`{"id": 7.0, "fow": 0, "frc": 0, "flowdir": 3, "from_int": 1, "to_int": 2}`)))
	require.NoError(t, err)
	require.Len(t, roads, 1)
	assert.Equal(t, int64(7), roads[0].ID)
	assert.Equal(t, datastructure.ForwardOnly, roads[0].Flow)
}

func TestParseGeoJSONDanglingNode(t *testing.T) {
	data := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]},
	   "properties": {"id": 1, "fow": 0, "frc": 0, "flowdir": 1, "from_int": 1, "to_int": 2}}]}`

	_, err := ParseGeoJSON([]byte(data), zap.NewNop())
	var dangling *storage.DanglingNodeError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, int64(1), dangling.Node)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreQueries(t *testing.T) {
	s, err := ParseGeoJSON([]byte(network), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.GetRoad(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetNode(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	roads, err := s.FindRoadsWithin(ctx, geo.NewCoordinate(52.0001, 13.001), 20)
	require.NoError(t, err)
	require.Len(t, roads, 1)
	assert.Equal(t, int64(100), roads[0].ID)

	roads, err = s.FindRoadsWithin(ctx, geo.NewCoordinate(52.0, 13.002), 5)
	require.NoError(t, err)
	assert.Len(t, roads, 2)

	roads, err = s.RoadsTouchingNode(ctx, 2)
	require.NoError(t, err)
	require.Len(t, roads, 2)
	assert.Equal(t, int64(100), roads[0].ID)
	assert.Equal(t, int64(101), roads[1].ID)

	nodes, err := s.FindNodesWithin(ctx, geo.NewCoordinate(52.0, 13.0021), 20)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, int64(2), nodes[0].ID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.GetRoad(cancelled, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreReturnsCopies(t *testing.T) {
	s, err := ParseGeoJSON([]byte(network), zap.NewNop())
	require.NoError(t, err)

	r, err := s.GetRoad(context.Background(), 100)
	require.NoError(t, err)
	r.Geometry[0] = geo.NewCoordinate(1, 1)

	again, err := s.GetRoad(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, geo.NewCoordinate(52.0, 13.0), again.Geometry[0])
}
