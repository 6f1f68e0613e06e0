package badgerstore

import (
	"context"
	"testing"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"github.com/lintang-b-s/olrwebtool/pkg/testnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Import(context.Background(), testnet.Roads(), testnet.Nodes()))
	return s
}

func TestRoadCodec(t *testing.T) {
	for _, r := range testnet.Roads() {
		val, err := encodeRoad(r)
		require.NoError(t, err)
		got, err := decodeRoad(r.ID, val)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := decodeRoad(1, []byte{1, 2, 3})
	assert.ErrorIs(t, err, errCorruptValue)
}

func TestKeyOrder(t *testing.T) {
	assert.Less(t, string(encodeID(-5)), string(encodeID(3)))
	assert.Less(t, string(encodeID(3)), string(encodeID(300)))
	assert.Equal(t, int64(-5), decodeID(encodeID(-5)))
}

func TestImportAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := testnet.Roads()[0]
	got, err := s.GetRoad(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.GetRoad(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := s.GetNode(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, testnet.Node(5), n.Coord)

	_, err = s.GetNode(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSpatialAndAdjacency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	roads, err := s.RoadsTouchingNode(ctx, 2)
	require.NoError(t, err)
	ids := make([]int64, len(roads))
	for i, r := range roads {
		ids[i] = r.ID
	}
	assert.Equal(t, []int64{100, 101, 103}, ids)

	roads, err = s.FindRoadsWithin(ctx, geo.NewCoordinate(52.0001, 13.005), 20)
	require.NoError(t, err)
	require.Len(t, roads, 1)
	assert.Equal(t, int64(102), roads[0].ID)

	nodes, err := s.FindNodesWithin(ctx, testnet.Node(4), 1)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, int64(4), nodes[0].ID)
}

func TestImportRejectsDanglingNode(t *testing.T) {
	s, err := OpenInMemory(zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	r := testnet.Roads()[0]
	err = s.Import(context.Background(), []*datastructure.StoredRoad{r}, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReopenOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Import(context.Background(), testnet.Roads(), testnet.Nodes()))
	require.NoError(t, s.Close())

	s, err = Open(dir, false, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	roads, err := s.FindRoadsWithin(context.Background(), testnet.Node(1), 5)
	require.NoError(t, err)
	require.Len(t, roads, 1)
	assert.Equal(t, int64(100), roads[0].ID)
}
