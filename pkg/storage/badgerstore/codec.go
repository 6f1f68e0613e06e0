package badgerstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

var (
	roadPrefix      = []byte("r/")
	nodePrefix      = []byte("n/")
	adjacencyPrefix = []byte("a/")
)

var errCorruptValue = errors.New("corrupt value")

// roadHeaderSize: fow, frc, flowdir, from_int, to_int, len.
const roadHeaderSize = 3 + 8 + 8 + 8

// encodeID maps signed ids to big-endian keys that sort in numeric order.
func encodeID(id int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id)^(1<<63))
	return b[:]
}

func decodeID(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

func prefixed(prefix []byte, parts ...[]byte) []byte {
	key := append([]byte{}, prefix...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

func roadKey(id int64) []byte {
	return prefixed(roadPrefix, encodeID(id))
}

func nodeKey(id int64) []byte {
	return prefixed(nodePrefix, encodeID(id))
}

func adjacencyKey(node, road int64) []byte {
	return prefixed(adjacencyPrefix, encodeID(node), encodeID(road))
}

func encodeRoad(r *datastructure.StoredRoad) ([]byte, error) {
	geom, err := wkb.Marshal(geo.ToOrbLineString(r.Geometry), binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("marshal geometry of road %d: %w", r.ID, err)
	}

	buf := make([]byte, roadHeaderSize, roadHeaderSize+binary.MaxVarintLen64+len(r.Meta)+len(geom))
	buf[0] = byte(r.FOW)
	buf[1] = byte(r.FRC)
	buf[2] = byte(r.Flow)
	binary.BigEndian.PutUint64(buf[3:11], uint64(r.StartNode))
	binary.BigEndian.PutUint64(buf[11:19], uint64(r.EndNode))
	binary.BigEndian.PutUint64(buf[19:27], math.Float64bits(r.Length))
	buf = binary.AppendUvarint(buf, uint64(len(r.Meta)))
	buf = append(buf, r.Meta...)
	buf = append(buf, geom...)
	return buf, nil
}

func decodeRoad(id int64, b []byte) (*datastructure.StoredRoad, error) {
	if len(b) < roadHeaderSize {
		return nil, fmt.Errorf("road %d: %w", id, errCorruptValue)
	}
	r := &datastructure.StoredRoad{
		ID:        id,
		FOW:       datastructure.FOW(b[0]),
		FRC:       datastructure.FRC(b[1]),
		Flow:      datastructure.FlowDirection(b[2]),
		StartNode: int64(binary.BigEndian.Uint64(b[3:11])),
		EndNode:   int64(binary.BigEndian.Uint64(b[11:19])),
		Length:    math.Float64frombits(binary.BigEndian.Uint64(b[19:27])),
	}

	rest := b[roadHeaderSize:]
	metaLen, n := binary.Uvarint(rest)
	if n <= 0 || uint64(len(rest)-n) < metaLen {
		return nil, fmt.Errorf("road %d meta: %w", id, errCorruptValue)
	}
	r.Meta = string(rest[n : n+int(metaLen)])

	g, err := wkb.Unmarshal(rest[n+int(metaLen):])
	if err != nil {
		return nil, fmt.Errorf("road %d geometry: %w", id, err)
	}
	ls, ok := g.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("road %d geometry is %s: %w", id, g.GeoJSONType(), errCorruptValue)
	}
	r.Geometry = geo.FromOrbLineString(ls)
	return r, nil
}

func encodeNode(n datastructure.StoredNode) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], math.Float64bits(n.Coord.Lat))
	binary.BigEndian.PutUint64(b[8:16], math.Float64bits(n.Coord.Lon))
	return b[:]
}

func decodeNode(id int64, b []byte) (datastructure.StoredNode, error) {
	if len(b) != 16 {
		return datastructure.StoredNode{}, fmt.Errorf("node %d: %w", id, errCorruptValue)
	}
	lat := math.Float64frombits(binary.BigEndian.Uint64(b[0:8]))
	lon := math.Float64frombits(binary.BigEndian.Uint64(b[8:16]))
	return datastructure.NewStoredNode(id, lat, lon), nil
}
