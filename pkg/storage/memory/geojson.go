package memory

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// LoadGeoJSON reads a FeatureCollection where LineString features are rows of the lines table
// and Point features are rows of the nodes table.
func LoadGeoJSON(path string, log *zap.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	log.Info("loading network", zap.String("path", path))
	return ParseGeoJSON(data, log)
}

func ParseGeoJSON(data []byte, log *zap.Logger) (*Store, error) {
	roads, nodes, err := DecodeFeatures(data)
	if err != nil {
		return nil, err
	}
	return New(roads, nodes, log)
}

// DecodeFeatures converts the features of a FeatureCollection into rows without indexing them.
func DecodeFeatures(data []byte) ([]*datastructure.StoredRoad, []datastructure.StoredNode, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse geojson: %w", err)
	}

	var (
		roads []*datastructure.StoredRoad
		nodes []datastructure.StoredNode
	)
	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			r, err := roadFromFeature(f.Properties, g)
			if err != nil {
				return nil, nil, fmt.Errorf("feature %d: %w", i, err)
			}
			roads = append(roads, r)
		case orb.Point:
			id, err := intProp(f.Properties, "id")
			if err != nil {
				return nil, nil, fmt.Errorf("feature %d: %w", i, err)
			}
			nodes = append(nodes, datastructure.StoredNode{ID: id, Coord: geo.FromOrbPoint(g)})
		default:
			return nil, nil, fmt.Errorf("feature %d: unsupported geometry %T", i, f.Geometry)
		}
	}
	return roads, nodes, nil
}

func roadFromFeature(props geojson.Properties, ls orb.LineString) (*datastructure.StoredRoad, error) {
	r := &datastructure.StoredRoad{Geometry: geo.FromOrbLineString(ls)}

	ints := []struct {
		key string
		dst *int64
	}{
		{"id", &r.ID}, {"from_int", &r.StartNode}, {"to_int", &r.EndNode},
	}
	for _, p := range ints {
		v, err := intProp(props, p.key)
		if err != nil {
			return nil, err
		}
		*p.dst = v
	}

	codes := []struct {
		key string
		set func(int64)
	}{
		{"fow", func(v int64) { r.FOW = datastructure.FOW(v) }},
		{"frc", func(v int64) { r.FRC = datastructure.FRC(v) }},
		{"flowdir", func(v int64) { r.Flow = datastructure.FlowDirection(v) }},
	}
	for _, p := range codes {
		v, err := intProp(props, p.key)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("property %q out of range: %d", p.key, v)
		}
		p.set(v)
	}

	r.Meta = props.MustString("meta", "")
	if l, ok := props["len"]; ok {
		f, err := toFloat(l)
		if err != nil {
			return nil, fmt.Errorf("property \"len\": %w", err)
		}
		r.Length = f
	} else {
		r.Length = geo.PathLength(r.Geometry)
	}
	return r, nil
}

func intProp(props geojson.Properties, key string) (int64, error) {
	v, ok := props[key]
	if !ok {
		return 0, fmt.Errorf("missing property %q", key)
	}

	var (
		n   int64
		err error
	)
	switch t := v.(type) {
	case float64:
		// 2^63 is exact as a float64, anything at or above it overflows.
		if t != math.Trunc(t) || t < math.MinInt64 || t >= math.MaxInt64 {
			return 0, fmt.Errorf("property %q is not an integer: %v", key, t)
		}
		return int64(t), nil
	case json.Number:
		n, err = t.Int64()
	case string:
		n, err = strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("property %q is not a number", key)
	}
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", key, err)
	}
	return n, nil
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(t, 64)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}
