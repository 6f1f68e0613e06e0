package spatialindex

import (
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// Rtree indexes road and node ids by bounding box. It is built once and then only read.
type Rtree struct {
	tr *rtree.RTreeG[int64]
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[int64]
	return &Rtree{
		tr: &tr,
	}
}

// InsertPath indexes id by the bounding box of coords.
func (rt *Rtree) InsertPath(id int64, coords []geo.Coordinate) {
	bb := geo.PathBound(coords)
	rt.tr.Insert(bb.Min(), bb.Max(), id)
}

func (rt *Rtree) InsertPoint(id int64, c geo.Coordinate) {
	p := [2]float64{c.Lon, c.Lat}
	rt.tr.Insert(p, p, id)
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

// Build indexes every item returned by next until it reports false.
func (rt *Rtree) Build(next func() (int64, []geo.Coordinate, bool), log *zap.Logger) {
	log.Info("Building R-tree spatial index...")
	count := 0
	for {
		id, coords, ok := next()
		if !ok {
			break
		}
		rt.InsertPath(id, coords)
		count++
		if count%100000 == 0 {
			log.Info("Building R-tree spatial index...", zap.Int("indexed", count))
		}
	}
	log.Info("R-tree spatial index built.", zap.Int("items", count))
}

// SearchWithinRadius returns the ids whose bounding box intersects the box around (qLat, qLon)
// that contains the circle of radius meters. Callers filter by exact distance.
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []int64 {
	bb := geo.BoundAroundPoint(geo.NewCoordinate(qLat, qLon), radius)

	results := make([]int64, 0, 10)
	rt.tr.Search(bb.Min(), bb.Max(),
		func(min, max [2]float64, data int64) bool {
			results = append(results, data)
			return true
		})
	return results
}
