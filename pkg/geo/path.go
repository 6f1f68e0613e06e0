package geo

import (
	"errors"
	"math"

	"github.com/lintang-b-s/olrwebtool/pkg/util"
)

// joinTolerance is the largest gap (meters) between two paths that JoinPaths still treats as connected.
const joinTolerance = 1.0

var ErrPathsNotConnected = errors.New("paths are not connected")

// PathLength returns the length of the polyline in meters.
func PathLength(coords []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(coords); i++ {
		total += DistanceMeters(coords[i-1], coords[i])
	}
	return total
}

// CumulativeLengths returns, for every vertex, the distance in meters from the first vertex.
func CumulativeLengths(coords []Coordinate) []float64 {
	cum := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cum[i] = cum[i-1] + DistanceMeters(coords[i-1], coords[i])
	}
	return cum
}

// Bearings returns the direction of travel at every vertex: the bearing of the outgoing
// segment, and for the last vertex the bearing of the incoming one.
func Bearings(coords []Coordinate) []float64 {
	n := len(coords)
	if n < 2 {
		return nil
	}
	bearings := make([]float64, n)
	for i := 0; i < n-1; i++ {
		bearings[i] = Bearing(coords[i], coords[i+1])
	}
	bearings[n-1] = bearings[n-2]
	return bearings
}

// ReversePath returns a reversed copy of coords.
func ReversePath(coords []Coordinate) []Coordinate {
	return util.ReverseG(coords)
}

// PointAlong returns the point meters along the path. Values outside the path clamp to its ends.
func PointAlong(coords []Coordinate, meters float64) Coordinate {
	if len(coords) == 0 {
		return Coordinate{}
	}
	if meters <= 0 {
		return coords[0]
	}
	walked := 0.0
	for i := 1; i < len(coords); i++ {
		seg := DistanceMeters(coords[i-1], coords[i])
		if walked+seg > meters {
			return interpolate(coords[i-1], coords[i], meters-walked)
		}
		walked += seg
	}
	return coords[len(coords)-1]
}

func interpolate(a, b Coordinate, meters float64) Coordinate {
	if meters <= 0 {
		return a
	}
	lat, lon := GetDestinationPoint(a.Lat, a.Lon, Bearing(a, b), meters/1000)
	return NewCoordinate(lat, lon)
}

// SplitPath cuts the path meters from its start. head is nil when meters <= 0 and tail is nil
// when meters reaches the end of the path.
func SplitPath(coords []Coordinate, meters float64) (head, tail []Coordinate) {
	if meters <= 0 {
		return nil, append([]Coordinate(nil), coords...)
	}
	walked := 0.0
	for i := 1; i < len(coords); i++ {
		seg := DistanceMeters(coords[i-1], coords[i])
		if walked+seg > meters {
			into := meters - walked
			if into == 0 {
				head = append([]Coordinate(nil), coords[:i]...)
				tail = append([]Coordinate(nil), coords[i-1:]...)
				return head, tail
			}
			p := interpolate(coords[i-1], coords[i], into)
			head = append(append([]Coordinate(nil), coords[:i]...), p)
			tail = append([]Coordinate{p}, coords[i:]...)
			return head, tail
		}
		walked += seg
	}
	return append([]Coordinate(nil), coords...), nil
}

// JoinPaths concatenates paths where each one starts where the previous one ends.
func JoinPaths(paths [][]Coordinate) ([]Coordinate, error) {
	var joined []Coordinate
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		if len(joined) == 0 {
			joined = append(joined, p...)
			continue
		}
		if DistanceMeters(joined[len(joined)-1], p[0]) > joinTolerance {
			return nil, ErrPathsNotConnected
		}
		joined = append(joined, p[1:]...)
	}
	return joined, nil
}

type Projection struct {
	Point Coordinate
	// Along is the distance in meters from the start of the path to Point.
	Along float64
	// Distance is the distance in meters from the projected coordinate to Point.
	Distance float64
}

// ProjectOntoPath finds the point of the path closest to p.
func ProjectOntoPath(coords []Coordinate, p Coordinate) Projection {
	best := Projection{Distance: math.Inf(1)}
	if len(coords) == 0 {
		return best
	}
	if len(coords) == 1 {
		return Projection{Point: coords[0], Distance: DistanceMeters(coords[0], p)}
	}
	walked := 0.0
	for i := 1; i < len(coords); i++ {
		a, b := coords[i-1], coords[i]
		proj := ProjectPointToLineCoord(a, b, p)
		d := DistanceMeters(p, proj)
		if d < best.Distance {
			best = Projection{Point: proj, Along: walked + DistanceMeters(a, proj), Distance: d}
		}
		walked += DistanceMeters(a, b)
	}
	return best
}

// PathBearing is the bearing from the point at meters along the path to the point
// distance meters further. At the end of the path it falls back to the last segment.
func PathBearing(coords []Coordinate, meters, distance float64) float64 {
	n := len(coords)
	if n < 2 {
		return 0
	}
	from := PointAlong(coords, meters)
	to := PointAlong(coords, meters+distance)
	if DistanceMeters(from, to) < 1e-6 {
		return Bearing(coords[n-2], coords[n-1])
	}
	return Bearing(from, to)
}
