package geo

import (
	"math"

	"github.com/lintang-b-s/olrwebtool/pkg/util"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) GetLat() float64 {
	return c.Lat
}

func (c Coordinate) GetLon() float64 {
	return c.Lon
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

const (
	earthRadiusKM = 6371.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// CalculateHaversineDistance. calculate haversine distance in km
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = util.DegreeToRadians(latOne)
	longOne = util.DegreeToRadians(longOne)
	latTwo = util.DegreeToRadians(latTwo)
	longTwo = util.DegreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

// DistanceMeters is the haversine distance between a and b in meters.
func DistanceMeters(a, b Coordinate) float64 {
	return CalculateHaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon) * 1000
}

func radToDeg(r float64) float64 {
	return 180.0 * r / math.Pi
}

// GetDestinationPoint returns the destination point given the starting point, bearing and distance
// dist in km
func GetDestinationPoint(lat1, lon1 float64, bearing float64, dist float64) (float64, float64) {

	dr := dist / earthRadiusKM

	bearing = util.DegreeToRadians(bearing)

	lat1 = util.DegreeToRadians(lat1)
	lon1 = util.DegreeToRadians(lon1)

	lat2Part1 := math.Sin(lat1) * math.Cos(dr)
	lat2Part2 := math.Cos(lat1) * math.Sin(dr) * math.Cos(bearing)

	lat2 := math.Asin(lat2Part1 + lat2Part2)

	lon2Part1 := math.Sin(bearing) * math.Sin(dr) * math.Cos(lat1)
	lon2Part2 := math.Cos(dr) - (math.Sin(lat1) * math.Sin(lat2))

	lon2 := lon1 + math.Atan2(lon2Part1, lon2Part2)

	return radToDeg(lat2), normalizeLongitude(radToDeg(lon2))
}

// normalizeLongitude. long in degree
func normalizeLongitude(long float64) float64 {
	return math.Mod((long+540), 360) - 180.0
}

type BoundingBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

func NewBoundingBox(minLat, minLon, maxLat, maxLon float64) BoundingBox {
	return BoundingBox{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

// Min and Max return the corners in rtree order (lon, lat).
func (b BoundingBox) Min() [2]float64 {
	return [2]float64{b.MinLon, b.MinLat}
}

func (b BoundingBox) Max() [2]float64 {
	return [2]float64{b.MaxLon, b.MaxLat}
}

// BoundAroundPoint returns a box that contains the circle of radius meters around c.
// The corners are radius*sqrt(2) away along the diagonals.
func BoundAroundPoint(c Coordinate, radius float64) BoundingBox {
	r := radius * math.Sqrt2 / 1000
	lowerLat, lowerLon := GetDestinationPoint(c.Lat, c.Lon, 225, r)
	upperLat, upperLon := GetDestinationPoint(c.Lat, c.Lon, 45, r)
	return NewBoundingBox(lowerLat, lowerLon, upperLat, upperLon)
}

// PathBound is the smallest box containing every vertex of coords.
func PathBound(coords []Coordinate) BoundingBox {
	if len(coords) == 0 {
		return BoundingBox{}
	}
	bb := NewBoundingBox(coords[0].Lat, coords[0].Lon, coords[0].Lat, coords[0].Lon)
	for _, c := range coords[1:] {
		bb.MinLat = math.Min(bb.MinLat, c.Lat)
		bb.MinLon = math.Min(bb.MinLon, c.Lon)
		bb.MaxLat = math.Max(bb.MaxLat, c.Lat)
		bb.MaxLon = math.Max(bb.MaxLon, c.Lon)
	}
	return bb
}
