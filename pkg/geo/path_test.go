package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eastwardPath() []Coordinate {
	return []Coordinate{
		NewCoordinate(52.0, 13.000),
		NewCoordinate(52.0, 13.001),
		NewCoordinate(52.0, 13.002),
	}
}

func TestReversePath(t *testing.T) {
	testCases := []struct {
		name   string
		coords []Coordinate
	}{
		{name: "two points", coords: []Coordinate{NewCoordinate(0, 0), NewCoordinate(1, 1)}},
		{name: "three points", coords: eastwardPath()},
		{name: "odd geometry", coords: []Coordinate{
			NewCoordinate(1, 1), NewCoordinate(1, 2), NewCoordinate(2, 2), NewCoordinate(3, 5), NewCoordinate(4, 4),
		}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			original := append([]Coordinate(nil), tt.coords...)
			rev := ReversePath(tt.coords)

			require.Len(t, rev, len(tt.coords))
			assert.Equal(t, tt.coords[0], rev[len(rev)-1])
			assert.Equal(t, tt.coords[len(tt.coords)-1], rev[0])
			assert.Equal(t, original, tt.coords, "input must not be modified")
		})
	}
}

func TestPathLengthAndCumulative(t *testing.T) {
	coords := eastwardPath()
	total := PathLength(coords)
	cum := CumulativeLengths(coords)

	require.Len(t, cum, 3)
	assert.Equal(t, 0.0, cum[0])
	assert.InDelta(t, total, cum[2], 1e-9)
	// 0.002 degrees of longitude at 52N is roughly 137 m.
	assert.InDelta(t, 137.0, total, 1.5)
	assert.InDelta(t, total, PathLength(ReversePath(coords)), 1e-9)
}

func TestBearingsRecomputedOnReverse(t *testing.T) {
	coords := []Coordinate{NewCoordinate(0, 0), NewCoordinate(0, 0.01), NewCoordinate(0.01, 0.01)}

	fwd := Bearings(coords)
	rev := Bearings(ReversePath(coords))

	require.Len(t, fwd, 3)
	require.Len(t, rev, 3)
	assert.InDelta(t, 90.0, fwd[0], 0.01)
	assert.InDelta(t, 0.0, fwd[1], 0.01)
	assert.InDelta(t, 0.0, fwd[2], 0.01)

	assert.InDelta(t, 180.0, rev[0], 0.01)
	assert.InDelta(t, 270.0, rev[1], 0.01)
	assert.InDelta(t, 270.0, rev[2], 0.01)
}

func TestSplitPath(t *testing.T) {
	coords := eastwardPath()
	total := PathLength(coords)

	head, tail := SplitPath(coords, 0)
	assert.Nil(t, head)
	assert.Equal(t, coords, tail)

	head, tail = SplitPath(coords, total+10)
	assert.Equal(t, coords, head)
	assert.Nil(t, tail)

	head, tail = SplitPath(coords, 30)
	require.NotEmpty(t, head)
	require.NotEmpty(t, tail)
	assert.InDelta(t, 30.0, PathLength(head), 0.01)
	assert.InDelta(t, total-30.0, PathLength(tail), 0.01)
	assert.Equal(t, head[len(head)-1], tail[0])
}

func TestJoinPaths(t *testing.T) {
	a := []Coordinate{NewCoordinate(52.0, 13.000), NewCoordinate(52.0, 13.001)}
	b := []Coordinate{NewCoordinate(52.0, 13.001), NewCoordinate(52.0, 13.002)}

	joined, err := JoinPaths([][]Coordinate{a, b})
	require.NoError(t, err)
	assert.Equal(t, eastwardPath(), joined)

	_, err = JoinPaths([][]Coordinate{b, a})
	assert.ErrorIs(t, err, ErrPathsNotConnected)
}

func TestProjectOntoPath(t *testing.T) {
	coords := eastwardPath()
	// roughly 11 m north of the middle vertex.
	p := NewCoordinate(52.0001, 13.001)

	proj := ProjectOntoPath(coords, p)
	assert.InDelta(t, 11.1, proj.Distance, 0.5)
	assert.InDelta(t, PathLength(coords)/2, proj.Along, 0.5)
}

func TestPathBearing(t *testing.T) {
	coords := eastwardPath()
	assert.InDelta(t, 90.0, PathBearing(coords, 0, 20), 0.1)
	assert.InDelta(t, 270.0, PathBearing(ReversePath(coords), 0, 20), 0.1)
	// beyond the end the last segment is used.
	assert.InDelta(t, 90.0, PathBearing(coords, PathLength(coords), 20), 0.1)
}

func TestBoundAroundPoint(t *testing.T) {
	c := NewCoordinate(52.0, 13.0)
	bb := BoundAroundPoint(c, 100)

	assert.Less(t, bb.MinLat, c.Lat)
	assert.Less(t, bb.MinLon, c.Lon)
	assert.Greater(t, bb.MaxLat, c.Lat)
	assert.Greater(t, bb.MaxLon, c.Lon)
	assert.GreaterOrEqual(t, DistanceMeters(c, NewCoordinate(bb.MaxLat, c.Lon)), 100.0)
}

func TestPolylineFromCoords(t *testing.T) {
	// example from the polyline algorithm documentation.
	coords := []Coordinate{
		NewCoordinate(38.5, -120.2),
		NewCoordinate(40.7, -120.95),
		NewCoordinate(43.252, -126.453),
	}
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", PolylineFromCoords(coords))
}

func TestParsePath(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    []Coordinate
		wantErr bool
	}{
		{
			name:  "wkt",
			input: "LINESTRING(13 52, 13.001 52, 13.002 52)",
			want:  eastwardPath(),
		},
		{
			name:  "lower case wkt",
			input: " linestring (13 52, 13.002 52) ",
			want:  []Coordinate{NewCoordinate(52, 13), NewCoordinate(52, 13.002)},
		},
		{
			name:  "polyline",
			input: "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
			want:  []Coordinate{NewCoordinate(38.5, -120.2), NewCoordinate(40.7, -120.95), NewCoordinate(43.252, -126.453)},
		},
		{name: "single vertex", input: "LINESTRING(13 52)", wantErr: true},
		{name: "broken wkt", input: "LINESTRING(13 52, abc)", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i].Lat, got[i].Lat, 1e-6)
				assert.InDelta(t, tt.want[i].Lon, got[i].Lon, 1e-6)
			}
		})
	}
}
