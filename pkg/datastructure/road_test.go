package datastructure

import (
	"math"
	"testing"

	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/stretchr/testify/assert"
)

func TestStoredRoadValidate(t *testing.T) {
	line := []geo.Coordinate{geo.NewCoordinate(0, 0), geo.NewCoordinate(1, 1)}

	testCases := []struct {
		name    string
		road    StoredRoad
		wantErr error
	}{
		{name: "valid", road: StoredRoad{ID: 1, Flow: Bidirectional, Length: 157, Geometry: line}},
		{name: "flow zero", road: StoredRoad{ID: 1, Flow: 0, Length: 157, Geometry: line}, wantErr: ErrInvalidFlowDirection},
		{name: "flow four", road: StoredRoad{ID: 1, Flow: 4, Length: 157, Geometry: line}, wantErr: ErrInvalidFlowDirection},
		{name: "zero length", road: StoredRoad{ID: 1, Flow: Bidirectional, Geometry: line}, wantErr: ErrDegenerateGeometry},
		{name: "negative length", road: StoredRoad{ID: 1, Flow: ForwardOnly, Length: -3, Geometry: line}, wantErr: ErrDegenerateGeometry},
		{name: "NaN length", road: StoredRoad{ID: 1, Flow: ForwardOnly, Length: math.NaN(), Geometry: line}, wantErr: ErrDegenerateGeometry},
		{name: "single vertex", road: StoredRoad{ID: 1, Flow: ForwardOnly, Geometry: line[:1]}, wantErr: ErrDegenerateGeometry},
		{
			name: "duplicate vertex",
			road: StoredRoad{ID: 1, Flow: ReverseOnly, Geometry: []geo.Coordinate{
				geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0), geo.NewCoordinate(1, 1),
			}},
			wantErr: ErrDegenerateGeometry,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.road.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
