package analysis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/openlr"
	"github.com/lintang-b-s/olrwebtool/pkg/testnet"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func point(c geo.Coordinate, bearing, dnp float64) openlr.LRP {
	return openlr.LRP{
		Coord:   c,
		FRC:     datastructure.FRC3,
		FOW:     datastructure.FOWSingleCarriageway,
		Bearing: bearing,
		LFRCNP:  datastructure.FRC3,
		DNP:     dnp,
	}
}

func lineCode(t *testing.T, points ...openlr.LRP) string {
	t.Helper()
	code, err := openlr.EncodeBinary(&openlr.LocationReference{Type: openlr.LineLocationType, Points: points})
	require.NoError(t, err)
	return code
}

func nodes(ids ...int64) []geo.Coordinate {
	out := make([]geo.Coordinate, len(ids))
	for i, id := range ids {
		out[i] = testnet.Node(id)
	}
	return out
}

func newAnalyzer() *Analyzer {
	store := testnet.Store()
	return New(matcher.New(store, zap.NewNop()), store, 0, zap.NewNop())
}

func TestAnalyze(t *testing.T) {
	eastFRC0 := point(testnet.Node(1), 90, 411)
	eastFRC0.LFRCNP = datastructure.FRC0

	testCases := []struct {
		name        string
		code        string
		source      []geo.Coordinate
		want        Result
		wantProfile string
	}{
		{
			name:        "decoded onto the source",
			code:        lineCode(t, point(testnet.Node(1), 90, 411), point(testnet.Node(4), 270, 0)),
			source:      nodes(1, 2, 3, 4),
			want:        OK,
			wantProfile: "strict",
		},
		{
			name: "decoded path leaves the buffer with a similar length",
			code: lineCode(t, point(testnet.Node(1), 90, 274), point(testnet.Node(3), 270, 0)),
			// about 33 m north of node 2.
			source: []geo.Coordinate{
				testnet.Node(1), geo.NewCoordinate(52.0003, 13.002), testnet.Node(3),
			},
			want:        AlternateShortestPath,
			wantProfile: "strict",
		},
		{
			name:        "decoded path runs past the source",
			code:        lineCode(t, point(testnet.Node(1), 90, 411), point(testnet.Node(4), 270, 0)),
			source:      nodes(1, 2),
			want:        PathTooLong,
			wantProfile: "strict",
		},
		{
			name:        "decoded path covers part of the source",
			code:        lineCode(t, point(testnet.Node(1), 90, 137), point(testnet.Node(2), 270, 0)),
			source:      nodes(1, 2, 3, 4),
			want:        PathTooShort,
			wantProfile: "strict",
		},
		{
			name:        "lowest frc too strict",
			code:        lineCode(t, eastFRC0, point(testnet.Node(4), 270, 0)),
			source:      nodes(1, 2, 3, 4),
			want:        FRCMismatch,
			wantProfile: "ignore-frc",
		},
		{
			name: "no road along the source",
			code: lineCode(t,
				point(geo.NewCoordinate(52.0, 13.010), 90, 137),
				point(geo.NewCoordinate(52.0, 13.012), 270, 0)),
			source: []geo.Coordinate{geo.NewCoordinate(52.0, 13.010), geo.NewCoordinate(52.0, 13.012)},
			want:   MissingPath,
		},
		{
			name:   "reference asks for a much longer path",
			code:   lineCode(t, point(testnet.Node(1), 90, 2000), point(testnet.Node(4), 270, 0)),
			source: nodes(1, 2, 3, 4),
			want:   PathTooShort,
		},
	}

	a := newAnalyzer()
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := a.Analyze(context.Background(), tt.code, tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rep.Result, "%+v", rep)
			assert.Equal(t, tt.wantProfile, rep.Profile)
			assert.InDelta(t, geo.PathLength(tt.source), rep.SourceLength, 1e-9)
			if tt.wantProfile != "" {
				assert.NotEmpty(t, rep.Polyline)
				assert.Positive(t, rep.DecodedLength)
			}
		})
	}
}

func TestAnalyzeOKDeviation(t *testing.T) {
	code := lineCode(t, point(testnet.Node(1), 90, 411), point(testnet.Node(4), 270, 0))

	rep, err := newAnalyzer().Analyze(context.Background(), code, nodes(1, 4))
	require.NoError(t, err)
	assert.Equal(t, OK, rep.Result)
	assert.Less(t, rep.MaxDeviation, 5.0)
	assert.InDelta(t, rep.SourceLength, rep.DecodedLength, 5)
}

func TestAnalyzeUnsupportedLocationType(t *testing.T) {
	code, err := openlr.EncodeBinary(&openlr.LocationReference{
		Type:           openlr.PointAlongLineType,
		Points:         []openlr.LRP{point(testnet.Node(1), 90, 137), point(testnet.Node(2), 270, 0)},
		PositiveOffset: 50,
	})
	require.NoError(t, err)

	rep, err := newAnalyzer().Analyze(context.Background(), code, nodes(1, 2))
	require.NoError(t, err)
	assert.Equal(t, UnsupportedLocationType, rep.Result)
}

func TestAnalyzeBadInput(t *testing.T) {
	a := newAnalyzer()
	code := lineCode(t, point(testnet.Node(1), 90, 137), point(testnet.Node(2), 270, 0))

	_, err := a.Analyze(context.Background(), "***", nodes(1, 2))
	assert.ErrorIs(t, util.ErrorCode(err), util.ErrBadParamInput)
	assert.ErrorIs(t, err, openlr.ErrInvalidReference)

	_, err = a.Analyze(context.Background(), code, nodes(1))
	assert.ErrorIs(t, util.ErrorCode(err), util.ErrBadParamInput)
	assert.ErrorIs(t, err, geo.ErrInvalidPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Analyze(ctx, code, nodes(1, 2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultText(t *testing.T) {
	b, err := json.Marshal(Report{Result: MissingPath})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"result":"MISSING_PATH"`)

	var r Result
	require.NoError(t, r.UnmarshalText([]byte("BEARING_MISMATCH")))
	assert.Equal(t, BearingMismatch, r)
	assert.Error(t, r.UnmarshalText([]byte("FINE")))
	assert.Equal(t, "Result(42)", Result(42).String())
}
