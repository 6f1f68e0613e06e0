package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lintang-b-s/olrwebtool/pkg/analysis"
	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/http/usecases"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/openlr"
	"github.com/lintang-b-s/olrwebtool/pkg/testnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, rateLimit float64) http.Handler {
	t.Helper()
	store := testnet.Store()
	log := zap.NewNop()
	return NewAPI(log).Handler(5*time.Second, rateLimit,
		usecases.NewDecodeService(log, matcher.New(store, log)),
		usecases.NewNetworkService(log, store),
		usecases.NewAnalysisService(log, analysis.New(matcher.New(store, log), store, 0, log)))
}

func encode(t *testing.T, from, to int64, bearing, back, dnp float64) string {
	t.Helper()
	code, err := openlr.EncodeBinary(&openlr.LocationReference{Type: openlr.LineLocationType, Points: []openlr.LRP{
		{Coord: testnet.Node(from), FRC: datastructure.FRC3, FOW: datastructure.FOWSingleCarriageway, Bearing: bearing, LFRCNP: datastructure.FRC3, DNP: dnp},
		{Coord: testnet.Node(to), FRC: datastructure.FRC3, FOW: datastructure.FOWSingleCarriageway, Bearing: back},
	}})
	require.NoError(t, err)
	return code
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func get(t *testing.T, h http.Handler, target string) (int, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

type line struct {
	ID        string `json:"id"`
	LegacyID  int64  `json:"legacy_id"`
	RoadID    int64  `json:"road_id"`
	Direction string `json:"direction"`
	StartNode int64  `json:"start_node"`
	EndNode   int64  `json:"end_node"`
}

func lineIDs(t *testing.T, data json.RawMessage) []string {
	t.Helper()
	var lines []line
	require.NoError(t, json.Unmarshal(data, &lines))
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return ids
}

func TestDecodeEndpoint(t *testing.T) {
	h := newHandler(t, 0)
	east := encode(t, 1, 4, 90, 270, 411)
	// the last point faces away from every line ending at node 1.
	unmatched, err := openlr.EncodeBinary(&openlr.LocationReference{Type: openlr.LineLocationType, Points: []openlr.LRP{
		{Coord: testnet.Node(1), Bearing: 90, DNP: 100},
		{Coord: testnet.Node(1), Bearing: 270},
	}})
	require.NoError(t, err)
	unmatched, east = url.QueryEscape(unmatched), url.QueryEscape(east)

	testCases := []struct {
		name        string
		target      string
		wantStatus  int
		wantProfile string
	}{
		{name: "default profiles", target: "/api/decode?code=" + east, wantStatus: http.StatusOK, wantProfile: "strict"},
		{name: "named profile", target: "/api/decode?profile=anypath&code=" + east, wantStatus: http.StatusOK, wantProfile: "anypath"},
		{name: "missing code", target: "/api/decode", wantStatus: http.StatusBadRequest},
		{name: "not base64", target: "/api/decode?code=***", wantStatus: http.StatusBadRequest},
		{name: "unknown profile", target: "/api/decode?profile=fast&code=" + east, wantStatus: http.StatusBadRequest},
		{name: "no match", target: "/api/decode?code=" + unmatched, wantStatus: http.StatusNotFound},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := get(t, h, tt.target)
			require.Equal(t, tt.wantStatus, status, resp.Error.Message)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, http.StatusText(tt.wantStatus), resp.Error.Code)
				return
			}

			var path matcher.MatchedPath
			require.NoError(t, json.Unmarshal(resp.Data, &path))
			assert.Equal(t, tt.wantProfile, path.Profile)
			require.Len(t, path.Lines, 3)
			assert.Equal(t, "100:F", path.Lines[0].LineID)
		})
	}
}

func TestLineEndpoints(t *testing.T) {
	h := newHandler(t, 0)

	status, resp := get(t, h, "/api/lines/100:R")
	require.Equal(t, http.StatusOK, status)
	var l line
	require.NoError(t, json.Unmarshal(resp.Data, &l))
	assert.Equal(t, line{ID: "100:R", LegacyID: -100, RoadID: 100, Direction: "R", StartNode: 2, EndNode: 1}, l)

	status, _ = get(t, h, "/api/lines/102:R")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = get(t, h, "/api/lines/abc")
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = get(t, h, "/api/lines?lat=52.0&lon=13.001&radius=10")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"100:F", "100:R"}, lineIDs(t, resp.Data))

	status, _ = get(t, h, "/api/lines?lat=91&lon=13")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, h, "/api/lines?lon=13")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNodeEndpoints(t *testing.T) {
	h := newHandler(t, 0)

	testCases := []struct {
		target     string
		wantStatus int
		wantLines  []string
	}{
		{target: "/api/nodes/2/outgoing", wantStatus: http.StatusOK, wantLines: []string{"100:R", "101:F", "103:R"}},
		{target: "/api/nodes/2/incoming", wantStatus: http.StatusOK, wantLines: []string{"100:F", "101:R"}},
		{target: "/api/nodes/5/outgoing", wantStatus: http.StatusOK, wantLines: []string{}},
		{target: "/api/nodes/5/incoming", wantStatus: http.StatusOK, wantLines: []string{"103:R"}},
		{target: "/api/nodes/99/outgoing", wantStatus: http.StatusNotFound},
		{target: "/api/nodes/x/outgoing", wantStatus: http.StatusBadRequest},
		{target: "/api/nodes/-1/incoming", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range testCases {
		t.Run(tt.target, func(t *testing.T) {
			status, resp := get(t, h, tt.target)
			require.Equal(t, tt.wantStatus, status)
			if tt.wantLines != nil {
				assert.Equal(t, tt.wantLines, lineIDs(t, resp.Data))
			}
		})
	}
}

func TestNodesNear(t *testing.T) {
	h := newHandler(t, 0)

	status, resp := get(t, h, "/api/nodes?lat=52.0&lon=13.002&radius=150")
	require.Equal(t, http.StatusOK, status)
	var nodes []struct {
		ID  int64   `json:"id"`
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &nodes))
	require.Len(t, nodes, 3)
	assert.Equal(t, int64(1), nodes[0].ID)
	assert.Equal(t, int64(2), nodes[1].ID)
	assert.Equal(t, int64(3), nodes[2].ID)
	assert.Equal(t, 13.002, nodes[1].Lon)

	status, resp = get(t, h, "/api/nodes?lat=10&lon=10")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(resp.Data))

	status, _ = get(t, h, "/api/nodes?lat=52&lon=13&radius=0")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAnalyzeEndpoint(t *testing.T) {
	h := newHandler(t, 0)
	east := url.QueryEscape(encode(t, 1, 4, 90, 270, 411))
	onRoad := url.QueryEscape("LINESTRING(13.000 52.0, 13.006 52.0)")
	offMap := url.QueryEscape("LINESTRING(13.010 52.0, 13.012 52.0)")

	testCases := []struct {
		name       string
		target     string
		wantStatus int
		wantResult string
	}{
		{name: "on the source", target: "/api/analyze?code=" + east + "&path=" + onRoad, wantStatus: http.StatusOK, wantResult: "OK"},
		{name: "away from the source", target: "/api/analyze?code=" + east + "&path=" + offMap, wantStatus: http.StatusOK, wantResult: "PATH_TOO_LONG"},
		{name: "missing path", target: "/api/analyze?code=" + east, wantStatus: http.StatusBadRequest},
		{name: "broken path", target: "/api/analyze?code=" + east + "&path=" + url.QueryEscape("LINESTRING(1)"), wantStatus: http.StatusBadRequest},
		{name: "broken code", target: "/api/analyze?code=***&path=" + onRoad, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := get(t, h, tt.target)
			require.Equal(t, tt.wantStatus, status, resp.Error.Message)
			if tt.wantResult == "" {
				return
			}
			var report struct {
				Result  string `json:"result"`
				Profile string `json:"profile"`
			}
			require.NoError(t, json.Unmarshal(resp.Data, &report))
			assert.Equal(t, tt.wantResult, report.Result)
			assert.Equal(t, "strict", report.Profile)
		})
	}
}

func TestHealthz(t *testing.T) {
	status, resp := get(t, newHandler(t, 0), "/healthz")
	require.Equal(t, http.StatusOK, status)

	var health struct {
		Status string `json:"status"`
		Roads  int64  `json:"roads"`
		Nodes  int64  `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, int64(4), health.Roads)
	assert.Equal(t, int64(5), health.Nodes)
}

func TestRateLimit(t *testing.T) {
	h := newHandler(t, 1)

	status, _ := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	status, resp := get(t, h, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate limit exceeded", resp.Error.Message)
}

func TestEnforceJSON(t *testing.T) {
	h := newHandler(t, 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/decode", strings.NewReader("code"))
	req.Header.Set("Content-Type", "text/plain")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

type panickingDecoder struct{}

func (panickingDecoder) Decode(context.Context, string, string) (*matcher.MatchedPath, error) {
	panic("boom")
}

func TestRecoverPanic(t *testing.T) {
	log := zap.NewNop()
	h := NewAPI(log).Handler(0, 0, panickingDecoder{}, usecases.NewNetworkService(log, testnet.Store()), nil)

	status, resp := get(t, h, "/api/decode?code=CwF%2BqR/ptiOfD/0uAaUjEg==")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), resp.Error.Code)
}
