package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinandrus/StravaRouter/api"
	"github.com/colinandrus/StravaRouter/metrics"
	"github.com/colinandrus/StravaRouter/network"
	"github.com/colinandrus/StravaRouter/publisher"
	"github.com/colinandrus/StravaRouter/routing"
	"github.com/colinandrus/StravaRouter/store"
	"github.com/colinandrus/StravaRouter/strava"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// equatorGraph is four nodes on the equator joined in sequence.
func equatorGraph() *routing.Graph {
	g := routing.NewGraph()
	lons := []float64{0, 0.001, 0.01, 0.011}
	for i, lon := range lons {
		g.AddNode(int64(i+1), 0, lon)
	}
	for i := 1; i < len(lons); i++ {
		a := routing.Coordinate{Lat: 0, Lon: lons[i-1]}
		b := routing.Coordinate{Lat: 0, Lon: lons[i]}
		g.AddRoad(int64(i), int64(i+1), routing.HaversineDistance(a, b), "")
	}
	return g
}

const twoSegmentBody = `{"segments": [
	{"id": 1, "name": "Segment A", "points": [[0, 0], [0, 0.001]]},
	{"id": "B", "name": "Segment B", "points": [{"lat": 0, "lng": 0.01}, {"lat": 0, "lng": 0.011}]}
]}`

type fakeSource struct {
	bounds   routing.Bounds
	segments []routing.Segment
	err      error
}

func (f *fakeSource) ExploreSegments(_ context.Context, b routing.Bounds) ([]routing.Segment, error) {
	f.bounds = b
	return f.segments, f.err
}

type fakeArchive struct {
	saved  []*store.RouteSummary
	recent []store.RouteSummary
	limit  int
	err    error
}

func (f *fakeArchive) Save(_ context.Context, s *store.RouteSummary) error {
	f.saved = append(f.saved, s)
	return f.err
}

func (f *fakeArchive) Recent(_ context.Context, limit int) ([]store.RouteSummary, error) {
	f.limit = limit
	return f.recent, nil
}

type fakeEvents struct {
	published []publisher.RoutePlanned
}

func (f *fakeEvents) PublishRoutePlanned(msg publisher.RoutePlanned) error {
	f.published = append(f.published, msg)
	return nil
}

func newTestRouter(d api.Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = quietLogger()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector()
	}
	if d.Planner == nil {
		d.Planner = routing.NewPlanner(d.Log, routing.WithObserver(d.Metrics))
	}
	return api.NewRouter(api.NewHandler(d), nil)
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestBestPathJSON(t *testing.T) {
	archive := &fakeArchive{}
	events := &fakeEvents{}
	r := newTestRouter(api.Deps{
		Network: network.NewStaticProvider(equatorGraph()),
		Archive: archive,
		Events:  events,
	})

	w := doRequest(r, http.MethodPost, "/best-path", twoSegmentBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Path          [][2]float64 `json:"path"`
		TotalDistance *float64     `json:"total_distance"`
		Disconnected  bool         `json:"disconnected"`
		OptimalOrder  []int        `json:"optimal_order"`
		Segments      []struct {
			ID       json.RawMessage `json:"id"`
			StartIdx int             `json:"start_idx"`
			EndIdx   int             `json:"end_idx"`
			Color    string          `json:"color"`
		} `json:"segments"`
		SegmentsCovered int `json:"segments_covered"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, []int{0, 1}, resp.OptimalOrder)
	assert.False(t, resp.Disconnected)
	require.NotNil(t, resp.TotalDistance)
	assert.InDelta(t, 1000, *resp.TotalDistance, 5)
	assert.Equal(t, 2, resp.SegmentsCovered)
	require.Len(t, resp.Segments, 2)
	assert.Equal(t, "1", string(resp.Segments[0].ID))
	assert.Equal(t, `"B"`, string(resp.Segments[1].ID))
	assert.Equal(t, 0, resp.Segments[0].StartIdx)
	assert.Equal(t, len(resp.Path)-1, resp.Segments[1].EndIdx)
	assert.NotEmpty(t, w.Header().Get(api.RequestIDHeader))

	require.Len(t, archive.saved, 1)
	assert.Equal(t, []string{"1", "B"}, archive.saved[0].SegmentIDs)
	assert.Equal(t, w.Header().Get(api.RequestIDHeader), archive.saved[0].RequestID)
	require.Len(t, events.published, 1)
	assert.Equal(t, []int{0, 1}, events.published[0].VisitOrder)
}

func TestBestPathExportFormats(t *testing.T) {
	r := newTestRouter(api.Deps{Network: network.NewStaticProvider(equatorGraph())})

	w := doRequest(r, http.MethodPost, "/best-path?format=gpx", twoSegmentBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/gpx+xml")
	assert.Contains(t, w.Body.String(), "<trkpt")

	w = doRequest(r, http.MethodPost, "/best-path?format=geojson", twoSegmentBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/geo+json")
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 3)

	w = doRequest(r, http.MethodPost, "/best-path?format=kml", twoSegmentBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.ErrCodeInvalidRequest, decodeError(t, w)["code"])
}

func TestBestPathErrors(t *testing.T) {
	tests := []struct {
		name    string
		deps    api.Deps
		body    string
		status  int
		code    string
		message string
	}{
		{
			name:   "malformed body",
			deps:   api.Deps{Network: network.NewStaticProvider(equatorGraph())},
			body:   `{"segments": [`,
			status: http.StatusBadRequest,
			code:   api.ErrCodeInvalidRequest,
		},
		{
			name:    "no segments",
			deps:    api.Deps{Network: network.NewStaticProvider(equatorGraph())},
			body:    `{"segments": []}`,
			status:  http.StatusBadRequest,
			code:    api.ErrCodeValidationError,
			message: "No segments provided",
		},
		{
			name:   "single point segment",
			deps:   api.Deps{Network: network.NewStaticProvider(equatorGraph())},
			body:   `{"segments": [{"id": "x", "points": [[0, 0]]}]}`,
			status: http.StatusBadRequest,
			code:   api.ErrCodeValidationError,
		},
		{
			name:    "empty road network",
			deps:    api.Deps{Network: network.NewStaticProvider(routing.NewGraph())},
			body:    twoSegmentBody,
			status:  http.StatusNotFound,
			code:    api.ErrCodeNoRoadNetwork,
			message: "No road network found in this area",
		},
		{
			name:   "network provider failure",
			deps:   api.Deps{Network: failingProvider{}},
			body:   twoSegmentBody,
			status: http.StatusBadGateway,
			code:   api.ErrCodeUpstreamError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(tt.deps)
			w := doRequest(r, http.MethodPost, "/best-path", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			body := decodeError(t, w)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["request_id"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			}
		})
	}
}

func TestBestPathArchiveFailureIsNotFatal(t *testing.T) {
	archive := &fakeArchive{err: errors.New("database down")}
	r := newTestRouter(api.Deps{
		Network: network.NewStaticProvider(equatorGraph()),
		Archive: archive,
	})

	w := doRequest(r, http.MethodPost, "/best-path", twoSegmentBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, archive.saved, 1)
}

func TestFindPath(t *testing.T) {
	r := newTestRouter(api.Deps{})

	body := `{
		"segments": [{"id": "s", "points": [[0, 0], [0, 0.001], [0, 0.002]]}],
		"start": [0, 0],
		"end": [0, 0.002]
	}`
	w := doRequest(r, http.MethodPost, "/find-path", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Path     [][2]float64 `json:"path"`
		Distance float64      `json:"distance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Path, 3)
	assert.InDelta(t, 0.2224, resp.Distance, 0.001)
}

func TestFindPathDisconnected(t *testing.T) {
	r := newTestRouter(api.Deps{})

	body := `{
		"segments": [
			{"id": "a", "points": [[0, 0], [0, 0.001]]},
			{"id": "b", "points": [[1, 1], [1, 1.001]]}
		],
		"start": [0, 0],
		"end": [1, 1.001]
	}`
	w := doRequest(r, http.MethodPost, "/find-path", body)
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "No path found", resp["error"])
	assert.Equal(t, api.ErrCodeNoPathFound, resp["code"])
}

func TestFindPathMissingEndpoints(t *testing.T) {
	r := newTestRouter(api.Deps{})

	w := doRequest(r, http.MethodPost, "/find-path", `{"segments": [{"id": "a", "points": [[0, 0], [0, 1]]}], "start": [0, 0]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.ErrCodeValidationError, decodeError(t, w)["code"])
}

func TestUpdateSegments(t *testing.T) {
	source := &fakeSource{segments: []routing.Segment{
		{ID: "229781", Name: "Hawk Hill", Points: []routing.Coordinate{{Lat: 37.8331, Lon: -122.4834}, {Lat: 37.8280, Lon: -122.4985}}},
	}}
	r := newTestRouter(api.Deps{Segments: source})

	w := doRequest(r, http.MethodPost, "/update-segments",
		`{"southwest": {"lat": 37.82, "lng": -122.50}, "northeast": [37.84, -122.48]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 37.82, source.bounds.SouthWest.Lat)
	assert.Equal(t, -122.48, source.bounds.NorthEast.Lon)

	var segments []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &segments))
	require.Len(t, segments, 1)
	assert.Equal(t, "229781", string(segments[0]["id"]))
}

func TestUpdateSegmentsErrors(t *testing.T) {
	bounds := `{"southwest": [37.82, -122.50], "northeast": [37.84, -122.48]}`

	w := doRequest(newTestRouter(api.Deps{}), http.MethodPost, "/update-segments", bounds)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, api.ErrCodeSourceUnavailable, decodeError(t, w)["code"])

	r := newTestRouter(api.Deps{Segments: &fakeSource{}})
	w = doRequest(r, http.MethodPost, "/update-segments", `{"southwest": [37.82, -122.50]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/update-segments", `{"southwest": [137.82, -122.50], "northeast": [37.84, -122.48]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	upstream := &fakeSource{err: &strava.StatusError{StatusCode: http.StatusTooManyRequests, Body: "rate limited"}}
	w = doRequest(newTestRouter(api.Deps{Segments: upstream}), http.MethodPost, "/update-segments", bounds)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, api.ErrCodeUpstreamError, decodeError(t, w)["code"])

	unconfigured := &fakeSource{err: strava.ErrNotConfigured}
	w = doRequest(newTestRouter(api.Deps{Segments: unconfigured}), http.MethodPost, "/update-segments", bounds)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRecentRoutes(t *testing.T) {
	total := 1000.0
	archive := &fakeArchive{recent: []store.RouteSummary{
		{RequestID: "r1", SegmentIDs: []string{"a"}, VisitOrder: []int{0}, TotalDistance: &total},
	}}
	r := newTestRouter(api.Deps{Archive: archive})

	w := doRequest(r, http.MethodGet, "/routes/recent?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, archive.limit)

	var resp struct {
		Routes []store.RouteSummary `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, "r1", resp.Routes[0].RequestID)

	w = doRequest(r, http.MethodGet, "/routes/recent", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, archive.limit)

	w = doRequest(r, http.MethodGet, "/routes/recent?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(newTestRouter(api.Deps{}), http.MethodGet, "/routes/recent", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(api.Deps{Segments: &fakeSource{}})

	w := doRequest(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["segment_search"])
	assert.Equal(t, false, body["route_archive"])
}

func TestRequestIDNotEchoed(t *testing.T) {
	r := newTestRouter(api.Deps{})

	req := httptest.NewRequest(http.MethodGet, "/health", bytes.NewReader(nil))
	req.Header.Set(api.RequestIDHeader, "client-supplied")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get(api.RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.NotEqual(t, "client-supplied", id)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(api.Deps{})

	req := httptest.NewRequest(http.MethodOptions, "/best-path", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

type failingProvider struct{}

func (failingProvider) Graph(context.Context, orb.Bound) (*routing.Graph, error) {
	return nil, errors.New("overpass returned status 504")
}
