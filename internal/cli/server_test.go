package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tileconn"
	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/graphid"
	tcprom "github.com/hupe1980/tileconn/metrics/prometheus"
	"github.com/hupe1980/tileconn/testutil"
)

func newTestServer(t *testing.T, build bool) (*httptest.Server, *tileconn.Map, *blobstore.MemoryStore) {
	t.Helper()
	n := testutil.NewNetwork(testutil.Hierarchy())
	for i := range uint32(8) {
		n.Add(graphid.TileID{Level: testutil.Coarse, Index: i})
	}
	n.Connect(graphid.TileID{Level: testutil.Coarse, Index: 0}, graphid.TileID{Level: testutil.Coarse, Index: 1})

	reg := prometheus.NewRegistry()
	mc, err := tcprom.NewCollector(reg, "tileconn")
	require.NoError(t, err)

	m, err := tileconn.New(testutil.Hierarchy(), n, tileconn.WithMetricsCollector(mc))
	require.NoError(t, err)
	if build {
		_, err = m.BuildLevels(t.Context(), testutil.Coarse)
		require.NoError(t, err)
	}

	snaps := blobstore.NewMemoryStore()
	s := &server{m: m, snaps: snaps, logger: slog.New(slog.DiscardHandler)}
	ts := httptest.NewServer(s.handler(reg))
	t.Cleanup(ts.Close)
	return ts, m, snaps
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestServer_Color(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	var body struct {
		ID    string `json:"id"`
		Color uint32 `json:"color"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/color?id=0/1/0", &body))
	assert.Equal(t, "0/1/0", body.ID)
	assert.Equal(t, uint32(0), body.Color)

	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/color?id=0/5/0", &body))
	assert.Equal(t, uint32(4), body.Color)

	var e errorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/color?id=nope", &e))
	assert.NotEmpty(t, e.Error)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/color?id=0/8/0", &e))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/v1/color?id=1/0/0", &e))
}

func TestServer_Colors(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	var body colorsResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/colors?level=0&lon=1.5&lat=0.5&radius=60000", &body))
	assert.Equal(t, uint8(0), body.Level)
	assert.Equal(t, []tileconn.Color{0, 1, 4}, body.Colors)

	var e errorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/colors?level=0&lon=1.5&lat=0.5&radius=-1", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/colors?level=x&lon=1.5&lat=0.5", &e))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/colors?level=0&lat=0.5", &e))
}

func TestServer_Connected(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	var body map[string]bool
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/connected?level=0&from_lon=0.5&from_lat=0.5&to_lon=1.5&to_lat=0.5", &body))
	assert.True(t, body["connected"])

	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/connected?level=0&from_lon=0.5&from_lat=0.5&to_lon=3.5&to_lat=1.5", &body))
	assert.False(t, body["connected"])
}

func TestServer_HealthAndReload(t *testing.T) {
	ts, m, snaps := newTestServer(t, false)

	var e errorResponse
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/healthz", &e))

	resp, err := http.Post(ts.URL+"/v1/reload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Publish from a second map sharing the snapshot store.
	other, err := tileconn.New(testutil.Hierarchy(), testutil.NewNetwork(testutil.Hierarchy()))
	require.NoError(t, err)
	_, err = other.BuildLevels(context.Background(), testutil.Coarse)
	require.NoError(t, err)
	_, err = other.Publish(context.Background(), snaps)
	require.NoError(t, err)

	resp, err = http.Post(ts.URL+"/v1/reload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, m.Snapshot())
	assert.Equal(t, other.Snapshot().ID(), m.Snapshot().ID())

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &health))
	assert.Equal(t, other.Snapshot().ID().String(), health["snapshot"])
}

func TestServer_Metrics(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	var body map[string]any
	getJSON(t, ts.URL+"/v1/color?id=0/1/0", &body)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "tileconn_query_duration_seconds")
	assert.Contains(t, sb.String(), "tileconn_level_build_duration_seconds")
}

func TestLoadSnapshot_Build(t *testing.T) {
	n := testutil.NewNetwork(testutil.Hierarchy())
	m, err := tileconn.New(testutil.Hierarchy(), n)
	require.NoError(t, err)
	snaps := blobstore.NewMemoryStore()

	err = loadSnapshot(t.Context(), m, snaps, "", false)
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, loadSnapshot(t.Context(), m, snaps, "", true))
	require.NotNil(t, m.Snapshot())
	_, err = blobstore.Get(t.Context(), snaps, tileconn.CurrentName)
	assert.NoError(t, err)
}
