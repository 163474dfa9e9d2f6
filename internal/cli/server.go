package cli

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/tileconn"
	"github.com/hupe1980/tileconn/blobstore"
)

// server exposes map queries over HTTP.
type server struct {
	m      *tileconn.Map
	snaps  blobstore.BlobStore
	logger *slog.Logger
}

func (s *server) handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/color", s.handleColor)
	mux.HandleFunc("GET /v1/colors", s.handleColors)
	mux.HandleFunc("GET /v1/connected", s.handleConnected)
	mux.HandleFunc("POST /v1/reload", s.handleReload)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return accessLog(s.logger, mux)
}

type colorsResponse struct {
	Level  uint8            `json:"level"`
	Colors []tileconn.Color `json:"colors"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.m.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no snapshot loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":   snap.ID().String(),
		"created_at": snap.CreatedAt(),
	})
}

func (s *server) handleColor(w http.ResponseWriter, r *http.Request) {
	id, err := parseGraphID(r.URL.Query().Get("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	c, err := s.m.ColorOf(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id.String(), "color": c})
}

func (s *server) handleColors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level, err := parseLevel(q.Get("level"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	p, radius, err := parsePoint(q, "")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	set, err := s.m.ColorsInRadius(level, p, radius)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, colorsResponse{Level: level, Colors: set.Slice()})
}

func (s *server) handleConnected(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level, err := parseLevel(q.Get("level"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	a, radius, err := parsePoint(q, "from_")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	b, _, err := parsePoint(q, "to_")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	ok, err := s.m.Connected(level, tileconn.NewLocation(a), tileconn.NewLocation(b), radius)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": ok})
}

func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.m.LoadCurrent(r.Context(), s.snaps); err != nil {
		writeError(w, err)
		return
	}
	s.handleHealth(w, r)
}

func parseLevel(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, errors.New("level: expected an integer between 0 and 255")
	}
	return uint8(v), nil
}

// parsePoint reads <prefix>lon, <prefix>lat and radius. A missing radius is 0.
func parsePoint(q url.Values, prefix string) (orb.Point, float64, error) {
	get := q.Get
	lon, err := strconv.ParseFloat(get(prefix+"lon"), 64)
	if err != nil {
		return orb.Point{}, 0, errors.New(prefix + "lon: expected a number")
	}
	lat, err := strconv.ParseFloat(get(prefix+"lat"), 64)
	if err != nil {
		return orb.Point{}, 0, errors.New(prefix + "lat: expected a number")
	}
	var radius float64
	if v := get("radius"); v != "" {
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			return orb.Point{}, 0, errors.New("radius: expected a number")
		}
	}
	return orb.Point{lon, lat}, radius, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tileconn.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, tileconn.ErrNotBuilt):
		status = http.StatusServiceUnavailable
	case errors.Is(err, blobstore.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func accessLog(l *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		l.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration", time.Since(start),
		)
	})
}
