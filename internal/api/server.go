// Package api serves a local preview of the generated site together with
// JSON views of the feature collection.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/trackmap/internal/feature"
	"github.com/banshee-data/trackmap/internal/monitoring"
	"github.com/banshee-data/trackmap/internal/stats"
	"github.com/banshee-data/trackmap/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server answers from the collection as it is on disk at request time,
// so a concurrent process run shows up without a restart.
type Server struct {
	store   *feature.Store
	siteDir string
	units   string
}

func NewServer(store *feature.Store, siteDir, units string) *Server {
	return &Server{
		store:   store,
		siteDir: siteDir,
		units:   units,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tracks", s.listTracks)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/dashboard", s.showDashboard)
	mux.Handle("/", http.FileServer(http.Dir(s.siteDir)))
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// TrackAPI is one track as listed by /api/tracks.
type TrackAPI struct {
	Name      string  `json:"name"`
	Date      string  `json:"date"`
	Distance  float64 `json:"distance"`
	Units     string  `json:"units"`
	Duration  string  `json:"duration"`
	Ascent    int     `json:"ascent"`
	PlaceName string  `json:"place_name"`
	Colour    string  `json:"colour,omitempty"`
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	unit := s.units
	if u := r.URL.Query().Get("units"); u != "" {
		if !units.IsValid(u) {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'units' parameter")
			return
		}
		unit = u
	}
	year := 0
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'year' parameter")
			return
		}
		year = parsed
	}

	coll, err := s.store.Load()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load tracks: %v", err))
		return
	}

	tracks := make([]TrackAPI, 0, len(coll.Features))
	for _, f := range coll.Features {
		p := f.Properties
		if year != 0 && (len(p.Date) < 4 || p.Date[:4] != strconv.Itoa(year)) {
			continue
		}
		tracks = append(tracks, TrackAPI{
			Name:      p.Name,
			Date:      p.Date,
			Distance:  units.Round2(units.ConvertDistance(p.DistanceKm, unit)),
			Units:     unit,
			Duration:  p.Duration,
			Ascent:    p.Ascent,
			PlaceName: p.PlaceName,
			Colour:    coll.Assignments[p.Name].Colour,
		})
	}

	if err := json.NewEncoder(w).Encode(tracks); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write tracks")
		return
	}
}

// computeStats applies the start and end query parameters.
func (s *Server) computeStats(w http.ResponseWriter, r *http.Request) (*stats.Stats, bool) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return nil, false
	}
	filter, err := stats.ParseFilter(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	coll, err := s.store.Load()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load tracks: %v", err))
		return nil, false
	}
	st, err := stats.Compute(coll, filter)
	if errors.Is(err, stats.ErrNoWalks) {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to compute stats: %v", err))
		return nil, false
	}
	return st, true
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	st, ok := s.computeStats(w, r)
	if !ok {
		return
	}
	if err := stats.WriteJSON(w, st); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write stats")
		return
	}
}

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	st, ok := s.computeStats(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := stats.RenderDashboard(&buf, st); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	config := map[string]interface{}{
		"units":      s.units,
		"collection": s.store.Path(),
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}
