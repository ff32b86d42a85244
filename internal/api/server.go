// Package api exposes the decoder's published state over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/banshee-data/imu.report/internal/db"
	"github.com/banshee-data/imu.report/internal/imu"
	"github.com/banshee-data/imu.report/internal/version"
)

// SampleSource is the read-side of a running imu.Monitor.
type SampleSource interface {
	// Latest returns the most recent decoded sample, or nil.
	Latest() *imu.Sample
	// Stats returns a snapshot of the decoder counters.
	Stats() imu.Stats
	// RequestReopen asks the decoder's owner to close and reopen the port.
	RequestReopen()
}

type Server struct {
	source SampleSource
	db     *db.DB
}

// NewServer creates an API server over the given sample source. database
// may be nil when sample archiving is disabled; the endpoints that need it
// respond 503.
func NewServer(source SampleSource, database *db.DB) *Server {
	return &Server{
		source: source,
		db:     database,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/latest", s.handleLatest)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/reopen", s.handleReopen)
	mux.HandleFunc("/api/samples", s.handleSamples)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/charts/attitude", s.handleAttitudeChart)
	mux.HandleFunc("/charts/trace.png", s.handleTracePNG)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "imud %s\n", version.String())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sample := s.source.Latest()
	if sample == nil {
		s.writeJSONError(w, http.StatusNotFound, "no sample decoded yet")
		return
	}
	s.writeJSON(w, http.StatusOK, sample)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.source.Stats()
	s.writeJSON(w, http.StatusOK, struct {
		imu.Stats
		Total  uint64  `json:"total"`
		OKRate float64 `json:"ok_rate"`
	}{
		Stats:  stats,
		Total:  stats.Total(),
		OKRate: stats.OKRate(),
	})
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.source.RequestReopen()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "reopen requested"})
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "sample archive disabled")
		return
	}

	samples, err := s.db.RecentSamples(s.recordParam(r, 0), s.limitParam(r, 100))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "sample archive disabled")
		return
	}

	summary, err := s.db.SampleSummary(s.recordParam(r, imu.RecordEuler), s.limitParam(r, 500))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// recordParam parses the ?record= query parameter, accepting numeric ids.
func (s *Server) recordParam(r *http.Request, fallback imu.RecordID) imu.RecordID {
	raw := r.URL.Query().Get("record")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v >= 0 && v <= 255 {
		return imu.RecordID(v)
	}
	return fallback
}

func (s *Server) limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 10000 {
		return v
	}
	return fallback
}
