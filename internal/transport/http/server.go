// Package http exposes the ingest and read API: batch ingestion, vehicle
// state lookup, health, metrics and the live insight stream.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"fleet-insight/internal/auth"
	"fleet-insight/internal/domain"
	"fleet-insight/internal/engine"
	"fleet-insight/internal/metrics"
	"fleet-insight/internal/transport/ws"
	"fleet-insight/internal/validate"
)

// Pinger is anything the health endpoint should check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	engine   *engine.Engine
	onBatch  func(engine.BatchResult)
	authMw   *AuthMiddleware
	hub      *ws.Hub
	checks   map[string]Pinger
	maxBytes int64
}

func NewServer(eng *engine.Engine, onBatch func(engine.BatchResult), authMw *AuthMiddleware, hub *ws.Hub) *Server {
	return &Server{
		engine:   eng,
		onBatch:  onBatch,
		authMw:   authMw,
		hub:      hub,
		checks:   make(map[string]Pinger),
		maxBytes: 10 << 20,
	}
}

// WithHealthCheck registers a dependency for /healthz.
func (s *Server) WithHealthCheck(name string, p Pinger) *Server {
	s.checks[name] = p
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/telemetry/batch", s.authMw.Wrap(http.HandlerFunc(s.handleBatch)))
	mux.HandleFunc("/v1/vehicles/", s.handleVehicle)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/metrics", metrics.HandleMetrics)
	if s.hub != nil {
		mux.HandleFunc("/v1/stream", s.hub.HandleSubscribe)
	}
	return mux
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	payloads, err := validate.ValidateBatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payloads, forbidden := filterByScope(payloads, AgencyScope(r.Context()))

	result := s.engine.ProcessBatch(r.Context(), payloads)
	if s.onBatch != nil {
		s.onBatch(result)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]int{
		"events":    len(result.Events),
		"rejected":  result.Rejected,
		"stale":     result.Stale,
		"failed":    result.Failed,
		"forbidden": forbidden,
		"insights":  len(result.Insights),
	}); err != nil {
		log.Printf("batch response encode failed: %v", err)
	}
}

// filterByScope drops records whose agency does not match the API key's
// scope. Unscoped keys pass everything through.
func filterByScope(payloads [][]byte, scope string) (kept [][]byte, forbidden int) {
	if scope == "" || scope == auth.ScopeAll {
		return payloads, 0
	}

	kept = payloads[:0]
	for _, payload := range payloads {
		var rec struct {
			Agency string `json:"agency"`
		}
		if json.Unmarshal(payload, &rec) != nil || rec.Agency != scope {
			forbidden++
			continue
		}
		kept = append(kept, payload)
	}
	return kept, forbidden
}

// handleVehicle serves GET /v1/vehicles/{agency}/{vehicleId}.
func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/vehicles/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "path must be /v1/vehicles/{agency}/{vehicleId}")
		return
	}

	st, ok := s.engine.Store().Get(domain.Key{Agency: parts[0], VehicleID: parts[1]})
	if !ok {
		writeError(w, http.StatusNotFound, "unknown vehicle")
		return
	}

	zones := make([]string, 0, len(st.ActiveZones))
	for id := range st.ActiveZones {
		zones = append(zones, id)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"agency":       st.Key.Agency,
		"vehicle_id":   st.Key.VehicleID,
		"lat":          st.CurrentPosition.Latitude,
		"lon":          st.CurrentPosition.Longitude,
		"speed_kmh":    st.CurrentSpeedKmh,
		"heading":      st.CurrentHeading,
		"route":        st.CurrentRoute,
		"active_zones": zones,
		"last_event":   st.LastEventTime,
	}); err != nil {
		log.Printf("vehicle response encode failed: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))

	for name, p := range s.checks {
		if err := p.Ping(r.Context()); err != nil {
			deps[name] = "down: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "up"
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":       overall,
		"dependencies": deps,
		"vehicles":     s.engine.Store().Len(),
	}); err != nil {
		log.Printf("healthz response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
