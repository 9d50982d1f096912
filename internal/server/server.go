// Package server exposes the trigger engine over HTTP: health and state
// inspection, persona switching, the recent-action journal, and Prometheus
// metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/engine"
	"github.com/solacehub/solace-sense/internal/journal"
	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/rules"
)

const defaultActionLimit = 20

// Server is the HTTP control surface for a running engine.
type Server struct {
	engine     *engine.Engine
	dispatcher *dispatch.Dispatcher
	journal    *journal.Journal
	version    string
	httpServer *http.Server
	startTime  time.Time
	log        zerolog.Logger
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Services  map[string]ServiceHealth `json:"services"`
	Timestamp string                   `json:"timestamp"`
}

// ServiceHealth reports one component's health.
type ServiceHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// StateResponse is the full pipeline state.
type StateResponse struct {
	Engine    engine.Status `json:"engine"`
	Dispatch  DispatchState `json:"dispatch"`
	Timestamp string        `json:"timestamp"`
}

// DispatchState reports the dispatcher's queue and fan-out targets.
type DispatchState struct {
	Pending       int      `json:"pending"`
	Dropped       uint64   `json:"dropped"`
	Collaborators []string `json:"collaborators"`
}

// PersonaResponse reports the active persona and the selectable ones.
type PersonaResponse struct {
	Active    string   `json:"active"`
	Available []string `json:"available"`
}

// PersonaSwitchRequest asks for a persona change.
type PersonaSwitchRequest struct {
	Persona string `json:"persona"`
}

// ActionsResponse lists recent journaled actions, newest first.
type ActionsResponse struct {
	Actions []journal.Entry `json:"actions"`
	Count   int             `json:"count"`
}

// New builds the HTTP server. jnl may be nil when the journal is disabled;
// the actions endpoint then reports 503.
func New(addr string, eng *engine.Engine, d *dispatch.Dispatcher, jnl *journal.Journal, version string) *Server {
	s := &Server{
		engine:     eng,
		dispatcher: d,
		journal:    jnl,
		version:    version,
		startTime:  time.Now(),
		log:        logging.WithComponent("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/v1/state", s.stateHandler)
	mux.HandleFunc("/api/v1/persona", s.personaHandler)
	mux.HandleFunc("/api/v1/actions/recent", s.recentActionsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.engine.Status()
	services := map[string]ServiceHealth{
		"engine": {Healthy: true, Message: "persona " + st.Persona},
		"dispatch": {
			Healthy: true,
			Message: strconv.Itoa(s.dispatcher.Pending()) + " pending",
		},
	}
	if s.journal != nil {
		jh := ServiceHealth{Healthy: true}
		if n, err := s.journal.Count(r.Context()); err != nil {
			jh = ServiceHealth{Healthy: false, Message: err.Error()}
		} else {
			jh.Message = strconv.FormatInt(n, 10) + " actions journaled"
		}
		services["journal"] = jh
	}

	response := HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := StateResponse{
		Engine: s.engine.Status(),
		Dispatch: DispatchState{
			Pending:       s.dispatcher.Pending(),
			Dropped:       s.dispatcher.Dropped(),
			Collaborators: s.dispatcher.Collaborators(),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) personaHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writePersona(w)
	case http.MethodPost:
		var req PersonaSwitchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Persona == "" {
			http.Error(w, "persona required", http.StatusBadRequest)
			return
		}
		if err := s.engine.SwitchPersona(req.Persona); err != nil {
			if errors.Is(err, rules.ErrUnknownPersona) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.log.Error().Err(err).Str("persona", req.Persona).Msg("persona switch failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.writePersona(w)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) writePersona(w http.ResponseWriter) {
	response := PersonaResponse{
		Active:    s.engine.Status().Persona,
		Available: s.engine.Personas(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) recentActionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.journal == nil {
		http.Error(w, "Journal disabled", http.StatusServiceUnavailable)
		return
	}

	limit := defaultActionLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.journal.RecentActions(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("journal query failed")
		http.Error(w, "Failed to read journal", http.StatusInternalServerError)
		return
	}

	response := ActionsResponse{Actions: entries, Count: len(entries)}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
