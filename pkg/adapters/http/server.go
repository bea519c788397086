package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/internal/presentation/graph"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes session operations over HTTP.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	logger    *slog.Logger
	gatherer  prometheus.Gatherer
	rateLimit int
	rateWin   time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts GET /metrics serving g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRateLimit limits each client IP to requests per window. Zero disables it.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = requests
		s.rateWin = window
	}
}

// NewServer creates a server over the given session manager.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates a new HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(enableCORS)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Group(func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(httprate.Limit(
				s.rateLimit,
				s.rateWin,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					s.logger.Warn("Rate limit exceeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
					writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
				}),
			))
		}

		r.Get("/states", s.GetStates)
		r.Get("/graph", s.GetGraph)
		r.Get("/events", s.SubscribeEvents)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.ListSessions)
			r.Post("/", s.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetSession)
				r.Delete("/", s.DeleteSession)
				r.Get("/events", s.SubscribeEvents)
				r.Post("/trigger", s.Trigger)
				r.Post("/goto", s.Goto)
				r.Post("/undo", s.Undo)
				r.Post("/redo", s.Redo)
				r.Post("/reset", s.Reset)
				r.Post("/clear", s.Clear)
			})
		})
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Reload swaps the configuration and notifies global event subscribers.
func (s *Server) Reload(cfg *domain.Config) {
	s.Sessions.SetConfig(cfg)
	s.Streams.Broadcast(globalStream, "reload")
}

type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
	State string           `json:"state,omitempty"`
	Event string           `json:"event,omitempty"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "rewind-http",
		"version": strings.TrimSpace(rewind.Version),
		"initial": s.Sessions.Config().Initial,
	})
}

// GetStates handles the GET /states request.
func (s *Server) GetStates(w http.ResponseWriter, r *http.Request) {
	machine, err := rewind.New(s.Sessions.Config())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"states": machine.States(r.URL.Query().Get("event")),
	})
}

// GetGraph handles the GET /graph request. With ?session=id the session's
// history is overlaid.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session"); id != "" {
		snap, err := s.Sessions.Load(r.Context(), id)
		if err != nil {
			s.fail(w, err)
			return
		}
		overlay = graph.OverlayFromSnapshot(snap)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Sessions.Config(), overlay))
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// CreateSession handles the POST /sessions request with a generated ID.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	s.apply(w, r, id, http.StatusCreated, func(*rewind.Machine) (*bool, error) {
		return nil, nil
	})
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.NewView(id, snap, s.Sessions.Config()))
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Trigger handles the POST /sessions/{id}/trigger request.
func (s *Server) Trigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Event string `json:"event"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Event == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "event is required"})
		return
	}
	s.apply(w, r, chi.URLParam(r, "id"), http.StatusOK, func(m *rewind.Machine) (*bool, error) {
		return nil, m.TriggerContext(r.Context(), body.Event)
	})
}

// Goto handles the POST /sessions/{id}/goto request.
func (s *Server) Goto(w http.ResponseWriter, r *http.Request) {
	var body struct {
		State string `json:"state"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.State == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "state is required"})
		return
	}
	s.apply(w, r, chi.URLParam(r, "id"), http.StatusOK, func(m *rewind.Machine) (*bool, error) {
		return nil, m.ChangeStateContext(r.Context(), body.State)
	})
}

// Undo handles the POST /sessions/{id}/undo request.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, chi.URLParam(r, "id"), http.StatusOK, func(m *rewind.Machine) (*bool, error) {
		moved := m.UndoContext(r.Context())
		return &moved, nil
	})
}

// Redo handles the POST /sessions/{id}/redo request.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, chi.URLParam(r, "id"), http.StatusOK, func(m *rewind.Machine) (*bool, error) {
		moved := m.RedoContext(r.Context())
		return &moved, nil
	})
}

// Reset handles the POST /sessions/{id}/reset request.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, chi.URLParam(r, "id"), http.StatusOK, func(m *rewind.Machine) (*bool, error) {
		m.ResetContext(r.Context())
		return nil, nil
	})
}

// Clear handles the POST /sessions/{id}/clear request.
func (s *Server) Clear(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, chi.URLParam(r, "id"), http.StatusOK, func(m *rewind.Machine) (*bool, error) {
		m.ClearHistory()
		return nil, nil
	})
}

// apply runs op through the session manager, broadcasts the resulting view
// to the session's subscribers and writes it, or the error.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, id string, status int, op func(*rewind.Machine) (*bool, error)) {
	var moved *bool
	snap, err := s.Sessions.Do(r.Context(), id, func(m *rewind.Machine) error {
		var err error
		moved, err = op(m)
		return err
	})
	if err != nil && snap.TailPtr == 0 {
		// Nothing was saved.
		s.fail(w, err)
		return
	}

	// Rejected operations are saved too, so subscribers see them.
	view := session.NewView(id, snap, s.Sessions.Config())
	view.Moved = moved
	if payload, mErr := json.Marshal(view); mErr == nil {
		s.Streams.Broadcast(id, string(payload))
	}

	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, status, view)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

// fail maps an error to its status code and JSON body.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var stateErr *domain.UnknownStateError
	var transErr *domain.UnknownTransitionError

	switch {
	case errors.Is(err, session.ErrPersistence):
		s.logger.Error("Session store failure", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session store unavailable"})
	case errors.As(err, &transErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: err.Error(),
			Kind:  domain.KindUnknownTransition,
			State: transErr.State,
			Event: transErr.Event,
		})
	case errors.As(err, &stateErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: err.Error(),
			Kind:  domain.KindUnknownState,
			State: stateErr.State,
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		s.logger.Error("Request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
