// Package api serves the REST control surface over OBS and remote input.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hlemont/stream-automate/internal/apperr"
	"github.com/hlemont/stream-automate/internal/logging"
	"github.com/hlemont/stream-automate/internal/macro"
	"github.com/hlemont/stream-automate/internal/metrics"
	"github.com/hlemont/stream-automate/internal/obs"
	"github.com/hlemont/stream-automate/internal/protocol"
)

// OBSService is the OBS side of the API. *obs.Service implements it.
type OBSService interface {
	Scenes(ctx context.Context) ([]string, error)
	CurrentScene(ctx context.Context) (string, error)
	SetCurrentScene(ctx context.Context, name string) error
	StreamingStatus(ctx context.Context) (protocol.StreamingStatus, error)
	RecordingStatus(ctx context.Context) (obs.RecordingStatus, error)
	Stream(ctx context.Context, action obs.Action) error
	Record(ctx context.Context, action obs.Action) error
	Sources(ctx context.Context, typ string) ([]protocol.Source, error)
	MediaSources(ctx context.Context) ([]protocol.MediaSource, error)
	Media(ctx context.Context, source string) (obs.MediaStatus, error)
	ControlMedia(ctx context.Context, source string, action obs.MediaAction, timestamp *int64) error
}

// RemoteService is the input automation side. *remote.Service implements it.
type RemoteService interface {
	Authorize() error
	Macros() map[string]macro.Macro
	Macro(name string) (macro.Macro, error)
	RunNamed(name string) error
	RunMacro(m macro.Macro) error
	RunControl(c macro.Control) error
}

// Services is the component set one request runs against.
type Services struct {
	OBS            OBSService
	Remote         RemoteService
	MetricsEnabled bool
}

// Server routes requests to the services current at request time, so a
// configuration reload never changes the router.
type Server struct {
	services func() Services
	hub      *Hub
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHub serves the /events feed from hub.
func WithHub(hub *Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server reading its services from services.
func NewServer(services func() Services, opts ...Option) *Server {
	s := &Server{
		services: services,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "api")
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recoverMiddleware)
	r.Use(s.logMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, apperr.Malformed(apperr.ContextURL, "cannot %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, apperr.Malformed(apperr.ContextMethod, "method %s not allowed on %s", r.Method, r.URL.Path))
	})

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Get("/metrics", s.handleMetrics)
	}
	if s.hub != nil {
		r.Get("/events", s.hub.ServeHTTP)
	}

	r.Route("/obs", func(r chi.Router) {
		r.Get("/scene", s.handleScenes)
		r.Get("/scene/current", s.handleCurrentScene)
		r.Post("/scene/current", s.handleSetCurrentScene)
		r.Get("/stream", s.handleStreamStatus)
		r.Post("/stream", s.handleStream)
		r.Get("/record", s.handleRecordStatus)
		r.Post("/record", s.handleRecord)
		r.Get("/source/general", s.handleSources)
		r.Get("/source/media", s.handleMediaSources)
		r.Get("/source/media/{source}", s.handleMedia)
		r.Post("/source/media/{source}", s.handleControlMedia)
	})

	r.Route("/remote", func(r chi.Router) {
		r.Use(s.remoteGate)
		r.Post("/control", s.handleControl)
		r.Get("/macro", s.handleMacros)
		r.Post("/macro", s.handleRunMacro)
		r.Get("/macro/{name}", s.handleMacro)
		r.Post("/macro/{name}", s.handleRunNamed)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.services().MetricsEnabled {
		s.writeError(w, r, apperr.Malformed(apperr.ContextURL, "metrics are disabled"))
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}
