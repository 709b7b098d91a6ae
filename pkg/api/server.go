// Package api exposes the marketplace automation service over HTTP.
package api

import (
	"context"
	stdliberrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/odvcencio/snaplist/pkg/automation"
	"github.com/odvcencio/snaplist/pkg/bus"
	"github.com/odvcencio/snaplist/pkg/marketplace"
	"github.com/odvcencio/snaplist/pkg/observability"
	"github.com/odvcencio/snaplist/pkg/session"
	"github.com/odvcencio/snaplist/pkg/storage"
)

// SessionHeader carries the caller's session key.
const SessionHeader = "x-session-id"

const (
	defaultBind            = "127.0.0.1:3001"
	defaultMaxBodyBytes    = 1 << 20
	defaultShutdownTimeout = 5 * time.Second
)

// Automation is the workflow surface the HTTP handlers drive.
//
//go:generate mockgen -package=api -destination=mock_automation_test.go github.com/odvcencio/snaplist/pkg/api Automation
type Automation interface {
	Init(ctx context.Context, sessionID string) automation.Result
	Login(ctx context.Context, sessionID string, creds marketplace.Credentials) automation.Result
	Post(ctx context.Context, sessionID string, listing marketplace.Listing) automation.Result
	Close(ctx context.Context, sessionID string) automation.Result
	GenerateManualLink(listing marketplace.Listing) marketplace.ManualPost
	Health() automation.Health
	Sessions() []session.Info
	Submissions(ctx context.Context, sessionID string, limit int) ([]storage.Submission, error)
}

var _ Automation = (*automation.Service)(nil)

// Config configures the HTTP server.
type Config struct {
	Bind            string
	AllowedOrigins  []string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration

	Service Automation
	// Events feeds GET /api/events and /api/ws. Nil disables both.
	Events        bus.MessageBus
	SubjectPrefix string
	Logger        *observability.Logger
}

// Server is the snaplist HTTP server.
type Server struct {
	cfg        Config
	svc        Automation
	events     bus.MessageBus
	logger     *observability.Logger
	router     chi.Router
	httpServer *http.Server
}

// NewServer builds the router and the underlying http.Server.
func NewServer(cfg Config) *Server {
	if strings.TrimSpace(cfg.Bind) == "" {
		cfg.Bind = defaultBind
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if strings.TrimSpace(cfg.SubjectPrefix) == "" {
		cfg.SubjectPrefix = bus.DefaultSubjectPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.Discard()
	}

	s := &Server{
		cfg:    cfg,
		svc:    cfg.Service,
		events: cfg.Events,
		logger: cfg.Logger.WithComponent("api"),
	}

	router := chi.NewRouter()
	router.Use(s.requestIDMiddleware)
	router.Use(s.accessLogMiddleware)
	router.Use(s.corsMiddleware)
	router.Use(s.securityHeadersMiddleware)

	router.Get("/health", s.handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Route("/marketplace", func(r chi.Router) {
			r.Use(s.bodyLimitMiddleware)
			r.Post("/init", s.handleInit)
			r.Post("/login", s.handleLogin)
			r.Post("/post", s.handlePost)
			r.Post("/close", s.handleClose)
			r.Post("/generate-link", s.handleGenerateLink)
		})
		r.Get("/sessions", s.handleListSessions)
		r.Get("/submissions", s.handleListSubmissions)
		r.Get("/events", s.handleEvents)
		r.Get("/ws", s.handleWebSocket)
	})
	s.router = router

	// h2c lets reverse proxies speak HTTP/2 to us without TLS.
	h2s := &http2.Server{}
	s.httpServer = &http.Server{
		Addr:              cfg.Bind,
		Handler:           h2c.NewHandler(router, h2s),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Handler returns the routed handler without the h2c wrapper.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured bind address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("serving http", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !stdliberrors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err, ok := <-serverErr:
		if !ok {
			return nil
		}
		return err
	}
}
