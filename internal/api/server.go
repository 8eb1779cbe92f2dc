// Package api provides the Verbum HTTP API: passage lookup, navigation,
// keyword search and an interactive websocket reader.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/verbum/core/corpus"
	"github.com/FocuswithJustin/verbum/core/ref"
	"github.com/FocuswithJustin/verbum/internal/logging"
	"github.com/FocuswithJustin/verbum/internal/metrics"
	"github.com/FocuswithJustin/verbum/internal/search"
	"github.com/FocuswithJustin/verbum/internal/server"
	"github.com/FocuswithJustin/verbum/internal/session"
	"github.com/FocuswithJustin/verbum/internal/validation"
)

// Server serves one corpus over HTTP. All request handling is stateless
// except the per-connection websocket sessions.
type Server struct {
	cfg      Config
	acc      corpus.Accessor
	parser   *ref.Parser
	stepper  *session.Stepper
	searcher *search.Searcher
	metrics  *metrics.Metrics
	validate *validation.Validator
	limiter  *RateLimiter
	upgrader websocket.Upgrader

	title       string
	verses      int
	fingerprint string
	started     time.Time
}

// New builds a Server for acc. A nil m creates a fresh metrics registry.
func New(acc corpus.Accessor, cfg Config, m *metrics.Metrics) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	if m == nil {
		m = metrics.New()
	}
	if cfg.WebSocket == (WebSocketConfig{}) {
		cfg.WebSocket = DefaultWebSocketConfig()
	}

	parser := ref.NewParser(acc, nil)
	s := &Server{
		cfg:         cfg,
		acc:         acc,
		parser:      parser,
		stepper:     session.New(acc, parser),
		searcher:    search.New(acc, cfg.SearchCacheTTL, cfg.SearchCacheSize),
		metrics:     m,
		validate:    validation.New(),
		fingerprint: corpus.Fingerprint(acc),
		started:     time.Now(),
	}
	s.searcher.OnCacheHit = m.SearchCacheHits.Inc

	if t, ok := acc.(interface{ Title() string }); ok {
		s.title = t.Title()
	}
	corpus.Walk(acc, func(string, int, int, string) bool {
		s.verses++
		return true
	})
	m.CorpusVerses.Set(float64(s.verses))

	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}

	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := s.routes()

	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), mux)
	handler = AuthMiddleware(s.cfg.Auth, handler)
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	handler = server.TimingMiddleware(server.DefaultSlowRequest, handler)
	return logging.CombinedMiddleware(handler)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	get := func(endpoint string, h http.HandlerFunc) {
		mux.Handle(endpoint, s.metrics.Middleware(endpoint, getOnly(h)))
	}
	get("/", s.handleRoot)
	get("/health", s.handleHealth)
	get("/books", s.handleBooks)
	get("/lookup", s.handleLookup)
	get("/read", s.handleRead)
	get("/next", s.handleNext)
	get("/prev", s.handlePrev)
	get("/search", s.handleSearch)
	get("/ws", s.handleWebSocket)
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

func getOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			respondError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Only GET is allowed")
			return
		}
		h(w, r)
	})
}

// ListenAndServe serves on cfg.Port until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*)")
	}
	logging.SecurityEvent("authentication_configured", "api", "enabled", s.cfg.Auth.Enabled)
	logging.ServerStartup("rest_api", "http", s.cfg.Port,
		"addr", ln.Addr().String(),
		"books", len(s.acc.Books()),
		"rate_limit_per_minute", s.cfg.RateLimitRequests)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logging.Info("server shutting down", "timeout", timeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
