// Package server serves the component gallery, preview documents, the
// component API and the live-reload websocket.
package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/conneroisu/pagelume/internal/build"
	"github.com/conneroisu/pagelume/internal/config"
	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/events"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/renderer"
	"github.com/conneroisu/pagelume/internal/scanner"
	"github.com/conneroisu/pagelume/internal/types"
	"github.com/conneroisu/pagelume/internal/version"
	"github.com/conneroisu/pagelume/internal/watcher"
	"github.com/conneroisu/pagelume/internal/websocket"
)

const (
	// WebSocketPath is where browsers subscribe to component updates
	WebSocketPath = "/__pagelume/ws"
	// GlobalAssetsURL serves the global assets directory
	GlobalAssetsURL = "/global-assets"
	// ComponentAssetsURL serves the components root
	ComponentAssetsURL = "/components"

	eventBuffer = 64
)

// Server composes discovery, build, render and live reload behind one
// http.Handler.
type Server struct {
	cfg    *config.Config
	logger logging.Logger

	scanner    *scanner.Scanner
	builder    *build.Builder
	renderer   *renderer.Renderer
	middleware *Middleware
	hub        *websocket.Hub
	bus        *events.Bus[types.WatchEvent]
	handler    http.Handler

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	watcher    *watcher.ComponentWatcher
	cancel     context.CancelFunc
	isShutdown bool

	shutdownOnce sync.Once
}

// New creates a server for cfg. rend carries any partials and helpers the
// caller registered; nil uses a fresh renderer.
func New(cfg *config.Config, rend *renderer.Renderer, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if rend == nil {
		rend = renderer.New(renderer.WithLogger(logger))
	}

	scan := scanner.New(
		scanner.WithIgnore(cfg.Components.Ignore...),
		scanner.WithLogger(logger),
	)
	builder := build.NewBuilder(build.Options{
		ComponentsRoot:  cfg.Components.Dir,
		GlobalAssetsDir: cfg.Components.GlobalAssetsDir,
		Minify:          cfg.Build.Minify,
		SourceMap:       cfg.Build.SourceMap,
	}, scan, logger)

	s := &Server{
		cfg:      cfg,
		logger:   logger.WithComponent("server"),
		scanner:  scan,
		builder:  builder,
		renderer: rend,
		hub:      websocket.NewHub(cfg.Server.AllowedOrigins, logger),
		bus:      events.NewBus[types.WatchEvent](eventBuffer),
	}
	s.middleware = NewMiddleware(MiddlewareOptions{
		ComponentsRoot: cfg.Components.Dir,
		AssetsURL:      GlobalAssetsURL,
		HotReload:      cfg.Development.HotReload,
	}, scan, builder, rend, logger)
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(WebSocketPath, s.hub)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/build/metrics", s.handleBuildMetrics)
	mux.Handle(GlobalAssetsURL+"/", http.StripPrefix(GlobalAssetsURL, http.FileServer(http.Dir(s.cfg.Components.GlobalAssetsDir))))
	mux.Handle(ComponentAssetsURL+"/", http.StripPrefix(ComponentAssetsURL, http.FileServer(http.Dir(s.cfg.Components.Dir))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.middleware.ServeGallery(w, r)
	})

	return s.logRequests(securityHeaders(s.middleware.Handler(mux)))
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Bus returns the bus watch events are published on.
func (s *Server) Bus() *events.Bus[types.WatchEvent] {
	return s.bus
}

// Start listens on the configured address and serves in the background.
// The returned error covers listening and watcher setup only.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isShutdown {
		return fmt.Errorf("server is shut down")
	}
	if s.httpServer != nil {
		return fmt.Errorf("server already started")
	}

	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if s.cfg.Development.HotReload {
		w, err := watcher.NewComponentWatcher(s.cfg.Components.Dir, s.cfg.Development.Debounce, s.bus, s.logger)
		if err != nil {
			cancel()
			_ = ln.Close()
			return errors.NewIOError(s.cfg.Components.Dir, err)
		}
		if err := w.Start(runCtx); err != nil {
			_ = w.Stop()
			cancel()
			_ = ln.Close()
			return err
		}
		s.watcher = w
	}
	go s.hub.Run(runCtx, s.bus)

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.listener = ln
	s.cancel = cancel

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error(runCtx, err, "http server stopped")
		}
	}(s.httpServer)

	s.logger.Info(ctx, "preview server listening",
		"addr", ln.Addr().String(),
		"components", s.cfg.Components.Dir,
		"hot_reload", s.cfg.Development.HotReload,
	)
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsShutdown reports whether Shutdown has been called.
func (s *Server) IsShutdown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isShutdown
}

// Shutdown stops the watcher, disconnects websocket clients and drains the
// HTTP server. Only the first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.isShutdown = true
		srv, w, cancel := s.httpServer, s.watcher, s.cancel
		s.mu.Unlock()

		if w != nil {
			if err := w.Stop(); err != nil {
				s.logger.Warn(ctx, err, "file watcher stop failed")
			}
		}
		_ = s.hub.Shutdown(ctx)
		s.bus.Close()
		if cancel != nil {
			cancel()
		}
		if srv != nil {
			shutdownErr = srv.Shutdown(ctx)
		}
		s.logger.Info(ctx, "preview server stopped")
	})
	return shutdownErr
}

type healthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	BuildInfo version.BuildInfo `json:"build_info"`
	Clients   int               `json:"clients"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	info := version.Get()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Version:   info.Short(),
		BuildInfo: info,
		Clients:   s.hub.Clients(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleBuildMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.builder.Metrics().Snapshot())
}

// securityHeaders sets the response headers every page carries. Framing is
// limited to the same origin so previews can be embedded by the gallery.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket handshake take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}
