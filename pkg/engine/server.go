package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mockfig/mockfig/pkg/config"
)

// ServerOptions configures the HTTP server around an Engine.
type ServerOptions struct {
	Addr string
	// AdminHandler, when set, is mounted under /__admin/.
	AdminHandler http.Handler
	// MetricsRegistry enables /__metrics when non-nil.
	MetricsRegistry *prometheus.Registry
}

// Server is the mock API server: the engine plus its service routes.
type Server struct {
	httpServer *http.Server
	store      *config.Store
	log        *slog.Logger
}

// NewServer builds the route tree around the engine. The descriptor route
// at "/" answers only exact-path GETs so a configured "/" endpoint still
// wins for other methods.
func NewServer(eng *Engine, store *config.Store, log *slog.Logger, opts ServerOptions) *Server {
	mux := http.NewServeMux()

	if opts.MetricsRegistry != nil {
		mux.Handle("GET /__metrics", promhttp.HandlerFor(opts.MetricsRegistry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /__health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if opts.AdminHandler != nil {
		mux.Handle("/__admin/", http.StripPrefix("/__admin", opts.AdminHandler))
	}
	mux.Handle("/", withDescriptor(eng, store))

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store: store,
		log:   log,
	}
}

// withDescriptor serves the API metadata document on GET / when no
// endpoint claims the root path; everything else goes to the engine.
func withDescriptor(eng *Engine, store *config.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := store.Snapshot()
		if r.URL.Path == "/" && r.Method == http.MethodGet && !rootConfigured(snap) {
			writeDescriptor(w, snap)
			return
		}
		eng.ServeHTTP(w, r)
	})
}

func rootConfigured(snap *config.Snapshot) bool {
	root := "/"
	if snap.API.BasePath != "" {
		return false
	}
	for _, ep := range snap.Endpoints {
		if ep.Path == root && ep.Method == http.MethodGet {
			return true
		}
	}
	return false
}

func writeDescriptor(w http.ResponseWriter, snap *config.Snapshot) {
	type route struct {
		Method string `json:"method"`
		Path   string `json:"path"`
		Tag    string `json:"tag,omitempty"`
	}
	routes := make([]route, len(snap.Endpoints))
	for i, ep := range snap.Endpoints {
		routes[i] = route{Method: ep.Method, Path: snap.API.BasePath + ep.Path, Tag: ep.Tag}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":       snap.API.Title,
		"version":     snap.API.Version,
		"description": snap.API.Description,
		"endpoints":   routes,
	})
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// Handler exposes the full route tree, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
