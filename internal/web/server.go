package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hpungsan/notepad/internal/logging"
	"github.com/hpungsan/notepad/internal/metrics"
	"github.com/hpungsan/notepad/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Service *ops.Service
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewServer creates and configures the HTTP server for the notepad API and UI.
func NewServer(d Deps, version, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(d, version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed handler wrapped with security headers and
// request accounting.
func NewHandler(d Deps, version string) http.Handler {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	h := &Handlers{
		svc:      d.Service,
		planner:  d.Service.Planner(),
		renderer: NewRenderer(templateSub, version),
	}

	mux := http.NewServeMux()

	// Stateless model proxy
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("POST /api/llm/plan", h.HandlePlan)
	mux.HandleFunc("POST /api/llm/refine", h.HandleRefine)

	// Workflow API
	mux.HandleFunc("GET /api/updates", h.HandleListUpdates)
	mux.HandleFunc("POST /api/updates", h.HandleSubmit)
	mux.HandleFunc("GET /api/updates/current", h.HandleCurrent)
	mux.HandleFunc("GET /api/updates/{id}", h.HandleGetUpdate)
	mux.HandleFunc("DELETE /api/updates/{id}", h.HandleDeleteUpdate)
	mux.HandleFunc("POST /api/updates/{id}/select", h.HandleSelect)
	mux.HandleFunc("POST /api/updates/{id}/steps/{step}/pass", h.HandlePass)
	mux.HandleFunc("POST /api/updates/{id}/steps/{step}/fail", h.HandleFail)
	mux.HandleFunc("POST /api/updates/{id}/next", h.HandleNext)
	mux.HandleFunc("GET /api/heuristics", h.HandleHeuristics)
	mux.HandleFunc("POST /api/quick-edits", h.HandleQuickEdit)

	// HTML UI
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/updates", http.StatusFound)
	})
	mux.HandleFunc("GET /updates", h.HandleUpdatesPage)
	mux.HandleFunc("GET /updates/{id}", h.HandleUpdatePage)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	if d.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.HandlerFor(d.Gatherer))
	}

	return securityHeaders(recordRequests(d.Metrics, mux))
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// recordRequests counts API requests by matched route pattern and status.
func recordRequests(m *metrics.Metrics, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			return
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTP(route, rec.status)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	log := logging.Component("web")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", "http://"+srv.Addr).Msg("notepad server running")

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
