package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxConcurrent int
	CORSOrigin    string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:          addr,
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		MaxConcurrent: runtime.NumCPU() * 2,
		CORSOrigin:    "",
	}
}

// NewServer creates an HTTP server with all routes and middleware, routes
// retargeted from the teacher's single /route+/health+/stats surface to the
// project handle's full render/edit/route/impact/savefile operations.
func NewServer(cfg ServerConfig, handlers *Handlers) *http.Server {
	mux := http.NewServeMux()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	wrap := func(h http.HandlerFunc) http.HandlerFunc { return withMiddleware(h, sem, cfg) }

	mux.HandleFunc("GET /api/v1/health", wrap(handlers.HandleHealth))
	mux.HandleFunc("GET /api/v1/neighbourhood", wrap(handlers.HandleRenderNeighbourhood))
	mux.HandleFunc("GET /api/v1/modal-filters", wrap(handlers.HandleRenderModalFilters))
	mux.HandleFunc("GET /api/v1/savefile", wrap(handlers.HandleSavefile))

	mux.HandleFunc("POST /api/v1/route", wrap(handlers.HandleRoute))
	mux.HandleFunc("POST /api/v1/compare-route", wrap(handlers.HandleCompareRoute))

	mux.HandleFunc("POST /api/v1/edits/modal-filter", wrap(handlers.HandleAddModalFilter))
	mux.HandleFunc("DELETE /api/v1/edits/modal-filter/{road}", wrap(handlers.HandleDeleteModalFilter))
	mux.HandleFunc("POST /api/v1/edits/modal-filters/batch", wrap(handlers.HandleAddManyModalFilters))
	mux.HandleFunc("POST /api/v1/edits/travel-flow", wrap(handlers.HandleToggleTravelFlow))
	mux.HandleFunc("POST /api/v1/edits/diagonal-filter", wrap(handlers.HandleAddDiagonalFilter))
	mux.HandleFunc("POST /api/v1/edits/diagonal-filter/rotate", wrap(handlers.HandleRotateDiagonalFilter))
	mux.HandleFunc("DELETE /api/v1/edits/diagonal-filter/{intersection}", wrap(handlers.HandleDeleteDiagonalFilter))
	mux.HandleFunc("POST /api/v1/edits/boundary", wrap(handlers.HandleSetBoundary))
	mux.HandleFunc("POST /api/v1/edits/boundary/rename", wrap(handlers.HandleRenameBoundary))
	mux.HandleFunc("DELETE /api/v1/edits/boundary", wrap(handlers.HandleDeleteBoundary))

	mux.HandleFunc("POST /api/v1/undo", wrap(handlers.HandleUndo))
	mux.HandleFunc("POST /api/v1/redo", wrap(handlers.HandleRedo))

	mux.HandleFunc("GET /api/v1/impact/aggregate", wrap(handlers.HandleAggregateImpact))
	mux.HandleFunc("POST /api/v1/impact/destination", wrap(handlers.HandleImpactToDestination))

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until shutdown signal.
func ListenAndServe(srv *http.Server) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received %s, shutting down...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// withMiddleware wraps a handler with security headers, CORS, a concurrency
// limiter, panic recovery, and a per-request timeout context, kept in the
// same shape as the teacher's withMiddleware.
func withMiddleware(handler http.HandlerFunc, sem chan struct{}, cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")

		if cfg.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		}

		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		default:
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error":"service_unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v", rec)
				http.Error(w, `{"error":"internal_error"}`, http.StatusInternalServerError)
			}
		}()

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		handler(w, r.WithContext(ctx))
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	}
}
