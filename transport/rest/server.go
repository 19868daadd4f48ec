package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/mancala-backend/internal/observability"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	// BasePath is where the browser client and the health check live, e.g. "/mancala".
	BasePath string
	// StaticDir holds the built browser client. Empty disables static files.
	StaticDir string
}

// NewRouter builds the HTTP surface: liveness, metrics and the static client.
func NewRouter(logger *slog.Logger, options Options) http.Handler {
	base := strings.TrimSuffix(options.BasePath, "/")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", pingHandler)
	mux.HandleFunc("GET "+base+"/health", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	if options.StaticDir != "" {
		mux.Handle("GET "+base+"/", http.StripPrefix(base, http.FileServer(http.Dir(options.StaticDir))))
	}

	if base != "" {
		mux.Handle("GET /{$}", http.RedirectHandler(base+"/", http.StatusFound))
	}

	return withMetrics(logger, mux)
}

// withMetrics records every request. Paths outside the known routes are folded together to bound cardinality.
func withMetrics(logger *slog.Logger, next *http.ServeMux) http.Handler {
	log := logger.With("component", "rest")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		_, pattern := next.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}

		observability.RecordHTTPRequest(r.Method, pattern, recorder.status, time.Since(start))
		log.Debug("http_request", "method", r.Method, "path", r.URL.Path, "status", recorder.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (that *statusRecorder) WriteHeader(status int) {
	that.status = status
	that.ResponseWriter.WriteHeader(status)
}

// Start - starts HTTP server and stops it when ctx is done.
func Start(ctx context.Context, port string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
