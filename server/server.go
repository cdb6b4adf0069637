// Package server exposes the HTTP API: health, metrics, preference CRUD, and
// the account/feed endpoints used by the frontend. It includes permissive CORS
// for development and injects correlation IDs into request contexts for
// consistent logging.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zixifan/bili-helper/biliapi"
	"github.com/zixifan/bili-helper/config"
	"github.com/zixifan/bili-helper/session"
	"github.com/zixifan/bili-helper/telemetry"
)

// NewMux returns the HTTP handler with all routes. cfg may be nil.
func NewMux(ctx context.Context, db *sql.DB, sessions session.Store, bili *biliapi.Client, cfg *config.Config) http.Handler {
	corsCfg := loadCORSConfig()
	limiter := newIPRateLimiter(ctx, loadRateLimiterConfig())
	handlers := NewHandlers(ctx, db, sessions, bili, cfg)

	mux := http.NewServeMux()

	// Metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health and readiness endpoints
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.HandleFunc("/readyz", handlers.HandleReadyz)

	// Preference CRUD endpoints
	mux.HandleFunc("/keywords", handlers.HandleKeywords)
	mux.HandleFunc("/keywords/", handlers.HandleKeywordsDispatcher)
	mux.HandleFunc("/creators", handlers.HandleCreators)
	mux.HandleFunc("/creators/", handlers.HandleCreatorsDispatcher)
	mux.HandleFunc("/lists", handlers.HandleLists)
	mux.HandleFunc("/lists/", handlers.HandleListsDispatcher)
	mux.HandleFunc("/settings", handlers.HandleSettings)

	// Account and feed endpoints
	mux.Handle("/account/login", rateLimitMiddleware(http.HandlerFunc(handlers.HandleLogin), limiter))
	mux.HandleFunc("/account/logout", handlers.HandleLogout)
	mux.HandleFunc("/account/followings", handlers.HandleFollowings)
	mux.HandleFunc("/account/followings/search", handlers.HandleFollowingsSearch)
	mux.HandleFunc("/account/updates", handlers.HandleUpdates)

	// Wrap with correlation ID injector and tracing middleware
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
			telemetry.HTTPURLAttr(r.URL.String()),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		wrappedWriter := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		mux.ServeHTTP(wrappedWriter, r.WithContext(ctx))

		telemetry.SetSpanHTTPStatus(span, wrappedWriter.statusCode)
		if wrappedWriter.statusCode >= 400 {
			code, msg := telemetry.ErrorStatus(fmt.Sprintf("HTTP %d", wrappedWriter.statusCode))
			span.SetStatus(code, msg)
		}
	})
	return withCORSConfig(handler, corsCfg)
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, db *sql.DB, sessions session.Store, bili *biliapi.Client, cfg *config.Config, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(ctx, db, sessions, bili, cfg),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Shutdown goroutine
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
