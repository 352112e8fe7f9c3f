// Package server exposes sessions, uploads and runs over HTTP, plus a gRPC health service.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/export"
	"github.com/joseph-ayodele/notas-reader/internal/services/extraction"
	"github.com/joseph-ayodele/notas-reader/internal/services/ingest"
	"github.com/joseph-ayodele/notas-reader/internal/session"
)

type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type API struct {
	sessions *session.Manager
	ingest   *ingest.Service
	runs     *extraction.Service
	export   *export.Service
	opts     Options
	logger   *slog.Logger
}

func NewAPI(sessions *session.Manager, ing *ingest.Service, runs *extraction.Service, exp *export.Service, opts Options, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 3 * time.Minute
	}
	return &API{sessions: sessions, ingest: ing, runs: runs, export: exp, opts: opts, logger: logger}
}

// Router builds the chi handler tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.requestContext)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.opts.RequestTimeout))

	if len(a.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/sessions", func(api chi.Router) {
		api.Post("/", a.createSession)
		api.Route("/{sessionID}", func(s chi.Router) {
			s.Delete("/", a.deleteSession)
			s.Put("/credentials", a.putCredentials)
			s.Delete("/credentials", a.deleteCredentials)
			s.Post("/documents", a.uploadDocuments)
			s.Get("/documents", a.listDocuments)
			s.Post("/runs", a.startRun)
			s.Get("/runs", a.listRuns)
			s.Get("/runs/{runID}", a.getRun)
			s.Get("/export.xlsx", a.exportXLSX)
		})
	})
	return r
}

// requestContext copies chi's request ID into the common context key.
func (a *API) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = common.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Info("http.request",
			"req_id", common.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}
