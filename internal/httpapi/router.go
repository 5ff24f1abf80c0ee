// Package httpapi exposes parsing, rolling, range and distribution sampling
// as a small JSON API served by "azdice serve".
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/azdice/internal/config"
	"github.com/cory-johannsen/azdice/internal/dice"
	"github.com/cory-johannsen/azdice/internal/preset"
)

// Recorder stores batches of rolls. *postgres.HistoryRepository satisfies it.
type Recorder interface {
	RecordMany(ctx context.Context, expr, source string, rolls []dice.Summary) (int64, error)
}

// Deps are the collaborators the API handlers share.
type Deps struct {
	Roller  *dice.Roller
	Presets *preset.Library // may be nil
	// WorkerSource builds one Source per sampling goroutine; nil shares the
	// roller's Source.
	WorkerSource func() dice.Source
	// SourceName labels recorded rolls, e.g. "crypto".
	SourceName string
	Recorder   Recorder // may be nil; "record=true" then fails with 501
	// Ping, when set, backs /healthz with a dependency check.
	Ping func(ctx context.Context) error

	Config config.HTTPConfig
	Logger *zap.Logger
}

// NewRouter builds the chi router serving the API under /v1.
//
// Precondition: d.Roller and d.Logger must be non-nil.
func NewRouter(d Deps) chi.Router {
	h := &handler{deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Config.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Route("/v1", func(rr chi.Router) {
		rr.Get("/parse", h.Parse)
		rr.Get("/range", h.Range)
		rr.Get("/roll", h.Roll)
		rr.Get("/distribution", h.Distribution)
		rr.Get("/presets", h.Presets)
		rr.Get("/presets/{name}", h.Preset)
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
