package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/observability"
	"github.com/boddenberg/zakah-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// When jwtSecret is empty the /v1 routes are served without authentication.
func NewRouter(svc *service.Assessor, metrics *observability.Metrics, jwtSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(JWTAuthMiddleware([]byte(jwtSecret), logger))
		}

		r.Get("/wizard/steps", wizardStepsHandler())
		r.Get("/metrics/summary", metricsSummaryHandler(metrics))

		if svc == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "assessment service unavailable")
			}))
			return
		}

		r.Post("/assessments", assessHandler(svc, logger))
		r.Post("/assessments/batch", assessBatchHandler(svc, logger))
		r.Get("/nisab", nisabHandler(svc, logger))
		r.Get("/rules", rulesHandler(svc))
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(svc *service.Assessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "zakah-api", Status: "healthy", LastChecked: now},
		}

		if svc != nil && svc.HasFeed() {
			start := time.Now()
			err := svc.CheckFeed(r.Context())
			feed := domain.ServiceHealth{
				Name:        "price-feed",
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				// Assessments keep working on static prices.
				feed.Status = "degraded"
				feed.Detail = err.Error()
			}
			services = append(services, feed)
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		status := http.StatusOK
		if overall == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
