package handler

import (
	"net/http"
	"time"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/infra/observability"
	"github.com/upclt/consignado-api/internal/port"
	"github.com/upclt/consignado-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services groups everything the router wires behind routes.
type Services struct {
	Offers      *service.OfferCalculator
	Contracting *service.ContractingService
	Proposals   *service.ProposalService
	Chat        *service.ChatService
	Auth        *service.AuthService
	Store       port.ProposalStore
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Simulação (public)
		// =============================================
		r.Get("/simulacao", offersHandler(svcs.Offers, logger))
		r.Get("/simulacao/prazos", termsHandler(svcs.Offers))

		// =============================================
		// 2. Chat (public)
		// =============================================
		r.Post("/chat", chatHandler(svcs.Chat, logger))

		// =============================================
		// 3. Métricas agregadas
		// =============================================
		r.Get("/metrics/pipeline", pipelineMetricsHandler(metrics))

		// =============================================
		// 4. Contratação e propostas (protected)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))

			r.Post("/contratacao", contractingHandler(svcs.Contracting, logger))
			r.Get("/propostas", listProposalsHandler(svcs.Proposals, logger))
			r.Post("/propostas/atualizar", refreshProposalsHandler(svcs.Proposals, logger))
			r.Get("/propostas/ocorrencias", occurrencesHandler(svcs.Proposals, logger))

			r.Group(func(r chi.Router) {
				r.Use(AdminOnlyMiddleware(logger))
				r.Get("/admin/propostas", adminListProposalsHandler(svcs.Proposals, logger))
			})
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(store port.ProposalStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "consignado-api", Status: "healthy", LatencyMs: 0, UptimePercent: 99.99, LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			_, err := store.ListProposals(ctx, "health-check")
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency,
				UptimePercent: 99.9, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func pipelineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPipelineSnapshot())
	}
}
