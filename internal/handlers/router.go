package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mizutani/meibo/internal/infrastructure/metrics"
)

// HealthChecker reports whether backing services are reachable
type HealthChecker func() error

// NewRouter wires all API routes. collector and exporter may be nil when
// metrics are disabled.
func NewRouter(
	schemaHandlers *SchemaHandlers,
	recordHandlers *RecordHandlers,
	collector *metrics.Collector,
	exporter *metrics.PrometheusExporter,
	health HealthChecker,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if collector != nil {
		r.Use(metrics.Middleware(collector, exporter))
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				respondError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/schemas", func(r chi.Router) {
			r.Post("/", schemaHandlers.WriteSchema)
			r.Get("/", schemaHandlers.ReadSchema)
			r.Delete("/", schemaHandlers.DeleteSchema)
			r.Post("/validate", schemaHandlers.ValidateSchema)
			r.Get("/versions", schemaHandlers.ListVersions)
		})

		r.Route("/records", func(r chi.Router) {
			r.Post("/", recordHandlers.WriteRecord)
			r.Post("/validate", recordHandlers.ValidateRecord)
			r.Get("/{type}", recordHandlers.ListRecords)
			r.Get("/{type}/{id}", recordHandlers.GetRecord)
			r.Delete("/{type}/{id}", recordHandlers.DeleteRecord)
		})
	})

	return r
}
