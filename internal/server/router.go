package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"crm-portal/internal/cache"
	"crm-portal/internal/database"
	"crm-portal/internal/handlers"
	"crm-portal/internal/services"
)

// NewRouter assembles the portal API. All routes are JSON; there is no
// server-rendered surface here.
func NewRouter(db *database.DB, resolver *services.Resolver, cacheManager *cache.Manager) http.Handler {
	shipmentHandler := handlers.NewShipmentHandler(db, resolver)
	locationHandler := handlers.NewLocationHandler(db)
	trackHandler := handlers.NewTrackHandler(resolver)
	healthHandler := handlers.NewHealthHandler(db, cacheManager)

	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/shipments", shipmentHandler.GetShipments)
		r.Post("/shipments", shipmentHandler.CreateShipment)
		r.Get("/shipments/{id}", shipmentHandler.GetShipmentByID)
		r.Delete("/shipments/{id}", shipmentHandler.DeleteShipment)
		r.Put("/shipments/{id}/state", shipmentHandler.SetShipmentState)
		r.Post("/shipments/{id}/refresh", shipmentHandler.RefreshShipment)

		r.Get("/locations", locationHandler.GetLocations)
		r.Post("/locations", locationHandler.CreateLocation)
		r.Delete("/locations/{id}", locationHandler.DeleteLocation)
		r.Get("/locations/{id}/records", locationHandler.GetLocationRecords)
		r.Post("/locations/{id}/records", locationHandler.CreateLocationRecord)

		r.Get("/track", trackHandler.Track)

		r.Get("/health", healthHandler.HealthCheck)
	})

	return Chain(
		r,
		LoggingMiddleware,
		RecoveryMiddleware,
		CORSMiddleware,
		SecurityMiddleware,
	)
}
