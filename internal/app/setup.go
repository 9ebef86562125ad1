// Package app contains the application setup for the inventory service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/microservices-lab/inventory-service/internal/client"
	"github.com/microservices-lab/inventory-service/internal/config"
	"github.com/microservices-lab/inventory-service/internal/events"
	"github.com/microservices-lab/inventory-service/internal/platform/server"
	"github.com/microservices-lab/inventory-service/internal/platform/web"
	"github.com/microservices-lab/inventory-service/internal/service"
	"github.com/microservices-lab/inventory-service/internal/store"
	"github.com/microservices-lab/inventory-service/internal/transport/rest"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependencies struct {
	InventoryService service.InventoryService
	Logger           *slog.Logger
	APIKey           string
}

// SetupDependencies wires the store, product client, notifier and service.
func SetupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) *Dependencies {
	return SetupDependenciesWithStore(store.NewPgStore(dbPool), cfg, logger)
}

// SetupDependenciesWithStore wires the service against an explicit store.
// Used by tests that run without a database.
func SetupDependenciesWithStore(stockStore store.StockStore, cfg *config.Config, logger *slog.Logger) *Dependencies {
	productClient := client.NewHTTPClient(cfg.Products, logger)
	notifier := events.NewLogNotifier(logger)
	iService := service.NewService(stockStore, productClient, notifier, logger)

	return &Dependencies{
		InventoryService: iService,
		Logger:           logger,
		APIKey:           cfg.API.Key,
	}
}

// SetupHttpHandler initializes the HTTP routes and middleware for the
// inventory service. Used by E2E tests to set up the HTTP server.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes. The API routes sit behind the API-key
// middleware; the health check does not.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	inventoryHandler := rest.NewHandler(deps.InventoryService, deps.Logger)
	mux.Group(func(r chi.Router) {
		r.Use(web.APIKeyAuth(deps.APIKey, deps.Logger))
		inventoryHandler.RegisterRoutes(r)
	})
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// SetupHttpServer creates and configures an HTTP server for the inventory service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)
	return server.NewHTTPServer(cfg.HTTPServer, mux)
}
