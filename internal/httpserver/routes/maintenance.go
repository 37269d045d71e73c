package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tonton/internal/httpserver/mw"
)

func init() { RegisterAPI(registerMaintenance) }

func registerMaintenance(r chi.Router, d deps.Deps) {
	ops := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
	ops.Post("/maintenance/dedup", handlers.TriggerDedup(d))
	ops.Post("/maintenance/import", handlers.TriggerImport(d))
}
