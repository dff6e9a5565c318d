package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/lotledger/api/controllers"
	"github.com/angelmondragon/lotledger/api/middleware"
	"github.com/angelmondragon/lotledger/internal/app"
	"github.com/angelmondragon/lotledger/pkg/config"
	"github.com/angelmondragon/lotledger/pkg/logger"
	"github.com/angelmondragon/lotledger/pkg/redis"
)

// NewRouter mounts health, metrics and the inventory API. redisClient may be
// nil, in which case readiness skips Redis and idempotent replay is disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	svcs *app.Services,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	var (
		redisPinger controllers.Pinger
		idemStore   redis.IdempotencyStore
	)
	if redisClient != nil {
		redisPinger = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, cfg.HTTP.IdempotencyTTL, logg))

		r.Route("/items", func(r chi.Router) {
			r.Post("/", controllers.ItemCreate(svcs.Items, logg))
			r.Get("/", controllers.ItemList(svcs.Items, logg))
			r.Get("/{itemId}", controllers.ItemGet(svcs.Items, logg))
			r.Get("/{itemId}/summary", controllers.ItemSummary(svcs.Stock, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/receive", controllers.InventoryReceive(svcs.Lots, logg))
			r.Post("/reserve", controllers.InventoryReserve(svcs.Reservations, logg))
			r.Post("/issue", controllers.InventoryIssue(svcs.Reservations, logg))
		})

		r.Route("/lots", func(r chi.Router) {
			r.Get("/", controllers.LotList(svcs.Lots, logg))
			r.Get("/{lotId}", controllers.LotGet(svcs.Lots, logg))
			r.Get("/{lotId}/summary", controllers.LotSummary(svcs.Stock, logg))
			r.Put("/{lotId}/qc-status", controllers.LotUpdateQCStatus(svcs.Lots, logg))
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", controllers.ReservationList(svcs.Reservations, logg))
			r.Get("/{reservationId}", controllers.ReservationGet(svcs.Reservations, logg))
			r.Post("/{reservationId}/cancel", controllers.ReservationCancel(svcs.Reservations, logg))
		})

		r.Get("/ledger", controllers.LedgerList(svcs.Ledger, logg))
		r.Get("/stats", controllers.Stats(svcs.Stock, logg))
	})

	return r
}
