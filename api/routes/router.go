package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apprl/dashboard-backend/api/controllers"
	"github.com/apprl/dashboard-backend/api/middleware"
	"github.com/apprl/dashboard-backend/internal/payments"
	"github.com/apprl/dashboard-backend/internal/sales"
	pkgAuth "github.com/apprl/dashboard-backend/pkg/auth"
	"github.com/apprl/dashboard-backend/pkg/config"
	"github.com/apprl/dashboard-backend/pkg/logger"
)

// RouterParams carries the services and infrastructure the API surface needs.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Sales    sales.Service
	Payments payments.Service
	Metrics  prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DB, p.Redis))
	})
	r.Get("/healthz", controllers.HealthLive(p.Config))

	if p.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))

		r.Route("/sales", func(r chi.Router) {
			r.With(middleware.RequireRoles(p.Logger, pkgAuth.RoleAdmin, pkgAuth.RoleImporter)).
				Post("/", controllers.IngestSale(p.Sales, p.Logger))
			r.Get("/", controllers.ListSales(p.Sales, p.Logger))
			r.Get("/{saleID}", controllers.GetSale(p.Sales, p.Logger))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(p.Logger, pkgAuth.RoleAdmin))
				r.Post("/{saleID}/accept", controllers.AcceptSale(p.Sales, p.Logger))
				r.Post("/{saleID}/reject", controllers.RejectSale(p.Sales, p.Logger))
				r.Post("/{saleID}/redistribute", controllers.RedistributeSale(p.Sales, p.Logger))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.ListPayments(p.Payments, p.Logger))
			r.Get("/{paymentID}", controllers.GetPayment(p.Payments, p.Logger))
			r.With(middleware.RequireRoles(p.Logger, pkgAuth.RoleAdmin, pkgAuth.RolePayout)).
				Post("/{paymentID}/paid", controllers.MarkPaymentPaid(p.Payments, p.Logger))
		})
	})

	return r
}
