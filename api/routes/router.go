package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/luvwish-checkout/api/controllers"
	"github.com/angelmondragon/luvwish-checkout/api/middleware"
	"github.com/angelmondragon/luvwish-checkout/internal/checkout"
	"github.com/angelmondragon/luvwish-checkout/internal/notifications"
	"github.com/angelmondragon/luvwish-checkout/pkg/config"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
)

// Deps carries everything the router mounts. Redis is nil when no Redis
// backend is configured.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Authenticator middleware.Authenticator
	Checkout      checkout.Service
	Notices       notifications.Service
	Redis         controllers.Pinger
	Gatherer      prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Redis))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Authenticator, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartEnter(deps.Checkout, logg))
				r.Post("/items", controllers.CartAddItem(deps.Checkout, logg))
				r.Patch("/items/{lineId}", controllers.CartChangeQuantity(deps.Checkout, logg))
				r.Delete("/items/{lineId}", controllers.CartRemoveItem(deps.Checkout, logg))
				r.Post("/coupon", controllers.CartApplyCoupon(deps.Checkout, logg))
				r.Post("/buy-now", controllers.CartBuyNow(deps.Checkout, logg))
			})
			r.Route("/delivery", func(r chi.Router) {
				r.Get("/", controllers.DeliveryEnter(deps.Checkout, logg))
				r.Put("/method", controllers.DeliverySelectMethod(deps.Checkout, logg))
				r.Put("/address", controllers.DeliverySelectAddress(deps.Checkout, logg))
				r.Patch("/form", controllers.DeliveryUpdateField(deps.Checkout, logg))
				r.Post("/form/submit", controllers.DeliverySubmitAddress(deps.Checkout, logg))
				r.Post("/candidates/{addressId}/save", controllers.DeliverySaveCandidate(deps.Checkout, logg))
				r.Post("/proceed", controllers.DeliveryProceed(deps.Checkout, logg))
			})
			r.Get("/payment", controllers.PaymentEnter(deps.Checkout, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(deps.Checkout, logg))
			r.Post("/", controllers.AddressCreate(deps.Checkout, logg))
			r.Patch("/{addressId}", controllers.AddressUpdate(deps.Checkout, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(deps.Checkout, logg))
		})

		r.Route("/notices", func(r chi.Router) {
			r.Get("/", controllers.ListNotices(deps.Notices, logg))
			r.Delete("/{noticeId}", controllers.DismissNotice(deps.Notices, logg))
		})
	})

	return r
}
