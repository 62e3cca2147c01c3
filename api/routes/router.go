package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thomaggio/thomaggio-backend/api/controllers"
	cartcontrollers "github.com/thomaggio/thomaggio-backend/api/controllers/cart"
	ordercontrollers "github.com/thomaggio/thomaggio-backend/api/controllers/orders"
	paymentcontrollers "github.com/thomaggio/thomaggio-backend/api/controllers/payments"
	promocontrollers "github.com/thomaggio/thomaggio-backend/api/controllers/promo"
	"github.com/thomaggio/thomaggio-backend/api/middleware"
	"github.com/thomaggio/thomaggio-backend/internal/cart"
	"github.com/thomaggio/thomaggio-backend/internal/orders"
	"github.com/thomaggio/thomaggio-backend/internal/payments"
	"github.com/thomaggio/thomaggio-backend/internal/promo"
	mpwebhook "github.com/thomaggio/thomaggio-backend/internal/webhooks/mercadopago"
	"github.com/thomaggio/thomaggio-backend/pkg/config"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
)

// Services collects everything the router exposes over HTTP.
type Services struct {
	Cart     cart.Service
	Promo    promo.Service
	Orders   orders.Service
	Payments payments.Service
	Webhook  *mpwebhook.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisPinger controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Post("/", cartcontrollers.CartCreate(svcs.Cart, logg))
			r.Route("/{cartCode}", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(svcs.Cart, logg))
				r.Put("/", cartcontrollers.CartUpdate(svcs.Cart, logg))
				r.Delete("/", cartcontrollers.CartDelete(svcs.Cart, logg))
				r.Route("/items", func(r chi.Router) {
					r.Post("/", cartcontrollers.CartAddItem(svcs.Cart, logg))
					r.Delete("/", cartcontrollers.CartClearItems(svcs.Cart, logg))
					r.Patch("/{itemID}", cartcontrollers.CartUpdateItem(svcs.Cart, logg))
					r.Delete("/{itemID}/size/{size}", cartcontrollers.CartRemoveItem(svcs.Cart, logg))
				})
			})
		})

		r.Route("/promocode", func(r chi.Router) {
			r.Post("/apply/{code}/{cartCode}", promocontrollers.PromoApply(svcs.Promo, logg))
			r.Delete("/remove/{cartCode}", promocontrollers.PromoRemove(svcs.Promo, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.OrderCreate(svcs.Orders, logg))
			r.Get("/", ordercontrollers.OrderList(svcs.Orders, logg))
			r.Get("/search", ordercontrollers.OrderSearch(svcs.Orders, logg))
			r.Get("/{code}", ordercontrollers.OrderDetail(svcs.Orders, logg))
			r.Get("/{code}/print", ordercontrollers.OrderPrint(svcs.Orders, logg))
			r.Patch("/{orderID}/status", ordercontrollers.OrderUpdateStatus(svcs.Orders, logg))
			r.Delete("/{orderID}", ordercontrollers.OrderDelete(svcs.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", paymentcontrollers.PaymentCreate(svcs.Payments, logg))
			r.Post("/pix-qrcode", paymentcontrollers.PaymentPIXCharge(svcs.Payments, logg))
			r.Post("/retry/pix-qrcode", paymentcontrollers.PaymentRetryPIX(svcs.Payments, logg))
			r.Post("/webhook", paymentcontrollers.PaymentWebhook(svcs.Webhook, logg))
			r.Get("/transaction/{transactionCode}", paymentcontrollers.PaymentByTransaction(svcs.Payments, logg))
			r.Get("/{orderCode}", paymentcontrollers.PaymentByOrder(svcs.Payments, logg))
			r.Get("/{orderCode}/status", paymentcontrollers.PaymentStatus(svcs.Payments, logg))
			r.Patch("/{orderCode}/change-method", paymentcontrollers.PaymentChangeMethod(svcs.Payments, logg))
		})
	})

	return r
}
