package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rahulmehra/shopkart-backend/api/controllers"
	webhookcontrollers "github.com/rahulmehra/shopkart-backend/api/controllers/webhooks"
	"github.com/rahulmehra/shopkart-backend/api/middleware"
	"github.com/rahulmehra/shopkart-backend/internal/cart"
	"github.com/rahulmehra/shopkart-backend/internal/catalog"
	checkoutsvc "github.com/rahulmehra/shopkart-backend/internal/checkout"
	"github.com/rahulmehra/shopkart-backend/internal/coupons"
	"github.com/rahulmehra/shopkart-backend/internal/locations"
	"github.com/rahulmehra/shopkart-backend/internal/orders"
	"github.com/rahulmehra/shopkart-backend/internal/pricing"
	paymentwebhook "github.com/rahulmehra/shopkart-backend/internal/webhooks/payment"
	"github.com/rahulmehra/shopkart-backend/pkg/config"
	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
	"github.com/rahulmehra/shopkart-backend/pkg/payments"
	"github.com/rahulmehra/shopkart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	locationsService locations.Service,
	pricingService pricing.Service,
	couponsService coupons.Service,
	cartService cart.Service,
	catalogService catalog.Service,
	ordersService orders.Service,
	checkoutService checkoutsvc.Service,
	webhookService paymentwebhook.Service,
	webhookGuard *paymentwebhook.IdempotencyGuard,
	paymentsClient *payments.Client,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.UserContext(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pincodes/{pincode}", controllers.ResolvePincode(locationsService, logg))
		r.Get("/products/{productRef}", controllers.ProductGet(catalogService, logg))

		r.Post("/cart/quote", controllers.CartQuote(cartService, logg))
		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Get("/{orderId}", controllers.OrderGet(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
		})

		r.Post("/webhooks/payment", webhookcontrollers.PaymentWebhook(webhookService, paymentsClient, webhookGuard, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(ordersService, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderTransition(ordersService, logg))
		})

		r.Route("/location-groups", func(r chi.Router) {
			r.Get("/", controllers.LocationGroupList(locationsService, logg))
			r.Post("/", controllers.LocationGroupCreate(locationsService, logg))
			r.Get("/{groupId}", controllers.LocationGroupGet(locationsService, logg))
			r.Put("/{groupId}", controllers.LocationGroupUpdate(locationsService, logg))
			r.Delete("/{groupId}", controllers.LocationGroupDelete(locationsService, logg))
		})

		r.Route("/locations", func(r chi.Router) {
			r.Post("/", controllers.LocationCreate(locationsService, logg))
			r.Patch("/{locationId}/group", controllers.LocationMove(locationsService, logg))
			r.Delete("/{locationId}", controllers.LocationDelete(locationsService, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.CouponList(couponsService, logg))
			r.Post("/", controllers.CouponCreate(couponsService, logg))
			r.Get("/{couponId}", controllers.CouponGet(couponsService, logg))
			r.Put("/{couponId}", controllers.CouponUpdate(couponsService, logg))
			r.Delete("/{couponId}", controllers.CouponDelete(couponsService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(catalogService, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(catalogService, logg))
		})

		r.Route("/variants", func(r chi.Router) {
			r.Post("/", controllers.VariantCreate(catalogService, logg))
			r.Patch("/{variantId}", controllers.VariantUpdate(catalogService, logg))
			r.Delete("/{variantId}", controllers.VariantDelete(catalogService, logg))
			r.Get("/{variantId}/prices", controllers.PriceList(pricingService, logg))
			r.Delete("/{variantId}/prices/{groupId}", controllers.PriceDelete(pricingService, logg))
		})

		r.Put("/prices", controllers.PriceUpsert(pricingService, logg))

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CategoryCreate(catalogService, logg))
			r.Patch("/{categoryId}/parent", controllers.CategoryReparent(catalogService, logg))
		})

		r.Post("/brands", controllers.BrandCreate(catalogService, logg))
	})

	return r
}
