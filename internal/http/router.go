package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/middleware"
)

type RouterOptions struct {
	Tokens      middleware.TokenValidator
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(opts.Logger))
	r.Use(chimw.Logger)
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.Get("/health", h.Liveness)
	r.Get("/health/upstreams", h.UpstreamHealth)

	r.Route("/api/terminal", func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.Tokens, opts.Logger))
		r.Use(middleware.RequireRole(auth.RoleCashier))

		r.Post("/sessions", h.OpenSession)
		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Delete("/", h.CloseSession)

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddItem)
			r.Patch("/cart/items/{index}", h.ChangeQuantity)
			r.Delete("/cart/items/{index}", h.RemoveItem)

			r.Put("/customer", h.SetCustomer)
			r.Post("/payments", h.Pay)

			r.Get("/pending-orders", h.ListPending)
			r.Post("/pending-orders", h.SavePending)
			r.Post("/pending-orders/{orderId}/load", h.LoadPending)
			r.Post("/pending-orders/{orderId}/cancel", h.CancelPending)

			r.Get("/screens/{screen}", h.Screen)
		})
	})

	return r
}
