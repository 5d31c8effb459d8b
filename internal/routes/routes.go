package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/deuna/payment-system/internal/handlers"
	appmw "github.com/deuna/payment-system/internal/middleware"
)

func NewRoutes(h *handlers.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/create", h.CreateUserHandler)
		r.Post("/users/login", h.LoginHandler)
		r.Get("/users/{userID}", h.GetUserHandler)
		r.Get("/users/{userID}/transactions", h.UserTransactionsHandler)
		r.With(appmw.Authenticated).Post("/users/{userID}/recharge", h.RechargeHandler)

		r.With(appmw.Authenticated).Post("/recharge", h.SelfRechargeHandler)

		r.Get("/bank/status", h.BankStatusHandler)
		r.Get("/bank/transactions", h.BankTransactionsHandler)

		r.Post("/merchants/create", h.CreateMerchantHandler)
		r.Post("/merchants/login", h.LoginHandler)

		r.With(appmw.Authenticated).Post("/orders/create", h.CreateOrderHandler)
		r.Get("/orders/{orderID}/status", h.OrderStatusHandler)

		r.Get("/payments/query/{paymentCode}", h.QueryPaymentCodeHandler)
		r.With(appmw.Authenticated).Post("/payments/process", h.ProcessPaymentHandler)
		r.Get("/payments/{paymentID}", h.GetPaymentHandler)

		r.With(appmw.Authenticated).Post("/transfer", h.TransferHandler)

		r.With(appmw.Authenticated).Get("/auth/me", h.MeHandler)
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
