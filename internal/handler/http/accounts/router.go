package accounts

import (
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/app/accounts"
	"github.com/vivekbharatha/vbank/internal/middleware"
)

func RegisterRoutes(r chi.Router, s accounts.Service, jwtSecret, apiKey string, redisClient *redis.Client, l *zap.Logger) {
	handler := NewAccountHandler(s, l.With(zap.String("component", "AccountHTTPHandler")))

	r.Route("/api/v1/accounts", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtSecret, redisClient, l))
			r.Post("/", handler.Create)
			r.Get("/", handler.List)
			r.Get("/{accountNumber}", handler.Get)
			r.Delete("/{accountNumber}", handler.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(apiKey))
			r.Get("/internal/{accountNumber}", handler.Lookup)
			r.Post("/internal/transaction", handler.InternalTransaction)
		})
	})
}
