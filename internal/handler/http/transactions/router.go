package transactions

import (
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/app/transactions"
	"github.com/vivekbharatha/vbank/internal/middleware"
)

func RegisterRoutes(r chi.Router, s transactions.Service, jwtSecret, apiKey string, redisClient *redis.Client, l *zap.Logger) {
	handler := NewTransactionHandler(s, l.With(zap.String("component", "TransactionHTTPHandler")))

	r.Route("/api/v1/transactions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtSecret, redisClient, l))
			r.Post("/", handler.CreateTransfer)
			r.Post("/external", handler.CreateExternalTransfer)
			r.Get("/{transactionID}", handler.GetByTransactionID)
			r.Get("/reference/{referenceID}", handler.GetByReferenceID)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(apiKey))
			r.Post("/external/inbound", handler.ExternalInbound)
			r.Post("/external/receipt", handler.ExternalReceipt)
		})
	})
}
