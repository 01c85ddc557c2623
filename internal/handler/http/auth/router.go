package auth

import (
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/app/auth"
	"github.com/vivekbharatha/vbank/internal/middleware"
)

func RegisterRoutes(r chi.Router, s auth.Service, jwtSecret string, redisClient *redis.Client, l *zap.Logger) {
	handler := NewAuthHandler(s, l.With(zap.String("component", "AuthHTTPHandler")))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtSecret, redisClient, l))
			r.Post("/logout", handler.Logout)
		})
	})
}
