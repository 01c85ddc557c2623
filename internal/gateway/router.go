package gateway

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/config"
)

// NewRouter builds the public entrypoint: a path-routed reverse proxy in
// front of the auth, account and transaction services with CORS and a
// redis-backed rate limit. Authentication stays with the services
// themselves; the gateway only routes.
func NewRouter(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (http.Handler, error) {
	authURL, err := url.Parse(cfg.AuthServiceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse auth service URL (%s): %w", cfg.AuthServiceURL, err)
	}
	accountURL, err := url.Parse(cfg.AccountServiceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account service URL (%s): %w", cfg.AccountServiceURL, err)
	}
	transactionURL, err := url.Parse(cfg.TransactionServiceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction service URL (%s): %w", cfg.TransactionServiceURL, err)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-KEY"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	limiter := NewRateLimiter(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow, logger)
	r.Use(limiter.Middleware)

	authProxy := newProxy(authURL, logger)
	accountProxy := newProxy(accountURL, logger)
	transactionProxy := newProxy(transactionURL, logger)

	r.Mount("/api/v1/auth", authProxy)
	r.Mount("/api/v1/accounts", accountProxy)
	r.Mount("/api/v1/transactions", transactionProxy)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r, nil
}

func newProxy(target *url.URL, logger *zap.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)

	proxy.Director = func(req *http.Request) {
		req.URL.Host = target.Host
		req.URL.Scheme = target.Scheme
		req.RequestURI = req.URL.RequestURI()

		if clientIP, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
			if prior, ok := req.Header["X-Forwarded-For"]; ok {
				clientIP = strings.Join(prior, ", ") + ", " + clientIP
			}
			req.Header.Set("X-Forwarded-For", clientIP)
		}
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error",
			zap.String("path", r.URL.Path),
			zap.String("target", target.String()),
			zap.Error(err))

		if os.IsTimeout(err) {
			renderJSONError(w, "Gateway Timeout", http.StatusGatewayTimeout)
		} else if _, ok := err.(net.Error); ok {
			renderJSONError(w, "Service Unavailable", http.StatusServiceUnavailable)
		} else {
			renderJSONError(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	return proxy
}

func renderJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"error": "%s", "code": %d}`, message, statusCode)
}
