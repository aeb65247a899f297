package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/zaloga/internal/db"
)

// Options wires the API router.
type Options struct {
	DB          *db.DB
	Inventory   Inventory
	LiveErr     func() error
	JWTSecret   string
	TokenExpiry time.Duration

	// Writes and logins are limited per client.
	WriteRate  float64
	WriteBurst int

	// Shutdown ends open item streams when closed.
	Shutdown <-chan struct{}

	// Gatherer serves /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter creates the API router with all endpoints registered. It serves
// /api/, /metrics and /healthz.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret, TokenExpiry: opts.TokenExpiry}
	itemsHandler := &ItemsHandler{Inventory: opts.Inventory, Done: opts.Shutdown}
	healthHandler := &HealthHandler{DB: opts.DB, Err: opts.LiveErr}

	authMW := AuthMiddleware(opts.JWTSecret)
	limit := NewRateLimiter(opts.WriteRate, opts.WriteBurst).Middleware

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Public.
	mux.Handle("POST /api/auth/login", limit(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("GET /healthz", healthHandler.Check)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Authenticated.
	mux.Handle("PUT /api/auth/passphrase", authMW(limit(http.HandlerFunc(authHandler.ChangePassphrase))))

	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(limit(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("DELETE /api/items/{id}", authMW(limit(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("GET /api/items/stream", authMW(http.HandlerFunc(itemsHandler.Stream)))

	return mux
}
