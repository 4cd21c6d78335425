package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
	"github.com/fairyhunter13/storefront-api/internal/auth"
	"github.com/fairyhunter13/storefront-api/internal/catalog"
	"github.com/fairyhunter13/storefront-api/internal/config"
	httpopenapi "github.com/fairyhunter13/storefront-api/internal/http/openapi"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/order"
	"github.com/fairyhunter13/storefront-api/internal/queue"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

const maxBodyBytes = 10 << 20

type App struct {
	Cfg     config.Config
	Store   store.Store
	Auth    *auth.Service
	Catalog *catalog.Service
	Orders  *order.Service
	Metrics *obs.Metrics
	Manager *queue.Manager

	closing atomic.Bool
	started time.Time
}

// NewApp wires the services over st. m may be nil when stock is not
// decremented; metrics may be nil.
func NewApp(cfg config.Config, st store.Store, m *queue.Manager, metrics *obs.Metrics) *App {
	limiter := auth.NewLimiter(auth.NewMemoryCounter(cfg.AuthRateWindow), cfg.AuthRateLimit)
	authSvc := auth.NewService(st,
		auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		auth.NewHasher(cfg.BcryptCost, cfg.HashConcurrency),
		limiter,
	)
	opts := order.Options{
		Pricing:           cfg.OrderPricing,
		StrictTransitions: cfg.OrderStrictTransitions,
		Metrics:           metrics,
	}
	if m != nil && cfg.OrderDecrementStock {
		opts.Stock = m
	}
	return &App{
		Cfg:     cfg,
		Store:   st,
		Auth:    authSvc,
		Catalog: catalog.NewService(st),
		Orders:  order.NewService(st, opts),
		Metrics: metrics,
		Manager: m,
		started: time.Now(),
	}
}

// StartShutdown stops accepting checkouts and closes the inventory intake.
func (a *App) StartShutdown() {
	a.closing.Store(true)
	if a.Manager != nil {
		a.Manager.CloseIntake()
	}
}

var errBadBody = apperr.Validation("Invalid request body")

// decodeJSON reads at most maxBodyBytes of JSON into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return apperr.Validation("Request body too large")
	case errors.Is(err, io.EOF):
		return apperr.Validation("Request body is required")
	default:
		return errBadBody
	}
}

// principal returns the caller of an endpoint that requires a token.
func (a *App) principal(r *http.Request) (*model.Principal, error) {
	p, err := a.Auth.Authenticate(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// admin returns the caller of an admin endpoint.
func (a *App) admin(r *http.Request) (*model.Principal, error) {
	p, err := a.principal(r)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *App) indexHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Laptop Store API",
		"status":  "ok",
		"docs":    "/docs",
		"version": "1",
	})
}

func (a *App) notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSONError(w, http.StatusNotFound, "Not found", "")
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		obs.Logger.Warn("health_check_failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	resp := map[string]any{
		"status":     "ok",
		"uptime_sec": time.Since(a.started).Seconds(),
	}
	if a.Manager != nil {
		resp["inventory_backlog"] = a.Manager.BacklogSize()
		resp["inventory_workers"] = a.Manager.WorkerCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) openapiHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Laptop Store API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`

func (a *App) docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}
