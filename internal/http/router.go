package httpapi

import (
	"net/http"
)

// NewRouter registers the API routes and wraps them in the middleware chain.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, tagRoute(pattern, h))
	}

	handle("GET /api/categories", app.listCategoriesHandler)
	handle("GET /api/products", app.listProductsHandler)
	handle("GET /api/products/{id}", app.getProductHandler)

	handle("POST /api/auth/register", app.registerHandler)
	handle("POST /api/auth/login", app.loginHandler)

	handle("POST /api/orders", app.createOrderHandler)
	handle("GET /api/admin/orders", app.listOrdersHandler)
	handle("PUT /api/admin/orders/{id}/status", app.updateOrderStatusHandler)
	handle("GET /api/admin/analytics", app.analyticsHandler)

	handle("POST /api/admin/products", app.createProductHandler)
	handle("PUT /api/admin/products/{id}", app.updateProductHandler)
	handle("DELETE /api/admin/products/{id}", app.deleteProductHandler)
	handle("POST /api/admin/categories", app.createCategoryHandler)

	handle("GET /api", app.indexHandler)
	handle("GET /healthz", app.healthHandler)
	handle("GET /openapi.yaml", app.openapiHandler)
	handle("GET /docs", app.docsHandler)
	if app.Metrics != nil {
		mux.Handle("GET /metrics", tagRoute("GET /metrics", app.Metrics.Handler().ServeHTTP))
	}
	mux.HandleFunc("/", app.notFoundHandler)

	var h http.Handler = mux
	h = WithTimeout(app.Cfg.RequestTimeout, h)
	h = WithCORS(app.Cfg, h)
	h = WithLogging(app.Metrics, h)
	return WithRequestID(h)
}
