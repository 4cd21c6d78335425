package httpapi

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/obs"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyRoute
)

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// route records the mux pattern that served a request.
type route struct{ pattern string }

func routeFromContext(ctx context.Context) *route {
	v, _ := ctx.Value(ctxKeyRoute).(*route)
	return v
}

// tagRoute stamps pattern on the request's route holder.
func tagRoute(pattern string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rt := routeFromContext(r.Context()); rt != nil {
			rt.pattern = pattern
		}
		h(w, r)
	}
}

type statusRecorder struct {
	h  http.ResponseWriter
	st int
	n  int
}

func (w *statusRecorder) Header() http.Header { return w.h.Header() }
func (w *statusRecorder) WriteHeader(code int) {
	w.st = code
	w.h.WriteHeader(code)
}
func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.h.Write(b)
	w.n += n
	return n, err
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

// WithLogging writes one access-log line per request and feeds the request metrics.
func WithLogging(m *obs.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{h: w, st: http.StatusOK}
		rt := &route{pattern: "unmatched"}
		next.ServeHTTP(sr, r.WithContext(context.WithValue(r.Context(), ctxKeyRoute, rt)))
		lat := time.Since(start)
		latMS := float64(lat.Microseconds()) / 1000.0
		if m != nil {
			m.Requests.WithLabelValues(rt.pattern, strconv.Itoa(sr.st)).Inc()
			m.LatencyMS.WithLabelValues(rt.pattern).Observe(latMS)
		}
		obs.Logger.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", rt.pattern,
			"status", sr.st,
			"bytes", sr.n,
			"latency_ms", latMS,
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// WithCORS answers preflights and echoes allowed origins with credentials enabled.
func WithCORS(cfg config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(cfg, origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(cfg config.Config, origin string) bool {
	if slices.Contains(cfg.CORSAllowedOrigins, origin) {
		return true
	}
	if !cfg.CORSAllowLocalhost {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// WithTimeout bounds every request context; store calls inherit the deadline.
func WithTimeout(d time.Duration, next http.Handler) http.Handler {
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP keys the auth rate limit. With trustForwarded the service sits
// behind one proxy, so only the rightmost X-Forwarded-For hop, the one that
// proxy appended, is used; earlier hops are client-controlled.
func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
