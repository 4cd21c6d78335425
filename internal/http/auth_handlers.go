package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ttlString renders a token lifetime the way clients expect it ("7d", "12h").
func ttlString(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	return d.String()
}

func (a *App) countAuth(endpoint string, err error) {
	if a.Metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = apperr.KindOf(err).String()
	}
	a.Metrics.AuthAttempts.WithLabelValues(endpoint, result).Inc()
}

func (a *App) registerHandler(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	sess, err := a.Auth.Register(r.Context(), clientIP(r, a.Cfg.TrustForwardedFor), in.Name, in.Email, in.Password)
	a.countAuth("register", err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    sess.User,
		"token":   sess.Token,
		"message": "Registration successful",
	})
}

func (a *App) loginHandler(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	sess, err := a.Auth.Login(r.Context(), clientIP(r, a.Cfg.TrustForwardedFor), in.Email, in.Password)
	a.countAuth("login", err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      sess.User,
		"token":     sess.Token,
		"message":   "Login successful",
		"expiresIn": ttlString(a.Auth.Tokens().TTL()),
	})
}
