package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fairyhunter13/storefront-api/internal/model"
)

type claims struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens carrying a Principal.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens panics on an empty secret; config validation rejects it earlier.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if secret == "" {
		panic("auth: empty token secret")
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (t *Tokens) TTL() time.Duration { return t.ttl }

func (t *Tokens) Issue(p model.Principal) (string, error) {
	now := t.now()
	c := claims{
		ID:      p.ID,
		Name:    p.Name,
		Email:   p.Email,
		IsAdmin: p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

var errInvalidToken = errors.New("invalid token")

// Verify checks signature and expiry and returns the embedded principal.
func (t *Tokens) Verify(token string) (model.Principal, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.Principal{}, err
	}
	if !parsed.Valid || c.ID == "" {
		return model.Principal{}, errInvalidToken
	}
	return model.Principal{ID: c.ID, Name: c.Name, Email: c.Email, IsAdmin: c.IsAdmin}, nil
}
