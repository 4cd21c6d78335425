// Package auth implements registration, login, bearer-token verification and
// auth rate limiting.
package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minNameLen       = 2
	minPasswordLen   = 6
	// bcrypt rejects longer input.
	maxPasswordBytes = 72

	msgInvalidCredentials = "Invalid email or password"
)

// Session is the result of a successful register or login.
type Session struct {
	User  model.Principal `json:"user"`
	Token string          `json:"token"`
}

// Users is the slice of the store the auth service needs.
type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
}

type Service struct {
	users   Users
	tokens  *Tokens
	hasher  *Hasher
	limiter *Limiter
}

func NewService(users Users, tokens *Tokens, hasher *Hasher, limiter *Limiter) *Service {
	return &Service{users: users, tokens: tokens, hasher: hasher, limiter: limiter}
}

// Tokens exposes the token issuer for middleware.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Register creates a non-admin account. client keys the shared auth rate limit.
func (s *Service) Register(ctx context.Context, client, name, email, password string) (Session, error) {
	if err := s.limiter.Allow(ctx, client); err != nil {
		return Session{}, err
	}
	name = strings.TrimSpace(name)
	email = model.NormalizeEmail(email)
	if name == "" || email == "" {
		return Session{}, apperr.Validation("All fields are required")
	}
	if len([]rune(name)) < minNameLen {
		return Session{}, apperr.Validation("Name must be at least 2 characters long")
	}
	if !emailRe.MatchString(email) {
		return Session{}, apperr.Validation("Please enter a valid email address")
	}
	// Duplicates are reported before password strength.
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return Session{}, apperr.Conflict("Email address already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, apperr.Wrap(err, "find user")
	}
	if len(password) < minPasswordLen {
		return Session{}, apperr.Validation("Password must be at least 6 characters long")
	}
	if len(password) > maxPasswordBytes {
		return Session{}, apperr.Validation("Password must be at most 72 bytes")
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return Session{}, apperr.Wrap(err, "hash password")
	}
	u := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Session{}, apperr.Conflict("Email address already registered")
		}
		return Session{}, apperr.Wrap(err, "create user")
	}
	obs.Logger.Info("user_registered", "user_id", u.ID)
	return s.session(model.PrincipalOf(*u))
}

// Login verifies credentials. Unknown accounts and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, client, email, password string) (Session, error) {
	if err := s.limiter.Allow(ctx, client); err != nil {
		return Session{}, err
	}
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, apperr.Validation("Email and password are required")
	}
	if !emailRe.MatchString(email) {
		return Session{}, apperr.Validation("Please enter a valid email address")
	}

	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Session{}, apperr.Wrap(err, "find user")
	}
	ok, cmpErr := s.hasher.Compare(ctx, u.PasswordHash, password)
	if cmpErr != nil {
		return Session{}, apperr.Wrap(cmpErr, "compare password")
	}
	if !ok {
		obs.Logger.Info("login_failed", "known_account", err == nil)
		return Session{}, apperr.Auth(msgInvalidCredentials)
	}

	if err := s.limiter.Reset(ctx, client); err != nil {
		obs.Logger.Warn("rate_limit_reset_failed", "error", err)
	}
	obs.Logger.Info("login_succeeded", "user_id", u.ID)
	return s.session(model.PrincipalOf(u))
}

func (s *Service) session(p model.Principal) (Session, error) {
	tok, err := s.tokens.Issue(p)
	if err != nil {
		return Session{}, apperr.Wrap(err, "issue token")
	}
	return Session{User: p, Token: tok}, nil
}

// Authenticate resolves an Authorization header into a principal.
func (s *Service) Authenticate(header string) (model.Principal, error) {
	if strings.TrimSpace(header) == "" {
		return model.Principal{}, apperr.Auth("No token")
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return model.Principal{}, apperr.Auth("Invalid token")
	}
	p, err := s.tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return model.Principal{}, apperr.Auth("Invalid token")
	}
	return p, nil
}

// AuthenticateOptional never fails: a missing or bad token yields nil.
func (s *Service) AuthenticateOptional(header string) *model.Principal {
	p, err := s.Authenticate(header)
	if err != nil {
		return nil
	}
	return &p
}

// RequireAdmin fails unless p is an admin.
func RequireAdmin(p *model.Principal) error {
	if p == nil || !p.IsAdmin {
		return apperr.Forbidden("Admin access required")
	}
	return nil
}
