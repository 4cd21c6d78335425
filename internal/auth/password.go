package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher runs bcrypt with a bound on concurrent hash operations so a burst of
// auth requests cannot monopolise every CPU.
type Hasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy []byte
}

func NewHasher(cost, concurrency int) *Hasher {
	if concurrency < 1 {
		concurrency = 1
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("storefront-placeholder"), cost)
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency)), dummy: dummy}
}

func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether password matches hash. An empty hash is compared
// against a placeholder so unknown accounts cost the same as known ones.
func (h *Hasher) Compare(ctx context.Context, hash, password string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)
	target := []byte(hash)
	if hash == "" {
		target = h.dummy
	}
	err := bcrypt.CompareHashAndPassword(target, []byte(password))
	switch {
	case err == nil:
		return hash != "", nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
