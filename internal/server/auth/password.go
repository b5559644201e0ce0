// Package auth is the credential authority of the server. It hashes and
// verifies passwords, issues and decodes HS256 access tokens, and produces
// one-time desktop authorization codes.
//
// Every failure leaving this package is one of the coarse sentinels from
// package common. Callers never learn whether a password was wrong, an account
// deactivated or a stored hash corrupt.
package auth

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/dmitrijs2005/lingokeeper/internal/cryptox"
	"golang.org/x/sync/semaphore"
)

// HashPassword returns a self-describing Argon2id hash of password computed
// with a fresh random salt. It fails only if the random source fails.
func HashPassword(password string) (string, error) {
	hash, err := cryptox.HashArgon2id([]byte(password), cryptox.DefaultArgon2idParams)
	if err != nil {
		return "", fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}
	return hash, nil
}

// VerifyPassword checks password against storedHash.
//
// A deactivated account or an empty storedHash is rejected before any
// cryptographic work is done. Deactivated accounts, empty hashes, malformed
// hashes and mismatches all yield common.ErrorUnauthorized.
func VerifyPassword(password, storedHash string, deactivated bool) error {
	if deactivated || storedHash == "" {
		return common.ErrorUnauthorized
	}

	ok, err := cryptox.VerifyArgon2id([]byte(password), storedHash)
	if err != nil || !ok {
		return common.ErrorUnauthorized
	}

	return nil
}

// Hasher runs HashPassword and VerifyPassword behind a weighted semaphore.
// Each Argon2id evaluation allocates its full memory cost, so the number of
// evaluations in flight is capped.
type Hasher struct {
	sem *semaphore.Weighted
}

// NewHasher returns a Hasher admitting at most maxConcurrent evaluations at a
// time. Values below 1 are treated as 1.
func NewHasher(maxConcurrent int) *Hasher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Hasher{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Hash waits for a free slot and hashes password. It returns ctx.Err() if the
// context ends while waiting.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	return HashPassword(password)
}

// Verify is VerifyPassword behind the semaphore. Requests that will be
// rejected without hashing do not wait for a slot.
func (h *Hasher) Verify(ctx context.Context, password, storedHash string, deactivated bool) error {
	if deactivated || storedHash == "" {
		return common.ErrorUnauthorized
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	return VerifyPassword(password, storedHash, deactivated)
}
