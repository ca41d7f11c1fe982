package auth

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/blake2b"
)

type cachedIdentity struct {
	identity  CallerIdentity
	expiresAt time.Time
}

// CachingResolver memoizes successful resolutions keyed by a hash of the
// token. An entry never outlives the token it was resolved from.
type CachingResolver struct {
	next      IdentityResolver
	validator *TokenValidator
	entries   *expirable.LRU[[blake2b.Size256]byte, cachedIdentity]
	now       func() time.Time
}

// NewCachingResolver wraps next with a bounded, expiring cache.
func NewCachingResolver(next IdentityResolver, validator *TokenValidator, size int, ttl time.Duration) *CachingResolver {
	if size <= 0 {
		size = 1024
	}
	return &CachingResolver{
		next:      next,
		validator: validator,
		entries:   expirable.NewLRU[[blake2b.Size256]byte, cachedIdentity](size, nil, ttl),
		now:       time.Now,
	}
}

// Resolve implements IdentityResolver.
func (r *CachingResolver) Resolve(ctx context.Context, token string) (CallerIdentity, error) {
	key := blake2b.Sum256([]byte(token))
	if entry, ok := r.entries.Get(key); ok {
		if entry.expiresAt.IsZero() || r.now().Before(entry.expiresAt) {
			return entry.identity, nil
		}
		r.entries.Remove(key)
	}

	identity, err := r.next.Resolve(ctx, token)
	if err != nil {
		return CallerIdentity{}, err
	}

	claims, err := r.validator.ExtractClaims(token)
	if err != nil {
		// token went bad between resolution and caching; don't keep it
		return identity, nil
	}
	r.entries.Add(key, cachedIdentity{identity: identity, expiresAt: claims.ExpiresAt})
	return identity, nil
}

// Len reports the number of cached identities.
func (r *CachingResolver) Len() int {
	return r.entries.Len()
}
