package denylist

import (
	"context"
	"fmt"
	"time"
)

const keyPrefix = "bl:"

// Denylist marks access tokens as revoked by their jti.
type Denylist struct {
	cache Cache
	now   func() time.Time
}

func New(cache Cache) *Denylist {
	return &Denylist{cache: cache, now: time.Now}
}

// Revoke stores jti until exp. A token that has already expired is not
// recorded, since signature verification rejects it anyway.
func (d *Denylist) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := exp.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.cache.Set(ctx, keyPrefix+jti, []byte("1"), ttl); err != nil {
		return fmt.Errorf("denylist revoke: %w", err)
	}
	return nil
}

func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok, err := d.cache.Get(ctx, keyPrefix+jti)
	if err != nil {
		return false, fmt.Errorf("denylist lookup: %w", err)
	}
	return ok, nil
}
