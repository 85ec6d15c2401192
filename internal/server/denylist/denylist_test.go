package denylist

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenylist_RevokeSetsTTLUntilExpiry(t *testing.T) {
	c, mr := newRedisCache(t)
	d := New(c)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "jti-1", now.Add(10*time.Minute)))

	assert.True(t, mr.Exists("bl:jti-1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("bl:jti-1"))

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(10*time.Minute + time.Second)
	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry disappears once the token would have expired")
}

func TestDenylist_RevokeExpiredTokenIsNoop(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCacheFromURL(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	d := New(c)
	require.NoError(t, d.Revoke(context.Background(), "old", time.Now().Add(-time.Second)))
	assert.Empty(t, mr.Keys())
}

func TestDenylist_CacheErrorsSurface(t *testing.T) {
	c, mr := newRedisCache(t)
	d := New(c)
	mr.Close()

	_, err := d.IsRevoked(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, d.Revoke(context.Background(), "x", time.Now().Add(time.Minute)))
}
