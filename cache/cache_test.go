package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKey_TenantIsMandatoryComponent(t *testing.T) {
	k1 := Key{TenantID: "t1", Scope: ScopeAvailability, Ref: "2025-06-15"}
	k2 := Key{TenantID: "t2", Scope: ScopeAvailability, Ref: "2025-06-15"}
	require.NotEqual(t, k1.String(), k2.String())
}

func TestInvalidate_ScopedToTenant(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	keys := []Key{
		{TenantID: "t1", Scope: ScopeAvailability, Ref: "2025-06-15"},
		{TenantID: "t1", Scope: ScopeAvailability, Ref: "2025-06-16"},
		{TenantID: "t1", Scope: ScopeCatalog, Ref: "price:P1"},
		{TenantID: "t2", Scope: ScopeAvailability, Ref: "2025-06-15"},
	}
	for _, k := range keys {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Minute))
	}

	require.NoError(t, c.Invalidate(ctx, "t1", ScopeAvailability))

	// t1 availability gone
	_, err := c.Get(ctx, keys[0])
	require.ErrorIs(t, err, ErrMiss)
	_, err = c.Get(ctx, keys[1])
	require.ErrorIs(t, err, ErrMiss)

	// t1 catalog untouched, t2 availability untouched
	_, err = c.Get(ctx, keys[2])
	require.NoError(t, err)
	_, err = c.Get(ctx, keys[3])
	require.NoError(t, err)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	k := Key{TenantID: "t1", Scope: ScopeCatalog, Ref: "price:P1"}

	require.NoError(t, c.Set(ctx, k, []byte("700"), -time.Second))
	_, err := c.Get(ctx, k)
	require.ErrorIs(t, err, ErrMiss)
}
