package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) Ledger {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedis(rdb)
}

func TestGetOrCompute_SecondCallIsCached(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	v1, cached, err := led.GetOrCompute(ctx, "idem:k1", time.Minute, func(context.Context) ([]byte, error) {
		return []byte(`{"session":"cs_1"}`), nil
	})
	require.NoError(t, err)
	require.False(t, cached)

	v2, cached, err := led.GetOrCompute(ctx, "idem:k1", time.Minute, func(context.Context) ([]byte, error) {
		t.Fatal("must not recompute")
		return nil, nil
	})
	require.NoError(t, err)
	require.True(t, cached)
	require.Equal(t, v1, v2)
}

func TestGetOrCompute_ConcurrentFirstAttemptsComputeOnce(t *testing.T) {
	led := newTestLedger(t)

	var calls int32
	const n = 8
	results := make(chan []byte, n)
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := led.GetOrCompute(context.Background(), "idem:race", time.Minute, func(context.Context) ([]byte, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(50 * time.Millisecond)
				return []byte(`{"session":"cs_1"}`), nil
			})
			results <- v
			errs <- err
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for v := range results {
		require.Equal(t, `{"session":"cs_1"}`, string(v))
	}
	require.Equal(t, int32(1), calls, "exactly one attempt may compute")
}

func TestGetOrCompute_ComputeFailureReleasesKey(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()
	boom := errors.New("provider down")

	_, _, err := led.GetOrCompute(ctx, "idem:k2", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	v, cached, err := led.GetOrCompute(ctx, "idem:k2", time.Minute, func(context.Context) ([]byte, error) {
		return []byte(`{"session":"cs_2"}`), nil
	})
	require.NoError(t, err)
	require.False(t, cached, "failed attempt must not poison the key")
	require.Equal(t, `{"session":"cs_2"}`, string(v))
}

func TestDeriveKey_Deterministic(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 22, 0, 0, time.UTC)

	k1 := DeriveKey("t-acme", "jo@example.com", "P1", "2025-06-15", at)
	k2 := DeriveKey("t-acme", "jo@example.com", "P1", "2025-06-15", at.Add(20*time.Minute))
	require.Equal(t, k1, k2, "same hour bucket must collapse")
}

func TestDeriveKey_DistinctRequestsNeverConflate(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	base := DeriveKey("t-acme", "jo@example.com", "P1", "2025-06-15", at)

	variants := []string{
		DeriveKey("t-globex", "jo@example.com", "P1", "2025-06-15", at),
		DeriveKey("t-acme", "other@example.com", "P1", "2025-06-15", at),
		DeriveKey("t-acme", "jo@example.com", "P2", "2025-06-15", at),
		DeriveKey("t-acme", "jo@example.com", "P1", "2025-06-16", at),
		DeriveKey("t-acme", "jo@example.com", "P1", "2025-06-15", at.Add(time.Hour)),
	}
	for i, v := range variants {
		require.NotEqual(t, base, v, "variant %d", i)
	}
}
