// Package idempotency collapses logically duplicate operation attempts.
// Checkout-session creation is wrapped with it so a client retry of a
// network-failed request returns the first session instead of minting a
// second one.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type ComputeFn func(ctx context.Context) ([]byte, error)

type Ledger interface {
	// GetOrCompute returns the cached result for key if present, otherwise
	// runs fn once and stores its result for ttl. cached reports whether
	// the result came from the ledger.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFn) (result []byte, cached bool, err error)
}

// DeriveKey builds the deterministic checkout dedup key. The hour bucket
// keeps genuinely distinct later attempts from colliding with a stale
// entry, while covering realistic client retry windows.
func DeriveKey(tenantID, customerEmail, packageID, day string, at time.Time) string {
	bucket := at.UTC().Truncate(time.Hour).Format("2006-01-02T15")
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%s",
		tenantID, customerEmail, packageID, day, bucket)))
	return "idem:" + hex.EncodeToString(sum[:])
}

type redisLedger struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) Ledger { return &redisLedger{rdb: rdb} }

// computing is the reservation sentinel. Stored results are JSON, so the
// NUL prefix can never collide with a real value.
const computing = "\x00computing"

const (
	reserveTTL   = 30 * time.Second
	pollInterval = 100 * time.Millisecond
	maxPolls     = 50
)

// GetOrCompute reserves the key with a sentinel before running fn, so two
// truly concurrent first attempts cannot both compute; the loser waits for
// the winner's result.
func (l *redisLedger) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFn) ([]byte, bool, error) {
	for polls := 0; ; polls++ {
		v, err := l.rdb.Get(ctx, key).Bytes()
		if err == nil {
			if string(v) != computing {
				return v, true, nil
			}
			if polls >= maxPolls {
				return nil, false, errors.New("idempotency: timed out waiting for concurrent attempt")
			}
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-time.After(pollInterval):
			}
			continue
		}
		if !errors.Is(err, redis.Nil) {
			return nil, false, err
		}

		ok, err := l.rdb.SetNX(ctx, key, computing, reserveTTL).Result()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			// Lost the reservation race; loop back and wait for the winner.
			continue
		}

		out, err := fn(ctx)
		if err != nil {
			// Release so a retry can attempt again.
			_ = l.rdb.Del(ctx, key).Err()
			return nil, false, err
		}
		if err := l.rdb.Set(ctx, key, out, ttl).Err(); err != nil {
			return nil, false, err
		}
		return out, false, nil
	}
}
