package checkout

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"mais/cache"
	"mais/model"
	paymentsrepo "mais/repository/payments"
	"mais/service/availability"
	"mais/service/idempotency"
)

type mockAvail struct {
	checkFn func(ctx context.Context, tenantID string, day time.Time) (availability.Decision, error)
}

func (m *mockAvail) Check(ctx context.Context, tenantID string, day time.Time) (availability.Decision, error) {
	if m.checkFn == nil {
		return availability.Decision{Available: true}, nil
	}
	return m.checkFn(ctx, tenantID, day)
}

func (m *mockAvail) UnavailableRange(context.Context, string, time.Time, time.Time) (map[string]availability.Reason, error) {
	return nil, nil
}

type mockCatalog struct {
	priceFn func(ctx context.Context, tenantID, packageID string) (int64, error)
}

func (m *mockCatalog) PriceMinor(ctx context.Context, tenantID, packageID string) (int64, error) {
	return m.priceFn(ctx, tenantID, packageID)
}

type mockProvider struct {
	mu       sync.Mutex
	sessions int
	createFn func(req paymentsrepo.CreateSessionReq) (*paymentsrepo.Session, error)
}

func (m *mockProvider) CreateSession(req paymentsrepo.CreateSessionReq) (*paymentsrepo.Session, error) {
	m.mu.Lock()
	m.sessions++
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(req)
	}
	return &paymentsrepo.Session{SessionID: "cs_1", SessionURL: "https://pay.example/cs_1"}, nil
}

func (m *mockProvider) VerifyWebhookSignature(string, []byte) error { return nil }

// memLedger mirrors the redis ledger semantics in-process.
type memLedger struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (l *memLedger) GetOrCompute(ctx context.Context, key string, _ time.Duration, fn idempotency.ComputeFn) ([]byte, bool, error) {
	l.mu.Lock()
	if v, ok := l.entries[key]; ok {
		l.mu.Unlock()
		return v, true, nil
	}
	l.mu.Unlock()

	v, err := fn(ctx)
	if err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	l.entries[key] = v
	l.mu.Unlock()
	return v, false, nil
}

func tenant() *model.Tenant {
	return &model.Tenant{
		ID:             "t-acme",
		Slug:           "acme",
		CommissionRate: decimal.RequireFromString("12.0"),
		Active:         true,
	}
}

func newSvc(avail *mockAvail, cat *mockCatalog, prov *mockProvider) Service {
	return New(avail, cat, prov, &memLedger{entries: map[string][]byte{}}, cache.NewMemory(), 24*time.Hour)
}

func TestCreate_Success(t *testing.T) {
	cat := &mockCatalog{priceFn: func(context.Context, string, string) (int64, error) { return 70000, nil }}
	prov := &mockProvider{}
	svc := newSvc(&mockAvail{}, cat, prov)

	out, err := svc.Create(context.Background(), tenant(), CreateReq{
		PackageID:     "P1",
		Day:           "2025-06-15",
		CustomerEmail: "jo@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "cs_1", out.SessionID)
	require.Equal(t, int64(70000), out.SubtotalMinor)
	require.Equal(t, int64(8400), out.CommissionMinor)
	require.False(t, out.Reused)
}

func TestCreate_IdempotentRetry(t *testing.T) {
	cat := &mockCatalog{priceFn: func(context.Context, string, string) (int64, error) { return 70000, nil }}
	prov := &mockProvider{}
	svc := newSvc(&mockAvail{}, cat, prov)

	req := CreateReq{PackageID: "P1", Day: "2025-06-15", CustomerEmail: "jo@example.com"}

	first, err := svc.Create(context.Background(), tenant(), req)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), tenant(), req)
	require.NoError(t, err)

	require.Equal(t, first.SessionID, second.SessionID)
	require.True(t, second.Reused)
	require.Equal(t, 1, prov.sessions, "provider must see exactly one session")
}

func TestCreate_CallerSuppliedKey(t *testing.T) {
	cat := &mockCatalog{priceFn: func(context.Context, string, string) (int64, error) { return 500, nil }}
	prov := &mockProvider{}
	svc := newSvc(&mockAvail{}, cat, prov)

	a, err := svc.Create(context.Background(), tenant(), CreateReq{
		PackageID: "P1", Day: "2025-06-15", CustomerEmail: "jo@example.com", IdempotencyKey: "client-key-1",
	})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), tenant(), CreateReq{
		PackageID: "P1", Day: "2025-06-15", CustomerEmail: "jo@example.com", IdempotencyKey: "client-key-1",
	})
	require.NoError(t, err)
	require.Equal(t, a.SessionID, b.SessionID)
	require.Equal(t, 1, prov.sessions)
}

func TestCreate_DateUnavailable(t *testing.T) {
	avail := &mockAvail{checkFn: func(context.Context, string, time.Time) (availability.Decision, error) {
		return availability.Decision{Available: false, Reason: availability.ReasonReserved}, nil
	}}
	svc := newSvc(avail, &mockCatalog{}, &mockProvider{})

	_, err := svc.Create(context.Background(), tenant(), CreateReq{
		PackageID: "P1", Day: "2025-06-15", CustomerEmail: "jo@example.com",
	})
	require.Equal(t, ErrUnavailable, Code(err))
}

func TestCreate_PackageNotFound(t *testing.T) {
	cat := &mockCatalog{priceFn: func(context.Context, string, string) (int64, error) { return 0, sql.ErrNoRows }}
	svc := newSvc(&mockAvail{}, cat, &mockProvider{})

	_, err := svc.Create(context.Background(), tenant(), CreateReq{
		PackageID: "nope", Day: "2025-06-15", CustomerEmail: "jo@example.com",
	})
	require.Equal(t, ErrPackageNotFound, Code(err))
}

func TestCreate_BadDay(t *testing.T) {
	svc := newSvc(&mockAvail{}, &mockCatalog{}, &mockProvider{})

	_, err := svc.Create(context.Background(), tenant(), CreateReq{
		PackageID: "P1", Day: "15/06/2025", CustomerEmail: "jo@example.com",
	})
	require.Equal(t, ErrBadInput, Code(err))
}
