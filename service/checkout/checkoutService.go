package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"mais/cache"
	"mais/model"
	catalogrepo "mais/repository/catalog"
	paymentsrepo "mais/repository/payments"
	"mais/service/availability"
	"mais/service/commission"
	"mais/service/idempotency"
	"mais/util/logger"
)

// errors used by controllers

type ErrCode string

const (
	ErrUnavailable     ErrCode = "DATE_UNAVAILABLE"
	ErrPackageNotFound ErrCode = "PACKAGE_NOT_FOUND"
	ErrBadInput        ErrCode = "BAD_INPUT"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type CreateReq struct {
	PackageID      string
	Day            string
	CustomerName   string
	CustomerEmail  string
	IdempotencyKey string // optional, caller-supplied
}

type Created struct {
	SessionID       string `json:"session_id"`
	SessionURL      string `json:"session_url"`
	SubtotalMinor   int64  `json:"subtotal_minor"`
	CommissionMinor int64  `json:"commission_minor"`
	Reused          bool   `json:"reused"`
}

// Service opens a provider checkout session for a tenant's date. It never
// writes a reservation row; the reservation materializes only when the
// provider confirms payment.
type Service interface {
	Create(ctx context.Context, tenant *model.Tenant, req CreateReq) (*Created, error)
}

type service struct {
	avail    availability.Service
	catalog  catalogrepo.Repo
	provider paymentsrepo.Repo
	ledger   idempotency.Ledger
	cache    cache.Cache
	ttl      time.Duration
}

func New(
	avail availability.Service,
	catalog catalogrepo.Repo,
	provider paymentsrepo.Repo,
	ledger idempotency.Ledger,
	c cache.Cache,
	ttl time.Duration,
) Service {
	return &service{
		avail:    avail,
		catalog:  catalog,
		provider: provider,
		ledger:   ledger,
		cache:    c,
		ttl:      ttl,
	}
}

const sessionExpiry = 24 * time.Hour

func (s *service) Create(ctx context.Context, tenant *model.Tenant, req CreateReq) (*Created, error) {
	day, err := model.ParseDay(req.Day)
	if err != nil {
		return nil, makeErr(ErrBadInput)
	}

	// Advisory only; the authoritative check runs under the commit lock.
	dec, err := s.avail.Check(ctx, tenant.ID, day)
	if err != nil {
		return nil, err
	}
	if !dec.Available {
		return nil, makeErr(ErrUnavailable)
	}

	subtotal, err := s.price(ctx, tenant.ID, req.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrPackageNotFound)
		}
		return nil, err
	}

	fee, err := commission.Fee(subtotal, tenant.CommissionRate)
	if err != nil {
		return nil, makeErr(ErrBadInput)
	}

	key := req.IdempotencyKey
	if key == "" {
		key = idempotency.DeriveKey(tenant.ID, req.CustomerEmail, req.PackageID, req.Day, time.Now())
	}

	raw, cached, err := s.ledger.GetOrCompute(ctx, key, s.ttl, func(ctx context.Context) ([]byte, error) {
		sess, err := s.provider.CreateSession(paymentsrepo.CreateSessionReq{
			ReferenceID:   fmt.Sprintf("booking:%s:%s:%s", tenant.Slug, req.PackageID, req.Day),
			AmountMinor:   subtotal,
			Description:   fmt.Sprintf("Booking %s on %s", req.PackageID, req.Day),
			CustomerEmail: req.CustomerEmail,
			ExpirySec:     int(sessionExpiry.Seconds()),
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(sess)
	})
	if err != nil {
		return nil, err
	}

	var sess paymentsrepo.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}

	return &Created{
		SessionID:       sess.SessionID,
		SessionURL:      sess.SessionURL,
		SubtotalMinor:   subtotal,
		CommissionMinor: fee,
		Reused:          cached,
	}, nil
}

// price reads the package price through the tenant-scoped catalog cache.
func (s *service) price(ctx context.Context, tenantID, packageID string) (int64, error) {
	key := cache.Key{TenantID: tenantID, Scope: cache.ScopeCatalog, Ref: "price:" + packageID}
	if raw, err := s.cache.Get(ctx, key); err == nil {
		if p, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			return p, nil
		}
	}

	p, err := s.catalog.PriceMinor(ctx, tenantID, packageID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, key, []byte(strconv.FormatInt(p, 10)), 5*time.Minute); err != nil {
		logger.L().Warn("catalog cache set", zap.Error(err))
	}
	return p, nil
}
