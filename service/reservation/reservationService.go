package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mais/model"
	reservationrepo "mais/repository/reservation"
	"mais/service/commission"
	"mais/util/metrics"
)

// errors used by callers

type ErrCode string

const (
	// ErrConflict: the date is genuinely taken (in-lock re-check or unique
	// index). Never retried automatically.
	ErrConflict ErrCode = "CONFLICT"
	// ErrTransient: lock wait exhausted or serialization race. Safe to
	// retry with backoff.
	ErrTransient ErrCode = "TRANSIENT"
	ErrValidation ErrCode = "VALIDATION"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type CommitReq struct {
	TenantID          string
	Day               time.Time
	PackageID         string
	CustomerName      string
	CustomerEmail     string
	TotalMinor        int64
	RatePercent       decimal.Decimal
	ProviderSessionID string
}

// Service is the sole serialization point for reservation writes. Among
// concurrent commits for the same (tenant, day) exactly one succeeds;
// losers get an unambiguous conflict or transient signal.
type Service interface {
	Commit(ctx context.Context, req CommitReq) (*model.Reservation, error)

	// ActiveForDay returns the reservation currently holding (tenant, day),
	// sql.ErrNoRows when none. Callers use it to tell their own committed
	// reservation apart from a genuinely competing one.
	ActiveForDay(ctx context.Context, tenantID string, day time.Time) (*model.Reservation, error)
}

type service struct {
	uow reservationrepo.Repo
}

func New(uow reservationrepo.Repo) Service { return &service{uow: uow} }

func (s *service) ActiveForDay(ctx context.Context, tenantID string, day time.Time) (*model.Reservation, error) {
	return s.uow.ActiveByDay(ctx, tenantID, day)
}

func (s *service) Commit(ctx context.Context, req CommitReq) (res *model.Reservation, err error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// Commission snapshot is computed before the lock; the rate travels
	// with the row and later tenant rate changes never touch it.
	fee, err := commission.Fee(req.TotalMinor, req.RatePercent)
	if err != nil {
		return nil, makeErr(ErrValidation, err.Error())
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Exclusive hold on (tenant, day), bounded wait.
	if err = tx.AcquireDayLock(ctx, req.TenantID, req.Day); err != nil {
		if errors.Is(err, reservationrepo.ErrContended) {
			return nil, makeErr(ErrTransient, "lock wait exhausted for date")
		}
		return nil, err
	}

	// Mandatory re-check inside the lock; the advisory gate is stale by
	// the time a competing writer could have slipped in.
	blocked, err := tx.BlackoutExists(ctx, req.TenantID, req.Day)
	if err != nil {
		return nil, err
	}
	if blocked {
		metrics.ReservationConflicts.Inc()
		return nil, makeErr(ErrConflict, "date is blocked for tenant")
	}

	taken, err := tx.ActiveReservationExists(ctx, req.TenantID, req.Day)
	if err != nil {
		return nil, err
	}
	if taken {
		metrics.ReservationConflicts.Inc()
		return nil, makeErr(ErrConflict, "date already reserved")
	}

	res = &model.Reservation{
		ID:                uuid.NewString(),
		TenantID:          req.TenantID,
		Day:               req.Day,
		PackageID:         req.PackageID,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		TotalMinor:        req.TotalMinor,
		CommissionMinor:   fee,
		CommissionRate:    req.RatePercent,
		ProviderSessionID: req.ProviderSessionID,
		Status:            model.ReservationConfirmed,
	}
	if err = tx.Insert(ctx, res); err != nil {
		// The partial unique index is the structural backstop if the lock
		// discipline is ever bypassed elsewhere.
		if errors.Is(err, reservationrepo.ErrDuplicate) {
			metrics.ReservationConflicts.Inc()
			return nil, makeErr(ErrConflict, "date already reserved")
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		if errors.Is(err, reservationrepo.ErrContended) {
			return nil, makeErr(ErrTransient, "commit lost serialization race")
		}
		return nil, err
	}

	metrics.ReservationsCommitted.WithLabelValues(req.TenantID).Inc()
	return res, nil
}

func validate(req CommitReq) error {
	switch {
	case strings.TrimSpace(req.TenantID) == "":
		return makeErr(ErrValidation, "tenant id required")
	case req.Day.IsZero():
		return makeErr(ErrValidation, "date required")
	case strings.TrimSpace(req.PackageID) == "":
		return makeErr(ErrValidation, "package id required")
	case strings.TrimSpace(req.CustomerEmail) == "":
		return makeErr(ErrValidation, "customer email required")
	case req.TotalMinor < 0:
		return makeErr(ErrValidation, "total must not be negative")
	}
	return nil
}
