package paymentsvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mais/cache"
	"mais/events"
	"mais/model"
	paymenteventrepo "mais/repository/paymentevent"
	paymentsrepo "mais/repository/payments"
	tenantrepo "mais/repository/tenant"
	"mais/service/reservation"
	"mais/util/logger"
	"mais/util/metrics"
)

// ErrUnauthentic: signature verification failed. A security event, logged
// distinctly; no PaymentEvent row is written for unverified payloads.
var ErrUnauthentic = errors.New("webhook signature verification failed")

type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeRejected         Outcome = "rejected"
)

type Result struct {
	Outcome     Outcome
	Reason      string
	Reservation *model.Reservation
}

type Service interface {
	// HandleEvent runs the full pipeline: verify, write-ahead record,
	// validate, commit, mark. Redelivery of a processed event is an
	// idempotent no-op.
	HandleEvent(ctx context.Context, raw []byte, sigHeader string) (Result, error)
}

type service struct {
	tenants  tenantrepo.Repo
	eventLog paymenteventrepo.Repo
	resSvc   reservation.Service
	provider paymentsrepo.Repo
	cache    cache.Cache
	pub      events.Publisher
	v        *validator.Validate
}

func New(
	tenants tenantrepo.Repo,
	eventLog paymenteventrepo.Repo,
	resSvc reservation.Service,
	provider paymentsrepo.Repo,
	c cache.Cache,
	pub events.Publisher,
) Service {
	return &service{
		tenants:  tenants,
		eventLog: eventLog,
		resSvc:   resSvc,
		provider: provider,
		cache:    c,
		pub:      pub,
		v:        validator.New(),
	}
}

// envelope is the provider's webhook shape.
type envelope struct {
	ID   string          `json:"id"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type checkoutCompleted struct {
	Tenant        string `json:"tenant" validate:"required"`
	SessionID     string `json:"session_id" validate:"required"`
	PackageID     string `json:"package_id" validate:"required"`
	Day           string `json:"day" validate:"required,datetime=2006-01-02"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	AmountMinor   int64  `json:"amount_minor" validate:"required,gt=0"`
}

const kindCheckoutCompleted = "checkout.completed"

func (s *service) HandleEvent(ctx context.Context, raw []byte, sigHeader string) (Result, error) {
	// Security boundary first. Unverified payloads are never recorded.
	if err := s.provider.VerifyWebhookSignature(sigHeader, raw); err != nil {
		logger.L().Warn("webhook signature rejected", zap.Error(err))
		metrics.PaymentEvents.WithLabelValues("unauthentic").Inc()
		return Result{}, ErrUnauthentic
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return reject("malformed event json"), nil
	}
	if env.ID == "" {
		return reject("missing event id"), nil
	}

	// The tenant must resolve before the write-ahead insert; the dedup
	// key is (tenant, external event id).
	var partial struct {
		Tenant string `json:"tenant"`
	}
	_ = json.Unmarshal(env.Data, &partial)
	if partial.Tenant == "" {
		return reject("missing tenant"), nil
	}
	tenant, err := s.tenants.BySlug(ctx, partial.Tenant)
	if err != nil {
		return reject(fmt.Sprintf("unknown tenant %q", partial.Tenant)), nil
	}
	if !tenant.Active {
		return reject("tenant inactive"), nil
	}

	// Write-ahead record before any side effect. A crash from here on
	// leaves a re-processable trail.
	ev, existing, err := s.eventLog.InsertOrGet(ctx, tenant.ID, env.ID, env.Kind, raw)
	if err != nil {
		return Result{}, err
	}
	if existing && ev.Status == model.EventProcessed {
		metrics.PaymentEvents.WithLabelValues("duplicate").Inc()
		return Result{Outcome: OutcomeAlreadyProcessed}, nil
	}
	// PENDING or FAILED rows reprocess: retry-after-partial-failure.

	if env.Kind != kindCheckoutCompleted {
		// Unhandled kinds are acknowledged so the provider stops
		// redelivering them.
		if err := s.eventLog.MarkProcessed(ctx, ev.ID); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeAccepted}, nil
	}

	var payload checkoutCompleted
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return s.fail(ctx, ev, "malformed payload: "+err.Error())
	}
	if err := s.v.Struct(payload); err != nil {
		return s.fail(ctx, ev, "invalid payload: "+err.Error())
	}
	day, err := model.ParseDay(payload.Day)
	if err != nil {
		return s.fail(ctx, ev, "invalid day: "+err.Error())
	}

	res, err := s.resSvc.Commit(ctx, reservation.CommitReq{
		TenantID:          tenant.ID,
		Day:               day,
		PackageID:         payload.PackageID,
		CustomerName:      payload.CustomerName,
		CustomerEmail:     payload.CustomerEmail,
		TotalMinor:        payload.AmountMinor,
		RatePercent:       tenant.CommissionRate,
		ProviderSessionID: payload.SessionID,
	})
	if err != nil {
		switch reservation.Code(err) {
		case reservation.ErrConflict:
			// A prior delivery of this event may have committed and then
			// died before marking the row PROCESSED. In that case the
			// occupying reservation is our own session and the redelivery
			// just finishes the job.
			occupying, lerr := s.resSvc.ActiveForDay(ctx, tenant.ID, day)
			if lerr == nil && occupying.ProviderSessionID == payload.SessionID {
				return s.complete(ctx, ev, tenant, occupying)
			}
			if lerr != nil && !errors.Is(lerr, sql.ErrNoRows) {
				// Cannot tell ours from theirs; leave the row for redelivery.
				return Result{}, lerr
			}
			// Genuinely a different session (or a blackout). Exceptional:
			// needs a compensating refund, which happens outside this core.
			logger.L().Error("paid event lost date conflict",
				zap.String("tenant_id", tenant.ID),
				zap.String("event_id", ev.ID),
				zap.String("day", payload.Day))
			return s.fail(ctx, ev, "date conflict: "+err.Error())
		case reservation.ErrValidation:
			return s.fail(ctx, ev, err.Error())
		default:
			// Transient or infra. Row stays PENDING/FAILED for retry.
			if ferr := s.eventLog.MarkFailed(ctx, ev.ID, err.Error()); ferr != nil {
				return Result{}, ferr
			}
			return Result{}, err
		}
	}

	return s.complete(ctx, ev, tenant, res)
}

// complete is the tail shared by a fresh commit and a redelivery that
// found its own reservation already in place.
func (s *service) complete(ctx context.Context, ev *model.PaymentEvent, tenant *model.Tenant, res *model.Reservation) (Result, error) {
	if err := s.eventLog.MarkProcessed(ctx, ev.ID); err != nil {
		return Result{}, err
	}

	// Same logical operation as the mutation, not fire-and-forget.
	if err := s.cache.Invalidate(ctx, tenant.ID, cache.ScopeAvailability); err != nil {
		logger.L().Error("availability cache invalidation failed",
			zap.String("tenant_id", tenant.ID), zap.Error(err))
	}

	if err := s.pub.PublishJSON(ctx, events.KeyBookingConfirmed, events.BookingConfirmed{
		ReservationID:   res.ID,
		TenantID:        res.TenantID,
		Day:             model.FormatDay(res.Day),
		PackageID:       res.PackageID,
		CustomerEmail:   res.CustomerEmail,
		TotalMinor:      res.TotalMinor,
		CommissionMinor: res.CommissionMinor,
	}); err != nil {
		// At-least-once boundary; the commit stands either way.
		logger.L().Error("booking.confirmed publish failed", zap.Error(err))
	}

	metrics.PaymentEvents.WithLabelValues("processed").Inc()
	return Result{Outcome: OutcomeAccepted, Reservation: res}, nil
}

func (s *service) fail(ctx context.Context, ev *model.PaymentEvent, reason string) (Result, error) {
	if err := s.eventLog.MarkFailed(ctx, ev.ID, reason); err != nil {
		return Result{}, err
	}

	if err := s.pub.PublishJSON(ctx, events.KeyPaymentFailed, events.PaymentFailed{
		EventID:  ev.ID,
		TenantID: ev.TenantID,
		Reason:   reason,
	}); err != nil {
		logger.L().Error("payment.failed publish failed", zap.Error(err))
	}

	metrics.PaymentEvents.WithLabelValues("rejected").Inc()
	return reject(reason), nil
}

func reject(reason string) Result {
	return Result{Outcome: OutcomeRejected, Reason: reason}
}
