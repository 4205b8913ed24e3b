package availability

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"mais/cache"
	"mais/model"
	availabilityrepo "mais/repository/availability"
	calendarrepo "mais/repository/calendar"
	"mais/util/logger"
)

type Reason string

const (
	ReasonBlocked  Reason = "blocked"
	ReasonReserved Reason = "reserved"
	ReasonExternal Reason = "externally-unavailable"
)

type Decision struct {
	Available bool   `json:"available"`
	Reason    Reason `json:"reason,omitempty"`
}

// Service is the advisory availability gate. It is what the UI shows;
// the authoritative answer is re-derived under the reservation lock.
type Service interface {
	Check(ctx context.Context, tenantID string, day time.Time) (Decision, error)

	// UnavailableRange returns reason-per-day for every unavailable day in
	// [from, to], one pass over each source.
	UnavailableRange(ctx context.Context, tenantID string, from, to time.Time) (map[string]Reason, error)
}

const cacheTTL = time.Minute

type service struct {
	repo   availabilityrepo.Repo
	oracle calendarrepo.Oracle
	cache  cache.Cache
}

func New(repo availabilityrepo.Repo, oracle calendarrepo.Oracle, c cache.Cache) Service {
	return &service{repo: repo, oracle: oracle, cache: c}
}

func (s *service) Check(ctx context.Context, tenantID string, day time.Time) (Decision, error) {
	key := cache.Key{TenantID: tenantID, Scope: cache.ScopeAvailability, Ref: model.FormatDay(day)}
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var d Decision
		if json.Unmarshal(raw, &d) == nil {
			return d, nil
		}
	}

	d, err := s.check(ctx, tenantID, day)
	if err != nil {
		return Decision{}, err
	}

	if raw, err := json.Marshal(d); err == nil {
		if err := s.cache.Set(ctx, key, raw, cacheTTL); err != nil {
			logger.L().Warn("availability cache set", zap.Error(err))
		}
	}
	return d, nil
}

func (s *service) check(ctx context.Context, tenantID string, day time.Time) (Decision, error) {
	blocked, err := s.repo.BlackoutExists(ctx, tenantID, day)
	if err != nil {
		return Decision{}, err
	}
	if blocked {
		return Decision{Available: false, Reason: ReasonBlocked}, nil
	}

	reserved, err := s.repo.ActiveReservationExists(ctx, tenantID, day)
	if err != nil {
		return Decision{}, err
	}
	if reserved {
		return Decision{Available: false, Reason: ReasonReserved}, nil
	}

	// Best effort only. An oracle failure degrades to the internal checks.
	busy, err := s.oracle.BusyDates(ctx, tenantID, day, day)
	if err != nil {
		logger.L().Warn("calendar oracle unavailable, failing open",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return Decision{Available: true}, nil
	}
	for _, b := range busy {
		if b.Equal(day) {
			return Decision{Available: false, Reason: ReasonExternal}, nil
		}
	}
	return Decision{Available: true}, nil
}

func (s *service) UnavailableRange(ctx context.Context, tenantID string, from, to time.Time) (map[string]Reason, error) {
	out := make(map[string]Reason)

	busy, err := s.oracle.BusyDates(ctx, tenantID, from, to)
	if err != nil {
		logger.L().Warn("calendar oracle unavailable, failing open",
			zap.String("tenant_id", tenantID), zap.Error(err))
	} else {
		for _, d := range busy {
			out[model.FormatDay(d)] = ReasonExternal
		}
	}

	reserved, err := s.repo.ReservedInRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	for _, d := range reserved {
		out[model.FormatDay(d)] = ReasonReserved
	}

	// Blackouts last: an explicitly blocked day reports blocked even when
	// also reserved or externally busy.
	blocked, err := s.repo.BlackoutsInRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	for _, d := range blocked {
		out[model.FormatDay(d)] = ReasonBlocked
	}
	return out, nil
}
