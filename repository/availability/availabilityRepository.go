// repository/availability/repo.go
package availabilityrepo

import (
	"context"
	"database/sql"
	"time"
)

// Repo is the read side used by the advisory availability gate. The
// authoritative checks live in the reservation unit of work.
type Repo interface {
	BlackoutExists(ctx context.Context, tenantID string, day time.Time) (bool, error)
	ActiveReservationExists(ctx context.Context, tenantID string, day time.Time) (bool, error)

	// Range variants return the matching days between from and to
	// inclusive, one query each.
	BlackoutsInRange(ctx context.Context, tenantID string, from, to time.Time) ([]time.Time, error)
	ReservedInRange(ctx context.Context, tenantID string, from, to time.Time) ([]time.Time, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) BlackoutExists(ctx context.Context, tenantID string, day time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM blackout_dates
			WHERE tenant_id = $1 AND day = $2
		)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, tenantID, day).Scan(&ok)
	return ok, err
}

func (r *repo) ActiveReservationExists(ctx context.Context, tenantID string, day time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE tenant_id = $1 AND day = $2 AND status <> 'FAILED'
		)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, tenantID, day).Scan(&ok)
	return ok, err
}

func (r *repo) BlackoutsInRange(ctx context.Context, tenantID string, from, to time.Time) ([]time.Time, error) {
	const q = `
		SELECT day
		FROM blackout_dates
		WHERE tenant_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day`
	return r.scanDays(ctx, q, tenantID, from, to)
}

func (r *repo) ReservedInRange(ctx context.Context, tenantID string, from, to time.Time) ([]time.Time, error) {
	const q = `
		SELECT day
		FROM reservations
		WHERE tenant_id = $1 AND day BETWEEN $2 AND $3 AND status <> 'FAILED'
		ORDER BY day`
	return r.scanDays(ctx, q, tenantID, from, to)
}

func (r *repo) scanDays(ctx context.Context, q string, args ...any) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
