// repository/reservation/repo.go
package reservationrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"mais/model"
)

var (
	// ErrContended: the (tenant, day) lock could not be acquired within
	// the bounded wait, or the transaction lost a serialization race.
	// Safe to retry.
	ErrContended = errors.New("reservation lock contended")

	// ErrDuplicate: the partial unique index on (tenant_id, day) rejected
	// the insert. The date is genuinely taken.
	ErrDuplicate = errors.New("reservation already exists for date")
)

// Tx is the unit of work for a single commit attempt. Every method runs
// on the same database transaction; Commit/Rollback end it.
type Tx interface {
	// AcquireDayLock blocks up to the configured lock_timeout for the
	// exclusive (tenant, day) lock, then fails with ErrContended.
	AcquireDayLock(ctx context.Context, tenantID string, day time.Time) error
	BlackoutExists(ctx context.Context, tenantID string, day time.Time) (bool, error)
	ActiveReservationExists(ctx context.Context, tenantID string, day time.Time) (bool, error)
	Insert(ctx context.Context, res *model.Reservation) error
	Commit() error
	Rollback() error
}

type Repo interface {
	Begin(ctx context.Context) (Tx, error)

	// ActiveByDay returns the non-FAILED reservation occupying (tenant,
	// day), or sql.ErrNoRows when the date is free. Plain read, no lock.
	ActiveByDay(ctx context.Context, tenantID string, day time.Time) (*model.Reservation, error)
}

type repo struct {
	db       *sql.DB
	lockWait time.Duration
}

func New(db *sql.DB, lockWait time.Duration) Repo {
	return &repo{db: db, lockWait: lockWait}
}

func (r *repo) Begin(ctx context.Context) (Tx, error) {
	t, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}

	// Bounded wait for every lock taken in this transaction. set_config
	// with is_local=true reverts at commit/rollback.
	const q = `SELECT set_config('lock_timeout', $1, true)`
	if _, err := t.ExecContext(ctx, q, fmt.Sprintf("%dms", r.lockWait.Milliseconds())); err != nil {
		_ = t.Rollback()
		return nil, err
	}
	return &pgTx{tx: t}, nil
}

func (r *repo) ActiveByDay(ctx context.Context, tenantID string, day time.Time) (*model.Reservation, error) {
	const q = `
		SELECT id, tenant_id, day, package_id, customer_name, customer_email,
		       total_minor, commission_minor, commission_rate,
		       provider_session_id, status, created_at, updated_at
		FROM reservations
		WHERE tenant_id = $1 AND day = $2 AND status <> 'FAILED'`
	var res model.Reservation
	err := r.db.QueryRowContext(ctx, q, tenantID, day).Scan(
		&res.ID, &res.TenantID, &res.Day, &res.PackageID,
		&res.CustomerName, &res.CustomerEmail,
		&res.TotalMinor, &res.CommissionMinor, &res.CommissionRate,
		&res.ProviderSessionID, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type pgTx struct {
	tx *sql.Tx
}

// lockKey folds (tenant, day) into the 64-bit advisory lock space.
func lockKey(tenantID string, day time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(tenantID))
	h.Write([]byte{'/'})
	h.Write([]byte(model.FormatDay(day)))
	return int64(h.Sum64())
}

func (t *pgTx) AcquireDayLock(ctx context.Context, tenantID string, day time.Time) error {
	const q = `SELECT pg_advisory_xact_lock($1)`
	if _, err := t.tx.ExecContext(ctx, q, lockKey(tenantID, day)); err != nil {
		if isContention(err) {
			return ErrContended
		}
		return err
	}
	return nil
}

func (t *pgTx) BlackoutExists(ctx context.Context, tenantID string, day time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM blackout_dates
			WHERE tenant_id = $1 AND day = $2
		)`
	var ok bool
	err := t.tx.QueryRowContext(ctx, q, tenantID, day).Scan(&ok)
	return ok, err
}

func (t *pgTx) ActiveReservationExists(ctx context.Context, tenantID string, day time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE tenant_id = $1 AND day = $2 AND status <> 'FAILED'
		)`
	var ok bool
	err := t.tx.QueryRowContext(ctx, q, tenantID, day).Scan(&ok)
	return ok, err
}

func (t *pgTx) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `
		INSERT INTO reservations
			(id, tenant_id, day, package_id, customer_name, customer_email,
			 total_minor, commission_minor, commission_rate,
			 provider_session_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`
	err := t.tx.QueryRowContext(ctx, q,
		res.ID, res.TenantID, res.Day, res.PackageID,
		res.CustomerName, res.CustomerEmail,
		res.TotalMinor, res.CommissionMinor, res.CommissionRate,
		res.ProviderSessionID, res.Status,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (t *pgTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if isContention(err) {
			return ErrContended
		}
		return err
	}
	return nil
}

func (t *pgTx) Rollback() error { return t.tx.Rollback() }

func isContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.LockNotAvailable ||
		pgErr.Code == pgerrcode.SerializationFailure
}
