// repository/paymentevent/repo.go
package paymenteventrepo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"mais/model"
)

type Repo interface {
	// InsertOrGet writes the write-ahead row for an inbound event. If a
	// row for (tenant, external id) already exists it is returned instead
	// and existing is true; the attempt counter is bumped either way.
	InsertOrGet(ctx context.Context, tenantID, externalEventID, kind string, payload []byte) (ev *model.PaymentEvent, existing bool, err error)

	MarkProcessed(ctx context.Context, id string) error

	// MarkFailed never demotes a PROCESSED row; a duplicate delivery that
	// loses a race against the one that completed is a no-op here.
	MarkFailed(ctx context.Context, id string, reason string) error
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) InsertOrGet(ctx context.Context, tenantID, externalEventID, kind string, payload []byte) (*model.PaymentEvent, bool, error) {
	// ON CONFLICT DO NOTHING + RETURNING yields no row on collision, so a
	// second query fetches the existing record.
	const qIns = `
		INSERT INTO payment_events
			(id, tenant_id, external_event_id, kind, payload, status, attempts)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', 1)
		ON CONFLICT (tenant_id, external_event_id) DO NOTHING
		RETURNING id, tenant_id, external_event_id, kind, payload, status,
		          attempts, last_error, created_at, updated_at`

	ev, err := scanEvent(r.db.QueryRowContext(ctx, qIns,
		uuid.NewString(), tenantID, externalEventID, kind, payload))
	if err == nil {
		return ev, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	const qGet = `
		UPDATE payment_events
		SET attempts = attempts + 1, updated_at = NOW()
		WHERE tenant_id = $1 AND external_event_id = $2
		RETURNING id, tenant_id, external_event_id, kind, payload, status,
		          attempts, last_error, created_at, updated_at`
	ev, err = scanEvent(r.db.QueryRowContext(ctx, qGet, tenantID, externalEventID))
	if err != nil {
		return nil, false, err
	}
	return ev, true, nil
}

func (r *repo) MarkProcessed(ctx context.Context, id string) error {
	// PENDING and FAILED rows may complete; a PROCESSED row stays as is.
	const q = `
		UPDATE payment_events
		SET status = 'PROCESSED', last_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status <> 'PROCESSED'`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *repo) MarkFailed(ctx context.Context, id string, reason string) error {
	// Status guard: a concurrent duplicate that lost its race must not
	// overwrite the winner's PROCESSED outcome.
	const q = `
		UPDATE payment_events
		SET status = 'FAILED', last_error = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'PROCESSED'`
	_, err := r.db.ExecContext(ctx, q, id, reason)
	return err
}

func scanEvent(row *sql.Row) (*model.PaymentEvent, error) {
	var ev model.PaymentEvent
	err := row.Scan(
		&ev.ID, &ev.TenantID, &ev.ExternalEventID, &ev.Kind, &ev.Payload,
		&ev.Status, &ev.Attempts, &ev.LastError, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
