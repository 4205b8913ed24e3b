// repository/tenant/repo.go
package tenantrepo

import (
	"context"
	"database/sql"

	"mais/model"
)

type Repo interface {
	// ByAPIKey resolves an inbound tenant credential to the tenant row.
	ByAPIKey(ctx context.Context, apiKey string) (*model.Tenant, error)
	BySlug(ctx context.Context, slug string) (*model.Tenant, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) ByAPIKey(ctx context.Context, apiKey string) (*model.Tenant, error) {
	const q = `
		SELECT id, slug, commission_rate, active, created_at, updated_at
		FROM tenants
		WHERE api_key = $1`
	return r.scanOne(ctx, q, apiKey)
}

func (r *repo) BySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	const q = `
		SELECT id, slug, commission_rate, active, created_at, updated_at
		FROM tenants
		WHERE slug = $1`
	return r.scanOne(ctx, q, slug)
}

func (r *repo) scanOne(ctx context.Context, q string, arg any) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&t.ID, &t.Slug, &t.CommissionRate, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
