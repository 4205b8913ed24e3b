// repository/catalog/repo.go
package catalogrepo

import (
	"context"
	"database/sql"
)

// Repo is the read-only pricing boundary. Package CRUD lives in the
// out-of-scope admin surface; the core only needs a price.
type Repo interface {
	PriceMinor(ctx context.Context, tenantID, packageID string) (int64, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) PriceMinor(ctx context.Context, tenantID, packageID string) (int64, error) {
	const q = `
		SELECT price_minor
		FROM packages
		WHERE tenant_id = $1 AND id = $2 AND active`
	var price int64
	err := r.db.QueryRowContext(ctx, q, tenantID, packageID).Scan(&price)
	return price, err
}
