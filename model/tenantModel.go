// model/tenant.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID             string          `json:"id"`
	Slug           string          `json:"slug"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
