// model/reservation.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationFailed    ReservationStatus = "FAILED"
)

// Reservation is a confirmed, paid commitment of a tenant's date.
// CommissionRate is a snapshot taken at commit time; later tenant rate
// changes never alter historical rows.
type Reservation struct {
	ID                string            `json:"id"`
	TenantID          string            `json:"tenant_id"`
	Day               time.Time         `json:"day"` // calendar date, midnight UTC
	PackageID         string            `json:"package_id"`
	CustomerName      string            `json:"customer_name"`
	CustomerEmail     string            `json:"customer_email"`
	TotalMinor        int64             `json:"total_minor"`
	CommissionMinor   int64             `json:"commission_minor"`
	CommissionRate    decimal.Decimal   `json:"commission_rate"`
	ProviderSessionID string            `json:"provider_session_id"`
	Status            ReservationStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Day values are stored date-only. ParseDay normalizes incoming
// "2006-01-02" strings to midnight UTC.
func ParseDay(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

func FormatDay(d time.Time) string { return d.Format(time.DateOnly) }
