// model/paymentEvent.go
package model

import "time"

type PaymentEventStatus string

const (
	EventPending   PaymentEventStatus = "PENDING"
	EventProcessed PaymentEventStatus = "PROCESSED"
	EventFailed    PaymentEventStatus = "FAILED"
)

// PaymentEvent is the write-ahead record of an inbound provider event.
// (TenantID, ExternalEventID) is unique; that constraint is what makes
// provider redelivery safe.
type PaymentEvent struct {
	ID              string             `json:"id"`
	TenantID        string             `json:"tenant_id"`
	ExternalEventID string             `json:"external_event_id"`
	Kind            string             `json:"kind"`
	Payload         []byte             `json:"-"`
	Status          PaymentEventStatus `json:"status"`
	Attempts        int                `json:"attempts"`
	LastError       *string            `json:"last_error,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}
