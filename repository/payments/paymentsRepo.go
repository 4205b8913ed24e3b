package paymentsrepo

// CreateSessionReq describes a checkout session to open with the payment
// provider. Amounts are integer minor currency units.
type CreateSessionReq struct {
	ReferenceID   string
	AmountMinor   int64
	Description   string
	CustomerEmail string
	ExpirySec     int
}

type Session struct {
	SessionID  string
	SessionURL string
	ExpiresAt  string
}

type Repo interface {
	CreateSession(req CreateSessionReq) (*Session, error)
	// VerifyWebhookSignature checks the provider's HMAC over the raw body.
	VerifyWebhookSignature(sigHeader string, rawBody []byte) error
}
