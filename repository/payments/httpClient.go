package paymentsrepo

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mais/util/httpx"
)

type httpRepo struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	client        *http.Client
}

func NewHTTP(baseURL, apiKey, webhookSecret string) Repo {
	return &httpRepo{
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		client:        httpx.Client(),
	}
}

func (r *httpRepo) CreateSession(req CreateSessionReq) (*Session, error) {
	body := map[string]any{
		"reference_id":   req.ReferenceID,
		"amount":         req.AmountMinor,
		"description":    req.Description,
		"customer_email": req.CustomerEmail,
		"expiry_seconds": req.ExpirySec,
	}
	b, _ := json.Marshal(body)

	httpReq, err := http.NewRequest(http.MethodPost, r.baseURL+"/v1/checkout/sessions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.apiKey, "")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider create session failed: %s", resp.Status)
	}

	var out struct {
		ID         string `json:"id"`
		SessionURL string `json:"session_url"`
		ExpiresAt  string `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("provider: empty session id")
	}
	return &Session{SessionID: out.ID, SessionURL: out.SessionURL, ExpiresAt: out.ExpiresAt}, nil
}

var ErrBadSignature = errors.New("webhook signature mismatch")

// VerifyWebhookSignature expects a lowercase hex HMAC-SHA256 of the raw
// body, optionally prefixed "sha256=".
func (r *httpRepo) VerifyWebhookSignature(sigHeader string, rawBody []byte) error {
	sig := strings.TrimPrefix(strings.TrimSpace(sigHeader), "sha256=")
	if sig == "" {
		return ErrBadSignature
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(r.webhookSecret))
	mac.Write(rawBody)
	if !hmac.Equal(mac.Sum(nil), want) {
		return ErrBadSignature
	}
	return nil
}
