// repository/calendar/oracle.go
package calendarrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mais/model"
	"mais/util/httpx"
)

// Oracle is the external calendar signal. Best effort and non-authoritative:
// callers must treat a failure as "no external blocks".
type Oracle interface {
	BusyDates(ctx context.Context, tenantID string, from, to time.Time) ([]time.Time, error)
}

type httpOracle struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(baseURL string) Oracle {
	return &httpOracle{baseURL: baseURL, client: httpx.Client()}
}

func (o *httpOracle) BusyDates(ctx context.Context, tenantID string, from, to time.Time) ([]time.Time, error) {
	url := fmt.Sprintf("%s/v1/calendars/%s/busy?from=%s&to=%s",
		o.baseURL, tenantID, model.FormatDay(from), model.FormatDay(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("calendar oracle: %s", resp.Status)
	}

	var out struct {
		Busy []string `json:"busy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	days := make([]time.Time, 0, len(out.Busy))
	for _, s := range out.Busy {
		d, err := model.ParseDay(s)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	return days, nil
}

// NopOracle reports nothing busy. Injected when no calendar is configured.
type NopOracle struct{}

func (NopOracle) BusyDates(context.Context, string, time.Time, time.Time) ([]time.Time, error) {
	return nil, nil
}
