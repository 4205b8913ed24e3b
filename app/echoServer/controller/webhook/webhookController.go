package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	paymentsvc "mais/service/payment"
)

type Controller struct {
	Svc paymentsvc.Service
	Log *zap.Logger
}

const maxBody = 1 << 20

// POST /v1/payments/webhook
//
// Status codes steer provider redelivery: 200 suppresses it, anything
// else invites a retry.
func (h *Controller) Handle(c echo.Context) error {
	sig := c.Request().Header.Get("X-Signature")
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "unreadable body"})
	}

	res, err := h.Svc.HandleEvent(c.Request().Context(), raw, sig)
	if err != nil {
		if errors.Is(err, paymentsvc.ErrUnauthentic) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "bad signature"})
		}
		h.Log.Error("webhook processing", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}

	if res.Outcome == paymentsvc.OutcomeRejected {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status": string(res.Outcome),
			"reason": res.Reason,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(res.Outcome)})
}
