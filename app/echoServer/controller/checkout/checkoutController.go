package checkout

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mais/model"
	cs "mais/service/checkout"
)

type Controller struct {
	Svc cs.Service
	Log *zap.Logger
}

// POST /v1/checkout
func (h *Controller) Create(c echo.Context) error {
	tenant, ok := c.Get("tenant").(*model.Tenant)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	var req CreateCheckoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.Create(c.Request().Context(), tenant, cs.CreateReq{
		PackageID:      req.PackageID,
		Day:            req.Day,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		switch cs.Code(err) {
		case cs.ErrUnavailable:
			return c.JSON(http.StatusConflict, echo.Map{"message": "date unavailable"})
		case cs.ErrPackageNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "package not found"})
		case cs.ErrBadInput:
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "invalid request"})
		default:
			h.Log.Error("checkout create", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, out)
}
