package availability

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mais/model"
	as "mais/service/availability"
)

type Controller struct {
	Svc as.Service
	Log *zap.Logger
}

const maxRangeDays = 366

// GET /v1/availability/:date
func (h *Controller) Day(c echo.Context) error {
	tenant, ok := c.Get("tenant").(*model.Tenant)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	day, err := model.ParseDay(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date, want YYYY-MM-DD"})
	}

	d, err := h.Svc.Check(c.Request().Context(), tenant.ID, day)
	if err != nil {
		h.Log.Error("availability check", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, d)
}

// GET /v1/availability?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Controller) Range(c echo.Context) error {
	tenant, ok := c.Get("tenant").(*model.Tenant)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	from, err := model.ParseDay(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid from, want YYYY-MM-DD"})
	}
	to, err := model.ParseDay(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid to, want YYYY-MM-DD"})
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "to precedes from"})
	}
	if int(to.Sub(from).Hours()/24) > maxRangeDays {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "range too wide"})
	}

	out, err := h.Svc.UnavailableRange(c.Request().Context(), tenant.ID, from, to)
	if err != nil {
		h.Log.Error("availability range", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"from":        model.FormatDay(from),
		"to":          model.FormatDay(to),
		"unavailable": out,
	})
}
