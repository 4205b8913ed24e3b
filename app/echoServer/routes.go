package echoServer

import (
	"net/http"

	"github.com/labstack/echo/v4"

	availabilityctrl "mais/app/echoServer/controller/availability"
	checkoutctrl "mais/app/echoServer/controller/checkout"
	webhookctrl "mais/app/echoServer/controller/webhook"
	tenantrepo "mais/repository/tenant"
	"mais/util/metrics"
)

type C struct {
	Checkout     *checkoutctrl.Controller
	Availability *availabilityctrl.Controller
	Webhook      *webhookctrl.Controller
	Tenants      tenantrepo.Repo
}

func Register(e *echo.Echo, c C) {
	e.GET("/health", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Public. The webhook authenticates by payload signature, not api key.
	pub := e.Group("/v1")
	pub.POST("/payments/webhook", c.Webhook.Handle)

	// Tenant-keyed
	api := e.Group("/v1")
	api.Use(TenantAuth(c.Tenants))
	api.POST("/checkout", c.Checkout.Create)
	api.GET("/availability", c.Availability.Range)
	api.GET("/availability/:date", c.Availability.Day)
}
