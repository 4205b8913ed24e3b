// app/echoServer/middleware.go
package echoServer

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"mais/model"
	tenantrepo "mais/repository/tenant"
	"mais/util/logger"
	"mais/util/metrics"
)

func RegisterMiddlewares(e *echo.Echo) {

	e.Use(middleware.Recover())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	e.Use(logger.Middleware())
	e.Use(metrics.Middleware())
}

const tenantMemoTTL = 30 * time.Second

type memoEntry struct {
	tenant *model.Tenant
	exp    time.Time
}

type tenantMemo struct {
	mu      sync.Mutex
	entries map[string]memoEntry
}

func (m *tenantMemo) get(ref string) *model.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ref]
	if !ok || time.Now().After(e.exp) {
		delete(m.entries, ref)
		return nil
	}
	return e.tenant
}

func (m *tenantMemo) put(ref string, t *model.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[ref] = memoEntry{tenant: t, exp: time.Now().Add(tenantMemoTTL)}
}

// TenantAuth resolves the X-Api-Key header to its tenant and stores the
// tenant in the request context under "tenant". Resolutions are memoized
// in-process for a short window, keyed by the key's digest so credential
// material never sits in the map.
func TenantAuth(tenants tenantrepo.Repo) echo.MiddlewareFunc {
	memo := &tenantMemo{entries: make(map[string]memoEntry)}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get("X-Api-Key")
			if key == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "missing api key"})
			}
			sum := sha256.Sum256([]byte(key))
			ref := hex.EncodeToString(sum[:])

			t := memo.get(ref)
			if t == nil {
				var err error
				t, err = tenants.ByAPIKey(c.Request().Context(), key)
				if errors.Is(err, sql.ErrNoRows) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
				}
				if err != nil {
					logger.L().Error("tenant lookup failed", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
				}
				memo.put(ref, t)
			}
			if !t.Active {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}

			c.Set("tenant", t)
			return next(c)
		}
	}
}
