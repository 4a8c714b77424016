// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/skinguard/backend/internal/session"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version    string
	endpoint   string
	sessionMgr *session.Manager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, endpoint string, sessionMgr *session.Manager) HealthHandler {
	return &HealthHandlerImpl{
		version:    version,
		endpoint:   endpoint,
		sessionMgr: sessionMgr,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	sessions := 0
	if h.sessionMgr != nil {
		sessions = h.sessionMgr.Count()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"version":    h.version,
		"classifier": h.endpoint,
		"sessions":   sessions,
	})
}
