// interfaces.go - Handler interface definitions
package api

import "github.com/labstack/echo/v4"

// SessionHandler handles the lifecycle of analysis sessions
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleGetSessionMsgpack(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
}

// AnalysisHandler drives the upload/analysis controller of a session
type AnalysisHandler interface {
	HandleAcceptFile(c echo.Context) error
	HandleAnalyze(c echo.Context) error
	HandleReset(c echo.Context) error
	HandleGetPreview(c echo.Context) error
	HandleGetLabels(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// LiveViewHandler streams view snapshots of a session
type LiveViewHandler interface {
	HandleWebSocket(c echo.Context) error
}
