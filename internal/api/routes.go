// routes.go - Route registration helpers
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/skinguard/backend/internal/hub"
	"github.com/skinguard/backend/internal/models"
	"github.com/skinguard/backend/internal/session"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	SessionMgr         *session.Manager
	Hub                *hub.Hub
	Catalog            *models.LabelCatalog
	ClassifierEndpoint string
	Version            string
	WSMaxMessageSize   int64
	Logger             *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Session  SessionHandler
	Analysis AnalysisHandler
	LiveView LiveViewHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.ClassifierEndpoint, deps.SessionMgr),
		Session:  NewSessionHandler(deps.SessionMgr),
		Analysis: NewAnalysisHandler(deps.SessionMgr, deps.Catalog, logger),
		LiveView: NewWebSocketHandler(deps.SessionMgr, deps.Hub, deps.WSMaxMessageSize, logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Category catalog
	apiGroup.GET("/labels", handlers.Analysis.HandleGetLabels)

	// Session lifecycle
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("/:sessionId", handlers.Session.HandleGetSession)
	sessionGroup.GET("/:sessionId/view/msgpack", handlers.Session.HandleGetSessionMsgpack)
	sessionGroup.DELETE("/:sessionId", handlers.Session.HandleDeleteSession)

	// Upload and analysis
	sessionGroup.POST("/:sessionId/file", handlers.Analysis.HandleAcceptFile)
	sessionGroup.POST("/:sessionId/analyze", handlers.Analysis.HandleAnalyze)
	sessionGroup.POST("/:sessionId/reset", handlers.Analysis.HandleReset)
	sessionGroup.GET("/:sessionId/preview", handlers.Analysis.HandleGetPreview)

	// Live view
	sessionGroup.GET("/:sessionId/ws", handlers.LiveView.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, showErrorDetails bool) {
	e.HTTPErrorHandler = NewErrorHandler(showErrorDetails)
}
