package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/skinguard/backend/internal/analysis"
	"github.com/skinguard/backend/internal/api"
	"github.com/skinguard/backend/internal/classifier"
	"github.com/skinguard/backend/internal/config"
	"github.com/skinguard/backend/internal/hub"
	"github.com/skinguard/backend/internal/labels"
	"github.com/skinguard/backend/internal/logging"
	"github.com/skinguard/backend/internal/notify"
	"github.com/skinguard/backend/internal/session"
	"github.com/skinguard/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// A missing .env is fine; the XML config carries the defaults.
	_ = godotenv.Load()

	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "SkinGuard.exe.config")
	if p := os.Getenv("SKINGUARD_CONFIG"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.SetupLogger(cfg.Advanced.LogLevel, cfg.Advanced.LogFormat)

	catalog, err := labels.LoadOrDefault(cfg.Classifier.LabelsFile)
	if err != nil {
		logger.Error("failed to load label catalog", "path", cfg.Classifier.LabelsFile, "err", err)
		os.Exit(1)
	}

	client := classifier.NewClient(classifier.Options{
		Endpoint:  cfg.Classifier.Endpoint,
		FieldName: cfg.Classifier.FieldName,
	})

	newController := func() *analysis.Controller {
		return analysis.NewController(client, analysis.Options{
			AllowedTypes:   cfg.GetAllowedTypes(),
			MaxBytes:       cfg.GetMaxFileBytes(),
			Catalog:        catalog,
			ThumbnailSize:  cfg.Upload.ThumbnailSize,
			RequestTimeout: cfg.GetRequestTimeout(),
			Notifier:       notify.New(cfg.GetNotificationDuration()),
			Logger:         logger,
		})
	}

	views := hub.New(logger)
	sessionMgr := session.NewManager(newController, views, logger)
	defer sessionMgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go sessionMgr.RunCleanup(ctx, cfg.GetCleanupInterval(), cfg.GetSessionTimeout())

	// Check if the frontend is built into the binary
	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || strings.HasSuffix(path, "/preview")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	// Compression middleware
	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Processing.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Request().URL.Path, "/ws")
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.SetupMiddleware(e, cfg.Advanced.LogLevel == "debug")

	handlers := api.NewHandlers(&api.Dependencies{
		SessionMgr:         sessionMgr,
		Hub:                views,
		Catalog:            catalog,
		ClassifierEndpoint: client.Endpoint(),
		Version:            Version,
		WSMaxMessageSize:   int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
		Logger:             logger,
	})
	api.RegisterRoutes(e, handlers)

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", "err", err)
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           SkinGuard Server                                ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:     %-45s║\n", configPath)
	fmt.Printf("║  Listen:     http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Classifier: %-45s║\n", client.Endpoint())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
