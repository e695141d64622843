// Package folio is the content API behind a personal portfolio and blog
// single-page app. It serves posts CRUD, site settings, page-view analytics,
// and image upload as JSON under /api, and falls back to the SPA's static
// build for everything else.
package folio

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// App wires together the store, the upload backend, middleware, and routes.
// Handlers are stateless; all shared state lives in the Store.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    *Store
	Uploader Uploader

	logger       *zap.Logger
	loginLimiter *loginLimiter
}

// New creates an App with the given configuration. Call Setup or Start
// before serving requests.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Setup opens the store, picks the upload backend, and registers middleware
// and routes, without starting a listener. Tests and callers embedding the
// app in their own server use this directly.
func (a *App) Setup() error {
	if a.Config.AdminPassword != "" && a.Config.SessionSecret == "" {
		return fmt.Errorf("folio: SessionSecret is required when AdminPassword is set")
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("folio: init store: %w", err)
		}
		a.Store = store
	}

	if a.Uploader == nil {
		switch a.Config.UploadBackend {
		case "local":
			a.Uploader = NewLocalUploader(filepath.Join(a.Config.StaticDir, "uploads"))
		default:
			a.Uploader = NewCloudinaryUploader(
				a.Config.CloudinaryCloudName,
				a.Config.CloudinaryAPIKey,
				a.Config.CloudinaryAPISecret,
			)
		}
	}

	a.loginLimiter = newLoginLimiter(5, time.Minute)

	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// Start runs Setup and serves on Config.Addr until Shutdown.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.logger.Info("listening", zap.String("addr", a.Config.Addr))
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.Store != nil {
		if cerr := a.Store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *App) setupRoutes() {
	e := a.Echo

	api := e.Group("/api")

	api.GET("/posts", a.handleListPosts)
	api.POST("/posts", a.handleCreatePost, a.requireAdmin)
	api.GET("/posts/:slug", a.handleGetPost)
	api.PUT("/posts/:slug", a.handleUpdatePost, a.requireAdmin)
	api.DELETE("/posts/:slug", a.handleDeletePost, a.requireAdmin)

	api.GET("/settings/:key", a.handleGetSetting)
	api.PUT("/settings/:key", a.handlePutSetting, a.requireAdmin)

	api.POST("/analytics/track", a.handleTrack)
	api.GET("/analytics/summary", a.handleSummary)

	api.POST("/upload", a.handleUpload, a.requireAdmin)

	if a.Config.AdminPassword != "" {
		api.POST("/admin/login", a.handleAdminLogin)
		api.POST("/admin/logout", a.handleAdminLogout)
	}

	// Anything else under /api is an unknown resource or verb. The edge
	// deployments answered these with 405, so keep that contract.
	e.Any("/api/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed")
	})

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
