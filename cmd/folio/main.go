package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/folioengine/folio"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := folio.Config{
		SiteName:        folio.EnvOr("FOLIO_SITE_NAME", "Portfolio"),
		SiteURL:         os.Getenv("FOLIO_SITE_URL"),
		SiteDescription: os.Getenv("FOLIO_SITE_DESCRIPTION"),

		Addr:         folio.EnvOr("FOLIO_ADDR", ":3001"),
		DatabasePath: folio.EnvOr("FOLIO_DATABASE_PATH", "data/folio.db"),
		StaticDir:    folio.EnvOr("FOLIO_STATIC_DIR", "dist"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		UploadBackend:       folio.EnvOr("FOLIO_UPLOAD_BACKEND", "cloudinary"),

		AdminPassword: os.Getenv("FOLIO_ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("FOLIO_SESSION_SECRET"),
		CookieSecure:  os.Getenv("FOLIO_COOKIE_SECURE") == "true",
	}

	app := folio.New(cfg, folio.WithLogger(logger))

	go func() {
		if err := app.Start(); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
