package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	contenthttp "sitecontent/internal/content/adapter/http"
	"sitecontent/internal/di"
	"sitecontent/internal/shared/errors"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, appLogger, err := loadConfig()
	if err != nil {
		return err
	}
	appLogger.Info("application configuration loaded",
		zap.String("store", cfg.Content.StoreKind),
		zap.String("document", cfg.Content.DocumentPath))

	container := di.NewContainer(cfg, appLogger)
	defer container.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.InitializeContent(ctx); err != nil {
		return err
	}
	module := container.GetContentModule()
	if err := module.Start(ctx); err != nil {
		if !errors.IsConfiguration(err) {
			return err
		}
		appLogger.Warn("content store not usable, serving bundled defaults", zap.Error(err))
	} else {
		wctx, wcancel := context.WithTimeout(ctx, cfg.Content.SeedTimeout)
		if snap, err := module.Client().WaitForVersion(wctx, 1); err != nil {
			appLogger.Warn("content not loaded yet, serving bundled defaults until it arrives", zap.Error(err))
		} else {
			appLogger.Info("content loaded", zap.Uint64("version", snap.Version), zap.Bool("present", snap.Content != nil))
		}
		wcancel()
	}

	app := fiber.New(fiber.Config{
		AppName:               "sitecontent",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             25 << 20,
		DisableStartupMessage: true,
		ErrorHandler:          contenthttp.ErrorHandler,
	})
	app.Use(recover.New())
	module.RegisterRoutes(app)

	serverAddr := cfg.Server.Addr()
	appLogger.Info("starting HTTP server", zap.String("addr", serverAddr))

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Error("server failed", zap.Error(err))
			return err
		}
	case sig := <-quit:
		appLogger.Info("received shutdown signal", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("server forced to shutdown", zap.Error(err))
		}
		appLogger.Info("HTTP server stopped")
	}
	return nil
}
