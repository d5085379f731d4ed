package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tresesenta/config"
	"tresesenta/internal/database"
	"tresesenta/internal/middleware"
	"tresesenta/internal/router"
	"tresesenta/internal/ws"
	"tresesenta/pkg/cloudinary"
	"tresesenta/pkg/logger"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		logger.Fatalf("logger: %v", err)
	}

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
	}
	seeds := []struct {
		name string
		run  func() error
	}{
		{"catalog", func() error { return database.SeedCatalog(db) }},
		{"settings", func() error { return database.SeedSettings(db) }},
		{"places", func() error { return database.SeedPlaces(db) }},
		{"admin", func() error { return database.SeedAdmin(db, cfg.Admin.Email, cfg.Admin.Username) }},
	}
	for _, s := range seeds {
		if err := s.run(); err != nil {
			logger.Fatalf("seed %s: %v", s.name, err)
		}
	}

	cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		logger.Fatalf("cloudinary: %v", err)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
	engine, err := router.Setup(cfg, router.Deps{
		DB:      db,
		Cloud:   cloud,
		Hub:     ws.NewPinHub(),
		Limiter: limiter,
	})
	if err != nil {
		logger.Fatalf("router: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Server.Port, "env": cfg.Server.Env}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
		os.Exit(1)
	}
	logger.Info("server stopped")
}
