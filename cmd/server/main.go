package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "branchpos/internal/adapters/web"
	"branchpos/internal/app"
	"branchpos/internal/config"
	"branchpos/internal/core"
	"branchpos/internal/db"
	"branchpos/internal/logging"
	"branchpos/internal/metrics"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	services := app.NewCoreServices(pool, core.PostingOptions{
		LockTimeout: cfg.LockTimeout,
		Business: core.BusinessInfo{
			Name:    cfg.Business.Name,
			Address: cfg.Business.Address,
			Phone:   cfg.Business.Phone,
		},
		Now: time.Now,
	})
	svc := app.NewAppService(services, m, log)

	handler := webAdapter.NewHandler(svc, log, webAdapter.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		JWTSecret:        cfg.JWTSecret,
		JWTTTL:           cfg.JWTTTL,
		RequestBodyLimit: cfg.RequestBodyLimit,
		Metrics:          m,
		Ping:             pool.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}
