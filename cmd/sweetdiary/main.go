package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"sweetdiary/internal/amqp"
	"sweetdiary/internal/auth"
	"sweetdiary/internal/backend"
	"sweetdiary/internal/cli"
	apphttp "sweetdiary/internal/http"
	"sweetdiary/internal/ledger"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	// Choose data backend (default: memory).
	be, err := backend.Create(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}

	opts := []ledger.Option{}

	// AMQP is optional; without it entry saves simply skip the event.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, ledger.WithEvents(amqpClient))
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	l := ledger.New(be.Backend, opts...)

	provider, err := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:      cfg.GoogleClientID,
		SessionSecret: []byte(cfg.SessionSecret),
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		logger.Error("Failed to initialize Google auth", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, l, provider, cfg.GoogleClientID)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting sweetdiary server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
