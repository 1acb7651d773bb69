package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/pong-arena/config"
	"github.com/Dosada05/pong-arena/db"
	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/handlers"
	"github.com/Dosada05/pong-arena/ledger"
	"github.com/Dosada05/pong-arena/repositories"
	"github.com/Dosada05/pong-arena/routes"
	"github.com/Dosada05/pong-arena/services"
	"github.com/Dosada05/pong-arena/storage"
	_ "github.com/lib/pq"
)

const (
	sweepInterval      = time.Minute // idle/finished session sweep
	staleResetInterval = time.Minute // check for bracket matches stuck in active
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Result archive (Cloudflare R2). Optional.
	var archiver storage.ResultArchiver
	if cfg.R2Bucket != "" {
		archiver, err = storage.NewCloudflareR2Archiver(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretKey,
			BucketName:      cfg.R2Bucket,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize result archiver", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("result archiver initialized", slog.String("bucket", cfg.R2Bucket))
	}

	// Ledger anchoring. Optional.
	var anchorer ledger.Anchorer
	if cfg.LedgerAnchorURL != "" {
		anchorer, err = ledger.NewHTTPAnchorer(ledger.HTTPAnchorerConfig{
			BaseURL:   cfg.LedgerAnchorURL,
			AuthToken: cfg.LedgerAuthToken,
			Timeout:   10 * time.Second,
		})
		if err != nil {
			logger.Error("failed to initialize ledger anchorer", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("ledger anchoring enabled", slog.String("url", cfg.LedgerAnchorURL))
	}

	wsHub := game.NewHub()
	registry := game.NewRegistry(wsHub, nil, logger)

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresTournamentMatchRepository(dbConn)
	historyRepo := repositories.NewPostgresMatchHistoryRepository(dbConn)
	logger.Info("repositories initialized")

	authService := services.NewAuthService(userRepo)
	settlementService := services.NewSettlementService(historyRepo, archiver, anchorer, logger)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		participantRepo,
		matchRepo,
		settlementService,
		wsHub,
		logger,
	)
	matchService := services.NewMatchService(registry, settlementService, tournamentService, logger)
	registry.SetSettleFunc(matchService.HandleSettlement)
	logger.Info("services initialized")

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	matchHandler := handlers.NewMatchHandler(matchService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, registry, matchService, logger)
	logger.Info("HTTP handlers initialized")

	go wsHub.Run()

	// Session sweeper: drops finished sessions past their grace period and
	// idle sessions nobody is attached to.
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if removed := registry.Sweep(time.Now()); removed > 0 {
				logger.Info("swept stale sessions", slog.Int("removed", removed))
			}
		}
	}()

	// Bracket recovery: matches stuck in active with no live session go
	// back to pending.
	go func() {
		ticker := time.NewTicker(staleResetInterval)
		defer ticker.Stop()
		for range ticker.C {
			reset, err := tournamentService.ResetStaleMatches(context.Background())
			if err != nil {
				logger.Error("stale match reset failed", slog.Any("error", err))
				continue
			}
			if reset > 0 {
				logger.Info("reset stale tournament matches", slog.Int("reset", reset))
			}
		}
	}()

	router := routes.InitRoutes(routes.Handlers{
		Auth:       authHandler,
		Match:      matchHandler,
		Tournament: tournamentHandler,
		WebSocket:  webSocketHandler,
	}, cfg.JWTSecretKey)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}

	// Stop simulations before the settlement sink so every finished match
	// still gets recorded.
	registry.Drain()
	settlementService.Close()
	logger.Info("application exited")
}
