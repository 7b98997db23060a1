package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dadam-app/dadam/internal/database"
	"github.com/dadam-app/dadam/internal/genai"
	"github.com/dadam-app/dadam/internal/logging"
	"github.com/dadam-app/dadam/internal/server"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("DADAM_LOG_LEVEL"), os.Getenv("DADAM_LOG_FORMAT"))

	port := envOr("DADAM_PORT", "8080")
	dbPath := envOr("DADAM_DB_PATH", "dadam.db")

	jwtSecret := os.Getenv("DADAM_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("DADAM_JWT_SECRET is required")
		os.Exit(1)
	}

	loc, err := time.LoadLocation(envOr("DADAM_TIMEZONE", "Asia/Seoul"))
	if err != nil {
		logger.Error("invalid DADAM_TIMEZONE", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		JWTSecret: jwtSecret,
		Location:  loc,
		GenAI: genai.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   os.Getenv("OPENAI_MODEL"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		VAPIDPublicKey:  os.Getenv("DADAM_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("DADAM_VAPID_PRIVATE_KEY"),
	}

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	} else {
		logger.Info("push delivery disabled, VAPID keys not configured")
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("dadam listening", "addr", fmt.Sprintf(":%s", port), "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
