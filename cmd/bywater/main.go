package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/bywater/internal/backup"
	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/logging"
	"github.com/dukerupert/bywater/internal/push"
	"github.com/dukerupert/bywater/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("BYWATER_LOG_LEVEL"))

	port := os.Getenv("BYWATER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BYWATER_DB_PATH")
	if dbPath == "" {
		dbPath = "bywater.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("BYWATER_S3_ENDPOINT"),
			Bucket:    os.Getenv("BYWATER_S3_BUCKET"),
			Region:    os.Getenv("BYWATER_S3_REGION"),
			AccessKey: os.Getenv("BYWATER_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("BYWATER_S3_SECRET_KEY"),
		},
		DBPath:        dbPath,
		Passphrase:    os.Getenv("BYWATER_BACKUP_PASSPHRASE"),
		ScheduleHour:  envInt("BYWATER_BACKUP_HOUR", 3),
		RetentionDays: envInt("BYWATER_BACKUP_RETENTION_DAYS", 30),
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("BYWATER_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("BYWATER_VAPID_PRIVATE_KEY"),
	}

	srv := server.New(db, backupCfg, pushCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Prune stale rate-limit windows periodically
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Bywater running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
