package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/archive"
	"github.com/CaseMark/iolta-manager-demo/internal/database"
	"github.com/CaseMark/iolta-manager-demo/internal/extraction"
	"github.com/CaseMark/iolta-manager-demo/internal/logging"
	"github.com/CaseMark/iolta-manager-demo/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("TRUSTD_LOG_LEVEL"), os.Getenv("TRUSTD_LOG_FORMAT"))

	port := os.Getenv("TRUSTD_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("TRUSTD_DB_PATH")
	if dbPath == "" {
		dbPath = "trustd.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		Extraction: extraction.Config{
			BaseURL: os.Getenv("TRUSTD_EXTRACTION_BASE_URL"),
			APIKey:  os.Getenv("TRUSTD_EXTRACTION_API_KEY"),
			Model:   os.Getenv("TRUSTD_EXTRACTION_MODEL"),
		},
		Archive: archive.Config{
			DBPath: dbPath,
			S3: archive.S3Config{
				Endpoint:  os.Getenv("TRUSTD_S3_ENDPOINT"),
				Bucket:    os.Getenv("TRUSTD_S3_BUCKET"),
				Region:    os.Getenv("TRUSTD_S3_REGION"),
				AccessKey: os.Getenv("TRUSTD_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("TRUSTD_S3_SECRET_KEY"),
			},
		},
		Push: server.PushConfig{
			VAPIDPublicKey:  os.Getenv("TRUSTD_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("TRUSTD_VAPID_PRIVATE_KEY"),
			Subscriber:      os.Getenv("TRUSTD_VAPID_SUBSCRIBER"),
		},
	}

	srv := server.New(db, cfg, logger)

	if sched := srv.PushScheduler(); sched != nil {
		schedCtx, schedCancel := context.WithCancel(context.Background())
		sched.Start(schedCtx)
		defer func() {
			schedCancel()
			sched.Stop()
		}()
	}

	// Periodic cleanup of expired sessions and stale rate limit buckets.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Warn("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()
	defer close(cleanupDone)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("trustd listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
