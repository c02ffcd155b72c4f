package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"visitledger/internal/app"
	"visitledger/internal/config"
	"visitledger/internal/lock"
	"visitledger/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var ledgerStore store.Store
	switch cfg.StoreBackend {
	case "minio":
		s, err := store.NewMinIO(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("minio store failed: %v", err)
		}
		ledgerStore = s
	case "fs":
		s, err := store.NewFS(cfg.DataDir)
		if err != nil {
			log.Fatalf("fs store failed: %v", err)
		}
		ledgerStore = s
	default:
		log.Fatalf("unknown store backend %q", cfg.StoreBackend)
	}

	var locker lock.Locker
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for ledger coordination")
		redisLocker, err := lock.NewRedis(cfg.RedisURL, cfg.LockWait, cfg.LockLease)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
	} else {
		log.Printf("Using in-process ledger coordination")
		locker = lock.NewKeyed(cfg.LockWait)
	}

	service := app.New(cfg, ledgerStore, locker)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (ledger will be created on first request): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Visit ledger API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
