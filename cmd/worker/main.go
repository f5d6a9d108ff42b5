package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"grower/internal/config"
	"grower/internal/store"
)

// Worker mirrors every roster snapshot published through Redis into a
// durable backup store.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	src, err := store.NewRedis(ctx, store.NewRedisClient(cfg.RedisAddr), cfg.RedisPrefix)
	if err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}
	defer src.Close()

	dst, err := store.Open(ctx, store.Options{
		Backend:     cfg.BackupBackend,
		DBPath:      cfg.DBPath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		log.Fatalf("backup store open failed: %v", err)
	}
	defer dst.Close()

	if err := store.StartMirror(ctx, src, dst); err != nil {
		log.Fatalf("mirror start failed: %v", err)
	}

	log.Printf("worker started, mirroring %s into %s", cfg.RedisPrefix, cfg.BackupBackend)
	<-ctx.Done()
	log.Println("worker stopped")
}
