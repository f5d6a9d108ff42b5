package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"grower/internal/auth"
	"grower/internal/config"
	"grower/internal/handler"
	"grower/internal/session"
	"grower/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		DBPath:      cfg.DBPath,
		DatabaseURL: cfg.DatabaseURL,
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("store close: %v", err)
		}
	}()

	if cfg.OwnerPIN == "" || cfg.TeacherPIN == "" {
		log.Println("warning: OWNER_PIN or TEACHER_PIN not set, those roles cannot log in")
	}

	sess, err := session.Open(ctx, st, session.Config{
		PINs: auth.PINs{
			Developer: cfg.DeveloperPIN,
			Owner:     cfg.OwnerPIN,
			Teacher:   cfg.TeacherPIN,
		},
		TrialDays:      cfg.TrialDays,
		DeveloperPhone: cfg.DeveloperPhone,
	})
	if err != nil {
		return err
	}
	if err := sess.Start(ctx); err != nil {
		log.Printf("warning: remote sync unavailable: %v", err)
	}

	r := handler.New(sess, handler.Options{
		SigningKey:      cfg.JWTSigningKey,
		Issuer:          cfg.JWTIssuer,
		SessionTTL:      cfg.SessionTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowOrigins:    cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (store %s)", cfg.HTTPPort, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
