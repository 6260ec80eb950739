package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	httpadapter "secapi/internal/adapters/http"
	pg "secapi/internal/adapters/postgres"
	redisadapter "secapi/internal/adapters/redis"
	"secapi/internal/config"
	"secapi/internal/notify"
	"secapi/internal/ports"
	"secapi/internal/services/orchestrator"
	"secapi/internal/workers/scanrunner"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	rc, err := redisadapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis connect error: %v", err)
	}
	defer rc.Close()
	log.Printf("connected to redis at %s", cfg.RedisAddr)

	var notifier ports.CompletionNotifier = notify.Noop{}
	if cfg.NatsURL != "" {
		pub, err := notify.Connect(cfg.NatsURL)
		if err != nil {
			log.Fatalf("nats connect error: %v", err)
		}
		defer pub.Close()
		notifier = pub
		log.Printf("completion events -> %s", cfg.NatsURL)
	}

	limiter := redisadapter.NewRateLimiter(rc, cfg.LimitFor)
	orch := orchestrator.New(db, rc, limiter, cfg.MaxQueueDepth)

	if cfg.ScanWorkers > 0 {
		exec := &scanrunner.Executor{
			Jobs:     db,
			Cache:    rc,
			Notifier: notifier,
			TTLFor:   cfg.TTLFor,
			Timeout:  cfg.ScanTimeout,
		}
		go scanrunner.Run(ctx, exec, cfg.ScanWorkers, cfg.PollInterval)
		log.Printf("scan workers started: %d", cfg.ScanWorkers)
	}

	srv := httpadapter.New(orch)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Printf("listening on %s", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}
