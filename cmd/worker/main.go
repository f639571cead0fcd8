package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/notifications"
	"github.com/geocoder89/skillswap/internal/observability"
	"github.com/geocoder89/skillswap/internal/queue"
	"github.com/geocoder89/skillswap/internal/queue/worker"
	"github.com/geocoder89/skillswap/internal/redisclient"
	"github.com/prometheus/client_golang/prometheus"
)

// The worker relays swap events queued on RabbitMQ into the Redis user rooms
// the API instances forward to their websocket clients.
func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env).With("component", "worker")
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("worker exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.RabbitURL == "" || cfg.RedisAddr == "" {
		return errors.New("RABBITMQ_URL and REDIS_ADDR are required")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	rc := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rc.Close()

	consumer, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, cfg.WorkerConcurrency*2)
	if err != nil {
		return err
	}
	defer consumer.Close()

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	deliveries, err := consumer.Deliveries(workerID)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	w := worker.New(worker.Config{
		Concurrency: cfg.WorkerConcurrency,
		MaxAttempts: 5,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
	}, notifications.NewRedisNotifier(rc), log, prom.ObserveNotification)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           w.HealthHandler(rc, prom.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID, "queue", cfg.RabbitQueue)

	_ = w.Run(ctx, deliveries)

	// a closed delivery channel without a signal means the broker went away
	var runErr error
	if ctx.Err() == nil {
		runErr = errors.New("rabbitmq delivery channel closed")
	}

	shutdownCtx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
	return runErr
}
