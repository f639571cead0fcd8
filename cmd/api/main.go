package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/skillswap/internal/accounts"
	"github.com/geocoder89/skillswap/internal/admin"
	"github.com/geocoder89/skillswap/internal/auth"
	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/db"
	"github.com/geocoder89/skillswap/internal/directory"
	httpx "github.com/geocoder89/skillswap/internal/http"
	"github.com/geocoder89/skillswap/internal/http/handlers"
	"github.com/geocoder89/skillswap/internal/notifications"
	"github.com/geocoder89/skillswap/internal/observability"
	"github.com/geocoder89/skillswap/internal/realtime"
	"github.com/geocoder89/skillswap/internal/redisclient"
	"github.com/geocoder89/skillswap/internal/repo/memory"
	"github.com/geocoder89/skillswap/internal/repo/postgres"
	"github.com/geocoder89/skillswap/internal/security"
	"github.com/geocoder89/skillswap/internal/storage"
	"github.com/geocoder89/skillswap/internal/swaps"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// userStore and swapStore are satisfied by both the postgres and the
// in-memory repositories.
type userStore interface {
	accounts.UserStore
	swaps.UserStore
	directory.UserReader
	admin.UserStore
}

type swapStore interface {
	swaps.SwapStore
	admin.SwapCounter
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// tracing

	endpoint := ""
	if cfg.OTelEnabled {
		endpoint = cfg.OTelEndpoint
	}
	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.Env, endpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := config.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracer(sctx)
	}()

	// metrics

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Pinger{}

	// stores

	var (
		users     userStore
		swapsRepo swapStore
	)

	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		users = memory.NewUsersRepo()
		swapsRepo = memory.NewSwapsRepo()

	default:
		if cfg.AutoMigrate {
			if err := db.Migrate(cfg.DBURL, log); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}

		pctx, pcancel := config.WithTimeout(ctx, 10*time.Second)
		pool, err := db.NewPool(pctx, cfg.DBURL, cfg.DBMaxConns)
		pcancel()
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		checks["postgres"] = pool.Ping
		users = postgres.NewUsersRepo(pool, prom)
		swapsRepo = postgres.NewSwapsRepo(pool, prom)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	jwt := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	sctx, scancel := config.WithTimeout(ctx, 10*time.Second)
	created, err := db.EnsureAdminUser(sctx, users, hasher, cfg)
	scancel()
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	// photo storage

	var (
		photos    accounts.PhotoStore
		uploadDir string
	)

	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, "profiles/", cfg.GCSCredentials)
		if err != nil {
			return err
		}
		defer gcs.Close()
		photos = gcs
	} else {
		local, err := storage.NewLocalStore(cfg.UploadPath, "/uploads")
		if err != nil {
			return err
		}
		photos = local
		uploadDir = local.Dir()
	}

	// notifications

	hub := realtime.NewHub(log, prom.WSConnections)
	sinks := notifications.Fanout{notifications.NewLogNotifier(log)}

	protect := func(n notifications.Notifier) notifications.Notifier {
		return notifications.NewProtectedNotifier(n, notifications.ProtectedNotifierConfig{})
	}

	var rc *redisclient.Client
	if cfg.RedisAddr != "" {
		rc = redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rc.Close()
		checks["redis"] = rc.Ping

		// every instance forwards room messages to its own sockets
		sub := rc.PSubscribe(ctx, realtime.RoomPattern)
		defer sub.Close()
		go hub.Bridge(ctx, sub.Channel())
	}

	switch {
	case cfg.RabbitURL != "":
		// the worker relays queued events into the redis rooms
		rabbit, err := notifications.NewRabbitNotifier(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer rabbit.Close()
		sinks = append(sinks, protect(rabbit))
		if rc == nil {
			sinks = append(sinks, hub)
		}
	case rc != nil:
		sinks = append(sinks, protect(notifications.NewRedisNotifier(rc)))
	default:
		sinks = append(sinks, hub)
	}

	async := notifications.NewAsync(sinks, notifications.AsyncConfig{
		Buffer:  cfg.NotifyBuffer,
		Logger:  log,
		Observe: prom.ObserveNotification,
	})
	notifyCtx, stopNotify := context.WithCancel(context.Background())
	go async.Run(notifyCtx)

	// services

	dir := directory.NewService(users, cfg.CatalogCacheTTL)

	router := httpx.NewRouter(log, httpx.Deps{
		Config: cfg,
		Prom:   prom,
		Tokens: jwt,
		Users:  users,
		Accounts: accounts.NewService(users, hasher, jwt,
			accounts.WithPhotoStore(photos),
			accounts.WithCatalogInvalidation(dir.InvalidateSkills),
			accounts.WithLogger(log),
		),
		Directory: dir,
		Swaps: swaps.NewService(swapsRepo, users,
			swaps.WithNotifier(async),
			swaps.WithMetrics(prom),
			swaps.WithLogger(log),
		),
		Admin:     admin.NewService(users, swapsRepo, log),
		Rooms:     hub,
		UploadDir: uploadDir,
		Checks:    checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("server shutting down")
	case err := <-serveErr:
		stopNotify()
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := config.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	hub.CloseAll()

	// flush what the handlers queued before the stores go away
	stopNotify()
	select {
	case <-async.Done():
	case <-shutdownCtx.Done():
		log.Error("notification drain timed out")
	}

	log.Info("shutdown complete")
	return nil
}
