package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/api/controllers"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/api/routes"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/audit"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/cron"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/notifications"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/orders"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/registry"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/reservation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/config"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/metrics"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/migrate"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/pubsub"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/redis"
)

func main() {
	runOnce := flag.Bool("run-once", false, "run the zero-value sweep once, print the result as JSON and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"run_once": *runOnce,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lock, err = cron.NewRedisLock(redisClient, redisClient.LockKey(cron.SweepJobName), cfg.Sweep.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create cron lock", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis not configured; sweep lock is process-local")
	}

	notifier, psClient := buildNotifier(ctx, cfg, logg)
	defer func() {
		if err := psClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	conn := dbClient.DB()
	engine, err := reservation.NewEngine(reservation.EngineParams{
		Repo:    reservation.NewRepository(conn),
		Metrics: metrics.NewReservationMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(ctx, "failed to create reservation engine", err)
		os.Exit(1)
	}
	recorder, err := audit.NewRecorder(audit.NewRepository(conn))
	if err != nil {
		logg.Error(ctx, "failed to create audit recorder", err)
		os.Exit(1)
	}
	reg := registry.New(conn)
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Tx:       dbClient,
		Registry: reg,
		Engine:   engine,
		Audit:    recorder,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	admin, err := reg.FirstAdmin(ctx)
	if err != nil {
		logg.Error(ctx, "failed to resolve system actor", err)
		os.Exit(1)
	}
	actor := orders.Actor{UserID: admin.ID, Role: enums.ActorRoleSystem}
	ctx = logg.WithActorRole(logg.WithUserID(ctx, admin.ID.String()), string(actor.Role))

	sweepJob, err := cron.NewZeroValueSweepJob(cron.ZeroValueSweepJobParams{
		Logger:    logg,
		Orders:    orderService,
		Actor:     actor,
		BatchSize: cfg.Sweep.BatchSize,
		Metrics:   metrics.NewSweepMetrics(prometheus.DefaultRegisterer),
		Markers:   markers(redisClient),
	})
	if err != nil {
		logg.Error(ctx, "failed to create sweep job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Schedule: cfg.Sweep.Schedule,
		Location: cfg.Sweep.Location(),
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	manual, err := cron.NewManualSweep(service, sweepJob)
	if err != nil {
		logg.Error(ctx, "failed to create manual sweep", err)
		os.Exit(1)
	}

	if *runOnce {
		if err := triggerOnce(ctx, manual); err != nil {
			logg.Error(ctx, "manual sweep failed", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Ops.Enabled() {
		deps := map[string]controllers.Pinger{"db": dbClient}
		if redisClient != nil {
			deps["redis"] = redisClient
		}
		if psClient != nil {
			deps["pubsub"] = psClient
		}
		server := &http.Server{
			Addr: cfg.Ops.Addr,
			Handler: routes.NewOpsRouter(routes.OpsParams{
				Env:    cfg.App.Env,
				Logger: logg,
				Deps:   deps,
				Sweep:  manual,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logg.Info(logg.WithField(ctx, "addr", cfg.Ops.Addr), "starting ops server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "ops server stopped unexpectedly", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logg.Error(context.Background(), "ops server shutdown failed", err)
			}
		}()
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

// triggerOnce runs the sweep under the shared lock and prints its counts.
func triggerOnce(ctx context.Context, manual *cron.ManualSweep) error {
	result, err := manual.Trigger(ctx)
	if err != nil {
		return err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode sweep result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// buildNotifier publishes to Pub/Sub when a project is configured and logs otherwise.
// The returned client is nil on the log-only path.
func buildNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) (notifications.Notifier, *pubsub.Client) {
	if cfg.GCP.ProjectID == "" {
		logg.Warn(ctx, "gcp project not configured; notifications are logged only")
		return notifications.NewLogNotifier(logg), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "pubsub unavailable; notifications are logged only", err)
		return notifications.NewLogNotifier(logg), nil
	}
	notifier, err := notifications.NewPubSubNotifier(client.NotificationPublisher(), logg)
	if err != nil {
		_ = client.Close()
		logg.Error(ctx, "pubsub publisher unavailable; notifications are logged only", err)
		return notifications.NewLogNotifier(logg), nil
	}
	return notifier, client
}

// markers avoids handing the sweep a typed nil when Redis is off.
func markers(client *redis.Client) interface {
	MarkerKey(string) string
	Set(context.Context, string, any, time.Duration) error
} {
	if client == nil {
		return nil
	}
	return client
}
