package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/yoma-opportunity/internal/application/background"
	"github.com/yoma-opportunity/internal/application/lookup"
	"github.com/yoma-opportunity/internal/config"
	"github.com/yoma-opportunity/internal/infrastructure/dynamo"
	"github.com/yoma-opportunity/internal/infrastructure/postgres"
	redisinfra "github.com/yoma-opportunity/internal/infrastructure/redis"
	"github.com/yoma-opportunity/internal/infrastructure/smtp"
	"github.com/yoma-opportunity/internal/infrastructure/sns"
	"github.com/yoma-opportunity/internal/pkg/logger"
	"github.com/yoma-opportunity/internal/pkg/report"
	"github.com/yoma-opportunity/internal/pkg/singleflight"
	"go.uber.org/ratelimit"
)

const lockKey = "yoma:opportunity:jobs"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logr := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := report.Init(cfg.SentryDSN, cfg.AppEnv, logger.Component(logr, "report")); err != nil {
		log.Fatalf("sentry: %v", err)
	}
	defer report.Flush(2 * time.Second)

	db, err := postgres.Open(cfg, logger.Component(logr, "postgres"))
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	lookups := lookup.NewService(lookup.ServiceDeps{
		LookupRepo: dynamo.NewLookupRepo(dynamoClient, cfg.DynamoTables.Lookups),
	})
	if err := lookups.Load(ctx); err != nil {
		log.Fatalf("load lookups: %v", err)
	}

	events, err := sns.NewPublisher(ctx, cfg)
	if err != nil {
		log.Fatalf("sns: %v", err)
	}

	// One guard for all three jobs. Redis shares it across worker replicas.
	var guard singleflight.Guard = singleflight.NewLocal()
	if cfg.RedisAddr != "" {
		client, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		guard = redisinfra.NewLock(client, lockKey, cfg.ScheduleJobs.LockTTL())
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.ScheduleJobs.EmailSendRPS > 0 {
		limiter = ratelimit.New(cfg.ScheduleJobs.EmailSendRPS)
	}

	jobs := background.NewService(background.ServiceDeps{
		OpportunityRepo:  postgres.NewOpportunityRepo(db),
		OrganizationRepo: postgres.NewOrganizationRepo(db),
		Lookups:          lookups,
		Email:            smtp.NewProvider(cfg),
		Events:           events,
		Transactor:       db,
		Guard:            guard,
		Limiter:          limiter,
		Options: background.Options{
			ExpirationBatchSize:                cfg.ScheduleJobs.OpportunityExpirationBatchSize,
			ExpirationNotificationIntervalDays: cfg.ScheduleJobs.OpportunityExpirationNotificationIntervalInDays,
			DeletionBatchSize:                  cfg.ScheduleJobs.OpportunityDeletionBatchSize,
			DeletionIntervalDays:               cfg.ScheduleJobs.OpportunityDeletionIntervalInDays,
		},
		AppBaseURL: cfg.AppBaseURL,
		Log:        logger.Component(logr, "background"),
	})

	wlog := logger.Component(logr, "worker")
	var wg sync.WaitGroup
	schedule := func(name string, every time.Duration, job func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runEvery(ctx, wlog.WithField("job", name), every, job)
		}()
	}
	schedule("opportunity_expiration", cfg.ScheduleJobs.ExpirationEvery, jobs.ProcessExpiration)
	schedule("opportunity_expiration_notification", cfg.ScheduleJobs.NotificationEvery, jobs.ProcessExpirationNotifications)
	schedule("opportunity_deletion", cfg.ScheduleJobs.DeletionEvery, jobs.ProcessDeletion)

	wlog.Info("worker started")
	<-ctx.Done()
	wlog.Info("shutting down worker")
	wg.Wait()
	wlog.Info("worker stopped")
}

// runEvery runs job once at startup and then on every tick until ctx ends.
func runEvery(ctx context.Context, log *logrus.Entry, every time.Duration, job func(context.Context) error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("job run failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
