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

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/yoma-opportunity/internal/application/lookup"
	"github.com/yoma-opportunity/internal/config"
	"github.com/yoma-opportunity/internal/infrastructure/dynamo"
	jwtinfra "github.com/yoma-opportunity/internal/infrastructure/jwt"
	"github.com/yoma-opportunity/internal/infrastructure/postgres"
	redisinfra "github.com/yoma-opportunity/internal/infrastructure/redis"
	s3infra "github.com/yoma-opportunity/internal/infrastructure/s3"
	"github.com/yoma-opportunity/internal/infrastructure/smtp"
	"github.com/yoma-opportunity/internal/infrastructure/sns"
	"github.com/yoma-opportunity/internal/pkg/logger"
	"github.com/yoma-opportunity/internal/pkg/report"
	transporthttp "github.com/yoma-opportunity/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logr := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	if err := report.Init(cfg.SentryDSN, cfg.AppEnv, logger.Component(logr, "report")); err != nil {
		log.Fatalf("sentry: %v", err)
	}
	defer report.Flush(2 * time.Second)

	db, err := postgres.Open(cfg, logger.Component(logr, "postgres"))
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()
	if cfg.PostgresMigrate {
		if err := db.Migrate(); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	// Bootstrap the lookups table (creates and seeds it if needed).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	if err := dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, logger.Component(logr, "dynamo")); err != nil {
		log.Fatalf("bootstrap lookups: %v", err)
	}
	lookups := lookup.NewService(lookup.ServiceDeps{
		LookupRepo: dynamo.NewLookupRepo(dynamoClient, cfg.DynamoTables.Lookups),
	})
	if err := lookups.Load(ctx); err != nil {
		log.Fatalf("load lookups: %v", err)
	}

	// JWT provider (optional, authenticated routes answer 503 without it).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	var s3Store *s3infra.Store
	if s3Client, err := s3infra.NewClient(ctx, cfg); err == nil {
		s3Store = s3infra.NewStore(s3Client, cfg.S3BucketName, cfg.S3PresignTTL)
	} else {
		log.Printf("WARN: S3 not available: %v", err)
	}

	events, err := sns.NewPublisher(ctx, cfg)
	if err != nil {
		log.Fatalf("sns: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		if c, err := redisinfra.NewClient(ctx, cfg); err == nil {
			redisClient = c
			defer redisClient.Close()
		} else {
			log.Printf("WARN: Redis not available, using the local rate limiter: %v", err)
		}
	}

	deps := &transporthttp.Deps{
		DB:                db,
		OpportunityRepo:   postgres.NewOpportunityRepo(db),
		AssociationRepo:   postgres.NewAssociationRepo(db),
		OrganizationRepo:  postgres.NewOrganizationRepo(db),
		UserRepo:          postgres.NewUserRepo(db),
		MyOpportunityRepo: postgres.NewMyOpportunityRepo(db),
		Lookups:           lookups,
		S3Store:           s3Store,
		Email:             smtp.NewProvider(cfg),
		Events:            events,
		JWTProvider:       jwtProvider,
		Redis:             redisClient,
		Log:               logr,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.WithField("port", cfg.AppPort).WithField("env", cfg.AppEnv).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	logr.Info("server stopped")
}
