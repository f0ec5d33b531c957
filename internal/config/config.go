package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort    string
	AppEnv     string
	AppBaseURL string // public web URL used in email links
	LogLevel   string
	LogFormat  string // "json" or "text"

	PostgresDSN       string
	PostgresLogLevel  string
	PostgresMigrate   bool
	PostgresMaxConns  int
	PostgresIdleConns int

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	S3BucketName string
	S3PresignTTL time.Duration
	S3ExportPath string // key prefix for CSV exports

	SNSRegion   string
	SNSTopicARN string // opportunity events; empty disables publishing

	JWTPrivateKeyPath string // optional; only needed to mint tokens
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	RedisAddr     string // empty disables the distributed lock and the shared rate limiter
	RedisPassword string
	RedisDB       int

	SentryDSN string

	AllowedOrigins []string // CORS allowed origins
	SearchRateRPS  int      // public search requests per second per IP

	ScheduleJobs ScheduleJobs
}

// DynamoTables holds the DynamoDB table names.
type DynamoTables struct {
	Lookups string
}

// ScheduleJobs configures the opportunity batch jobs.
type ScheduleJobs struct {
	OpportunityExpirationBatchSize                  int
	OpportunityExpirationNotificationIntervalInDays int
	OpportunityDeletionBatchSize                    int
	OpportunityDeletionIntervalInDays               int
	DefaultScheduleMaxIntervalInHours               int

	// EmailSendRPS paces the grouped job emails sent to organization admins.
	EmailSendRPS int

	ExpirationEvery   time.Duration
	NotificationEvery time.Duration
	DeletionEvery     time.Duration
}

// LockTTL bounds how long a distributed job lock may be held.
func (s ScheduleJobs) LockTTL() time.Duration {
	return time.Duration(s.DefaultScheduleMaxIntervalInHours) * time.Hour
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:    getEnv("APP_PORT", "3000"),
		AppEnv:     getEnv("APP_ENV", "development"),
		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3001"), "/"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "text"),

		PostgresDSN:       getEnv("POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=yoma sslmode=disable"),
		PostgresLogLevel:  getEnv("POSTGRES_LOG_LEVEL", "warn"),
		PostgresMigrate:   getEnvBool("POSTGRES_MIGRATE", true),
		PostgresMaxConns:  getEnvInt("POSTGRES_MAX_CONNS", 20),
		PostgresIdleConns: getEnvInt("POSTGRES_IDLE_CONNS", 5),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Lookups: getEnv("DYNAMO_TABLE_LOOKUPS", "lookups"),
		},

		S3BucketName: getEnv("S3_BUCKET_NAME", "yoma-files"),
		S3PresignTTL: time.Duration(getEnvInt("S3_PRESIGN_TTL_MINUTES", 60)) * time.Minute,
		S3ExportPath: getEnv("S3_EXPORT_PATH", "exports"),

		SNSRegion:   getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN: getEnv("SNS_TOPIC_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@yoma.world"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		SearchRateRPS:  getEnvInt("SEARCH_RATE_RPS", 10),

		ScheduleJobs: ScheduleJobs{
			OpportunityExpirationBatchSize:                  getEnvInt("OPPORTUNITY_EXPIRATION_BATCH_SIZE", 500),
			OpportunityExpirationNotificationIntervalInDays: getEnvInt("OPPORTUNITY_EXPIRATION_NOTIFICATION_INTERVAL_DAYS", 5),
			OpportunityDeletionBatchSize:                    getEnvInt("OPPORTUNITY_DELETION_BATCH_SIZE", 500),
			OpportunityDeletionIntervalInDays:               getEnvInt("OPPORTUNITY_DELETION_INTERVAL_DAYS", 90),
			DefaultScheduleMaxIntervalInHours:               getEnvInt("SCHEDULE_MAX_INTERVAL_HOURS", 2),
			EmailSendRPS:                                    getEnvInt("SCHEDULE_EMAIL_SEND_RPS", 5),
			ExpirationEvery:                                 time.Duration(getEnvInt("OPPORTUNITY_EXPIRATION_EVERY_MINUTES", 60)) * time.Minute,
			NotificationEvery:                               time.Duration(getEnvInt("OPPORTUNITY_NOTIFICATION_EVERY_MINUTES", 1440)) * time.Minute,
			DeletionEvery:                                   time.Duration(getEnvInt("OPPORTUNITY_DELETION_EVERY_MINUTES", 1440)) * time.Minute,
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
