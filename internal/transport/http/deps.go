package http

import (
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/yoma-opportunity/internal/application/lookup"
	jwtinfra "github.com/yoma-opportunity/internal/infrastructure/jwt"
	"github.com/yoma-opportunity/internal/infrastructure/postgres"
	s3infra "github.com/yoma-opportunity/internal/infrastructure/s3"
	"github.com/yoma-opportunity/internal/infrastructure/smtp"
	"github.com/yoma-opportunity/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	DB                *postgres.Client
	OpportunityRepo   *postgres.OpportunityRepo
	AssociationRepo   *postgres.AssociationRepo
	OrganizationRepo  *postgres.OrganizationRepo
	UserRepo          *postgres.UserRepo
	MyOpportunityRepo *postgres.MyOpportunityRepo
	Lookups           lookup.Service
	// S3Store is optional; without it logos have no URL and CSV exports are
	// streamed back inline.
	S3Store     *s3infra.Store
	Email       smtp.Provider
	Events      sns.EventPublisher
	JWTProvider *jwtinfra.Provider
	// Redis is optional; it backs the shared public search rate limit.
	Redis *redis.Client
	Log   *logrus.Logger
}
