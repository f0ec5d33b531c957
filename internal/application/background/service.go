// Package background runs the opportunity batch jobs: expiration, expiration
// notices and deletion of stale opportunities.
package background

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/pkg/logger"
	"github.com/yoma-opportunity/internal/pkg/report"
	"github.com/yoma-opportunity/internal/pkg/singleflight"
	"go.uber.org/ratelimit"
)

type Service interface {
	ProcessExpiration(ctx context.Context) error
	ProcessExpirationNotifications(ctx context.Context) error
	ProcessDeletion(ctx context.Context) error
}

type opportunityStore interface {
	ListEndingBefore(ctx context.Context, statusIDs []string, cutoff time.Time, limit int) ([]domain.Opportunity, error)
	ListEndingBetween(ctx context.Context, statusIDs []string, from, to time.Time, limit, offset int) ([]domain.Opportunity, error)
	ListModifiedBefore(ctx context.Context, statusIDs []string, cutoff time.Time, limit int) ([]domain.Opportunity, error)
	UpdateStatus(ctx context.Context, ids []string, statusID, userID string, at time.Time) error
}

type organizationStore interface {
	ListAdmins(ctx context.Context, organizationID string) ([]domain.UserInfo, error)
}

type lookups interface {
	GetByName(kind domain.LookupKind, name string) (*domain.Lookup, error)
}

type emailSender interface {
	Send(ctx context.Context, emailType domain.EmailType, recipients []domain.EmailRecipient, data interface{}) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event domain.OpportunityEvent) error
}

type transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Options mirrors the schedule job settings.
type Options struct {
	ExpirationBatchSize                int
	ExpirationNotificationIntervalDays int
	DeletionBatchSize                  int
	DeletionIntervalDays               int
}

type service struct {
	repo    opportunityStore
	orgs    organizationStore
	lookups lookups
	email   emailSender
	events  eventPublisher
	tx      transactor
	guard   singleflight.Guard
	limiter ratelimit.Limiter
	opts    Options

	appBaseURL string
	log        *logrus.Entry
	now        func() time.Time
}

type ServiceDeps struct {
	OpportunityRepo  opportunityStore
	OrganizationRepo organizationStore
	Lookups          lookups
	Email            emailSender
	// Events is optional.
	Events     eventPublisher
	Transactor transactor
	// Guard is shared by every job so at most one runs at a time.
	Guard singleflight.Guard
	// Limiter paces outgoing emails; nil sends without pacing.
	Limiter    ratelimit.Limiter
	Options    Options
	AppBaseURL string
	Log        *logrus.Entry
	Now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewUnlimited()
	}
	guard := deps.Guard
	if guard == nil {
		guard = singleflight.NewLocal()
	}
	return &service{
		repo:       deps.OpportunityRepo,
		orgs:       deps.OrganizationRepo,
		lookups:    deps.Lookups,
		email:      deps.Email,
		events:     deps.Events,
		tx:         deps.Transactor,
		guard:      guard,
		limiter:    limiter,
		opts:       deps.Options,
		appBaseURL: deps.AppBaseURL,
		log:        logger.OrDiscard(deps.Log),
		now:        now,
	}
}

// run executes fn while holding the guard, waiting for any job that holds it
// to finish first.
func (s *service) run(ctx context.Context, job string, fn func(ctx context.Context, log *logrus.Entry) (int, error)) error {
	log := s.log.WithField("job", job)

	if err := singleflight.Acquire(ctx, s.guard); err != nil {
		if ctx.Err() != nil {
			return err
		}
		report.Error(err)
		return fmt.Errorf("acquire job guard: %w", err)
	}
	defer func() {
		if err := s.guard.Release(context.Background()); err != nil {
			log.WithError(err).Warn("release job guard")
		}
	}()

	start := time.Now()
	log.Info("job started")
	n, err := fn(ctx, log)
	log = log.WithField("processed", n).WithField("elapsed", time.Since(start).String())
	if err != nil {
		log.WithError(err).Error("job failed")
		report.Error(err)
		return err
	}
	log.Info("job finished")
	return nil
}

func (s *service) statusIDs(statuses ...domain.Status) ([]string, error) {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		l, err := s.lookups.GetByName(domain.LookupOpportunityStatus, string(st))
		if err != nil {
			return nil, err
		}
		out = append(out, l.ID)
	}
	return out, nil
}

func ids(items []domain.Opportunity) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

// publish reports status changes made by a job. Failures are logged only.
func (s *service) publish(ctx context.Context, t domain.EventType, items []domain.Opportunity, status domain.Status) {
	if s.events == nil {
		return
	}
	for i := range items {
		items[i].Status = status
		if err := s.events.Publish(ctx, domain.NewOpportunityEvent(t, &items[i])); err != nil {
			s.log.WithError(err).WithField("opportunity_id", items[i].ID).Error("publish opportunity event")
		}
	}
}
