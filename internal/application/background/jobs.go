package background

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yoma-opportunity/internal/domain"
)

// ProcessExpiration expires every active or inactive opportunity whose end
// date has passed, a batch at a time, and tells the organization admins.
func (s *service) ProcessExpiration(ctx context.Context) error {
	return s.run(ctx, "opportunity_expiration", func(ctx context.Context, log *logrus.Entry) (int, error) {
		expirable, err := s.statusIDs(domain.StatusesExpirable...)
		if err != nil {
			return 0, err
		}
		expired, err := s.statusIDs(domain.StatusExpired)
		if err != nil {
			return 0, err
		}

		total := 0
		for {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			now := s.now()
			items, err := s.repo.ListEndingBefore(ctx, expirable, now, s.opts.ExpirationBatchSize)
			if err != nil {
				return total, err
			}
			if len(items) == 0 {
				return total, nil
			}

			err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
				return s.repo.UpdateStatus(ctx, ids(items), expired[0], domain.SystemActor.UserID, now)
			})
			if err != nil {
				return total, err
			}
			total += len(items)
			log.WithField("count", len(items)).Info("opportunities expired")

			s.publish(ctx, domain.EventUpdate, items, domain.StatusExpired)
			s.sendGrouped(ctx, items, domain.EmailOpportunityExpirationExpired)
			if len(items) < s.opts.ExpirationBatchSize {
				return total, nil
			}
		}
	})
}

// ProcessExpirationNotifications warns organization admins about
// opportunities ending within the notification interval. Nothing is changed,
// so the pages advance by offset.
func (s *service) ProcessExpirationNotifications(ctx context.Context) error {
	return s.run(ctx, "opportunity_expiration_notification", func(ctx context.Context, log *logrus.Entry) (int, error) {
		expirable, err := s.statusIDs(domain.StatusesExpirable...)
		if err != nil {
			return 0, err
		}
		from := domain.RemoveTime(s.now())
		to := from.AddDate(0, 0, s.opts.ExpirationNotificationIntervalDays)

		offset := 0
		for {
			if err := ctx.Err(); err != nil {
				return offset, err
			}
			items, err := s.repo.ListEndingBetween(ctx, expirable, from, to, s.opts.ExpirationBatchSize, offset)
			if err != nil {
				return offset, err
			}
			if len(items) == 0 {
				return offset, nil
			}
			offset += len(items)

			s.sendGrouped(ctx, items, domain.EmailOpportunityExpirationWithinNextDays)
			if len(items) < s.opts.ExpirationBatchSize {
				return offset, nil
			}
		}
	})
}

// ProcessDeletion marks inactive or expired opportunities untouched for the
// deletion interval as deleted.
func (s *service) ProcessDeletion(ctx context.Context) error {
	return s.run(ctx, "opportunity_deletion", func(ctx context.Context, log *logrus.Entry) (int, error) {
		deletable, err := s.statusIDs(domain.StatusesDeletion...)
		if err != nil {
			return 0, err
		}
		deleted, err := s.statusIDs(domain.StatusDeleted)
		if err != nil {
			return 0, err
		}

		total := 0
		for {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			now := s.now()
			cutoff := now.AddDate(0, 0, -s.opts.DeletionIntervalDays)
			items, err := s.repo.ListModifiedBefore(ctx, deletable, cutoff, s.opts.DeletionBatchSize)
			if err != nil {
				return total, err
			}
			if len(items) == 0 {
				return total, nil
			}

			err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
				return s.repo.UpdateStatus(ctx, ids(items), deleted[0], domain.SystemActor.UserID, now)
			})
			if err != nil {
				return total, err
			}
			total += len(items)
			log.WithField("count", len(items)).Info("opportunities deleted")

			s.publish(ctx, domain.EventDelete, items, domain.StatusDeleted)
			if len(items) < s.opts.DeletionBatchSize {
				return total, nil
			}
		}
	})
}
