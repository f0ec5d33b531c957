package opportunity

import (
	"context"
	"fmt"

	"github.com/yoma-opportunity/internal/domain"
)

// UpdateStatus moves the opportunity to status. Requesting the current
// status returns the opportunity unchanged.
func (s *service) UpdateStatus(ctx context.Context, actor domain.Actor, id string, status domain.Status) (*domain.Opportunity, error) {
	o, err := s.GetByID(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}

	eventType, err := s.checkTransition(o, status)
	if err != nil {
		return nil, err
	}
	if o.Status == status {
		return o, nil
	}

	statusID, err := s.statusID(status)
	if err != nil {
		return nil, err
	}
	o.StatusID = statusID
	o.Status = status
	o.ModifiedByUserID = actor.UserID
	o.DateModified = s.now()

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	o.SetPublished()

	if status == domain.StatusActive {
		s.sendPostedEmail(ctx, o)
	}
	s.publish(ctx, eventType, o)
	return o, nil
}

// checkTransition validates a move from the current status to target and
// returns the event it raises.
func (s *service) checkTransition(o *domain.Opportunity, target domain.Status) (domain.EventType, error) {
	switch target {
	case domain.StatusActive:
		if o.Status == target {
			return domain.EventUpdate, nil
		}
		if !domain.ContainsStatus(domain.StatusesActivatable, o.Status) {
			return "", fmt.Errorf("opportunity can not be activated (current status '%s'). Required state '%s': %w",
				o.Status, domain.JoinStatuses(domain.StatusesActivatable), domain.ErrValidation)
		}
		if o.DateEnd != nil && !o.DateEnd.After(s.now()) {
			return "", fmt.Errorf("the opportunity '%s' cannot be activated because its end date ('%s') is in the past. "+
				"Please update the opportunity before proceeding with activation: %w",
				o.Title, o.DateEnd.Format("2006-01-02"), domain.ErrValidation)
		}
		return domain.EventUpdate, nil

	case domain.StatusInactive:
		if o.Status == target {
			return domain.EventUpdate, nil
		}
		if !domain.ContainsStatus(domain.StatusesDeActivatable, o.Status) {
			return "", fmt.Errorf("opportunity can not be deactivated (current status '%s'). Required state '%s': %w",
				o.Status, domain.JoinStatuses(domain.StatusesDeActivatable), domain.ErrValidation)
		}
		return domain.EventUpdate, nil

	case domain.StatusDeleted:
		if o.Status == target {
			return domain.EventDelete, nil
		}
		if !domain.ContainsStatus(domain.StatusesCanDelete, o.Status) {
			return "", fmt.Errorf("opportunity can not be deleted (current status '%s'). Required state '%s': %w",
				o.Status, domain.JoinStatuses(domain.StatusesCanDelete), domain.ErrValidation)
		}
		return domain.EventDelete, nil
	}
	return "", fmt.Errorf("status '%s' not supported: %w", target, domain.ErrBadRequest)
}
