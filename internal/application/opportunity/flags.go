package opportunity

import (
	"context"

	"github.com/yoma-opportunity/internal/domain"
)

func (s *service) UpdateFeatured(ctx context.Context, actor domain.Actor, id string, featured bool) (*domain.Opportunity, error) {
	return s.updateFlag(ctx, actor, id, func(o *domain.Opportunity) error {
		o.Featured = boolPtr(featured)
		return nil
	})
}

func (s *service) UpdateHidden(ctx context.Context, actor domain.Actor, id string, hidden bool) (*domain.Opportunity, error) {
	return s.updateFlag(ctx, actor, id, func(o *domain.Opportunity) error {
		if hidden && o.ShareWithPartners != nil && *o.ShareWithPartners {
			return invalid("an opportunity shared with partners cannot be flagged as hidden")
		}
		o.Hidden = boolPtr(hidden)
		return nil
	})
}

func (s *service) updateFlag(ctx context.Context, actor domain.Actor, id string, set func(o *domain.Opportunity) error) (*domain.Opportunity, error) {
	o, err := s.GetByID(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	if err := assertUpdatable(o); err != nil {
		return nil, err
	}
	if err := set(o); err != nil {
		return nil, err
	}
	o.ModifiedByUserID = actor.UserID
	o.DateModified = s.now()

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventUpdate, o)
	return o, nil
}
