package opportunity

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yoma-opportunity/internal/domain"
)

// AllocateRewards grants the opportunity rewards to one more participant,
// clamped by the organization pool first and then by the opportunity pool.
// The opportunity and organization rows stay locked from the read to the
// write, so concurrent allocations apply one after another.
func (s *service) AllocateRewards(ctx context.Context, actor domain.Actor, oppID string) (*domain.OpportunityAllocateRewardResponse, error) {
	if strings.TrimSpace(oppID) == "" {
		return nil, fmt.Errorf("opportunity id is required: %w", domain.ErrBadRequest)
	}

	var (
		o   *domain.Opportunity
		res *domain.OpportunityAllocateRewardResponse
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.repo.GetByIDForUpdate(ctx, oppID); err != nil {
			return err
		}
		if err := s.ensureOrganizationAuthorization(ctx, actor, o.OrganizationID); err != nil {
			return err
		}
		s.hydrate(ctx, o)

		now := s.now()
		count, err := checkAllocatable(o, now)
		if err != nil {
			return err
		}
		org, err := s.orgs.GetByIDForUpdate(ctx, o.OrganizationID)
		if err != nil {
			return err
		}

		res = &domain.OpportunityAllocateRewardResponse{ZltoReward: o.ZltoReward, YomaReward: o.YomaReward}
		res.ZltoReward, res.ZltoRewardReduced, res.ZltoRewardPoolDepleted =
			processRewardAllocation(res.ZltoReward, org.ZltoRewardPool, org.ZltoRewardCumulative, nil, nil)
		res.ZltoReward, res.ZltoRewardReduced, res.ZltoRewardPoolDepleted =
			processRewardAllocation(res.ZltoReward, o.ZltoRewardPool, o.ZltoRewardCumulative, res.ZltoRewardReduced, res.ZltoRewardPoolDepleted)
		res.YomaReward, res.YomaRewardReduced, res.YomaRewardPoolDepleted =
			processRewardAllocation(res.YomaReward, org.YomaRewardPool, org.YomaRewardCumulative, nil, nil)
		res.YomaReward, res.YomaRewardReduced, res.YomaRewardPoolDepleted =
			processRewardAllocation(res.YomaReward, o.YomaRewardPool, o.YomaRewardCumulative, res.YomaRewardReduced, res.YomaRewardPoolDepleted)

		if err := s.orgs.UpdateRewardCumulative(ctx, org.ID,
			addReward(org.ZltoRewardCumulative, res.ZltoReward),
			addReward(org.YomaRewardCumulative, res.YomaReward)); err != nil {
			return err
		}
		o.ParticipantCount = &count
		o.ZltoRewardCumulative = addReward(o.ZltoRewardCumulative, res.ZltoReward)
		o.YomaRewardCumulative = addReward(o.YomaRewardCumulative, res.YomaReward)
		o.ModifiedByUserID = domain.SystemActor.UserID
		o.DateModified = now
		return s.repo.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	o.SetRewardBalances()

	s.publish(ctx, domain.EventUpdate, o)
	return res, nil
}

// checkAllocatable returns the participant count after one more allocation,
// or a validation error when o no longer accepts allocations.
func checkAllocatable(o *domain.Opportunity, now time.Time) (int, error) {
	if !(o.Published && !o.DateStart.After(now)) && o.Status != domain.StatusExpired {
		var reasons []string
		if !o.Published {
			reasons = append(reasons, "it has not been published")
		}
		if o.Status != domain.StatusActive {
			reasons = append(reasons, fmt.Sprintf("its status is '%s'", o.Status))
		}
		if o.DateStart.After(now) {
			reasons = append(reasons, fmt.Sprintf("it has not yet started (start date: %s)", o.DateStart.Format("2006-01-02")))
		}
		return 0, invalid("opportunity '%s' rewards can no longer be allocated, because %s. Please check these conditions and try again",
			o.Title, strings.Join(reasons, ", "))
	}

	current := 0
	if o.ParticipantCount != nil {
		current = *o.ParticipantCount
	}
	count := current + 1
	if o.ParticipantLimit != nil && count > *o.ParticipantLimit {
		return 0, invalid("the number of participants cannot exceed the limit. The current count is '%d', and the limit is '%d'. "+
			"Please edit the opportunity to increase or remove the limit, or reject the verification request", current, *o.ParticipantLimit)
	}
	return count, nil
}

// processRewardAllocation clamps reward to what is left in the pool. A level
// without a pool passes the reward through, and depletion reported by a higher
// level is kept. The reduced flag sticks once set.
func processRewardAllocation(reward, pool, cumulative *float64, reduced, depleted *bool) (*float64, *bool, *bool) {
	if reward == nil {
		return reward, reduced, depleted
	}
	if pool == nil || (depleted != nil && *depleted) {
		return reward, reduced, depleted
	}

	remainder := *pool
	if cumulative != nil {
		remainder -= *cumulative
	}
	original := *reward
	r := math.Max(math.Min(remainder, original), 0)
	depleted = boolPtr(remainder <= 0)
	if reduced == nil || !*reduced {
		reduced = boolPtr(r < original)
	}
	return &r, reduced, depleted
}

// addReward returns cumulative plus reward, leaving cumulative untouched when
// there is no reward.
func addReward(cumulative, reward *float64) *float64 {
	if reward == nil {
		return cumulative
	}
	total := *reward
	if cumulative != nil {
		total += *cumulative
	}
	return &total
}
