package opportunity

import (
	"context"
	"fmt"
	"strings"

	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/pkg/id"
)

func (s *service) Create(ctx context.Context, actor domain.Actor, req domain.OpportunityRequestCreate) (*domain.Opportunity, error) {
	normalizeRequest(&req)
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}
	if err := s.ensureOrganizationAuthorization(ctx, actor, req.OrganizationID); err != nil {
		return nil, err
	}

	now := s.now()
	status := domain.StatusInactive
	if req.PostAsActive {
		status = domain.StatusActive
	}
	// An opportunity that has already ended is recorded as expired, so its
	// start date is necessarily in the past.
	ended := req.DateEnd != nil && !req.DateEnd.After(now)
	if ended {
		if req.PostAsActive {
			return nil, invalid("opportunity has already ended and can not be posted as active")
		}
		status = domain.StatusExpired
	} else if req.DateStart.Before(domain.RemoveTime(now)) {
		return nil, invalid("the start date cannot be in the past, it can be today or later")
	}

	existing, err := s.GetByTitle(ctx, req.Title, false)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, invalid("opportunity with the specified name '%s' already exists", req.Title)
	}

	org, err := s.orgs.GetByID(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org.Status != domain.OrganizationStatusActive {
		return nil, invalid("an opportunity cannot be created as the associated organization '%s' is not currently active (pending approval)", org.Name)
	}
	statusID, err := s.statusID(status)
	if err != nil {
		return nil, err
	}

	o := &domain.Opportunity{
		ID:                id.New(),
		StatusID:          statusID,
		Status:            status,
		ShareWithPartners: req.ShareWithPartners,
		DateCreated:       now,
		CreatedByUserID:   actor.UserID,
		DateModified:      now,
		ModifiedByUserID:  actor.UserID,
	}
	s.applyRequest(o, &req, org)
	if err := s.checkDateEndMin(o); err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}
		for _, set := range []struct {
			kind domain.AssociationKind
			ids  []string
		}{
			{domain.AssociationCategories, req.Categories},
			{domain.AssociationCountries, req.Countries},
			{domain.AssociationLanguages, req.Languages},
			{domain.AssociationSkills, req.Skills},
		} {
			if err := s.assignLookups(ctx, o, set.kind, set.ids); err != nil {
				return err
			}
		}
		return s.assignVerificationTypes(ctx, o, req.VerificationTypes)
	})
	if err != nil {
		return nil, err
	}
	s.setComputed(ctx, o)

	if o.Status == domain.StatusActive {
		s.sendPostedEmail(ctx, o)
	}
	s.publish(ctx, domain.EventCreate, o)
	return o, nil
}

func (s *service) Update(ctx context.Context, actor domain.Actor, req domain.OpportunityRequestUpdate) (*domain.Opportunity, error) {
	normalizeRequest(&req.OpportunityRequestCreate)
	if strings.TrimSpace(req.ID) == "" {
		return nil, fmt.Errorf("opportunity id is required: %w", domain.ErrBadRequest)
	}
	if err := s.validateRequest(&req.OpportunityRequestCreate); err != nil {
		return nil, err
	}
	if err := s.ensureOrganizationAuthorization(ctx, actor, req.OrganizationID); err != nil {
		return nil, err
	}

	o, err := s.GetByID(ctx, actor, req.ID, true)
	if err != nil {
		return nil, err
	}
	if err := assertUpdatable(o); err != nil {
		return nil, err
	}

	now := s.now()
	if !o.DateStart.Equal(req.DateStart) && req.DateStart.Before(domain.RemoveTime(now)) {
		return nil, invalid("the start date cannot be in the past. The start date has been updated and must be today or later")
	}
	existing, err := s.GetByTitle(ctx, req.Title, false)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != o.ID {
		return nil, invalid("opportunity with the specified name '%s' already exists", req.Title)
	}

	org, err := s.orgs.GetByID(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org.Status != domain.OrganizationStatusActive {
		return nil, invalid("the opportunity cannot be updated as the associated organization '%s' is not currently active (pending approval)", org.Name)
	}

	// Status only changes through UpdateStatus, apart from an end date that
	// has already passed.
	if req.DateEnd != nil && !req.DateEnd.After(now) {
		statusID, err := s.statusID(domain.StatusExpired)
		if err != nil {
			return nil, err
		}
		o.StatusID = statusID
		o.Status = domain.StatusExpired
	}

	if req.ZltoRewardPool != nil && o.ZltoRewardCumulative != nil && *req.ZltoRewardPool < *o.ZltoRewardCumulative {
		return nil, invalid("the zlto reward pool cannot be less than the cumulative zlto rewards (%.0f) already allocated to participants", *o.ZltoRewardCumulative)
	}
	if req.YomaRewardPool != nil && o.YomaRewardCumulative != nil && *req.YomaRewardPool < *o.YomaRewardCumulative {
		return nil, invalid("the yoma reward pool cannot be less than the cumulative yoma rewards (%.2f) already allocated to participants", *o.YomaRewardCumulative)
	}

	s.applyRequest(o, &req.OpportunityRequestCreate, org)
	if req.ShareWithPartners != nil {
		o.ShareWithPartners = req.ShareWithPartners
	}
	o.ModifiedByUserID = actor.UserID
	o.DateModified = now
	if err := s.checkDateEndMin(o); err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		for _, set := range []struct {
			kind    domain.AssociationKind
			current []domain.Lookup
			ids     []string
		}{
			{domain.AssociationCategories, o.Categories, req.Categories},
			{domain.AssociationCountries, o.Countries, req.Countries},
			{domain.AssociationLanguages, o.Languages, req.Languages},
			{domain.AssociationSkills, o.Skills, req.Skills},
		} {
			if err := s.removeLookups(ctx, o, set.kind, missingIDs(set.current, set.ids)); err != nil {
				return err
			}
			if err := s.assignLookups(ctx, o, set.kind, set.ids); err != nil {
				return err
			}
		}
		if err := s.removeVerificationTypes(ctx, o, missingTypes(o.VerificationTypes, req.VerificationTypes)); err != nil {
			return err
		}
		return s.assignVerificationTypes(ctx, o, req.VerificationTypes)
	})
	if err != nil {
		return nil, err
	}
	s.setComputed(ctx, o)

	s.publish(ctx, domain.EventUpdate, o)
	return o, nil
}

func normalizeRequest(req *domain.OpportunityRequestCreate) {
	req.Title = strings.TrimSpace(req.Title)
	if req.URL != nil {
		u := domain.EnsureHTTPSScheme(*req.URL)
		req.URL = &u
	}
	req.DateStart = domain.RemoveTime(req.DateStart)
	if req.DateEnd != nil {
		end := domain.ToEndOfDay(*req.DateEnd)
		req.DateEnd = &end
	}
	for i, k := range req.Keywords {
		req.Keywords[i] = strings.TrimSpace(k)
	}
}

// applyRequest copies the request fields and the organization snapshot onto o.
func (s *service) applyRequest(o *domain.Opportunity, req *domain.OpportunityRequestCreate, org *domain.Organization) {
	o.Title = req.Title
	o.Description = req.Description
	o.TypeID = req.TypeID
	o.Type = s.lookupName(domain.LookupOpportunityType, req.TypeID)
	o.OrganizationID = org.ID
	o.OrganizationName = org.Name
	o.OrganizationStatus = org.Status
	o.OrganizationLogoKey = org.LogoKey
	o.OrganizationZltoRewardBalance = org.ZltoRewardBalance()
	o.OrganizationYomaRewardBalance = org.YomaRewardBalance()
	o.Summary = req.Summary
	o.Instructions = req.Instructions
	o.URL = req.URL
	o.ZltoReward = req.ZltoReward
	o.YomaReward = req.YomaReward
	o.ZltoRewardPool = req.ZltoRewardPool
	o.YomaRewardPool = req.YomaRewardPool
	o.VerificationEnabled = req.VerificationEnabled
	o.VerificationMethod = req.VerificationMethod
	o.DifficultyID = req.DifficultyID
	o.Difficulty = s.lookupName(domain.LookupDifficulty, req.DifficultyID)
	o.CommitmentIntervalID = req.CommitmentIntervalID
	o.CommitmentIntervalCount = req.CommitmentIntervalCount
	interval := s.lookupName(domain.LookupTimeInterval, req.CommitmentIntervalID)
	o.CommitmentInterval = domain.TimeIntervalOption(interval)
	o.CommitmentIntervalDescription = domain.CommitmentDescription(req.CommitmentIntervalCount, interval)
	o.ParticipantLimit = req.ParticipantLimit
	o.Keywords = req.Keywords
	o.DateStart = req.DateStart
	o.DateEnd = req.DateEnd
	o.CredentialIssuanceEnabled = req.CredentialIssuanceEnabled
	o.SSISchemaName = req.SSISchemaName
	o.EngagementTypeID = req.EngagementTypeID
	o.EngagementType = nil
	if req.EngagementTypeID != nil {
		name := s.lookupName(domain.LookupEngagementType, *req.EngagementTypeID)
		o.EngagementType = &name
	}
	o.Hidden = req.Hidden
	o.SetRewardBalances()
}

// checkDateEndMin requires the end date to leave room for the commitment,
// counting the start date as the first day.
func (s *service) checkDateEndMin(o *domain.Opportunity) error {
	if o.DateEnd == nil {
		return nil
	}
	days, err := o.TimeIntervalToDays()
	if err != nil {
		return err
	}
	min := o.DateStart.AddDate(0, 0, days-1)
	if min.After(*o.DateEnd) {
		return invalid("the end date for the opportunity must be on or after %s, based on the specified start date and commitment interval", min.Format("2006-01-02"))
	}
	return nil
}

// missingIDs lists the linked ids absent from wanted.
func missingIDs(current []domain.Lookup, wanted []string) []string {
	keep := make(map[string]bool, len(wanted))
	for _, id := range wanted {
		keep[id] = true
	}
	var out []string
	for _, l := range current {
		if !keep[l.ID] {
			out = append(out, l.ID)
		}
	}
	return out
}

func missingTypes(current []domain.OpportunityVerificationType, wanted []domain.OpportunityRequestVerificationType) []domain.VerificationType {
	keep := make(map[domain.VerificationType]bool, len(wanted))
	for _, w := range wanted {
		keep[w.Type] = true
	}
	var out []domain.VerificationType
	for _, vt := range current {
		if !keep[vt.Type] {
			out = append(out, vt.Type)
		}
	}
	return out
}
