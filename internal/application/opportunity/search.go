package opportunity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/pkg/validate"
)

func (s *service) Search(ctx context.Context, actor domain.Actor, filter domain.OpportunitySearchFilterAdmin) (*domain.OpportunitySearchResults, error) {
	options, err := parseCommitmentOptions(filter.CommitmentInterval)
	if err != nil {
		return nil, err
	}
	ranges, err := parseZltoRanges(filter.ZltoReward)
	if err != nil {
		return nil, err
	}
	if err := s.validateSearchFilter(&filter, ranges); err != nil {
		return nil, err
	}

	q, err := s.buildQuery(ctx, actor, &filter)
	if err != nil {
		return nil, err
	}
	q.CommitmentOptions = options
	q.ZltoRanges = ranges

	if !filter.TotalCountOnly && len(filter.OrderInstructions) == 0 {
		return nil, fmt.Errorf("order instructions are required: %w", domain.ErrBadRequest)
	}
	q.OrderInstructions = filter.OrderInstructions
	if filter.Paginated() {
		q.Limit = *filter.PageSize
		q.Offset = (*filter.PageNumber - 1) * *filter.PageSize
	}

	items, total, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	result := &domain.OpportunitySearchResults{Items: []domain.Opportunity{}}
	if filter.TotalCountOnly {
		result.TotalCount = &total
		return result, nil
	}
	if filter.Paginated() {
		result.TotalCount = &total
	}
	for i := range items {
		s.hydrate(ctx, &items[i])
	}
	result.Items = items
	return result, nil
}

func (s *service) validateSearchFilter(filter *domain.OpportunitySearchFilterAdmin, ranges []domain.ZltoRange) error {
	if err := validate.Struct(filter); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrValidation)
	}
	if (filter.PageNumber == nil) != (filter.PageSize == nil) {
		return fmt.Errorf("page number and page size must be specified together: %w", domain.ErrValidation)
	}
	if filter.IncludeExpired && !filter.Published {
		return fmt.Errorf("include expired is only supported for published opportunities: %w", domain.ErrValidation)
	}
	if ci := filter.CommitmentInterval; ci != nil && ci.Interval != nil {
		if _, err := s.lookups.GetByID(domain.LookupTimeInterval, ci.Interval.ID); err != nil {
			return fmt.Errorf("commitment interval '%s' does not exist: %w", ci.Interval.ID, domain.ErrValidation)
		}
	}
	for _, r := range ranges {
		if r.From < 0 || r.From > r.To {
			return fmt.Errorf("zlto reward range '%v|%v' is invalid: %w", r.From, r.To, domain.ErrValidation)
		}
	}
	return nil
}

// buildQuery resolves every name in filter to its id. Non-admin actors are
// limited to the organizations they administer.
func (s *service) buildQuery(ctx context.Context, actor domain.Actor, filter *domain.OpportunitySearchFilterAdmin) (domain.OpportunityQuery, error) {
	q := domain.OpportunityQuery{
		StartDate:       filter.StartDate,
		EndDate:         filter.EndDate,
		Types:           distinct(filter.Types),
		Categories:      distinct(filter.Categories),
		Languages:       distinct(filter.Languages),
		Countries:       distinct(filter.Countries),
		EngagementTypes: distinct(filter.EngagementTypes),
		Opportunities:   distinct(filter.Opportunities),
		Published:       filter.Published,
		IncludeExpired:  filter.IncludeExpired,
		Featured:        filter.Featured,
		Hidden:          filter.Hidden,
		CountOnly:       filter.TotalCountOnly,
		Now:             s.now(),
	}
	if filter.ShareWithPartners != nil {
		q.ShareWithPartners = *filter.ShareWithPartners
	}

	var err error
	if q.ActiveStatusID, err = s.statusID(domain.StatusActive); err != nil {
		return q, err
	}
	if q.ExpiredStatusID, err = s.statusID(domain.StatusExpired); err != nil {
		return q, err
	}

	orgs, err := s.authorizedOrganizations(ctx, actor, distinct(filter.Organizations))
	if err != nil {
		return q, err
	}
	if orgs != nil && len(orgs) == 0 {
		q.Opportunities = []string{}
	}
	q.Organizations = orgs

	if filter.PublishedStates != nil {
		q.PublishedStates = make([]domain.PublishedState, 0, len(filter.PublishedStates))
		seen := map[domain.PublishedState]bool{}
		for _, st := range filter.PublishedStates {
			if !seen[st] {
				seen[st] = true
				q.PublishedStates = append(q.PublishedStates, st)
			}
		}
	}

	for _, st := range filter.Statuses {
		id, err := s.statusID(st)
		if err != nil {
			return q, err
		}
		q.StatusIDs = append(q.StatusIDs, id)
	}
	q.StatusIDs = distinct(q.StatusIDs)

	if ci := filter.CommitmentInterval; ci != nil && ci.Interval != nil {
		l, err := s.lookups.GetByID(domain.LookupTimeInterval, ci.Interval.ID)
		if err != nil {
			return q, err
		}
		max := domain.ConvertToMinutes(domain.TimeIntervalOption(l.Name), int(ci.Interval.Count))
		q.CommitmentMaxMinutes = &max
		for _, t := range s.lookups.List(domain.LookupTimeInterval) {
			q.CommitmentUnits = append(q.CommitmentUnits, domain.CommitmentUnit{
				IntervalID: t.ID,
				Minutes:    domain.TimeIntervalOption(t.Name).Minutes(),
			})
		}
	}
	if zr := filter.ZltoReward; zr != nil && zr.HasReward != nil && *zr.HasReward {
		q.HasZltoReward = true
	}

	if filter.ValueContains != nil {
		if v := strings.TrimSpace(*filter.ValueContains); v != "" {
			q.ValueContains = v
			if q.MatchOrganizationIDs, err = s.orgs.Contains(ctx, v); err != nil {
				return q, err
			}
			q.MatchOrganizationIDs = distinct(q.MatchOrganizationIDs)
			q.MatchTypeIDs = lookupIDs(s.lookups.Contains(domain.LookupOpportunityType, v))
			q.MatchCategoryIDs = lookupIDs(s.lookups.Contains(domain.LookupCategory, v))
			q.MatchSkillIDs = lookupIDs(s.lookups.Contains(domain.LookupSkill, v))
		}
	}

	if filter.OrderByOpportunitiesRank {
		q.OrderByIDs = q.Opportunities
	}
	return q, nil
}

// authorizedOrganizations returns the organizations a search may cover. For a
// platform admin the requested list is used as is, and an empty one means no
// organization filter. Other actors must administer every requested
// organization; with none requested it narrows to those they administer, and
// an empty non-nil result matches nothing.
func (s *service) authorizedOrganizations(ctx context.Context, actor domain.Actor, requested []string) ([]string, error) {
	if actor.IsAdmin() {
		if len(requested) == 0 {
			return nil, nil
		}
		return requested, nil
	}
	if len(requested) > 0 {
		for _, id := range requested {
			if err := s.ensureOrganizationAuthorization(ctx, actor, id); err != nil {
				return nil, err
			}
		}
		return requested, nil
	}
	administered, err := s.orgs.AdminsOf(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if administered == nil {
		administered = []string{}
	}
	return administered, nil
}

// parseCommitmentOptions decodes "count|intervalId" options.
func parseCommitmentOptions(ci *domain.FilterCommitmentInterval) ([]domain.CommitmentOption, error) {
	if ci == nil || len(ci.Options) == 0 {
		return nil, nil
	}
	var out []domain.CommitmentOption
	for _, item := range distinct(ci.Options) {
		parts := strings.Split(item, "|")
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("commitment interval option '%s' does not match the expected format: %w", item, domain.ErrBadRequest)
		}
		count, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("commitment interval option '%s' does not match the expected format: %w", item, domain.ErrBadRequest)
		}
		out = append(out, domain.CommitmentOption{Count: int16(count), IntervalID: strings.TrimSpace(parts[1])})
	}
	return out, nil
}

// parseZltoRanges decodes "from|to" ranges.
func parseZltoRanges(zr *domain.FilterZltoReward) ([]domain.ZltoRange, error) {
	if zr == nil || len(zr.Ranges) == 0 {
		return nil, nil
	}
	var out []domain.ZltoRange
	for _, item := range distinct(zr.Ranges) {
		parts := strings.Split(item, "|")
		if len(parts) != 2 {
			return nil, fmt.Errorf("zlto reward range '%s' does not match the expected format: %w", item, domain.ErrBadRequest)
		}
		from, errFrom := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		to, errTo := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errFrom != nil || errTo != nil {
			return nil, fmt.Errorf("zlto reward range '%s' does not match the expected format: %w", item, domain.ErrBadRequest)
		}
		out = append(out, domain.ZltoRange{From: from, To: to})
	}
	return out, nil
}
