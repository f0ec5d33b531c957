package opportunityinfo

import (
	"context"
	"fmt"

	"github.com/yoma-opportunity/internal/domain"
)

// publicOrder keeps public pagination deterministic. Postgres sorts a null end
// date first when descending, so open-ended opportunities lead.
var publicOrder = []domain.OrderInstruction{
	{Field: domain.OrderFieldDateStart, Direction: domain.OrderingDescending},
	{Field: domain.OrderFieldDateEnd, Direction: domain.OrderingDescending},
	{Field: domain.OrderFieldTitle, Direction: domain.OrderingAscending},
	{Field: domain.OrderFieldID, Direction: domain.OrderingAscending},
}

func (s *service) Search(ctx context.Context, filter domain.OpportunitySearchFilter) (*domain.OpportunitySearchResultsInfo, error) {
	states := filter.PublishedStates
	if len(states) == 0 {
		states = domain.DefaultPublishedStates
	}
	internal := domain.OpportunitySearchFilterAdmin{
		PageNumber:         filter.PageNumber,
		PageSize:           filter.PageSize,
		Types:              filter.Types,
		Categories:         filter.Categories,
		Languages:          filter.Languages,
		Countries:          filter.Countries,
		Organizations:      filter.Organizations,
		EngagementTypes:    filter.EngagementTypes,
		CommitmentInterval: filter.CommitmentInterval,
		ZltoReward:         filter.ZltoReward,
		PublishedStates:    states,
		Featured:           filter.Featured,
		ValueContains:      filter.ValueContains,
		OrderInstructions:  publicOrder,
	}

	mostViewed := filter.MostViewed != nil && *filter.MostViewed
	mostCompleted := filter.MostCompleted != nil && *filter.MostCompleted
	if mostViewed && mostCompleted {
		return nil, fmt.Errorf("'most viewed' and 'most completed' filters are mutually exclusive and cannot be used together: %w", domain.ErrValidation)
	}
	if mostViewed || mostCompleted {
		ids, err := s.aggregated(ctx, mostViewed, containsState(states, domain.PublishedStateExpired))
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		internal.Opportunities = ids
		internal.OrderByOpportunitiesRank = true
	}

	res, err := s.opportunities.Search(ctx, domain.SystemActor, internal)
	if err != nil {
		return nil, err
	}
	return s.toResults(ctx, res)
}

// aggregated lists the ids of published opportunities ranked by views or by
// completions, most first.
func (s *service) aggregated(ctx context.Context, viewed, includeExpired bool) ([]string, error) {
	statuses := []domain.Status{domain.StatusActive}
	if includeExpired {
		statuses = append(statuses, domain.StatusExpired)
	}
	statusIDs := make([]string, 0, len(statuses))
	for _, st := range statuses {
		l, err := s.lookups.GetByName(domain.LookupOpportunityStatus, string(st))
		if err != nil {
			return nil, err
		}
		statusIDs = append(statusIDs, l.ID)
	}
	if viewed {
		return s.myOpportunities.ListAggregatedByViewed(ctx, statusIDs)
	}
	return s.myOpportunities.ListAggregatedByCompleted(ctx, statusIDs)
}

func containsState(states []domain.PublishedState, want domain.PublishedState) bool {
	for _, st := range states {
		if st == want {
			return true
		}
	}
	return false
}
