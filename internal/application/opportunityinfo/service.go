// Package opportunityinfo serves the read model of opportunities: the info
// view with participant counts, public search and CSV export.
package opportunityinfo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/pkg/logger"
)

type Service interface {
	GetByID(ctx context.Context, actor domain.Actor, id string) (*domain.OpportunityInfo, error)
	// GetPublishedOrExpiredByID is reachable anonymously.
	GetPublishedOrExpiredByID(ctx context.Context, id string) (*domain.OpportunityInfo, error)
	SearchAdmin(ctx context.Context, actor domain.Actor, filter domain.OpportunitySearchFilterAdmin) (*domain.OpportunitySearchResultsInfo, error)
	Search(ctx context.Context, filter domain.OpportunitySearchFilter) (*domain.OpportunitySearchResultsInfo, error)
	ExportToCSV(ctx context.Context, actor domain.Actor, filter domain.OpportunitySearchFilterAdmin) (*domain.OpportunityExport, error)
}

type opportunities interface {
	GetByID(ctx context.Context, actor domain.Actor, id string, includeChildren bool) (*domain.Opportunity, error)
	Search(ctx context.Context, actor domain.Actor, filter domain.OpportunitySearchFilterAdmin) (*domain.OpportunitySearchResults, error)
}

type myOpportunityStore interface {
	// CountByStatus counts matching actions per opportunity. Opportunities
	// without any are absent from the map.
	CountByStatus(ctx context.Context, opportunityIDs []string, action domain.MyOpportunityAction, status domain.VerificationStatus) (map[string]int, error)
	ListAggregatedByViewed(ctx context.Context, statusIDs []string) ([]string, error)
	ListAggregatedByCompleted(ctx context.Context, statusIDs []string) ([]string, error)
}

type lookups interface {
	GetByName(kind domain.LookupKind, name string) (*domain.Lookup, error)
}

type exportStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}

type service struct {
	opportunities   opportunities
	myOpportunities myOpportunityStore
	lookups         lookups
	exports         exportStore
	exportPath      string
	appBaseURL      string
	log             *logrus.Entry
	now             func() time.Time
}

type ServiceDeps struct {
	Opportunities     opportunities
	MyOpportunityRepo myOpportunityStore
	Lookups           lookups
	// Exports is optional; without it CSV exports are only returned inline.
	Exports    exportStore
	ExportPath string
	AppBaseURL string
	Log        *logrus.Entry
	Now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		opportunities:   deps.Opportunities,
		myOpportunities: deps.MyOpportunityRepo,
		lookups:         deps.Lookups,
		exports:         deps.Exports,
		exportPath:      deps.ExportPath,
		appBaseURL:      deps.AppBaseURL,
		log:             logger.OrDiscard(deps.Log),
		now:             now,
	}
}

func (s *service) GetByID(ctx context.Context, actor domain.Actor, id string) (*domain.OpportunityInfo, error) {
	o, err := s.opportunities.GetByID(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	return s.single(ctx, o)
}

func (s *service) GetPublishedOrExpiredByID(ctx context.Context, id string) (*domain.OpportunityInfo, error) {
	o, err := s.opportunities.GetByID(ctx, domain.SystemActor, id, true)
	if err != nil {
		return nil, err
	}
	if ok, reason := o.PublishedOrExpired(); !ok {
		return nil, fmt.Errorf("%s: %w", reason, domain.ErrNotFound)
	}
	return s.single(ctx, o)
}

func (s *service) SearchAdmin(ctx context.Context, actor domain.Actor, filter domain.OpportunitySearchFilterAdmin) (*domain.OpportunitySearchResultsInfo, error) {
	res, err := s.opportunities.Search(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return s.toResults(ctx, res)
}

func (s *service) single(ctx context.Context, o *domain.Opportunity) (*domain.OpportunityInfo, error) {
	pending, err := s.pendingCounts(ctx, []domain.Opportunity{*o})
	if err != nil {
		return nil, err
	}
	info := s.toInfo(o, pending[o.ID])
	return &info, nil
}

// toResults maps a page of results, counting pending verifications for the
// whole page in one query.
func (s *service) toResults(ctx context.Context, res *domain.OpportunitySearchResults) (*domain.OpportunitySearchResultsInfo, error) {
	out := &domain.OpportunitySearchResultsInfo{
		TotalCount: res.TotalCount,
		Items:      make([]domain.OpportunityInfo, 0, len(res.Items)),
	}
	if len(res.Items) == 0 {
		return out, nil
	}
	pending, err := s.pendingCounts(ctx, res.Items)
	if err != nil {
		return nil, err
	}
	for i := range res.Items {
		out.Items = append(out.Items, s.toInfo(&res.Items[i], pending[res.Items[i].ID]))
	}
	return out, nil
}

func (s *service) pendingCounts(ctx context.Context, items []domain.Opportunity) (map[string]int, error) {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	counts, err := s.myOpportunities.CountByStatus(ctx, ids, domain.MyOpportunityActionVerification, domain.VerificationStatusPending)
	if err != nil {
		return nil, fmt.Errorf("count pending verifications: %w", err)
	}
	return counts, nil
}

// toInfo maps o to its info view with the participant counts. The completed
// count is the opportunity's own tally; pending counts verification requests
// still awaiting review.
func (s *service) toInfo(o *domain.Opportunity, pending int) domain.OpportunityInfo {
	info := o.ToInfo(s.appBaseURL, s.now())
	info.ParticipantCountPending = pending
	info.ParticipantCountTotal = info.ParticipantCountCompleted + pending
	return info
}
