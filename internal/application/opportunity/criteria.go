package opportunity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/yoma-opportunity/internal/domain"
)

const zltoRangeIncrement = 50

// criteriaQuery scopes the criteria listings to published opportunities in
// one of states, defaulting to not started and active.
func (s *service) criteriaQuery(states []domain.PublishedState) (domain.OpportunityQuery, error) {
	if len(states) == 0 {
		states = domain.DefaultPublishedStates
	}
	q := domain.OpportunityQuery{PublishedStates: states, Now: s.now()}
	var err error
	if q.ActiveStatusID, err = s.statusID(domain.StatusActive); err != nil {
		return q, err
	}
	if q.ExpiredStatusID, err = s.statusID(domain.StatusExpired); err != nil {
		return q, err
	}
	return q, nil
}

// usage counts published opportunities per linked lookup of kind.
func (s *service) usage(ctx context.Context, kind domain.AssociationKind, states []domain.PublishedState) ([]domain.CriteriaCount, error) {
	q, err := s.criteriaQuery(states)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.UsageByAssociation(ctx, kind, q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CriteriaCount, 0, len(rows))
	for _, r := range rows {
		l, err := s.lookups.GetByID(kind.LookupKind(), r.ID)
		if err != nil {
			s.log.WithField("kind", kind).WithField("id", r.ID).Warn("unknown lookup id")
			continue
		}
		out = append(out, domain.CriteriaCount{Lookup: *l, Count: r.Count})
	}
	return out, nil
}

func (s *service) ListSearchCriteriaCategories(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error) {
	out, err := s.usage(ctx, domain.AssociationCategories, states)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Name == domain.CategoryOther, out[j].Name == domain.CategoryOther
		if oi != oj {
			return oj
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *service) ListSearchCriteriaCountries(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error) {
	out, err := s.usage(ctx, domain.AssociationCountries, states)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].Code == domain.CountryWorldwideCode, out[j].Code == domain.CountryWorldwideCode
		if wi != wj {
			return wi
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *service) ListSearchCriteriaLanguages(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error) {
	out, err := s.usage(ctx, domain.AssociationLanguages, states)
	if err != nil {
		return nil, err
	}
	sortByCountThenName(out)
	return out, nil
}

func sortByCountThenName(items []domain.CriteriaCount) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
}

func (s *service) ListSearchCriteriaOrganizations(ctx context.Context, states []domain.PublishedState) ([]domain.OrganizationInfo, error) {
	q, err := s.criteriaQuery(states)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.UsageByOrganization(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []domain.OrganizationInfo{}, nil
	}
	counts := make(map[string]int, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		counts[r.ID] = r.Count
		ids[i] = r.ID
	}

	orgs, err := s.orgs.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	active := orgs[:0]
	for _, o := range orgs {
		if o.Status == domain.OrganizationStatusActive {
			active = append(active, o)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		ci, cj := counts[active[i].ID], counts[active[j].ID]
		if ci != cj {
			return ci > cj
		}
		return active[i].Name < active[j].Name
	})

	out := make([]domain.OrganizationInfo, 0, len(active))
	for _, o := range active {
		info := domain.OrganizationInfo{ID: o.ID, Name: o.Name}
		if o.LogoKey != nil && *o.LogoKey != "" && s.blobs != nil {
			if url, err := s.blobs.URL(ctx, *o.LogoKey); err == nil {
				info.LogoURL = &url
			} else {
				s.log.WithError(err).WithField("organization_id", o.ID).Warn("resolve organization logo url")
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *service) ListSearchCriteriaCommitmentIntervals(ctx context.Context, states []domain.PublishedState) ([]domain.OpportunitySearchCriteriaCommitmentInterval, error) {
	q, err := s.criteriaQuery(states)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListCommitments(ctx, q)
	if err != nil {
		return nil, err
	}

	type option struct {
		item  domain.OpportunitySearchCriteriaCommitmentInterval
		rank  int
		count int
	}
	options := make([]option, 0, len(rows))
	for _, r := range rows {
		l, err := s.lookups.GetByID(domain.LookupTimeInterval, r.IntervalID)
		if err != nil {
			return nil, err
		}
		interval := domain.TimeIntervalOption(l.Name)
		if interval.Rank() == 0 {
			return nil, fmt.Errorf("time interval '%s' not supported", l.Name)
		}
		options = append(options, option{
			item: domain.OpportunitySearchCriteriaCommitmentInterval{
				ID:   strconv.Itoa(r.Count) + "|" + r.IntervalID,
				Name: domain.CommitmentDescription(r.Count, l.Name),
			},
			rank:  interval.Rank(),
			count: r.Count,
		})
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].rank != options[j].rank {
			return options[i].rank < options[j].rank
		}
		return options[i].count < options[j].count
	})

	out := make([]domain.OpportunitySearchCriteriaCommitmentInterval, len(options))
	for i, o := range options {
		out[i] = o.item
	}
	return out, nil
}

func (s *service) ListSearchCriteriaZltoRewardRanges(ctx context.Context, states []domain.PublishedState) ([]domain.OpportunitySearchCriteriaZltoReward, error) {
	q, err := s.criteriaQuery(states)
	if err != nil {
		return nil, err
	}
	min, max, err := s.repo.ZltoRewardBounds(ctx, q)
	if err != nil {
		return nil, err
	}
	return zltoRewardRanges(min, max), nil
}

// zltoRewardRanges splits [min, max], widened to multiples of 50, into
// consecutive ranges of 50.
func zltoRewardRanges(min, max *float64) []domain.OpportunitySearchCriteriaZltoReward {
	var lo, hi float64
	if min != nil {
		lo = math.Floor(*min/zltoRangeIncrement) * zltoRangeIncrement
	}
	if max != nil {
		hi = math.Ceil(*max/zltoRangeIncrement) * zltoRangeIncrement
	}

	out := []domain.OpportunitySearchCriteriaZltoReward{}
	for from := lo; from < hi; from += zltoRangeIncrement {
		to := math.Min(from+zltoRangeIncrement, hi)
		f, t := formatAmount(from), formatAmount(to)
		out = append(out, domain.OpportunitySearchCriteriaZltoReward{
			ID:   f + "|" + t,
			Name: "Z" + f + " - Z" + t,
		})
	}
	return out
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
