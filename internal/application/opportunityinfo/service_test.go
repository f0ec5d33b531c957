package opportunityinfo

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yoma-opportunity/internal/domain"
)

// --- mocks ---

type mockOpportunities struct{ mock.Mock }

func (m *mockOpportunities) GetByID(ctx context.Context, actor domain.Actor, id string, includeChildren bool) (*domain.Opportunity, error) {
	args := m.Called(ctx, actor, id, includeChildren)
	if o, _ := args.Get(0).(*domain.Opportunity); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOpportunities) Search(ctx context.Context, actor domain.Actor, filter domain.OpportunitySearchFilterAdmin) (*domain.OpportunitySearchResults, error) {
	args := m.Called(ctx, actor, filter)
	if r, _ := args.Get(0).(*domain.OpportunitySearchResults); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMyOpportunityStore struct{ mock.Mock }

func (m *mockMyOpportunityStore) CountByStatus(ctx context.Context, opportunityIDs []string, action domain.MyOpportunityAction, status domain.VerificationStatus) (map[string]int, error) {
	args := m.Called(ctx, opportunityIDs, action, status)
	counts, _ := args.Get(0).(map[string]int)
	return counts, args.Error(1)
}

func (m *mockMyOpportunityStore) ListAggregatedByViewed(ctx context.Context, statusIDs []string) ([]string, error) {
	args := m.Called(ctx, statusIDs)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockMyOpportunityStore) ListAggregatedByCompleted(ctx context.Context, statusIDs []string) ([]string, error) {
	args := m.Called(ctx, statusIDs)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type mockExportStore struct{ mock.Mock }

func (m *mockExportStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	return m.Called(ctx, key, r, contentType).Error(0)
}

func (m *mockExportStore) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type statusLookups map[string]string

func (l statusLookups) GetByName(kind domain.LookupKind, name string) (*domain.Lookup, error) {
	if id, ok := l[name]; ok {
		return &domain.Lookup{Kind: kind, ID: id, Name: name}, nil
	}
	return nil, domain.ErrNotFound
}

// --- helpers ---

var fixedNow = time.Date(2026, 3, 10, 14, 5, 9, 0, time.UTC)

type fixture struct {
	opps    *mockOpportunities
	my      *mockMyOpportunityStore
	exports *mockExportStore
	svc     Service
}

func newFixture(withExports bool) *fixture {
	f := &fixture{opps: &mockOpportunities{}, my: &mockMyOpportunityStore{}, exports: &mockExportStore{}}
	deps := ServiceDeps{
		Opportunities:     f.opps,
		MyOpportunityRepo: f.my,
		Lookups:           statusLookups{"Active": "st-active", "Expired": "st-expired"},
		ExportPath:        "exports",
		AppBaseURL:        "https://app.yoma.world",
		Now:               func() time.Time { return fixedNow },
	}
	if withExports {
		deps.Exports = f.exports
	}
	f.svc = NewService(deps)
	return f
}

func published(id string, count int) domain.Opportunity {
	return domain.Opportunity{
		ID:                  id,
		Title:               "Opportunity " + id,
		OrganizationName:    "Acme",
		OrganizationStatus:  domain.OrganizationStatusActive,
		Status:              domain.StatusActive,
		Published:           true,
		VerificationEnabled: true,
		DateStart:           fixedNow.AddDate(0, 0, -2),
		ParticipantCount:    &count,
		Categories:          []domain.Lookup{{ID: "c1", Name: "Technology"}, {ID: "c2", Name: "Agriculture"}},
	}
}

// --- tests ---

func TestGetByID_ParticipantCounts(t *testing.T) {
	f := newFixture(false)
	o := published("op1", 4)
	f.opps.On("GetByID", mock.Anything, domain.SystemActor, "op1", true).Return(&o, nil)
	f.my.On("CountByStatus", mock.Anything, []string{"op1"}, domain.MyOpportunityActionVerification, domain.VerificationStatusPending).Return(map[string]int{"op1": 3}, nil)

	info, err := f.svc.GetByID(context.Background(), domain.SystemActor, "op1")

	require.NoError(t, err)
	assert.Equal(t, 4, info.ParticipantCountCompleted)
	assert.Equal(t, 3, info.ParticipantCountPending)
	assert.Equal(t, 7, info.ParticipantCountTotal)
	assert.True(t, info.IsCompletable)
	assert.Equal(t, "https://app.yoma.world/opportunities/op1", info.InfoURL)
}

func TestGetByID_CountFailure(t *testing.T) {
	f := newFixture(false)
	o := published("op1", 0)
	f.opps.On("GetByID", mock.Anything, mock.Anything, "op1", true).Return(&o, nil)
	f.my.On("CountByStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := f.svc.GetByID(context.Background(), domain.SystemActor, "op1")

	assert.Error(t, err)
}

func TestGetPublishedOrExpiredByID_InactiveOrganization(t *testing.T) {
	f := newFixture(false)
	o := published("op1", 0)
	o.OrganizationStatus = domain.OrganizationStatusInactive
	f.opps.On("GetByID", mock.Anything, domain.SystemActor, "op1", true).Return(&o, nil)

	_, err := f.svc.GetPublishedOrExpiredByID(context.Background(), "op1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGetPublishedOrExpiredByID_InactiveStatus(t *testing.T) {
	f := newFixture(false)
	o := published("op1", 0)
	o.Status = domain.StatusInactive
	f.opps.On("GetByID", mock.Anything, domain.SystemActor, "op1", true).Return(&o, nil)

	_, err := f.svc.GetPublishedOrExpiredByID(context.Background(), "op1")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGetPublishedOrExpiredByID_Expired(t *testing.T) {
	f := newFixture(false)
	o := published("op1", 2)
	o.Status = domain.StatusExpired
	f.opps.On("GetByID", mock.Anything, domain.SystemActor, "op1", true).Return(&o, nil)
	f.my.On("CountByStatus", mock.Anything, []string{"op1"}, mock.Anything, mock.Anything).Return(map[string]int{"op1": 0}, nil)

	info, err := f.svc.GetPublishedOrExpiredByID(context.Background(), "op1")

	require.NoError(t, err)
	assert.Equal(t, 2, info.ParticipantCountTotal)
}

func TestSearch_DefaultsAndFixedOrder(t *testing.T) {
	f := newFixture(false)
	f.opps.On("Search", mock.Anything, domain.SystemActor, mock.MatchedBy(func(q domain.OpportunitySearchFilterAdmin) bool {
		return assert.ObjectsAreEqual(domain.DefaultPublishedStates, q.PublishedStates) &&
			assert.ObjectsAreEqual(publicOrder, q.OrderInstructions) &&
			q.Opportunities == nil && !q.OrderByOpportunitiesRank
	})).Return(&domain.OpportunitySearchResults{Items: []domain.Opportunity{published("op1", 1)}}, nil)
	f.my.On("CountByStatus", mock.Anything, []string{"op1"}, mock.Anything, mock.Anything).Return(map[string]int{"op1": 0}, nil)

	res, err := f.svc.Search(context.Background(), domain.OpportunitySearchFilter{})

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	f.opps.AssertExpectations(t)
}

func TestSearch_MostViewedAndCompletedExclusive(t *testing.T) {
	f := newFixture(false)
	yes := true

	_, err := f.svc.Search(context.Background(), domain.OpportunitySearchFilter{MostViewed: &yes, MostCompleted: &yes})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	f.opps.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_MostViewedOrdersByRank(t *testing.T) {
	f := newFixture(false)
	yes := true
	f.my.On("ListAggregatedByViewed", mock.Anything, []string{"st-active", "st-expired"}).Return([]string{"op2", "op1"}, nil)
	f.opps.On("Search", mock.Anything, domain.SystemActor, mock.MatchedBy(func(q domain.OpportunitySearchFilterAdmin) bool {
		return assert.ObjectsAreEqual([]string{"op2", "op1"}, q.Opportunities) && q.OrderByOpportunitiesRank
	})).Return(&domain.OpportunitySearchResults{Items: []domain.Opportunity{}}, nil)

	_, err := f.svc.Search(context.Background(), domain.OpportunitySearchFilter{
		MostViewed:      &yes,
		PublishedStates: []domain.PublishedState{domain.PublishedStateActive, domain.PublishedStateExpired},
	})

	require.NoError(t, err)
	f.my.AssertExpectations(t)
	f.opps.AssertExpectations(t)
}

func TestSearch_MostCompletedWithoutAggregatesMatchesNothing(t *testing.T) {
	f := newFixture(false)
	yes := true
	f.my.On("ListAggregatedByCompleted", mock.Anything, []string{"st-active"}).Return(nil, nil)
	f.opps.On("Search", mock.Anything, domain.SystemActor, mock.MatchedBy(func(q domain.OpportunitySearchFilterAdmin) bool {
		return q.Opportunities != nil && len(q.Opportunities) == 0
	})).Return(&domain.OpportunitySearchResults{Items: []domain.Opportunity{}}, nil)

	res, err := f.svc.Search(context.Background(), domain.OpportunitySearchFilter{MostCompleted: &yes})

	require.NoError(t, err)
	assert.Empty(t, res.Items)
	f.opps.AssertExpectations(t)
}

func TestSearchAdmin_KeepsTotalCount(t *testing.T) {
	f := newFixture(false)
	total := 12
	actor := domain.Actor{UserID: "u1", Role: domain.RoleOrganizationAdmin}
	f.opps.On("Search", mock.Anything, actor, mock.Anything).
		Return(&domain.OpportunitySearchResults{TotalCount: &total, Items: []domain.Opportunity{published("op1", 0)}}, nil)
	f.my.On("CountByStatus", mock.Anything, []string{"op1"}, mock.Anything, mock.Anything).Return(map[string]int{"op1": 1}, nil)

	res, err := f.svc.SearchAdmin(context.Background(), actor, domain.OpportunitySearchFilterAdmin{})

	require.NoError(t, err)
	assert.Equal(t, 12, *res.TotalCount)
	assert.Equal(t, 1, res.Items[0].ParticipantCountTotal)
}

func TestSearchAdmin_CountsPendingOncePerPage(t *testing.T) {
	f := newFixture(false)
	actor := domain.Actor{UserID: "u1", Role: domain.RoleOrganizationAdmin}
	f.opps.On("Search", mock.Anything, actor, mock.Anything).
		Return(&domain.OpportunitySearchResults{Items: []domain.Opportunity{published("op1", 1), published("op2", 0), published("op3", 2)}}, nil)
	f.my.On("CountByStatus", mock.Anything, []string{"op1", "op2", "op3"}, domain.MyOpportunityActionVerification, domain.VerificationStatusPending).
		Return(map[string]int{"op1": 2, "op3": 5}, nil).Once()

	res, err := f.svc.SearchAdmin(context.Background(), actor, domain.OpportunitySearchFilterAdmin{})

	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, 3, res.Items[0].ParticipantCountTotal)
	assert.Equal(t, 0, res.Items[1].ParticipantCountPending)
	assert.Equal(t, 0, res.Items[1].ParticipantCountTotal)
	assert.Equal(t, 7, res.Items[2].ParticipantCountTotal)
	f.my.AssertNumberOfCalls(t, "CountByStatus", 1)
}

func TestSearchAdmin_EmptyPageSkipsCounts(t *testing.T) {
	f := newFixture(false)
	f.opps.On("Search", mock.Anything, domain.SystemActor, mock.Anything).
		Return(&domain.OpportunitySearchResults{Items: []domain.Opportunity{}}, nil)

	res, err := f.svc.SearchAdmin(context.Background(), domain.SystemActor, domain.OpportunitySearchFilterAdmin{})

	require.NoError(t, err)
	assert.Empty(t, res.Items)
	f.my.AssertNotCalled(t, "CountByStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportToCSV_Inline(t *testing.T) {
	f := newFixture(false)
	f.opps.On("Search", mock.Anything, domain.SystemActor, mock.MatchedBy(func(q domain.OpportunitySearchFilterAdmin) bool {
		return !q.TotalCountOnly && len(q.OrderInstructions) == len(publicOrder)
	})).Return(&domain.OpportunitySearchResults{Items: []domain.Opportunity{published("op1", 5)}}, nil)
	f.my.On("CountByStatus", mock.Anything, []string{"op1"}, mock.Anything, mock.Anything).Return(map[string]int{"op1": 1}, nil)

	out, err := f.svc.ExportToCSV(context.Background(), domain.SystemActor, domain.OpportunitySearchFilterAdmin{TotalCountOnly: true})

	require.NoError(t, err)
	assert.Equal(t, "Transactions_2026-10-3--14-05-09.csv", out.FileName)
	assert.Nil(t, out.URL)

	records, err := csv.NewReader(bytes.NewReader(out.Bytes)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, "op1", records[1][0])
	assert.Equal(t, "6", records[1][15])
	assert.Equal(t, "Technology, Agriculture", records[1][19])
}

func TestExportToCSV_Uploads(t *testing.T) {
	f := newFixture(true)
	f.opps.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(&domain.OpportunitySearchResults{Items: []domain.Opportunity{}}, nil)
	keyMatch := mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "exports/") && strings.HasSuffix(key, "/Transactions_2026-10-3--14-05-09.csv")
	})
	f.exports.On("Upload", mock.Anything, keyMatch, mock.Anything, "text/csv").Return(nil)
	f.exports.On("URL", mock.Anything, keyMatch).Return("https://files.example/export.csv", nil)

	out, err := f.svc.ExportToCSV(context.Background(), domain.SystemActor, domain.OpportunitySearchFilterAdmin{})

	require.NoError(t, err)
	require.NotNil(t, out.URL)
	assert.Equal(t, "https://files.example/export.csv", *out.URL)
	f.exports.AssertExpectations(t)
}
