package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yoma-opportunity/internal/domain"
	jwtinfra "github.com/yoma-opportunity/internal/infrastructure/jwt"
	"github.com/yoma-opportunity/internal/transport/http/middleware"
)

// --- mocks ---

type mockOpportunitySvc struct{ mock.Mock }

func (m *mockOpportunitySvc) opp(args mock.Arguments) (*domain.Opportunity, error) {
	if o, _ := args.Get(0).(*domain.Opportunity); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOpportunitySvc) GetByID(ctx context.Context, a domain.Actor, id string, includeChildren bool) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, id, includeChildren))
}
func (m *mockOpportunitySvc) GetByTitle(ctx context.Context, title string, includeChildren bool) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, title, includeChildren))
}
func (m *mockOpportunitySvc) Contains(ctx context.Context, value string, includeChildren bool) ([]domain.Opportunity, error) {
	args := m.Called(ctx, value, includeChildren)
	items, _ := args.Get(0).([]domain.Opportunity)
	return items, args.Error(1)
}
func (m *mockOpportunitySvc) Search(ctx context.Context, a domain.Actor, f domain.OpportunitySearchFilterAdmin) (*domain.OpportunitySearchResults, error) {
	args := m.Called(ctx, a, f)
	res, _ := args.Get(0).(*domain.OpportunitySearchResults)
	return res, args.Error(1)
}
func (m *mockOpportunitySvc) Create(ctx context.Context, a domain.Actor, req domain.OpportunityRequestCreate) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, req))
}
func (m *mockOpportunitySvc) Update(ctx context.Context, a domain.Actor, req domain.OpportunityRequestUpdate) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, req))
}
func (m *mockOpportunitySvc) UpdateStatus(ctx context.Context, a domain.Actor, id string, status domain.Status) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, id, status))
}
func (m *mockOpportunitySvc) AllocateRewards(ctx context.Context, a domain.Actor, id string) (*domain.OpportunityAllocateRewardResponse, error) {
	args := m.Called(ctx, a, id)
	res, _ := args.Get(0).(*domain.OpportunityAllocateRewardResponse)
	return res, args.Error(1)
}
func (m *mockOpportunitySvc) UpdateFeatured(ctx context.Context, a domain.Actor, id string, featured bool) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, id, featured))
}
func (m *mockOpportunitySvc) UpdateHidden(ctx context.Context, a domain.Actor, id string, hidden bool) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, id, hidden))
}
func (m *mockOpportunitySvc) AssignLookups(ctx context.Context, a domain.Actor, id string, kind domain.AssociationKind, ids []string) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, id, kind, ids))
}
func (m *mockOpportunitySvc) RemoveLookups(ctx context.Context, a domain.Actor, id string, kind domain.AssociationKind, ids []string) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, id, kind, ids))
}
func (m *mockOpportunitySvc) AssignVerificationTypes(ctx context.Context, a domain.Actor, id string, types []domain.OpportunityRequestVerificationType) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, id, types))
}
func (m *mockOpportunitySvc) RemoveVerificationTypes(ctx context.Context, a domain.Actor, id string, types []domain.VerificationType) (*domain.Opportunity, error) {
	return m.opp(m.Called(ctx, a, id, types))
}
func (m *mockOpportunitySvc) ListSearchCriteriaCategories(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error) {
	args := m.Called(ctx, states)
	rows, _ := args.Get(0).([]domain.CriteriaCount)
	return rows, args.Error(1)
}
func (m *mockOpportunitySvc) ListSearchCriteriaCountries(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error) {
	args := m.Called(ctx, states)
	rows, _ := args.Get(0).([]domain.CriteriaCount)
	return rows, args.Error(1)
}
func (m *mockOpportunitySvc) ListSearchCriteriaLanguages(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error) {
	args := m.Called(ctx, states)
	rows, _ := args.Get(0).([]domain.CriteriaCount)
	return rows, args.Error(1)
}
func (m *mockOpportunitySvc) ListSearchCriteriaOrganizations(ctx context.Context, states []domain.PublishedState) ([]domain.OrganizationInfo, error) {
	args := m.Called(ctx, states)
	rows, _ := args.Get(0).([]domain.OrganizationInfo)
	return rows, args.Error(1)
}
func (m *mockOpportunitySvc) ListSearchCriteriaCommitmentIntervals(ctx context.Context, states []domain.PublishedState) ([]domain.OpportunitySearchCriteriaCommitmentInterval, error) {
	args := m.Called(ctx, states)
	rows, _ := args.Get(0).([]domain.OpportunitySearchCriteriaCommitmentInterval)
	return rows, args.Error(1)
}
func (m *mockOpportunitySvc) ListSearchCriteriaZltoRewardRanges(ctx context.Context, states []domain.PublishedState) ([]domain.OpportunitySearchCriteriaZltoReward, error) {
	args := m.Called(ctx, states)
	rows, _ := args.Get(0).([]domain.OpportunitySearchCriteriaZltoReward)
	return rows, args.Error(1)
}

type mockInfoSvc struct{ mock.Mock }

func (m *mockInfoSvc) info(args mock.Arguments) (*domain.OpportunityInfo, error) {
	if o, _ := args.Get(0).(*domain.OpportunityInfo); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInfoSvc) GetByID(ctx context.Context, a domain.Actor, id string) (*domain.OpportunityInfo, error) {
	return m.info(m.Called(ctx, a, id))
}
func (m *mockInfoSvc) GetPublishedOrExpiredByID(ctx context.Context, id string) (*domain.OpportunityInfo, error) {
	return m.info(m.Called(ctx, id))
}
func (m *mockInfoSvc) SearchAdmin(ctx context.Context, a domain.Actor, f domain.OpportunitySearchFilterAdmin) (*domain.OpportunitySearchResultsInfo, error) {
	args := m.Called(ctx, a, f)
	res, _ := args.Get(0).(*domain.OpportunitySearchResultsInfo)
	return res, args.Error(1)
}
func (m *mockInfoSvc) Search(ctx context.Context, f domain.OpportunitySearchFilter) (*domain.OpportunitySearchResultsInfo, error) {
	args := m.Called(ctx, f)
	res, _ := args.Get(0).(*domain.OpportunitySearchResultsInfo)
	return res, args.Error(1)
}
func (m *mockInfoSvc) ExportToCSV(ctx context.Context, a domain.Actor, f domain.OpportunitySearchFilterAdmin) (*domain.OpportunityExport, error) {
	args := m.Called(ctx, a, f)
	res, _ := args.Get(0).(*domain.OpportunityExport)
	return res, args.Error(1)
}

// --- helpers ---

var orgAdmin = domain.Actor{UserID: "u1", Email: "u1@yoma.world", Role: domain.RoleOrganizationAdmin}

type fixture struct {
	svc    *mockOpportunitySvc
	info   *mockInfoSvc
	router chi.Router
}

// newFixture mounts the handlers the way the API router does, minus auth.
// Requests carry claims through withActor instead of a signed token.
func newFixture() *fixture {
	f := &fixture{svc: &mockOpportunitySvc{}, info: &mockInfoSvc{}}
	h := NewOpportunityHandler(f.svc, f.info)
	r := chi.NewRouter()
	r.Post("/v1/opportunities/search", h.Search)
	r.Get("/v1/opportunities/search/criteria/{kind}", h.SearchCriteria)
	r.Get("/v1/opportunities/{id}/info", h.GetPublicInfo)
	r.Post("/v1/opportunities/search/admin/csv", h.ExportCSV)
	r.Post("/v1/opportunities", h.Create)
	r.Get("/v1/opportunities/{id}", h.Get)
	r.Patch("/v1/opportunities/{id}/featured", h.UpdateFeatured)
	r.Patch("/v1/opportunities/{id}/allocate-rewards", h.AllocateRewards)
	r.Patch("/v1/opportunities/{id}/{segment}", h.PatchSegment)
	r.Delete("/v1/opportunities/{id}/{segment}", h.RemoveAssociations)
	f.router = r
	return f
}

func withActor(r *http.Request, a domain.Actor) *http.Request {
	claims := &jwtinfra.Claims{UserID: a.UserID, Email: a.Email, Role: a.Role}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func (f *fixture) serve(r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, r)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) MessageEnvelope {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

// --- tests ---

func TestHTTPStatus_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("opportunity 'x': %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("title: %w", domain.ErrValidation), http.StatusUnprocessableEntity},
		{fmt.Errorf("id: %w", domain.ErrBadRequest), http.StatusBadRequest},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("organization: %w", domain.ErrForbidden), http.StatusForbidden},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, httpStatus(tc.err), tc.err.Error())
	}
}

func TestGet_NoActor(t *testing.T) {
	f := newFixture()
	rr := f.serve(httptest.NewRequest(http.MethodGet, "/v1/opportunities/o1", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	f.svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGet_ForbiddenMapped(t *testing.T) {
	f := newFixture()
	f.svc.On("GetByID", mock.Anything, orgAdmin, "o1", true).
		Return(nil, fmt.Errorf("not an admin of organization 'org': %w", domain.ErrForbidden)).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodGet, "/v1/opportunities/o1", nil), orgAdmin))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, http.StatusForbidden, env.ErrorCode)
	assert.Contains(t, env.Error, "organization")
}

func TestGet_InternalErrorHidden(t *testing.T) {
	f := newFixture()
	f.svc.On("GetByID", mock.Anything, orgAdmin, "o1", true).Return(nil, errors.New("pq: connection refused")).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodGet, "/v1/opportunities/o1", nil), orgAdmin))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", decodeEnvelope(t, rr).Error)
}

func TestPublicInfo_Anonymous(t *testing.T) {
	f := newFixture()
	f.info.On("GetPublishedOrExpiredByID", mock.Anything, "o1").Return(&domain.OpportunityInfo{ID: "o1", Title: "Learn Go"}, nil).Once()

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/v1/opportunities/o1/info", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.OpportunityInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Learn Go", got.Title)
}

func TestSearch_InvalidBody(t *testing.T) {
	f := newFixture()
	rr := f.serve(httptest.NewRequest(http.MethodPost, "/v1/opportunities/search", bytes.NewBufferString("not-json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	f.info.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearch_ValidationMapped(t *testing.T) {
	f := newFixture()
	yes := true
	filter := domain.OpportunitySearchFilter{MostViewed: &yes, MostCompleted: &yes}
	f.info.On("Search", mock.Anything, filter).Return(nil, fmt.Errorf("exclusive: %w", domain.ErrValidation)).Once()

	rr := f.serve(httptest.NewRequest(http.MethodPost, "/v1/opportunities/search", jsonBody(t, filter)))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSearchCriteria_ParsesPublishedStates(t *testing.T) {
	f := newFixture()
	states := []domain.PublishedState{domain.PublishedStateActive, domain.PublishedStateExpired, domain.PublishedStateNotStarted}
	f.svc.On("ListSearchCriteriaCategories", mock.Anything, states).
		Return([]domain.CriteriaCount{{Lookup: domain.Lookup{ID: "cat-tech", Name: "Technology"}, Count: 3}}, nil).Once()

	rr := f.serve(httptest.NewRequest(http.MethodGet,
		"/v1/opportunities/search/criteria/categories?published_states=Active,Expired&published_states=NotStarted", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	f.svc.AssertExpectations(t)
}

func TestSearchCriteria_UnknownKind(t *testing.T) {
	f := newFixture()
	rr := f.serve(httptest.NewRequest(http.MethodGet, "/v1/opportunities/search/criteria/planets", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreate_Created(t *testing.T) {
	f := newFixture()
	req := domain.OpportunityRequestCreate{Title: "Learn Go", OrganizationID: "org"}
	f.svc.On("Create", mock.Anything, orgAdmin, req).Return(&domain.Opportunity{ID: "o1", Title: "Learn Go"}, nil).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPost, "/v1/opportunities", jsonBody(t, req)), orgAdmin))
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestCreate_ConflictMapped(t *testing.T) {
	f := newFixture()
	req := domain.OpportunityRequestCreate{Title: "Learn Go"}
	f.svc.On("Create", mock.Anything, orgAdmin, req).Return(nil, fmt.Errorf("title exists: %w", domain.ErrValidation)).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPost, "/v1/opportunities", jsonBody(t, req)), orgAdmin))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestPatchSegment_Status(t *testing.T) {
	f := newFixture()
	f.svc.On("UpdateStatus", mock.Anything, orgAdmin, "o1", domain.StatusInactive).
		Return(&domain.Opportunity{ID: "o1", Status: domain.StatusInactive}, nil).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPatch, "/v1/opportunities/o1/inactive", nil), orgAdmin))
	assert.Equal(t, http.StatusOK, rr.Code)
	f.svc.AssertExpectations(t)
}

func TestPatchSegment_UnknownStatus(t *testing.T) {
	f := newFixture()
	rr := f.serve(withActor(httptest.NewRequest(http.MethodPatch, "/v1/opportunities/o1/archived", nil), orgAdmin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPatchSegment_AssignCategories(t *testing.T) {
	f := newFixture()
	f.svc.On("AssignLookups", mock.Anything, orgAdmin, "o1", domain.AssociationCategories, []string{"cat-tech"}).
		Return(&domain.Opportunity{ID: "o1"}, nil).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPatch, "/v1/opportunities/o1/categories",
		jsonBody(t, []string{"cat-tech"})), orgAdmin))
	assert.Equal(t, http.StatusOK, rr.Code)
	f.svc.AssertExpectations(t)
}

func TestPatchSegment_AssignVerificationTypes(t *testing.T) {
	f := newFixture()
	desc := "Upload your certificate"
	types := []domain.OpportunityRequestVerificationType{{Type: domain.VerificationType("FileUpload"), Description: &desc}}
	f.svc.On("AssignVerificationTypes", mock.Anything, orgAdmin, "o1", types).Return(&domain.Opportunity{ID: "o1"}, nil).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPatch, "/v1/opportunities/o1/verification-types",
		jsonBody(t, types)), orgAdmin))
	assert.Equal(t, http.StatusOK, rr.Code)
	f.svc.AssertExpectations(t)
}

func TestRemoveAssociations_Skills(t *testing.T) {
	f := newFixture()
	f.svc.On("RemoveLookups", mock.Anything, orgAdmin, "o1", domain.AssociationSkills, []string{"sk-go"}).
		Return(&domain.Opportunity{ID: "o1"}, nil).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodDelete, "/v1/opportunities/o1/skills",
		jsonBody(t, []string{"sk-go"})), orgAdmin))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRemoveAssociations_UnknownKind(t *testing.T) {
	f := newFixture()
	rr := f.serve(withActor(httptest.NewRequest(http.MethodDelete, "/v1/opportunities/o1/badges",
		jsonBody(t, []string{"b"})), orgAdmin))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateFeatured_RequiresBoolean(t *testing.T) {
	f := newFixture()
	admin := domain.Actor{UserID: "a1", Role: domain.RoleAdmin}

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPatch, "/v1/opportunities/o1/featured?featured=maybe", nil), admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	f.svc.On("UpdateFeatured", mock.Anything, admin, "o1", true).Return(&domain.Opportunity{ID: "o1"}, nil).Once()
	rr = f.serve(withActor(httptest.NewRequest(http.MethodPatch, "/v1/opportunities/o1/featured?featured=true", nil), admin))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAllocateRewards(t *testing.T) {
	f := newFixture()
	zlto := 5.0
	f.svc.On("AllocateRewards", mock.Anything, orgAdmin, "o1").
		Return(&domain.OpportunityAllocateRewardResponse{ZltoReward: &zlto}, nil).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPatch, "/v1/opportunities/o1/allocate-rewards", nil), orgAdmin))
	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.OpportunityAllocateRewardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 5.0, *got.ZltoReward)
}

func TestExportCSV_Inline(t *testing.T) {
	f := newFixture()
	f.info.On("ExportToCSV", mock.Anything, orgAdmin, mock.Anything).
		Return(&domain.OpportunityExport{FileName: "Transactions_x.csv", Bytes: []byte("Id,Title\n")}, nil).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPost, "/v1/opportunities/search/admin/csv",
		jsonBody(t, domain.OpportunitySearchFilterAdmin{})), orgAdmin))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Transactions_x.csv")
	assert.Equal(t, "Id,Title\n", rr.Body.String())
}

func TestExportCSV_Uploaded(t *testing.T) {
	f := newFixture()
	url := "https://bucket.s3/exports/x.csv"
	f.info.On("ExportToCSV", mock.Anything, orgAdmin, mock.Anything).
		Return(&domain.OpportunityExport{FileName: "x.csv", URL: &url}, nil).Once()

	rr := f.serve(withActor(httptest.NewRequest(http.MethodPost, "/v1/opportunities/search/admin/csv",
		jsonBody(t, domain.OpportunitySearchFilterAdmin{})), orgAdmin))
	require.Equal(t, http.StatusOK, rr.Code)
	var env ExportEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, url, env.URL)
}

func TestHealth_Ready(t *testing.T) {
	h := NewHealthHandler(map[string]Check{"postgres": func(context.Context) error { return errors.New("down") }})
	r := chi.NewRouter()
	r.Get("/v1/health-check/{action}", h.Ping)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/other", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
