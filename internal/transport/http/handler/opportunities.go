package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yoma-opportunity/internal/application/opportunity"
	"github.com/yoma-opportunity/internal/application/opportunityinfo"
	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/transport/http/middleware"
)

// OpportunityHandler serves the opportunity management and search endpoints.
type OpportunityHandler struct {
	svc  opportunity.Service
	info opportunityinfo.Service
}

func NewOpportunityHandler(svc opportunity.Service, info opportunityinfo.Service) *OpportunityHandler {
	return &OpportunityHandler{svc: svc, info: info}
}

func actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return a, ok
}

func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	o, err := h.svc.GetByID(r.Context(), a, chi.URLParam(r, "id"), true)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OpportunityHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	info, err := h.info.GetByID(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetPublicInfo is anonymous and only exposes published or expired opportunities.
func (h *OpportunityHandler) GetPublicInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.info.GetPublishedOrExpiredByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *OpportunityHandler) Search(w http.ResponseWriter, r *http.Request) {
	var filter domain.OpportunitySearchFilter
	if !decodeJSON(w, r, &filter) {
		return
	}
	res, err := h.info.Search(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OpportunityHandler) SearchAdmin(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var filter domain.OpportunitySearchFilterAdmin
	if !decodeJSON(w, r, &filter) {
		return
	}
	res, err := h.info.SearchAdmin(r.Context(), a, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExportCSV returns the download URL when the export was uploaded, else the file itself.
func (h *OpportunityHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var filter domain.OpportunitySearchFilterAdmin
	if !decodeJSON(w, r, &filter) {
		return
	}
	out, err := h.info.ExportToCSV(r.Context(), a, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if out.URL != nil {
		writeJSON(w, http.StatusOK, ExportEnvelope{FileName: out.FileName, URL: *out.URL})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Bytes)
}

// SearchCriteria lists the filter options of kind used by published
// opportunities. published_states may repeat or be comma separated.
func (h *OpportunityHandler) SearchCriteria(w http.ResponseWriter, r *http.Request) {
	states := parsePublishedStates(r.URL.Query()["published_states"])
	ctx := r.Context()

	var (
		res interface{}
		err error
	)
	switch chi.URLParam(r, "kind") {
	case "categories":
		res, err = h.svc.ListSearchCriteriaCategories(ctx, states)
	case "countries":
		res, err = h.svc.ListSearchCriteriaCountries(ctx, states)
	case "languages":
		res, err = h.svc.ListSearchCriteriaLanguages(ctx, states)
	case "organizations":
		res, err = h.svc.ListSearchCriteriaOrganizations(ctx, states)
	case "commitment-intervals":
		res, err = h.svc.ListSearchCriteriaCommitmentIntervals(ctx, states)
	case "zlto-reward-ranges":
		res, err = h.svc.ListSearchCriteriaZltoRewardRanges(ctx, states)
	default:
		writeError(w, http.StatusNotFound, "unknown search criteria")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OpportunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req domain.OpportunityRequestCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.svc.Create(r.Context(), a, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req domain.OpportunityRequestUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.svc.Update(r.Context(), a, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// PatchSegment serves PATCH /{id}/{segment}, where segment is either an
// association kind or a target status.
func (h *OpportunityHandler) PatchSegment(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseAssociationKind(chi.URLParam(r, "segment")); ok {
		h.AssignAssociations(w, r)
		return
	}
	h.UpdateStatus(w, r)
}

func (h *OpportunityHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	status, ok := parseStatus(chi.URLParam(r, "segment"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	o, err := h.svc.UpdateStatus(r.Context(), a, chi.URLParam(r, "id"), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OpportunityHandler) AllocateRewards(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	res, err := h.svc.AllocateRewards(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OpportunityHandler) UpdateFeatured(w http.ResponseWriter, r *http.Request) {
	h.updateFlag(w, r, "featured", h.svc.UpdateFeatured)
}

func (h *OpportunityHandler) UpdateHidden(w http.ResponseWriter, r *http.Request) {
	h.updateFlag(w, r, "hidden", h.svc.UpdateHidden)
}

func (h *OpportunityHandler) updateFlag(w http.ResponseWriter, r *http.Request, name string,
	update func(ctx context.Context, a domain.Actor, id string, v bool) (*domain.Opportunity, error)) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "query parameter '"+name+"' must be a boolean")
		return
	}
	o, err := update(r.Context(), a, chi.URLParam(r, "id"), v)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// AssignAssociations links the lookups in the body. Verification types take
// objects with an optional description, every other kind takes lookup ids.
func (h *OpportunityHandler) AssignAssociations(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	kind, ok := parseAssociationKind(chi.URLParam(r, "segment"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown association")
		return
	}
	id := chi.URLParam(r, "id")

	var (
		o   *domain.Opportunity
		err error
	)
	if kind == domain.AssociationVerificationTypes {
		var types []domain.OpportunityRequestVerificationType
		if !decodeJSON(w, r, &types) {
			return
		}
		o, err = h.svc.AssignVerificationTypes(r.Context(), a, id, types)
	} else {
		var ids []string
		if !decodeJSON(w, r, &ids) {
			return
		}
		o, err = h.svc.AssignLookups(r.Context(), a, id, kind, ids)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OpportunityHandler) RemoveAssociations(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	kind, ok := parseAssociationKind(chi.URLParam(r, "segment"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown association")
		return
	}
	id := chi.URLParam(r, "id")

	var (
		o   *domain.Opportunity
		err error
	)
	if kind == domain.AssociationVerificationTypes {
		var types []domain.VerificationType
		if !decodeJSON(w, r, &types) {
			return
		}
		o, err = h.svc.RemoveVerificationTypes(r.Context(), a, id, types)
	} else {
		var ids []string
		if !decodeJSON(w, r, &ids) {
			return
		}
		o, err = h.svc.RemoveLookups(r.Context(), a, id, kind, ids)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func parseStatus(v string) (domain.Status, bool) {
	for _, s := range []domain.Status{domain.StatusActive, domain.StatusInactive, domain.StatusExpired, domain.StatusDeleted} {
		if strings.EqualFold(v, string(s)) {
			return s, true
		}
	}
	return "", false
}

func parseAssociationKind(v string) (domain.AssociationKind, bool) {
	for _, k := range domain.AssociationKinds {
		if v == string(k) {
			return k, true
		}
	}
	return "", false
}

func parsePublishedStates(values []string) []domain.PublishedState {
	var out []domain.PublishedState
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, domain.PublishedState(part))
			}
		}
	}
	return out
}
