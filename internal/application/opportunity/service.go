package opportunity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/pkg/logger"
)

type Service interface {
	GetByID(ctx context.Context, actor domain.Actor, id string, includeChildren bool) (*domain.Opportunity, error)
	// GetByTitle returns nil when no opportunity carries the title.
	GetByTitle(ctx context.Context, title string, includeChildren bool) (*domain.Opportunity, error)
	Contains(ctx context.Context, value string, includeChildren bool) ([]domain.Opportunity, error)
	Search(ctx context.Context, actor domain.Actor, filter domain.OpportunitySearchFilterAdmin) (*domain.OpportunitySearchResults, error)

	Create(ctx context.Context, actor domain.Actor, req domain.OpportunityRequestCreate) (*domain.Opportunity, error)
	Update(ctx context.Context, actor domain.Actor, req domain.OpportunityRequestUpdate) (*domain.Opportunity, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, id string, status domain.Status) (*domain.Opportunity, error)
	AllocateRewards(ctx context.Context, actor domain.Actor, id string) (*domain.OpportunityAllocateRewardResponse, error)
	UpdateFeatured(ctx context.Context, actor domain.Actor, id string, featured bool) (*domain.Opportunity, error)
	UpdateHidden(ctx context.Context, actor domain.Actor, id string, hidden bool) (*domain.Opportunity, error)

	// AssignLookups links categories, countries, languages or skills.
	AssignLookups(ctx context.Context, actor domain.Actor, id string, kind domain.AssociationKind, ids []string) (*domain.Opportunity, error)
	RemoveLookups(ctx context.Context, actor domain.Actor, id string, kind domain.AssociationKind, ids []string) (*domain.Opportunity, error)
	AssignVerificationTypes(ctx context.Context, actor domain.Actor, id string, types []domain.OpportunityRequestVerificationType) (*domain.Opportunity, error)
	RemoveVerificationTypes(ctx context.Context, actor domain.Actor, id string, types []domain.VerificationType) (*domain.Opportunity, error)

	ListSearchCriteriaCategories(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error)
	ListSearchCriteriaCountries(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error)
	ListSearchCriteriaLanguages(ctx context.Context, states []domain.PublishedState) ([]domain.CriteriaCount, error)
	ListSearchCriteriaOrganizations(ctx context.Context, states []domain.PublishedState) ([]domain.OrganizationInfo, error)
	ListSearchCriteriaCommitmentIntervals(ctx context.Context, states []domain.PublishedState) ([]domain.OpportunitySearchCriteriaCommitmentInterval, error)
	ListSearchCriteriaZltoRewardRanges(ctx context.Context, states []domain.PublishedState) ([]domain.OpportunitySearchCriteriaZltoReward, error)
}

type opportunityStore interface {
	GetByID(ctx context.Context, id string, includeChildren bool) (*domain.Opportunity, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Opportunity, error)
	GetByTitle(ctx context.Context, title string, includeChildren bool) (*domain.Opportunity, error)
	Contains(ctx context.Context, value string, includeChildren bool) ([]domain.Opportunity, error)
	Search(ctx context.Context, q domain.OpportunityQuery) ([]domain.Opportunity, int, error)
	Create(ctx context.Context, o *domain.Opportunity) error
	Update(ctx context.Context, o *domain.Opportunity) error
	UsageByAssociation(ctx context.Context, kind domain.AssociationKind, q domain.OpportunityQuery) ([]domain.CriteriaUsage, error)
	UsageByOrganization(ctx context.Context, q domain.OpportunityQuery) ([]domain.CriteriaUsage, error)
	ListCommitments(ctx context.Context, q domain.OpportunityQuery) ([]domain.CommitmentUsage, error)
	ZltoRewardBounds(ctx context.Context, q domain.OpportunityQuery) (min, max *float64, err error)
}

type associationStore interface {
	Find(ctx context.Context, kind domain.AssociationKind, opportunityID, lookupID string) (*domain.Association, error)
	Create(ctx context.Context, kind domain.AssociationKind, a *domain.Association) error
	UpdateDescription(ctx context.Context, id string, description *string) error
	Delete(ctx context.Context, kind domain.AssociationKind, id string) error
}

type organizationStore interface {
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Organization, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Organization, error)
	Contains(ctx context.Context, value string) ([]string, error)
	IsAdmin(ctx context.Context, userID, organizationID string) (bool, error)
	AdminsOf(ctx context.Context, userID string) ([]string, error)
	UpdateRewardCumulative(ctx context.Context, id string, zlto, yoma *float64) error
}

type userStore interface {
	ListByRole(ctx context.Context, role string) ([]domain.UserInfo, error)
}

type lookups interface {
	GetByID(kind domain.LookupKind, id string) (*domain.Lookup, error)
	GetByName(kind domain.LookupKind, name string) (*domain.Lookup, error)
	List(kind domain.LookupKind) []domain.Lookup
	Contains(kind domain.LookupKind, value string) []domain.Lookup
}

type blobStore interface {
	URL(ctx context.Context, key string) (string, error)
}

type emailSender interface {
	Send(ctx context.Context, emailType domain.EmailType, recipients []domain.EmailRecipient, data interface{}) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event domain.OpportunityEvent) error
}

type transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type service struct {
	repo         opportunityStore
	associations associationStore
	orgs         organizationStore
	users        userStore
	lookups      lookups
	blobs        blobStore
	email        emailSender
	events       eventPublisher
	tx           transactor
	appBaseURL   string
	log          *logrus.Entry
	now          func() time.Time
}

type ServiceDeps struct {
	OpportunityRepo  opportunityStore
	AssociationRepo  associationStore
	OrganizationRepo organizationStore
	UserRepo         userStore
	Lookups          lookups
	Blobs            blobStore
	Email            emailSender
	Events           eventPublisher
	Transactor       transactor
	AppBaseURL       string
	Log              *logrus.Entry
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:         deps.OpportunityRepo,
		associations: deps.AssociationRepo,
		orgs:         deps.OrganizationRepo,
		users:        deps.UserRepo,
		lookups:      deps.Lookups,
		blobs:        deps.Blobs,
		email:        deps.Email,
		events:       deps.Events,
		tx:           deps.Transactor,
		appBaseURL:   deps.AppBaseURL,
		log:          logger.OrDiscard(deps.Log),
		now:          now,
	}
}

func (s *service) GetByID(ctx context.Context, actor domain.Actor, id string, includeChildren bool) (*domain.Opportunity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("opportunity id is required: %w", domain.ErrBadRequest)
	}
	o, err := s.repo.GetByID(ctx, id, includeChildren)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOrganizationAuthorization(ctx, actor, o.OrganizationID); err != nil {
		return nil, err
	}
	s.hydrate(ctx, o)
	return o, nil
}

func (s *service) GetByTitle(ctx context.Context, title string, includeChildren bool) (*domain.Opportunity, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", domain.ErrBadRequest)
	}
	o, err := s.repo.GetByTitle(ctx, title, includeChildren)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	s.hydrate(ctx, o)
	return o, nil
}

func (s *service) Contains(ctx context.Context, value string, includeChildren bool) ([]domain.Opportunity, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("value is required: %w", domain.ErrBadRequest)
	}
	items, err := s.repo.Contains(ctx, value, includeChildren)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.hydrate(ctx, &items[i])
	}
	return items, nil
}

// ensureOrganizationAuthorization fails unless the actor is a platform admin
// or administers the organization.
func (s *service) ensureOrganizationAuthorization(ctx context.Context, actor domain.Actor, organizationID string) error {
	if actor.IsAdmin() {
		return nil
	}
	ok, err := s.orgs.IsAdmin(ctx, actor.UserID, organizationID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not an administrator of organization '%s': %w", organizationID, domain.ErrForbidden)
	}
	return nil
}

// hydrate resolves lookup names from the in-memory reference data and sets
// the computed fields.
func (s *service) hydrate(ctx context.Context, o *domain.Opportunity) {
	o.Type = s.lookupName(domain.LookupOpportunityType, o.TypeID)
	o.Difficulty = s.lookupName(domain.LookupDifficulty, o.DifficultyID)
	o.Status = domain.Status(s.lookupName(domain.LookupOpportunityStatus, o.StatusID))
	if interval := s.lookupName(domain.LookupTimeInterval, o.CommitmentIntervalID); interval != "" {
		o.CommitmentInterval = domain.TimeIntervalOption(interval)
		o.CommitmentIntervalDescription = domain.CommitmentDescription(o.CommitmentIntervalCount, interval)
	}
	if o.EngagementTypeID != nil {
		if name := s.lookupName(domain.LookupEngagementType, *o.EngagementTypeID); name != "" {
			o.EngagementType = &name
		}
	}
	o.Categories = s.resolveLookups(domain.LookupCategory, o.Categories)
	o.Countries = s.resolveLookups(domain.LookupCountry, o.Countries)
	o.Languages = s.resolveLookups(domain.LookupLanguage, o.Languages)
	o.Skills = s.resolveLookups(domain.LookupSkill, o.Skills)
	for i := range o.VerificationTypes {
		s.resolveVerificationType(&o.VerificationTypes[i])
	}
	s.setComputed(ctx, o)
}

func (s *service) setComputed(ctx context.Context, o *domain.Opportunity) {
	o.SetPublished()
	o.SetRewardBalances()
	o.OrganizationLogoURL = nil
	if o.OrganizationLogoKey == nil || *o.OrganizationLogoKey == "" || s.blobs == nil {
		return
	}
	url, err := s.blobs.URL(ctx, *o.OrganizationLogoKey)
	if err != nil {
		s.log.WithError(err).WithField("organization_id", o.OrganizationID).Warn("resolve organization logo url")
		return
	}
	o.OrganizationLogoURL = &url
}

func (s *service) lookupName(kind domain.LookupKind, id string) string {
	if id == "" {
		return ""
	}
	l, err := s.lookups.GetByID(kind, id)
	if err != nil {
		s.log.WithField("kind", kind).WithField("id", id).Warn("unknown lookup id")
		return ""
	}
	return l.Name
}

func (s *service) resolveLookups(kind domain.LookupKind, items []domain.Lookup) []domain.Lookup {
	for i := range items {
		if l, err := s.lookups.GetByID(kind, items[i].ID); err == nil {
			items[i] = *l
		}
	}
	return items
}

func (s *service) resolveVerificationType(vt *domain.OpportunityVerificationType) {
	l, err := s.lookups.GetByID(domain.LookupVerificationType, vt.ID)
	if err != nil {
		return
	}
	vt.Type = domain.VerificationType(l.Name)
	vt.DisplayName = l.DisplayName
	if vt.Description == "" {
		vt.Description = l.Description
	}
}

// statusID maps a status to its reference id.
func (s *service) statusID(status domain.Status) (string, error) {
	l, err := s.lookups.GetByName(domain.LookupOpportunityStatus, string(status))
	if err != nil {
		return "", err
	}
	return l.ID, nil
}

func assertUpdatable(o *domain.Opportunity) error {
	if !domain.ContainsStatus(domain.StatusesUpdatable, o.Status) {
		return fmt.Errorf("opportunity can no longer be updated (current status '%s'). Required state '%s': %w",
			o.Status, domain.JoinStatuses(domain.StatusesUpdatable), domain.ErrValidation)
	}
	return nil
}

// sendPostedEmail notifies the platform admins that an opportunity went
// live. Failures are logged and never fail the caller.
func (s *service) sendPostedEmail(ctx context.Context, o *domain.Opportunity) {
	log := s.log.WithField("opportunity_id", o.ID)
	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		log.WithError(err).Error("list platform admins")
		return
	}
	recipients := make([]domain.EmailRecipient, 0, len(admins))
	for _, a := range admins {
		recipients = append(recipients, domain.EmailRecipient{Email: a.Email, DisplayName: a.DisplayName})
	}
	if len(recipients) == 0 {
		return
	}
	data := domain.EmailOpportunityPosted{
		Title:            o.Title,
		DateStart:        o.DateStart,
		DateEnd:          o.DateEnd,
		OrganizationName: o.OrganizationName,
		URL:              o.InfoURL(s.appBaseURL),
	}
	if err := s.email.Send(ctx, domain.EmailOpportunityPostedAdmin, recipients, data); err != nil {
		log.WithError(err).Error("send opportunity posted email")
		return
	}
	log.Info("opportunity posted email sent")
}

func (s *service) publish(ctx context.Context, t domain.EventType, o *domain.Opportunity) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, domain.NewOpportunityEvent(t, o)); err != nil {
		s.log.WithError(err).WithField("opportunity_id", o.ID).Error("publish opportunity event")
	}
}
