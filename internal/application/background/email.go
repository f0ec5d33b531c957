package background

import (
	"context"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/yoma-opportunity/internal/domain"
)

type adminGroup struct {
	recipient domain.EmailRecipient
	items     []domain.EmailOpportunityExpirationItem
}

// sendGrouped sends one email per organization admin listing every
// opportunity of the page they administer. Admins are keyed by email, so a
// person spanning several organizations still gets a single email. Failures
// are logged per recipient and never abort the job.
func (s *service) sendGrouped(ctx context.Context, items []domain.Opportunity, emailType domain.EmailType) {
	log := s.log.WithField("email_type", emailType)

	groups := treemap.NewWithStringComparator()
	admins := make(map[string][]domain.UserInfo)
	for i := range items {
		o := &items[i]
		list, ok := admins[o.OrganizationID]
		if !ok {
			var err error
			list, err = s.orgs.ListAdmins(ctx, o.OrganizationID)
			if err != nil {
				log.WithError(err).WithField("organization_id", o.OrganizationID).Error("list organization admins")
				continue
			}
			admins[o.OrganizationID] = list
		}
		for _, a := range list {
			key := strings.ToLower(strings.TrimSpace(a.Email))
			if key == "" {
				continue
			}
			var g *adminGroup
			if v, found := groups.Get(key); found {
				g = v.(*adminGroup)
			} else {
				g = &adminGroup{recipient: domain.EmailRecipient{Email: a.Email, DisplayName: a.DisplayName}}
				groups.Put(key, g)
			}
			g.items = append(g.items, domain.EmailOpportunityExpirationItem{
				Title:     o.Title,
				DateStart: o.DateStart,
				DateEnd:   o.DateEnd,
				URL:       domain.OpportunityURL(s.appBaseURL, o.ID),
			})
		}
	}

	it := groups.Iterator()
	for it.Next() {
		g := it.Value().(*adminGroup)
		data := domain.EmailOpportunityExpiration{
			WithinNextDays: s.opts.ExpirationNotificationIntervalDays,
			Opportunities:  g.items,
		}
		s.limiter.Take()
		if err := s.email.Send(ctx, emailType, []domain.EmailRecipient{g.recipient}, data); err != nil {
			log.WithError(err).WithField("recipient", g.recipient.Email).Error("send opportunity email")
			continue
		}
		log.WithField("recipient", g.recipient.Email).WithField("opportunities", len(g.items)).Info("opportunity email sent")
	}
}
