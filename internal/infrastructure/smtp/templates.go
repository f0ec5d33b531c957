package smtp

import "github.com/yoma-opportunity/internal/domain"

type source struct {
	subject string
	body    string
}

var sources = map[domain.EmailType]source{
	domain.EmailOpportunityExpirationExpired: {
		subject: "Your opportunities have expired",
		body: `Hi {{.Recipient.DisplayName}},

The following opportunities have reached their end date and are now expired:
{{range .Data.Opportunities}}
- {{.Title}} ({{date .DateStart}} to {{enddate .DateEnd}})
  {{.URL}}
{{end}}
The Yoma team
`,
	},
	domain.EmailOpportunityExpirationWithinNextDays: {
		subject: "Your opportunities expire within the next {{.Data.WithinNextDays}} days",
		body: `Hi {{.Recipient.DisplayName}},

The following opportunities will expire within the next {{.Data.WithinNextDays}} days:
{{range .Data.Opportunities}}
- {{.Title}} ({{date .DateStart}} to {{enddate .DateEnd}})
  {{.URL}}
{{end}}
Extend the end date to keep them open for participants.

The Yoma team
`,
	},
	domain.EmailOpportunityPostedAdmin: {
		subject: "New opportunity posted: {{.Data.Title}}",
		body: `Hi {{.Recipient.DisplayName}},

{{.Data.OrganizationName}} has posted a new opportunity.

{{.Data.Title}} ({{date .Data.DateStart}} to {{enddate .Data.DateEnd}})
{{.Data.URL}}

The Yoma team
`,
	},
}
