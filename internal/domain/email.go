package domain

import "time"

// EmailType selects the template an email is rendered with.
type EmailType string

const (
	EmailOpportunityExpirationExpired        EmailType = "Opportunity_Expiration_Expired"
	EmailOpportunityExpirationWithinNextDays EmailType = "Opportunity_Expiration_WithinNextDays"
	EmailOpportunityPostedAdmin              EmailType = "Opportunity_Posted_Admin"
)

// EmailRecipient is a single addressee.
type EmailRecipient struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// EmailOpportunityExpirationItem lists one opportunity in an expiration email.
type EmailOpportunityExpirationItem struct {
	Title     string     `json:"title"`
	DateStart time.Time  `json:"date_start"`
	DateEnd   *time.Time `json:"date_end"`
	URL       string     `json:"url"`
}

// EmailOpportunityExpiration is the payload of both expiration emails.
type EmailOpportunityExpiration struct {
	WithinNextDays int                              `json:"within_next_days"`
	Opportunities  []EmailOpportunityExpirationItem `json:"opportunities"`
}

// EmailOpportunityPosted is the payload sent to platform admins when an
// opportunity goes live.
type EmailOpportunityPosted struct {
	Title            string     `json:"title"`
	DateStart        time.Time  `json:"date_start"`
	DateEnd          *time.Time `json:"date_end"`
	OrganizationName string     `json:"organization_name"`
	URL              string     `json:"url"`
}
