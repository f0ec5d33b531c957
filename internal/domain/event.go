package domain

import "time"

// EventType is the kind of change an opportunity event reports.
type EventType string

const (
	EventCreate EventType = "Create"
	EventUpdate EventType = "Update"
	EventDelete EventType = "Delete"
)

// OpportunityEvent is published after an opportunity changes.
type OpportunityEvent struct {
	Type           EventType `json:"type"`
	OpportunityID  string    `json:"opportunity_id"`
	OrganizationID string    `json:"organization_id"`
	Status         Status    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewOpportunityEvent builds an event for o.
func NewOpportunityEvent(t EventType, o *Opportunity) OpportunityEvent {
	return OpportunityEvent{
		Type:           t,
		OpportunityID:  o.ID,
		OrganizationID: o.OrganizationID,
		Status:         o.Status,
		OccurredAt:     time.Now().UTC(),
	}
}
