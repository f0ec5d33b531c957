package domain

// Status is the lifecycle state of an opportunity.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusExpired  Status = "Expired"
	StatusDeleted  Status = "Deleted"
)

// PublishedState is the public visibility window of an opportunity.
type PublishedState string

const (
	PublishedStateNotStarted PublishedState = "NotStarted"
	PublishedStateActive     PublishedState = "Active"
	PublishedStateExpired    PublishedState = "Expired"
)

// Allowed source states per operation.
var (
	StatusesUpdatable     = []Status{StatusActive, StatusInactive}
	StatusesActivatable   = []Status{StatusInactive}
	StatusesCanDelete     = []Status{StatusActive, StatusInactive}
	StatusesDeActivatable = []Status{StatusActive, StatusExpired}
	StatusesExpirable     = []Status{StatusActive, StatusInactive}
	StatusesDeletion      = []Status{StatusInactive, StatusExpired}
)

// DefaultPublishedStates applies when a public search does not name any.
var DefaultPublishedStates = []PublishedState{PublishedStateNotStarted, PublishedStateActive}

// ContainsStatus reports whether s is in list.
func ContainsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// JoinStatuses renders a list as "A / B".
func JoinStatuses(list []Status) string {
	out := ""
	for i, s := range list {
		if i > 0 {
			out += " / "
		}
		out += string(s)
	}
	return out
}
