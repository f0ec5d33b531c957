package domain

import "time"

// FilterOrdering is the direction of an order instruction.
type FilterOrdering string

const (
	OrderingAscending  FilterOrdering = "Ascending"
	OrderingDescending FilterOrdering = "Descending"
)

// Sortable opportunity fields.
const (
	OrderFieldDateStart    = "date_start"
	OrderFieldDateEnd      = "date_end"
	OrderFieldDateCreated  = "date_created"
	OrderFieldDateModified = "date_modified"
	OrderFieldTitle        = "title"
	OrderFieldID           = "id"
)

// OrderInstruction sorts search results by one field.
type OrderInstruction struct {
	Field     string         `json:"field" validate:"required,oneof=date_start date_end date_created date_modified title id"`
	Direction FilterOrdering `json:"direction" validate:"required,oneof=Ascending Descending"`
}

// FilterCommitmentIntervalMax bounds the commitment of matched opportunities.
type FilterCommitmentIntervalMax struct {
	ID    string `json:"id" validate:"required"`
	Count int16  `json:"count" validate:"gt=0"`
}

// FilterCommitmentInterval selects commitment options ("count|intervalId")
// or a maximum commitment.
type FilterCommitmentInterval struct {
	Options  []string                     `json:"options"`
	Interval *FilterCommitmentIntervalMax `json:"interval"`
}

// FilterZltoReward selects reward ranges ("from|to") or any reward.
type FilterZltoReward struct {
	Ranges    []string `json:"ranges"`
	HasReward *bool    `json:"has_reward"`
}

// OpportunitySearchFilterAdmin is the full search filter available to
// administrators and organization administrators.
type OpportunitySearchFilterAdmin struct {
	PageNumber         *int                      `json:"page_number" validate:"omitempty,gt=0"`
	PageSize           *int                      `json:"page_size" validate:"omitempty,gt=0,lte=1000"`
	Types              []string                  `json:"types"`
	Categories         []string                  `json:"categories"`
	Languages          []string                  `json:"languages"`
	Countries          []string                  `json:"countries"`
	Organizations      []string                  `json:"organizations"`
	EngagementTypes    []string                  `json:"engagement_types"`
	CommitmentInterval *FilterCommitmentInterval `json:"commitment_interval"`
	ZltoReward         *FilterZltoReward         `json:"zlto_reward"`
	Opportunities      []string                  `json:"opportunities"`
	Statuses           []Status                  `json:"statuses"`
	PublishedStates    []PublishedState          `json:"published_states"`
	Published          bool                      `json:"published"`
	IncludeExpired     bool                      `json:"include_expired"`
	StartDate          *time.Time                `json:"start_date"`
	EndDate            *time.Time                `json:"end_date"`
	Featured           *bool                     `json:"featured"`
	ShareWithPartners  *bool                     `json:"share_with_partners"`
	Hidden             *bool                     `json:"hidden"`
	ValueContains      *string                   `json:"value_contains"`
	TotalCountOnly     bool                      `json:"total_count_only"`
	OrderInstructions  []OrderInstruction        `json:"order_instructions" validate:"dive"`

	// OrderByOpportunitiesRank sorts by the position in Opportunities ahead of
	// the order instructions. Set internally for most viewed and completed.
	OrderByOpportunitiesRank bool `json:"-"`
}

// Paginated reports whether both page number and size are set.
func (f *OpportunitySearchFilterAdmin) Paginated() bool {
	return f.PageNumber != nil && f.PageSize != nil
}

// OpportunitySearchFilter is the public search filter.
type OpportunitySearchFilter struct {
	PageNumber         *int                      `json:"page_number" validate:"omitempty,gt=0"`
	PageSize           *int                      `json:"page_size" validate:"omitempty,gt=0,lte=1000"`
	Types              []string                  `json:"types"`
	Categories         []string                  `json:"categories"`
	Languages          []string                  `json:"languages"`
	Countries          []string                  `json:"countries"`
	Organizations      []string                  `json:"organizations"`
	EngagementTypes    []string                  `json:"engagement_types"`
	CommitmentInterval *FilterCommitmentInterval `json:"commitment_interval"`
	ZltoReward         *FilterZltoReward         `json:"zlto_reward"`
	PublishedStates    []PublishedState          `json:"published_states"`
	MostViewed         *bool                     `json:"most_viewed"`
	MostCompleted      *bool                     `json:"most_completed"`
	Featured           *bool                     `json:"featured"`
	ValueContains      *string                   `json:"value_contains"`
}

// CommitmentOption is a parsed "count|intervalId" pair.
type CommitmentOption struct {
	Count      int16
	IntervalID string
}

// ZltoRange is a parsed "from|to" pair.
type ZltoRange struct {
	From float64
	To   float64
}

// CommitmentUnit maps an interval id to its length in minutes.
type CommitmentUnit struct {
	IntervalID string
	Minutes    int64
}

// OpportunityQuery is a resolved search filter: every name is mapped to an
// id and every encoded option parsed. Nil slices are not applied; a non-nil
// empty Opportunities or PublishedStates matches nothing.
type OpportunityQuery struct {
	Types                []string
	Categories           []string
	Languages            []string
	Countries            []string
	Organizations        []string
	EngagementTypes      []string
	CommitmentOptions    []CommitmentOption
	CommitmentUnits      []CommitmentUnit
	CommitmentMaxMinutes *int64
	ZltoRanges           []ZltoRange
	HasZltoReward        bool
	Opportunities        []string
	StatusIDs            []string
	Published            bool
	IncludeExpired       bool
	PublishedStates      []PublishedState
	ActiveStatusID       string
	ExpiredStatusID      string
	StartDate            *time.Time
	EndDate              *time.Time
	Featured             *bool
	ShareWithPartners    bool
	Hidden               *bool
	ValueContains        string
	MatchOrganizationIDs []string
	MatchTypeIDs         []string
	MatchCategoryIDs     []string
	MatchSkillIDs        []string
	OrderByIDs           []string
	OrderInstructions    []OrderInstruction
	Limit                int
	Offset               int
	CountOnly            bool
	Now                  time.Time
}

// OpportunitySearchResults is a page of opportunities.
type OpportunitySearchResults struct {
	TotalCount *int          `json:"total_count"`
	Items      []Opportunity `json:"items"`
}

// OpportunitySearchResultsInfo is a page of opportunity info views.
type OpportunitySearchResultsInfo struct {
	TotalCount *int              `json:"total_count"`
	Items      []OpportunityInfo `json:"items"`
}

// OpportunitySearchCriteriaCommitmentInterval is one selectable commitment option.
type OpportunitySearchCriteriaCommitmentInterval struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OpportunitySearchCriteriaZltoReward is one selectable reward range.
type OpportunitySearchCriteriaZltoReward struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CriteriaCount is a lookup used by published opportunities with its usage count.
type CriteriaCount struct {
	Lookup
	Count int `json:"count"`
}

// CommitmentUsage is a distinct commitment pair in use.
type CommitmentUsage struct {
	IntervalID string
	Count      int
}
