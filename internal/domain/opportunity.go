package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// KeywordsSeparator joins keywords into their stored form.
	KeywordsSeparator = ","
	// KeywordsCombinedMaxLength bounds the joined keywords.
	KeywordsCombinedMaxLength = 500
)

type Opportunity struct {
	ID                            string                        `json:"id"`
	Title                         string                        `json:"title"`
	Description                   string                        `json:"description"`
	TypeID                        string                        `json:"type_id"`
	Type                          string                        `json:"type"`
	OrganizationID                string                        `json:"organization_id"`
	OrganizationName              string                        `json:"organization_name"`
	OrganizationLogoKey           *string                       `json:"-"`
	OrganizationLogoURL           *string                       `json:"organization_logo_url"`
	OrganizationStatus            OrganizationStatus            `json:"organization_status"`
	OrganizationZltoRewardBalance *float64                      `json:"-"`
	OrganizationYomaRewardBalance *float64                      `json:"-"`
	Summary                       *string                       `json:"summary"`
	Instructions                  *string                       `json:"instructions"`
	URL                           *string                       `json:"url"`
	ZltoReward                    *float64                      `json:"zlto_reward"`
	YomaReward                    *float64                      `json:"yoma_reward"`
	ZltoRewardPool                *float64                      `json:"zlto_reward_pool"`
	YomaRewardPool                *float64                      `json:"yoma_reward_pool"`
	ZltoRewardCumulative          *float64                      `json:"zlto_reward_cumulative"`
	YomaRewardCumulative          *float64                      `json:"yoma_reward_cumulative"`
	ZltoRewardBalance             *float64                      `json:"zlto_reward_balance"`
	YomaRewardBalance             *float64                      `json:"yoma_reward_balance"`
	VerificationEnabled           bool                          `json:"verification_enabled"`
	VerificationMethod            *VerificationMethod           `json:"verification_method"`
	DifficultyID                  string                        `json:"difficulty_id"`
	Difficulty                    string                        `json:"difficulty"`
	CommitmentIntervalID          string                        `json:"commitment_interval_id"`
	CommitmentInterval            TimeIntervalOption            `json:"commitment_interval"`
	CommitmentIntervalCount       int                           `json:"commitment_interval_count"`
	CommitmentIntervalDescription string                        `json:"commitment_interval_description"`
	ParticipantLimit              *int                          `json:"participant_limit"`
	ParticipantCount              *int                          `json:"participant_count"`
	StatusID                      string                        `json:"status_id"`
	Status                        Status                        `json:"status"`
	Keywords                      []string                      `json:"keywords"`
	DateStart                     time.Time                     `json:"date_start"`
	DateEnd                       *time.Time                    `json:"date_end"`
	CredentialIssuanceEnabled     bool                          `json:"credential_issuance_enabled"`
	SSISchemaName                 *string                       `json:"ssi_schema_name"`
	EngagementTypeID              *string                       `json:"engagement_type_id"`
	EngagementType                *string                       `json:"engagement_type"`
	Featured                      *bool                         `json:"featured"`
	ShareWithPartners             *bool                         `json:"share_with_partners"`
	Hidden                        *bool                         `json:"hidden"`
	Published                     bool                          `json:"published"`
	DateCreated                   time.Time                     `json:"date_created"`
	CreatedByUserID               string                        `json:"created_by_user_id"`
	DateModified                  time.Time                     `json:"date_modified"`
	ModifiedByUserID              string                        `json:"modified_by_user_id"`
	Categories                    []Lookup                      `json:"categories"`
	Countries                     []Lookup                      `json:"countries"`
	Languages                     []Lookup                      `json:"languages"`
	Skills                        []Lookup                      `json:"skills"`
	VerificationTypes             []OpportunityVerificationType `json:"verification_types"`
}

// Published reports whether an opportunity in status belonging to an
// organization in orgStatus is publicly visible.
func Published(status Status, orgStatus OrganizationStatus) bool {
	return status == StatusActive && orgStatus == OrganizationStatusActive
}

func (o *Opportunity) SetPublished() {
	o.Published = Published(o.Status, o.OrganizationStatus)
}

// SetRewardBalances recomputes the balances from pool and cumulative.
func (o *Opportunity) SetRewardBalances() {
	o.ZltoRewardBalance = balance(o.ZltoRewardPool, o.ZltoRewardCumulative)
	o.YomaRewardBalance = balance(o.YomaRewardPool, o.YomaRewardCumulative)
}

// TimeIntervalToDays converts the commitment to whole days, rounding up.
func (o *Opportunity) TimeIntervalToDays() (int, error) {
	switch o.CommitmentInterval {
	case TimeIntervalMinute:
		return int(math.Ceil(float64(o.CommitmentIntervalCount) / (60 * 24))), nil
	case TimeIntervalHour:
		return int(math.Ceil(float64(o.CommitmentIntervalCount) / 24)), nil
	case TimeIntervalDay:
		return o.CommitmentIntervalCount, nil
	case TimeIntervalWeek:
		return o.CommitmentIntervalCount * 7, nil
	case TimeIntervalMonth:
		return o.CommitmentIntervalCount * 30, nil
	}
	return 0, fmt.Errorf("time interval %q not supported: %w", o.CommitmentInterval, ErrBadRequest)
}

// PublishedOrExpired reports whether the opportunity may be shown to anonymous
// visitors, with the reason when it may not.
func (o *Opportunity) PublishedOrExpired() (bool, string) {
	if o.OrganizationStatus != OrganizationStatusActive {
		return false, fmt.Sprintf("opportunity with id '%s' belongs to an inactive organization", o.ID)
	}
	if o.Status != StatusActive && o.Status != StatusExpired {
		return false, fmt.Sprintf("opportunity with id '%s' has an invalid status. Expected status(es): '%s'",
			o.ID, JoinStatuses([]Status{StatusActive, StatusExpired}))
	}
	return true, ""
}

// Completable reports whether participants can currently submit the
// opportunity for verification.
func (o *Opportunity) Completable(now time.Time) (bool, string) {
	published := Published(o.Status, o.OrganizationStatus)
	canSend := o.Status == StatusExpired || (published && !o.DateStart.After(now))
	if canSend && o.VerificationEnabled {
		return true, ""
	}

	var reasons []string
	if !published {
		reasons = append(reasons, "it has not been published")
	}
	if o.Status != StatusActive && o.Status != StatusExpired {
		reasons = append(reasons, fmt.Sprintf("its status is '%s'", o.Status))
	}
	if o.DateStart.After(now) {
		reasons = append(reasons, fmt.Sprintf("it has not yet started (start date: %s)", o.DateStart.Format("2006-01-02")))
	}
	if !o.VerificationEnabled {
		reasons = append(reasons, "verification is not enabled")
	}
	return false, fmt.Sprintf("Opportunity '%s' can not be completed, because %s", o.Title, strings.Join(reasons, ", "))
}

// InfoURL is the public page of the opportunity.
func (o *Opportunity) InfoURL(appBaseURL string) string {
	return OpportunityURL(appBaseURL, o.ID)
}

// OpportunityURL builds {appBaseURL}/opportunities/{id}.
func OpportunityURL(appBaseURL, id string) string {
	return strings.TrimRight(appBaseURL, "/") + "/opportunities/" + id
}

// CommitmentDescription renders "N Interval" with a plural suffix when N > 1.
func CommitmentDescription(count int, interval string) string {
	if count > 1 {
		return fmt.Sprintf("%d %ss", count, interval)
	}
	return fmt.Sprintf("%d %s", count, interval)
}

// OpportunityRequestVerificationType attaches a verification type with an
// optional description override.
type OpportunityRequestVerificationType struct {
	Type        VerificationType `json:"type" validate:"required"`
	Description *string          `json:"description"`
}

// OpportunityRequestCreate carries the fields accepted on create.
type OpportunityRequestCreate struct {
	Title                     string                               `json:"title" validate:"required,min=1,max=150"`
	Description               string                               `json:"description" validate:"required"`
	TypeID                    string                               `json:"type_id" validate:"required"`
	OrganizationID            string                               `json:"organization_id" validate:"required"`
	Summary                   *string                              `json:"summary" validate:"required,min=1,max=150"`
	Instructions              *string                              `json:"instructions"`
	URL                       *string                              `json:"url" validate:"omitempty,max=2048,url"`
	ZltoReward                *float64                             `json:"zlto_reward" validate:"omitempty,gt=0,lte=2000"`
	YomaReward                *float64                             `json:"yoma_reward" validate:"omitempty,gt=0,lte=2000"`
	ZltoRewardPool            *float64                             `json:"zlto_reward_pool" validate:"omitempty,gt=0,lte=10000000"`
	YomaRewardPool            *float64                             `json:"yoma_reward_pool" validate:"omitempty,gt=0,lte=10000000"`
	VerificationEnabled       bool                                 `json:"verification_enabled"`
	VerificationMethod        *VerificationMethod                  `json:"verification_method" validate:"omitempty,oneof=Manual Automatic"`
	DifficultyID              string                               `json:"difficulty_id" validate:"required"`
	CommitmentIntervalID      string                               `json:"commitment_interval_id" validate:"required"`
	CommitmentIntervalCount   int                                  `json:"commitment_interval_count" validate:"gt=0"`
	ParticipantLimit          *int                                 `json:"participant_limit" validate:"omitempty,gt=0"`
	Keywords                  []string                             `json:"keywords" validate:"omitempty,dive,required,nocomma"`
	DateStart                 time.Time                            `json:"date_start" validate:"required"`
	DateEnd                   *time.Time                           `json:"date_end"`
	CredentialIssuanceEnabled bool                                 `json:"credential_issuance_enabled"`
	SSISchemaName             *string                              `json:"ssi_schema_name"`
	EngagementTypeID          *string                              `json:"engagement_type_id"`
	ShareWithPartners         *bool                                `json:"share_with_partners"`
	Hidden                    *bool                                `json:"hidden"`
	Categories                []string                             `json:"categories" validate:"required,min=1"`
	Countries                 []string                             `json:"countries" validate:"required,min=1"`
	Languages                 []string                             `json:"languages" validate:"required,min=1"`
	Skills                    []string                             `json:"skills"`
	VerificationTypes         []OpportunityRequestVerificationType `json:"verification_types" validate:"dive"`
	PostAsActive              bool                                 `json:"post_as_active"`
}

// OpportunityRequestUpdate carries the fields accepted on update.
type OpportunityRequestUpdate struct {
	ID string `json:"id" validate:"required"`
	OpportunityRequestCreate
}

// OpportunityAllocateRewardResponse reports the rewards granted to a participant.
type OpportunityAllocateRewardResponse struct {
	ZltoReward             *float64 `json:"zlto_reward"`
	ZltoRewardReduced      *bool    `json:"zlto_reward_reduced"`
	ZltoRewardPoolDepleted *bool    `json:"zlto_reward_pool_depleted"`
	YomaReward             *float64 `json:"yoma_reward"`
	YomaRewardReduced      *bool    `json:"yoma_reward_reduced"`
	YomaRewardPoolDepleted *bool    `json:"yoma_reward_pool_depleted"`
}
