package domain

import (
	"math"
	"time"
)

// OpportunityInfo is the read model returned to participants and partners.
type OpportunityInfo struct {
	ID                            string                        `json:"id"`
	Title                         string                        `json:"title"`
	Description                   string                        `json:"description"`
	Type                          string                        `json:"type"`
	OrganizationID                string                        `json:"organization_id"`
	OrganizationName              string                        `json:"organization_name"`
	OrganizationLogoURL           *string                       `json:"organization_logo_url"`
	Summary                       *string                       `json:"summary"`
	Instructions                  *string                       `json:"instructions"`
	URL                           *string                       `json:"url"`
	ZltoReward                    *float64                      `json:"zlto_reward"`
	ZltoRewardCumulative          *float64                      `json:"zlto_reward_cumulative"`
	YomaReward                    *float64                      `json:"yoma_reward"`
	YomaRewardCumulative          *float64                      `json:"yoma_reward_cumulative"`
	VerificationEnabled           bool                          `json:"verification_enabled"`
	VerificationMethod            *VerificationMethod           `json:"verification_method"`
	Difficulty                    string                        `json:"difficulty"`
	CommitmentInterval            TimeIntervalOption            `json:"commitment_interval"`
	CommitmentIntervalCount       int                           `json:"commitment_interval_count"`
	CommitmentIntervalDescription string                        `json:"commitment_interval_description"`
	ParticipantLimit              *int                          `json:"participant_limit"`
	ParticipantCountCompleted     int                           `json:"participant_count_completed"`
	ParticipantCountPending       int                           `json:"participant_count_pending"`
	ParticipantCountTotal         int                           `json:"participant_count_total"`
	ParticipantLimitReached       bool                          `json:"participant_limit_reached"`
	StatusID                      string                        `json:"status_id"`
	Status                        Status                        `json:"status"`
	Keywords                      []string                      `json:"keywords"`
	DateStart                     time.Time                     `json:"date_start"`
	DateEnd                       *time.Time                    `json:"date_end"`
	Featured                      bool                          `json:"featured"`
	EngagementType                *string                       `json:"engagement_type"`
	ShareWithPartners             bool                          `json:"share_with_partners"`
	Hidden                        bool                          `json:"hidden"`
	Published                     bool                          `json:"published"`
	InfoURL                       string                        `json:"info_url"`
	IsCompletable                 bool                          `json:"is_completable"`
	NonCompletableReason          *string                       `json:"non_completable_reason"`
	Categories                    []Lookup                      `json:"categories"`
	Countries                     []Lookup                      `json:"countries"`
	Languages                     []Lookup                      `json:"languages"`
	Skills                        []Lookup                      `json:"skills"`
	VerificationTypes             []OpportunityVerificationType `json:"verification_types"`
}

// ToInfo maps the opportunity to its info view. Rewards are the amounts a
// participant can still expect given the organization and opportunity balances.
func (o *Opportunity) ToInfo(appBaseURL string, now time.Time) OpportunityInfo {
	completable, reason := o.Completable(now)
	info := OpportunityInfo{
		ID:                            o.ID,
		Title:                         o.Title,
		Description:                   o.Description,
		Type:                          o.Type,
		OrganizationID:                o.OrganizationID,
		OrganizationName:              o.OrganizationName,
		OrganizationLogoURL:           o.OrganizationLogoURL,
		Summary:                       o.Summary,
		Instructions:                  o.Instructions,
		URL:                           o.URL,
		ZltoReward:                    EstimatedReward(o.ZltoReward, o.OrganizationZltoRewardBalance, o.ZltoRewardBalance),
		ZltoRewardCumulative:          o.ZltoRewardCumulative,
		YomaReward:                    EstimatedReward(o.YomaReward, o.OrganizationYomaRewardBalance, o.YomaRewardBalance),
		YomaRewardCumulative:          o.YomaRewardCumulative,
		VerificationEnabled:           o.VerificationEnabled,
		VerificationMethod:            o.VerificationMethod,
		Difficulty:                    o.Difficulty,
		CommitmentInterval:            o.CommitmentInterval,
		CommitmentIntervalCount:       o.CommitmentIntervalCount,
		CommitmentIntervalDescription: o.CommitmentIntervalDescription,
		ParticipantLimit:              o.ParticipantLimit,
		ParticipantLimitReached:       o.ParticipantCount != nil && o.ParticipantLimit != nil && *o.ParticipantCount >= *o.ParticipantLimit,
		StatusID:                      o.StatusID,
		Status:                        o.Status,
		Keywords:                      o.Keywords,
		DateStart:                     o.DateStart,
		DateEnd:                       o.DateEnd,
		Featured:                      o.Featured != nil && *o.Featured,
		EngagementType:                o.EngagementType,
		ShareWithPartners:             o.ShareWithPartners != nil && *o.ShareWithPartners,
		Hidden:                        o.Hidden != nil && *o.Hidden,
		Published:                     o.Published,
		InfoURL:                       o.InfoURL(appBaseURL),
		IsCompletable:                 completable,
		Categories:                    o.Categories,
		Countries:                     o.Countries,
		Languages:                     o.Languages,
		Skills:                        o.Skills,
		VerificationTypes:             o.VerificationTypes,
	}
	if o.ParticipantCount != nil {
		info.ParticipantCountCompleted = *o.ParticipantCount
	}
	if !completable {
		info.NonCompletableReason = &reason
	}
	return info
}

// EstimatedReward clamps reward against the organization balance, returning
// zero once that is exhausted, and then against the opportunity balance.
func EstimatedReward(reward, organizationBalance, opportunityBalance *float64) *float64 {
	if reward == nil {
		return nil
	}
	r := *reward
	if organizationBalance != nil {
		r = math.Max(math.Min(r, *organizationBalance), 0)
		if r == 0 {
			return &r
		}
	}
	if opportunityBalance != nil {
		r = math.Max(math.Min(r, *opportunityBalance), 0)
	}
	return &r
}

// OpportunityExport is a rendered CSV search export. URL is set once the file
// has been uploaded.
type OpportunityExport struct {
	FileName string
	Bytes    []byte
	URL      *string
}
