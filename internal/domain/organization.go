package domain

// OrganizationStatus is the approval state of an organization.
type OrganizationStatus string

const (
	OrganizationStatusInactive OrganizationStatus = "Inactive"
	OrganizationStatusActive   OrganizationStatus = "Active"
	OrganizationStatusDeclined OrganizationStatus = "Declined"
	OrganizationStatusDeleted  OrganizationStatus = "Deleted"
)

type Organization struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Status               OrganizationStatus `json:"status"`
	LogoKey              *string            `json:"-"`
	LogoURL              *string            `json:"logo_url"`
	ZltoRewardPool       *float64           `json:"zlto_reward_pool"`
	ZltoRewardCumulative *float64           `json:"zlto_reward_cumulative"`
	YomaRewardPool       *float64           `json:"yoma_reward_pool"`
	YomaRewardCumulative *float64           `json:"yoma_reward_cumulative"`
}

// ZltoRewardBalance is pool minus cumulative, nil without a pool.
func (o *Organization) ZltoRewardBalance() *float64 {
	return balance(o.ZltoRewardPool, o.ZltoRewardCumulative)
}

// YomaRewardBalance is pool minus cumulative, nil without a pool.
func (o *Organization) YomaRewardBalance() *float64 {
	return balance(o.YomaRewardPool, o.YomaRewardCumulative)
}

// OrganizationInfo is the search-criteria view of an organization.
type OrganizationInfo struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url"`
}

// UserInfo identifies an email recipient.
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func balance(pool, cumulative *float64) *float64 {
	if pool == nil {
		return nil
	}
	b := *pool
	if cumulative != nil {
		b -= *cumulative
	}
	return &b
}
