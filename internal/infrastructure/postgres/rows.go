package postgres

import (
	"strings"
	"time"

	"github.com/yoma-opportunity/internal/domain"
)

type organizationRow struct {
	ID                   string `gorm:"primaryKey;type:varchar(26)"`
	Name                 string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Status               string `gorm:"type:varchar(20);not null;index"`
	LogoKey              *string
	ZltoRewardPool       *float64  `gorm:"type:numeric(12,2)"`
	ZltoRewardCumulative *float64  `gorm:"type:numeric(12,2)"`
	YomaRewardPool       *float64  `gorm:"type:numeric(12,2)"`
	YomaRewardCumulative *float64  `gorm:"type:numeric(12,2)"`
	DateCreated          time.Time `gorm:"autoCreateTime"`
	DateModified         time.Time `gorm:"autoUpdateTime"`
}

func (organizationRow) TableName() string { return "organizations" }

func (r *organizationRow) toDomain() *domain.Organization {
	return &domain.Organization{
		ID:                   r.ID,
		Name:                 r.Name,
		Status:               domain.OrganizationStatus(r.Status),
		LogoKey:              r.LogoKey,
		ZltoRewardPool:       r.ZltoRewardPool,
		ZltoRewardCumulative: r.ZltoRewardCumulative,
		YomaRewardPool:       r.YomaRewardPool,
		YomaRewardCumulative: r.YomaRewardCumulative,
	}
}

type organizationAdminRow struct {
	OrganizationID string    `gorm:"primaryKey;type:varchar(26)"`
	UserID         string    `gorm:"primaryKey;type:varchar(26);index"`
	DateCreated    time.Time `gorm:"autoCreateTime"`
}

func (organizationAdminRow) TableName() string { return "organization_admins" }

type userRow struct {
	ID          string    `gorm:"primaryKey;type:varchar(26)"`
	Email       string    `gorm:"type:varchar(320);not null;uniqueIndex"`
	DisplayName string    `gorm:"type:varchar(255)"`
	Role        string    `gorm:"type:varchar(30);not null;index"`
	DateCreated time.Time `gorm:"autoCreateTime"`
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toDomain() domain.UserInfo {
	return domain.UserInfo{ID: r.ID, Email: r.Email, DisplayName: r.DisplayName}
}

type opportunityRow struct {
	ID                        string   `gorm:"primaryKey;type:varchar(26)"`
	Title                     string   `gorm:"type:varchar(150);not null;uniqueIndex:ux_opportunities_title,expression:lower(title)"`
	Description               string   `gorm:"type:text;not null"`
	TypeID                    string   `gorm:"type:varchar(26);not null;index"`
	OrganizationID            string   `gorm:"type:varchar(26);not null;index"`
	Summary                   *string  `gorm:"type:varchar(150)"`
	Instructions              *string  `gorm:"type:text"`
	URL                       *string  `gorm:"type:varchar(2048)"`
	ZltoReward                *float64 `gorm:"type:numeric(8,2)"`
	YomaReward                *float64 `gorm:"type:numeric(8,2)"`
	ZltoRewardPool            *float64 `gorm:"type:numeric(12,2)"`
	YomaRewardPool            *float64 `gorm:"type:numeric(12,2)"`
	ZltoRewardCumulative      *float64 `gorm:"type:numeric(12,2)"`
	YomaRewardCumulative      *float64 `gorm:"type:numeric(12,2)"`
	VerificationEnabled       bool
	VerificationMethod        *string `gorm:"type:varchar(20)"`
	DifficultyID              string  `gorm:"type:varchar(26);not null"`
	CommitmentIntervalID      string  `gorm:"type:varchar(26);not null"`
	CommitmentIntervalCount   int16   `gorm:"not null"`
	ParticipantLimit          *int
	ParticipantCount          *int
	StatusID                  string  `gorm:"type:varchar(26);not null;index"`
	Keywords                  *string `gorm:"type:varchar(500)"`
	DateStart                 time.Time
	DateEnd                   *time.Time `gorm:"index"`
	CredentialIssuanceEnabled bool
	SSISchemaName             *string `gorm:"type:varchar(255)"`
	EngagementTypeID          *string `gorm:"type:varchar(26)"`
	Featured                  *bool
	ShareWithPartners         *bool
	Hidden                    *bool
	DateCreated               time.Time
	CreatedByUserID           string    `gorm:"type:varchar(26);not null"`
	DateModified              time.Time `gorm:"index"`
	ModifiedByUserID          string    `gorm:"type:varchar(26);not null"`

	Organization organizationRow `gorm:"foreignKey:OrganizationID"`
}

func (opportunityRow) TableName() string { return "opportunities" }

func newOpportunityRow(o *domain.Opportunity) *opportunityRow {
	r := &opportunityRow{
		ID:                        o.ID,
		Title:                     o.Title,
		Description:               o.Description,
		TypeID:                    o.TypeID,
		OrganizationID:            o.OrganizationID,
		Summary:                   o.Summary,
		Instructions:              o.Instructions,
		URL:                       o.URL,
		ZltoReward:                o.ZltoReward,
		YomaReward:                o.YomaReward,
		ZltoRewardPool:            o.ZltoRewardPool,
		YomaRewardPool:            o.YomaRewardPool,
		ZltoRewardCumulative:      o.ZltoRewardCumulative,
		YomaRewardCumulative:      o.YomaRewardCumulative,
		VerificationEnabled:       o.VerificationEnabled,
		DifficultyID:              o.DifficultyID,
		CommitmentIntervalID:      o.CommitmentIntervalID,
		CommitmentIntervalCount:   int16(o.CommitmentIntervalCount),
		ParticipantLimit:          o.ParticipantLimit,
		ParticipantCount:          o.ParticipantCount,
		StatusID:                  o.StatusID,
		DateStart:                 o.DateStart,
		DateEnd:                   o.DateEnd,
		CredentialIssuanceEnabled: o.CredentialIssuanceEnabled,
		SSISchemaName:             o.SSISchemaName,
		EngagementTypeID:          o.EngagementTypeID,
		Featured:                  o.Featured,
		ShareWithPartners:         o.ShareWithPartners,
		Hidden:                    o.Hidden,
		DateCreated:               o.DateCreated,
		CreatedByUserID:           o.CreatedByUserID,
		DateModified:              o.DateModified,
		ModifiedByUserID:          o.ModifiedByUserID,
	}
	if o.VerificationMethod != nil {
		m := string(*o.VerificationMethod)
		r.VerificationMethod = &m
	}
	if len(o.Keywords) > 0 {
		k := strings.Join(o.Keywords, domain.KeywordsSeparator)
		r.Keywords = &k
	}
	return r
}

func (r *opportunityRow) toDomain() domain.Opportunity {
	o := domain.Opportunity{
		ID:                        r.ID,
		Title:                     r.Title,
		Description:               r.Description,
		TypeID:                    r.TypeID,
		OrganizationID:            r.OrganizationID,
		Summary:                   r.Summary,
		Instructions:              r.Instructions,
		URL:                       r.URL,
		ZltoReward:                r.ZltoReward,
		YomaReward:                r.YomaReward,
		ZltoRewardPool:            r.ZltoRewardPool,
		YomaRewardPool:            r.YomaRewardPool,
		ZltoRewardCumulative:      r.ZltoRewardCumulative,
		YomaRewardCumulative:      r.YomaRewardCumulative,
		VerificationEnabled:       r.VerificationEnabled,
		DifficultyID:              r.DifficultyID,
		CommitmentIntervalID:      r.CommitmentIntervalID,
		CommitmentIntervalCount:   int(r.CommitmentIntervalCount),
		ParticipantLimit:          r.ParticipantLimit,
		ParticipantCount:          r.ParticipantCount,
		StatusID:                  r.StatusID,
		DateStart:                 r.DateStart,
		DateEnd:                   r.DateEnd,
		CredentialIssuanceEnabled: r.CredentialIssuanceEnabled,
		SSISchemaName:             r.SSISchemaName,
		EngagementTypeID:          r.EngagementTypeID,
		Featured:                  r.Featured,
		ShareWithPartners:         r.ShareWithPartners,
		Hidden:                    r.Hidden,
		DateCreated:               r.DateCreated,
		CreatedByUserID:           r.CreatedByUserID,
		DateModified:              r.DateModified,
		ModifiedByUserID:          r.ModifiedByUserID,
	}
	if r.VerificationMethod != nil {
		m := domain.VerificationMethod(*r.VerificationMethod)
		o.VerificationMethod = &m
	}
	if r.Keywords != nil && *r.Keywords != "" {
		o.Keywords = strings.Split(*r.Keywords, domain.KeywordsSeparator)
	}
	if r.Organization.ID != "" {
		org := r.Organization.toDomain()
		o.OrganizationName = org.Name
		o.OrganizationStatus = org.Status
		o.OrganizationLogoKey = org.LogoKey
		o.OrganizationZltoRewardBalance = org.ZltoRewardBalance()
		o.OrganizationYomaRewardBalance = org.YomaRewardBalance()
	}
	return o
}

type opportunityCategoryRow struct {
	ID            string    `gorm:"primaryKey;type:varchar(26)"`
	OpportunityID string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_categories"`
	CategoryID    string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_categories"`
	DateCreated   time.Time `gorm:"autoCreateTime"`
}

func (opportunityCategoryRow) TableName() string { return "opportunity_categories" }

type opportunityCountryRow struct {
	ID            string    `gorm:"primaryKey;type:varchar(26)"`
	OpportunityID string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_countries"`
	CountryID     string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_countries"`
	DateCreated   time.Time `gorm:"autoCreateTime"`
}

func (opportunityCountryRow) TableName() string { return "opportunity_countries" }

type opportunityLanguageRow struct {
	ID            string    `gorm:"primaryKey;type:varchar(26)"`
	OpportunityID string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_languages"`
	LanguageID    string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_languages"`
	DateCreated   time.Time `gorm:"autoCreateTime"`
}

func (opportunityLanguageRow) TableName() string { return "opportunity_languages" }

type opportunitySkillRow struct {
	ID            string    `gorm:"primaryKey;type:varchar(26)"`
	OpportunityID string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_skills"`
	SkillID       string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_skills"`
	DateCreated   time.Time `gorm:"autoCreateTime"`
}

func (opportunitySkillRow) TableName() string { return "opportunity_skills" }

type opportunityVerificationTypeRow struct {
	ID                 string    `gorm:"primaryKey;type:varchar(26)"`
	OpportunityID      string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_verification_types"`
	VerificationTypeID string    `gorm:"type:varchar(26);not null;uniqueIndex:ux_opportunity_verification_types"`
	Description        *string   `gorm:"type:text"`
	DateCreated        time.Time `gorm:"autoCreateTime"`
	DateModified       time.Time `gorm:"autoUpdateTime"`
}

func (opportunityVerificationTypeRow) TableName() string { return "opportunity_verification_types" }

type myOpportunityRow struct {
	ID                 string    `gorm:"primaryKey;type:varchar(26)"`
	UserID             string    `gorm:"type:varchar(26);not null;index"`
	OpportunityID      string    `gorm:"type:varchar(26);not null;index"`
	Action             string    `gorm:"type:varchar(20);not null"`
	VerificationStatus *string   `gorm:"type:varchar(20)"`
	DateCreated        time.Time `gorm:"autoCreateTime"`
	DateModified       time.Time `gorm:"autoUpdateTime"`
}

func (myOpportunityRow) TableName() string { return "my_opportunities" }

// associationTable is the join table and lookup column of one association kind.
type associationTable struct {
	table  string
	column string
}

var associationTables = map[domain.AssociationKind]associationTable{
	domain.AssociationCategories:        {table: "opportunity_categories", column: "category_id"},
	domain.AssociationCountries:         {table: "opportunity_countries", column: "country_id"},
	domain.AssociationLanguages:         {table: "opportunity_languages", column: "language_id"},
	domain.AssociationSkills:            {table: "opportunity_skills", column: "skill_id"},
	domain.AssociationVerificationTypes: {table: "opportunity_verification_types", column: "verification_type_id"},
}
