package domain

// LookupKind names a reference-data table.
type LookupKind string

const (
	LookupOpportunityStatus LookupKind = "opportunity_status"
	LookupOpportunityType   LookupKind = "opportunity_type"
	LookupCategory          LookupKind = "opportunity_category"
	LookupDifficulty        LookupKind = "opportunity_difficulty"
	LookupVerificationType  LookupKind = "opportunity_verification_type"
	LookupEngagementType    LookupKind = "engagement_type"
	LookupTimeInterval      LookupKind = "time_interval"
	LookupCountry           LookupKind = "country"
	LookupLanguage          LookupKind = "language"
	LookupSkill             LookupKind = "skill"
)

// LookupKinds lists every kind loaded at startup.
var LookupKinds = []LookupKind{
	LookupOpportunityStatus,
	LookupOpportunityType,
	LookupCategory,
	LookupDifficulty,
	LookupVerificationType,
	LookupEngagementType,
	LookupTimeInterval,
	LookupCountry,
	LookupLanguage,
	LookupSkill,
}

// Lookup is a single reference-data row.
type Lookup struct {
	Kind        LookupKind `json:"-" dynamodbav:"kind"`
	ID          string     `json:"id" dynamodbav:"id"`
	Name        string     `json:"name" dynamodbav:"name"`
	Code        string     `json:"code,omitempty" dynamodbav:"code,omitempty"`
	DisplayName string     `json:"display_name,omitempty" dynamodbav:"display_name,omitempty"`
	Description string     `json:"description,omitempty" dynamodbav:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty" dynamodbav:"image_url,omitempty"`
	InfoURL     string     `json:"info_url,omitempty" dynamodbav:"info_url,omitempty"`
}

// Well-known lookup names.
const (
	CategoryOther        = "Other"
	CountryWorldwideCode = "WW"
)

// TimeIntervalOption is the unit of an opportunity commitment.
type TimeIntervalOption string

const (
	TimeIntervalMinute TimeIntervalOption = "Minute"
	TimeIntervalHour   TimeIntervalOption = "Hour"
	TimeIntervalDay    TimeIntervalOption = "Day"
	TimeIntervalWeek   TimeIntervalOption = "Week"
	TimeIntervalMonth  TimeIntervalOption = "Month"
)

// TimeIntervalOptions in ascending order of length.
var TimeIntervalOptions = []TimeIntervalOption{
	TimeIntervalMinute, TimeIntervalHour, TimeIntervalDay, TimeIntervalWeek, TimeIntervalMonth,
}

// Minutes is the length of a single unit in minutes.
func (t TimeIntervalOption) Minutes() int64 {
	switch t {
	case TimeIntervalMinute:
		return 1
	case TimeIntervalHour:
		return 60
	case TimeIntervalDay:
		return 60 * 24
	case TimeIntervalWeek:
		return 60 * 24 * 7
	case TimeIntervalMonth:
		return 60 * 24 * 30
	}
	return 0
}

// Rank orders interval options for display.
func (t TimeIntervalOption) Rank() int {
	for i, v := range TimeIntervalOptions {
		if v == t {
			return i + 1
		}
	}
	return 0
}

// ConvertToMinutes converts count units of interval to minutes.
func ConvertToMinutes(interval TimeIntervalOption, count int) int64 {
	return interval.Minutes() * int64(count)
}

// VerificationMethod is how completion is verified.
type VerificationMethod string

const (
	VerificationMethodManual    VerificationMethod = "Manual"
	VerificationMethodAutomatic VerificationMethod = "Automatic"
)

// VerificationType is a kind of proof a participant submits.
type VerificationType string

const (
	VerificationTypeFileUpload VerificationType = "FileUpload"
	VerificationTypePicture    VerificationType = "Picture"
	VerificationTypeLocation   VerificationType = "Location"
	VerificationTypeVoiceNote  VerificationType = "VoiceNote"
	VerificationTypeVideo      VerificationType = "Video"
)

// OpportunityVerificationType is a verification type attached to an opportunity.
type OpportunityVerificationType struct {
	ID          string           `json:"id"`
	Type        VerificationType `json:"type"`
	DisplayName string           `json:"display_name"`
	Description string           `json:"description"`
}
