package domain

// AssociationKind names one of the opportunity many-to-many links.
type AssociationKind string

const (
	AssociationCategories        AssociationKind = "categories"
	AssociationCountries         AssociationKind = "countries"
	AssociationLanguages         AssociationKind = "languages"
	AssociationSkills            AssociationKind = "skills"
	AssociationVerificationTypes AssociationKind = "verification-types"
)

// AssociationKinds lists every link kind.
var AssociationKinds = []AssociationKind{
	AssociationCategories,
	AssociationCountries,
	AssociationLanguages,
	AssociationSkills,
	AssociationVerificationTypes,
}

// LookupKind is the reference table the association points at.
func (k AssociationKind) LookupKind() LookupKind {
	switch k {
	case AssociationCategories:
		return LookupCategory
	case AssociationCountries:
		return LookupCountry
	case AssociationLanguages:
		return LookupLanguage
	case AssociationSkills:
		return LookupSkill
	case AssociationVerificationTypes:
		return LookupVerificationType
	}
	return ""
}

// Association is a join row between an opportunity and a lookup.
type Association struct {
	ID            string
	OpportunityID string
	LookupID      string
	Description   *string
}

// CriteriaUsage counts published opportunities per referenced id.
type CriteriaUsage struct {
	ID    string
	Count int
}
