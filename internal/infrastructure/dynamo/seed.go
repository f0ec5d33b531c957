package dynamo

import (
	"strings"
	"time"

	"github.com/yoma-opportunity/internal/domain"
)

const tableWaitTimeout = 2 * time.Minute

func named(kind domain.LookupKind, names ...string) []domain.Lookup {
	out := make([]domain.Lookup, len(names))
	for i, n := range names {
		out[i] = domain.Lookup{Kind: kind, ID: slug(n), Name: n}
	}
	return out
}

func slug(name string) string {
	return strings.ToLower(strings.NewReplacer(" ", "-", "&", "and", "/", "-").Replace(name))
}

// seedLookups is the reference data every environment starts with.
func seedLookups() []domain.Lookup {
	var out []domain.Lookup

	out = append(out, named(domain.LookupOpportunityStatus,
		string(domain.StatusActive), string(domain.StatusInactive), string(domain.StatusExpired), string(domain.StatusDeleted))...)
	out = append(out, named(domain.LookupOpportunityType, "Learning", "Task", "Event", "Other")...)
	out = append(out, named(domain.LookupDifficulty, "Beginner", "Intermediate", "Advanced", "Any Level")...)
	out = append(out, named(domain.LookupEngagementType, "Online", "Offline", "Hybrid")...)

	for _, t := range domain.TimeIntervalOptions {
		out = append(out, domain.Lookup{Kind: domain.LookupTimeInterval, ID: slug(string(t)), Name: string(t)})
	}

	for _, c := range []struct{ name, image string }{
		{"Agriculture", "agriculture.svg"},
		{"Career Development", "career.svg"},
		{"Entrepreneurship", "business.svg"},
		{"Environment & Climate", "environment.svg"},
		{"Technology", "technology.svg"},
		{"Tourism & Hospitality", "tourism.svg"},
		{domain.CategoryOther, "other.svg"},
	} {
		out = append(out, domain.Lookup{Kind: domain.LookupCategory, ID: slug(c.name), Name: c.name, ImageURL: "/images/categories/" + c.image})
	}

	for _, v := range []struct {
		t           domain.VerificationType
		display     string
		description string
	}{
		{domain.VerificationTypeFileUpload, "File Upload", "A certificate or document of completion"},
		{domain.VerificationTypePicture, "Picture", "A selfie or picture of the completed task"},
		{domain.VerificationTypeLocation, "Location", "The location where the task was completed"},
		{domain.VerificationTypeVoiceNote, "Voice Note", "A voice note describing the completed task"},
		{domain.VerificationTypeVideo, "Video", "A short video of the completed task"},
	} {
		out = append(out, domain.Lookup{
			Kind:        domain.LookupVerificationType,
			ID:          slug(string(v.t)),
			Name:        string(v.t),
			DisplayName: v.display,
			Description: v.description,
		})
	}

	for _, c := range []struct{ code, name string }{
		{domain.CountryWorldwideCode, "Worldwide"},
		{"ZA", "South Africa"},
		{"NG", "Nigeria"},
		{"KE", "Kenya"},
		{"GH", "Ghana"},
		{"UG", "Uganda"},
	} {
		out = append(out, domain.Lookup{Kind: domain.LookupCountry, ID: slug(c.code), Name: c.name, Code: c.code})
	}

	for _, l := range []struct{ code, name string }{
		{"EN", "English"},
		{"FR", "French"},
		{"PT", "Portuguese"},
		{"SW", "Swahili"},
	} {
		out = append(out, domain.Lookup{Kind: domain.LookupLanguage, ID: slug(l.code), Name: l.name, Code: l.code})
	}

	for _, s := range []string{"Communication", "Leadership", "Project Management", "Data Analysis", "Web Development"} {
		out = append(out, domain.Lookup{Kind: domain.LookupSkill, ID: slug(s), Name: s, InfoURL: "https://lightcast.io/open-skills/skills/" + slug(s)})
	}
	return out
}
