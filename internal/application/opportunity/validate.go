package opportunity

import (
	"fmt"
	"math"
	"strings"

	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/pkg/validate"
)

const maxRewardPool = 10_000_000

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrValidation)...)
}

// validateRequest checks the rules shared by create and update.
func (s *service) validateRequest(req *domain.OpportunityRequestCreate) error {
	if err := validate.Struct(req); err != nil {
		return invalid("%s", err)
	}

	if req.ZltoReward != nil && math.Mod(*req.ZltoReward, 1) != 0 {
		return invalid("zlto reward does not support decimal points")
	}
	if err := checkPool("zlto", req.ZltoRewardPool, req.ZltoReward); err != nil {
		return err
	}
	if req.ZltoRewardPool != nil && math.Mod(*req.ZltoRewardPool, 1) != 0 {
		return invalid("zlto reward pool does not support decimal points")
	}
	if err := checkPool("yoma", req.YomaRewardPool, req.YomaReward); err != nil {
		return err
	}

	if req.VerificationEnabled && req.VerificationMethod == nil {
		return invalid("a verification method is required when verification is enabled")
	}
	if req.ParticipantLimit != nil && !req.VerificationEnabled {
		return invalid("participant limit is not supported when verification is not enabled")
	}

	if req.Keywords != nil {
		for _, k := range req.Keywords {
			if strings.TrimSpace(k) == "" || strings.Contains(k, domain.KeywordsSeparator) {
				return invalid("keywords contain empty value(s) or keywords with '%s' character", domain.KeywordsSeparator)
			}
		}
		if n := len(strings.Join(req.Keywords, domain.KeywordsSeparator)); n < 1 || n > domain.KeywordsCombinedMaxLength {
			return invalid("the combined length of keywords must be between 1 and %d characters", domain.KeywordsCombinedMaxLength)
		}
	}

	if req.DateEnd != nil && req.DateEnd.Before(req.DateStart) {
		return invalid("end date is earlier than the start date")
	}
	if req.CredentialIssuanceEnabled {
		if !req.VerificationEnabled {
			return invalid("credential issuance cannot be enabled when verification is disabled")
		}
		if req.SSISchemaName == nil || strings.TrimSpace(*req.SSISchemaName) == "" {
			return invalid("SSI schema name is required when credential issuance is enabled")
		}
	}

	if err := s.mustExist(domain.LookupOpportunityType, "type", req.TypeID); err != nil {
		return err
	}
	if err := s.mustExist(domain.LookupDifficulty, "difficulty", req.DifficultyID); err != nil {
		return err
	}
	if err := s.mustExist(domain.LookupTimeInterval, "time interval", req.CommitmentIntervalID); err != nil {
		return err
	}
	if req.EngagementTypeID != nil {
		if err := s.mustExist(domain.LookupEngagementType, "engagement type", *req.EngagementTypeID); err != nil {
			return err
		}
	}
	for _, set := range []struct {
		kind domain.LookupKind
		name string
		ids  []string
	}{
		{domain.LookupCategory, "category", req.Categories},
		{domain.LookupCountry, "country", req.Countries},
		{domain.LookupLanguage, "language", req.Languages},
		{domain.LookupSkill, "skill", req.Skills},
	} {
		for _, id := range set.ids {
			if err := s.mustExist(set.kind, set.name, id); err != nil {
				return err
			}
		}
	}

	if req.VerificationMethod != nil && *req.VerificationMethod == domain.VerificationMethodManual && len(req.VerificationTypes) == 0 {
		return invalid("with manual verification, one or more verification types are required")
	}
	for _, vt := range req.VerificationTypes {
		if _, err := s.lookups.GetByName(domain.LookupVerificationType, string(vt.Type)); err != nil {
			return invalid("verification type '%s' does not exist", vt.Type)
		}
	}

	if req.Hidden != nil && *req.Hidden && req.ShareWithPartners != nil && *req.ShareWithPartners {
		return invalid("an opportunity shared with partners cannot be flagged as hidden")
	}
	return nil
}

func checkPool(currency string, pool, reward *float64) error {
	if pool == nil {
		return nil
	}
	if reward == nil || *pool < *reward {
		return invalid("%s reward pool must be greater than or equal to the %s reward", currency, currency)
	}
	if *pool > maxRewardPool {
		return invalid("%s reward pool must not exceed 10 million", currency)
	}
	return nil
}

func (s *service) mustExist(kind domain.LookupKind, name, id string) error {
	if _, err := s.lookups.GetByID(kind, id); err != nil {
		return invalid("specified %s '%s' is invalid / does not exist", name, id)
	}
	return nil
}
