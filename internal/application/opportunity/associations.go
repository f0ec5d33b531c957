package opportunity

import (
	"context"
	"fmt"
	"strings"

	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/pkg/id"
)

func (s *service) AssignLookups(ctx context.Context, actor domain.Actor, oppID string, kind domain.AssociationKind, ids []string) (*domain.Opportunity, error) {
	if err := checkLookupKind(kind); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s are required: %w", kind, domain.ErrBadRequest)
	}
	return s.mutateAssociations(ctx, actor, oppID, func(ctx context.Context, o *domain.Opportunity) error {
		return s.assignLookups(ctx, o, kind, ids)
	})
}

func (s *service) RemoveLookups(ctx context.Context, actor domain.Actor, oppID string, kind domain.AssociationKind, ids []string) (*domain.Opportunity, error) {
	if err := checkLookupKind(kind); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s are required: %w", kind, domain.ErrBadRequest)
	}
	return s.mutateAssociations(ctx, actor, oppID, func(ctx context.Context, o *domain.Opportunity) error {
		return s.removeLookups(ctx, o, kind, ids)
	})
}

func (s *service) AssignVerificationTypes(ctx context.Context, actor domain.Actor, oppID string, types []domain.OpportunityRequestVerificationType) (*domain.Opportunity, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("verification types are required: %w", domain.ErrBadRequest)
	}
	return s.mutateAssociations(ctx, actor, oppID, func(ctx context.Context, o *domain.Opportunity) error {
		return s.assignVerificationTypes(ctx, o, types)
	})
}

func (s *service) RemoveVerificationTypes(ctx context.Context, actor domain.Actor, oppID string, types []domain.VerificationType) (*domain.Opportunity, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("verification types are required: %w", domain.ErrBadRequest)
	}
	return s.mutateAssociations(ctx, actor, oppID, func(ctx context.Context, o *domain.Opportunity) error {
		// missingTypes here yields the types that would remain.
		if o.VerificationEnabled && len(missingTypes(o.VerificationTypes, requestTypes(types))) == 0 {
			return invalid("one or more verification types are required when verification is supported. Removal will result in no associated verification types")
		}
		return s.removeVerificationTypes(ctx, o, types)
	})
}

// mutateAssociations loads the opportunity with its children, applies fn and
// persists the modifier in one transaction.
func (s *service) mutateAssociations(ctx context.Context, actor domain.Actor, oppID string, fn func(ctx context.Context, o *domain.Opportunity) error) (*domain.Opportunity, error) {
	o, err := s.GetByID(ctx, actor, oppID, true)
	if err != nil {
		return nil, err
	}
	if err := assertUpdatable(o); err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx, o); err != nil {
			return err
		}
		o.ModifiedByUserID = actor.UserID
		o.DateModified = s.now()
		return s.repo.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventUpdate, o)
	return o, nil
}

func checkLookupKind(kind domain.AssociationKind) error {
	switch kind {
	case domain.AssociationCategories, domain.AssociationCountries, domain.AssociationLanguages, domain.AssociationSkills:
		return nil
	}
	return fmt.Errorf("association kind '%s' not supported: %w", kind, domain.ErrBadRequest)
}

// linked returns the slice on o holding the lookups of kind.
func linked(o *domain.Opportunity, kind domain.AssociationKind) *[]domain.Lookup {
	switch kind {
	case domain.AssociationCategories:
		return &o.Categories
	case domain.AssociationCountries:
		return &o.Countries
	case domain.AssociationLanguages:
		return &o.Languages
	}
	return &o.Skills
}

// assignLookups links every id not yet linked. Categories, countries and
// languages are mandatory; skills are optional.
func (s *service) assignLookups(ctx context.Context, o *domain.Opportunity, kind domain.AssociationKind, ids []string) error {
	if len(ids) == 0 {
		if kind == domain.AssociationSkills {
			return nil
		}
		return fmt.Errorf("%s are required: %w", kind, domain.ErrBadRequest)
	}

	items := linked(o, kind)
	for _, lookupID := range distinct(ids) {
		l, err := s.lookups.GetByID(kind.LookupKind(), lookupID)
		if err != nil {
			return fmt.Errorf("%s with id '%s' does not exist: %w", kind.LookupKind(), lookupID, domain.ErrNotFound)
		}
		existing, err := s.associations.Find(ctx, kind, o.ID, l.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.associations.Create(ctx, kind, &domain.Association{ID: id.New(), OpportunityID: o.ID, LookupID: l.ID}); err != nil {
			return err
		}
		*items = append(*items, *l)
	}
	return nil
}

func (s *service) removeLookups(ctx context.Context, o *domain.Opportunity, kind domain.AssociationKind, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	items := linked(o, kind)
	for _, lookupID := range distinct(ids) {
		l, err := s.lookups.GetByID(kind.LookupKind(), lookupID)
		if err != nil {
			return fmt.Errorf("%s with id '%s' does not exist: %w", kind.LookupKind(), lookupID, domain.ErrNotFound)
		}
		existing, err := s.associations.Find(ctx, kind, o.ID, l.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			continue
		}
		if err := s.associations.Delete(ctx, kind, existing.ID); err != nil {
			return err
		}
		kept := (*items)[:0]
		for _, item := range *items {
			if item.ID != l.ID {
				kept = append(kept, item)
			}
		}
		*items = kept
	}
	return nil
}

// assignVerificationTypes links new types and refreshes the description of
// those already linked. A blank description falls back to the lookup's.
func (s *service) assignVerificationTypes(ctx context.Context, o *domain.Opportunity, types []domain.OpportunityRequestVerificationType) error {
	for _, t := range types {
		l, err := s.lookups.GetByName(domain.LookupVerificationType, string(t.Type))
		if err != nil {
			return fmt.Errorf("verification type '%s' does not exist: %w", t.Type, domain.ErrNotFound)
		}
		var desc *string
		if t.Description != nil {
			if d := strings.TrimSpace(*t.Description); d != "" {
				desc = &d
			}
		}
		effective := l.Description
		if desc != nil {
			effective = *desc
		}

		existing, err := s.associations.Find(ctx, domain.AssociationVerificationTypes, o.ID, l.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := s.associations.UpdateDescription(ctx, existing.ID, desc); err != nil {
				return err
			}
			for i := range o.VerificationTypes {
				if o.VerificationTypes[i].ID == l.ID {
					o.VerificationTypes[i].Description = effective
				}
			}
			continue
		}

		a := &domain.Association{ID: id.New(), OpportunityID: o.ID, LookupID: l.ID, Description: desc}
		if err := s.associations.Create(ctx, domain.AssociationVerificationTypes, a); err != nil {
			return err
		}
		o.VerificationTypes = append(o.VerificationTypes, domain.OpportunityVerificationType{
			ID:          l.ID,
			Type:        domain.VerificationType(l.Name),
			DisplayName: l.DisplayName,
			Description: effective,
		})
	}
	return nil
}

func (s *service) removeVerificationTypes(ctx context.Context, o *domain.Opportunity, types []domain.VerificationType) error {
	for _, t := range types {
		l, err := s.lookups.GetByName(domain.LookupVerificationType, string(t))
		if err != nil {
			return fmt.Errorf("verification type '%s' does not exist: %w", t, domain.ErrNotFound)
		}
		existing, err := s.associations.Find(ctx, domain.AssociationVerificationTypes, o.ID, l.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			continue
		}
		if err := s.associations.Delete(ctx, domain.AssociationVerificationTypes, existing.ID); err != nil {
			return err
		}
		kept := o.VerificationTypes[:0]
		for _, vt := range o.VerificationTypes {
			if vt.ID != l.ID {
				kept = append(kept, vt)
			}
		}
		o.VerificationTypes = kept
	}
	return nil
}

func requestTypes(types []domain.VerificationType) []domain.OpportunityRequestVerificationType {
	out := make([]domain.OpportunityRequestVerificationType, len(types))
	for i, t := range types {
		out[i] = domain.OpportunityRequestVerificationType{Type: t}
	}
	return out
}
