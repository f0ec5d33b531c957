package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yoma-opportunity/internal/domain"
	"gorm.io/gorm"
)

// AssociationRepo manages the opportunity join tables. The kind selects the
// table and lookup column.
type AssociationRepo struct {
	client *Client
}

func NewAssociationRepo(client *Client) *AssociationRepo {
	return &AssociationRepo{client: client}
}

type associationScan struct {
	ID            string
	OpportunityID string
	LookupID      string
	Description   *string
}

func (s associationScan) toDomain() domain.Association {
	return domain.Association{ID: s.ID, OpportunityID: s.OpportunityID, LookupID: s.LookupID, Description: s.Description}
}

func tableFor(kind domain.AssociationKind) (associationTable, error) {
	t, ok := associationTables[kind]
	if !ok {
		return associationTable{}, fmt.Errorf("association kind '%s' not supported: %w", kind, domain.ErrBadRequest)
	}
	return t, nil
}

func selectAssociation(kind domain.AssociationKind, t associationTable) string {
	desc := "NULL AS description"
	if kind == domain.AssociationVerificationTypes {
		desc = "description"
	}
	return "id, opportunity_id, " + t.column + " AS lookup_id, " + desc
}

func listAssociations(db *gorm.DB, kind domain.AssociationKind, opportunityIDs []string) ([]domain.Association, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []associationScan
	err = db.Table(t.table).
		Select(selectAssociation(kind, t)).
		Where("opportunity_id IN ?", opportunityIDs).
		Order("date_created, id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	out := make([]domain.Association, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (r *AssociationRepo) ListByOpportunities(ctx context.Context, kind domain.AssociationKind, opportunityIDs []string) ([]domain.Association, error) {
	if len(opportunityIDs) == 0 {
		return nil, nil
	}
	return listAssociations(r.client.conn(ctx), kind, opportunityIDs)
}

// Find returns the link between the opportunity and the lookup, nil when absent.
func (r *AssociationRepo) Find(ctx context.Context, kind domain.AssociationKind, opportunityID, lookupID string) (*domain.Association, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	var row associationScan
	err = r.client.conn(ctx).Table(t.table).
		Select(selectAssociation(kind, t)).
		Where("opportunity_id = ? AND "+t.column+" = ?", opportunityID, lookupID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := row.toDomain()
	return &a, nil
}

func (r *AssociationRepo) Create(ctx context.Context, kind domain.AssociationKind, a *domain.Association) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	values := map[string]interface{}{
		"id":             a.ID,
		"opportunity_id": a.OpportunityID,
		t.column:         a.LookupID,
		"date_created":   time.Now().UTC(),
	}
	if kind == domain.AssociationVerificationTypes {
		values["description"] = a.Description
		values["date_modified"] = values["date_created"]
	}
	return r.client.conn(ctx).Table(t.table).Create(values).Error
}

// UpdateDescription sets the description override of a verification type link.
func (r *AssociationRepo) UpdateDescription(ctx context.Context, id string, description *string) error {
	return r.client.conn(ctx).Model(&opportunityVerificationTypeRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"description": description, "date_modified": time.Now().UTC()}).Error
}

func (r *AssociationRepo) Delete(ctx context.Context, kind domain.AssociationKind, id string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	return r.client.conn(ctx).Table(t.table).Where("id = ?", id).Delete(map[string]interface{}{}).Error
}
