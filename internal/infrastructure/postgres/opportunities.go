package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yoma-opportunity/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OpportunityRepo provides typed Postgres operations for the opportunities table.
type OpportunityRepo struct {
	client *Client
}

func NewOpportunityRepo(client *Client) *OpportunityRepo {
	return &OpportunityRepo{client: client}
}

func (r *OpportunityRepo) GetByID(ctx context.Context, id string, includeChildren bool) (*domain.Opportunity, error) {
	var row opportunityRow
	err := r.client.conn(ctx).Preload("Organization").Where("opportunities.id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("opportunity with id '%s' does not exist: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	o := row.toDomain()
	if includeChildren {
		items := []domain.Opportunity{o}
		if err := r.loadChildren(ctx, items); err != nil {
			return nil, err
		}
		o = items[0]
	}
	return &o, nil
}

// GetByIDForUpdate reads the opportunity without children and holds a row
// lock until the surrounding transaction ends.
func (r *OpportunityRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Opportunity, error) {
	var row opportunityRow
	err := forUpdate(r.client.conn(ctx)).Preload("Organization").Where("opportunities.id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("opportunity with id '%s' does not exist: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	o := row.toDomain()
	return &o, nil
}

// GetByTitle matches the trimmed title case-insensitively.
func (r *OpportunityRepo) GetByTitle(ctx context.Context, title string, includeChildren bool) (*domain.Opportunity, error) {
	var row opportunityRow
	err := r.client.conn(ctx).Preload("Organization").
		Where("LOWER(opportunities.title) = ?", strings.ToLower(strings.TrimSpace(title))).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("opportunity with title '%s' does not exist: %w", title, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	o := row.toDomain()
	if includeChildren {
		items := []domain.Opportunity{o}
		if err := r.loadChildren(ctx, items); err != nil {
			return nil, err
		}
		o = items[0]
	}
	return &o, nil
}

// Contains returns the opportunities whose title, summary or keywords contain value.
func (r *OpportunityRepo) Contains(ctx context.Context, value string, includeChildren bool) ([]domain.Opportunity, error) {
	pattern := containsPattern(strings.TrimSpace(value))
	var rows []opportunityRow
	err := r.client.conn(ctx).Preload("Organization").
		Where("opportunities.title ILIKE ? OR opportunities.summary ILIKE ? OR opportunities.keywords ILIKE ?", pattern, pattern, pattern).
		Order("opportunities.title").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows, includeChildren)
}

// Search returns one page of the opportunities matching q and the total count
// before paging. With q.CountOnly only the count is queried.
func (r *OpportunityRepo) Search(ctx context.Context, q domain.OpportunityQuery) ([]domain.Opportunity, int, error) {
	var total int64
	if err := applyQuery(r.client.conn(ctx), &q).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count opportunities: %w", err)
	}
	if q.CountOnly || total == 0 {
		return []domain.Opportunity{}, int(total), nil
	}

	tx := applyOrder(applyQuery(r.client.conn(ctx), &q).Select("opportunities.*").Preload("Organization"), &q)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	var rows []opportunityRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("search opportunities: %w", err)
	}
	items, err := r.hydrate(ctx, rows, true)
	if err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *OpportunityRepo) Create(ctx context.Context, o *domain.Opportunity) error {
	return r.client.conn(ctx).Omit(clause.Associations).Create(newOpportunityRow(o)).Error
}

// Update writes every column except the creation audit fields.
func (r *OpportunityRepo) Update(ctx context.Context, o *domain.Opportunity) error {
	res := r.client.conn(ctx).Model(&opportunityRow{}).
		Where("id = ?", o.ID).
		Select("*").
		Omit("id", "date_created", "created_by_user_id", clause.Associations).
		Updates(newOpportunityRow(o))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("opportunity with id '%s' does not exist: %w", o.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateStatus moves every listed opportunity to statusID in one statement.
func (r *OpportunityRepo) UpdateStatus(ctx context.Context, ids []string, statusID, userID string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.client.conn(ctx).Model(&opportunityRow{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status_id":           statusID,
			"modified_by_user_id": userID,
			"date_modified":       at,
		}).Error
}

// ListEndingBefore returns up to limit opportunities in one of statusIDs whose
// end date is on or before the cutoff, oldest end date first.
func (r *OpportunityRepo) ListEndingBefore(ctx context.Context, statusIDs []string, cutoff time.Time, limit int) ([]domain.Opportunity, error) {
	var rows []opportunityRow
	err := r.client.conn(ctx).Preload("Organization").
		Where("opportunities.status_id IN ?", statusIDs).
		Where("opportunities.date_end IS NOT NULL AND opportunities.date_end <= ?", cutoff).
		Order("opportunities.date_end, opportunities.id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows, false)
}

// ListEndingBetween pages through opportunities in one of statusIDs whose end
// date falls within [from, to].
func (r *OpportunityRepo) ListEndingBetween(ctx context.Context, statusIDs []string, from, to time.Time, limit, offset int) ([]domain.Opportunity, error) {
	var rows []opportunityRow
	err := r.client.conn(ctx).Preload("Organization").
		Where("opportunities.status_id IN ?", statusIDs).
		Where("opportunities.date_end >= ? AND opportunities.date_end <= ?", from, to).
		Order("opportunities.date_end, opportunities.id").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows, false)
}

// ListModifiedBefore returns up to limit opportunities in one of statusIDs
// last modified on or before the cutoff.
func (r *OpportunityRepo) ListModifiedBefore(ctx context.Context, statusIDs []string, cutoff time.Time, limit int) ([]domain.Opportunity, error) {
	var rows []opportunityRow
	err := r.client.conn(ctx).Preload("Organization").
		Where("opportunities.status_id IN ?", statusIDs).
		Where("opportunities.date_modified <= ?", cutoff).
		Order("opportunities.date_modified, opportunities.id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows, false)
}

// UsageByAssociation counts the opportunities matching q per lookup id linked
// through the association kind.
func (r *OpportunityRepo) UsageByAssociation(ctx context.Context, kind domain.AssociationKind, q domain.OpportunityQuery) ([]domain.CriteriaUsage, error) {
	t, ok := associationTables[kind]
	if !ok {
		return nil, fmt.Errorf("association kind '%s' not supported: %w", kind, domain.ErrBadRequest)
	}
	var out []domain.CriteriaUsage
	err := applyQuery(r.client.conn(ctx), &q).
		Joins("JOIN " + t.table + " u ON u.opportunity_id = opportunities.id").
		Select("u." + t.column + " AS id, COUNT(DISTINCT opportunities.id) AS count").
		Group("u." + t.column).
		Scan(&out).Error
	return out, err
}

// UsageByOrganization counts the opportunities matching q per organization.
func (r *OpportunityRepo) UsageByOrganization(ctx context.Context, q domain.OpportunityQuery) ([]domain.CriteriaUsage, error) {
	var out []domain.CriteriaUsage
	err := applyQuery(r.client.conn(ctx), &q).
		Select("opportunities.organization_id AS id, COUNT(*) AS count").
		Group("opportunities.organization_id").
		Scan(&out).Error
	return out, err
}

// ListCommitments returns the distinct commitment pairs of the opportunities matching q.
func (r *OpportunityRepo) ListCommitments(ctx context.Context, q domain.OpportunityQuery) ([]domain.CommitmentUsage, error) {
	var out []domain.CommitmentUsage
	err := applyQuery(r.client.conn(ctx), &q).
		Select("opportunities.commitment_interval_id AS interval_id, opportunities.commitment_interval_count AS count").
		Group("opportunities.commitment_interval_id, opportunities.commitment_interval_count").
		Scan(&out).Error
	return out, err
}

// ZltoRewardBounds returns the smallest and largest Zlto reward of the
// opportunities matching q, nil when none carry a reward.
func (r *OpportunityRepo) ZltoRewardBounds(ctx context.Context, q domain.OpportunityQuery) (min, max *float64, err error) {
	var out struct {
		Min *float64
		Max *float64
	}
	err = applyQuery(r.client.conn(ctx), &q).
		Where("opportunities.zlto_reward IS NOT NULL").
		Select("MIN(opportunities.zlto_reward) AS min, MAX(opportunities.zlto_reward) AS max").
		Scan(&out).Error
	return out.Min, out.Max, err
}

func (r *OpportunityRepo) hydrate(ctx context.Context, rows []opportunityRow, includeChildren bool) ([]domain.Opportunity, error) {
	items := make([]domain.Opportunity, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toDomain())
	}
	if includeChildren && len(items) > 0 {
		if err := r.loadChildren(ctx, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// loadChildren attaches the linked lookup ids of every association kind.
// Lookup names are resolved by the caller.
func (r *OpportunityRepo) loadChildren(ctx context.Context, items []domain.Opportunity) error {
	ids := make([]string, len(items))
	index := make(map[string]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
		index[items[i].ID] = i
	}
	for _, kind := range domain.AssociationKinds {
		links, err := listAssociations(r.client.conn(ctx), kind, ids)
		if err != nil {
			return err
		}
		for _, l := range links {
			o := &items[index[l.OpportunityID]]
			switch kind {
			case domain.AssociationCategories:
				o.Categories = append(o.Categories, domain.Lookup{Kind: domain.LookupCategory, ID: l.LookupID})
			case domain.AssociationCountries:
				o.Countries = append(o.Countries, domain.Lookup{Kind: domain.LookupCountry, ID: l.LookupID})
			case domain.AssociationLanguages:
				o.Languages = append(o.Languages, domain.Lookup{Kind: domain.LookupLanguage, ID: l.LookupID})
			case domain.AssociationSkills:
				o.Skills = append(o.Skills, domain.Lookup{Kind: domain.LookupSkill, ID: l.LookupID})
			case domain.AssociationVerificationTypes:
				vt := domain.OpportunityVerificationType{ID: l.LookupID}
				if l.Description != nil {
					vt.Description = *l.Description
				}
				o.VerificationTypes = append(o.VerificationTypes, vt)
			}
		}
	}
	return nil
}
