package postgres

import (
	"context"

	"github.com/yoma-opportunity/internal/domain"
	"gorm.io/gorm"
)

// MyOpportunityRepo reads participant actions against opportunities.
type MyOpportunityRepo struct {
	client *Client
}

func NewMyOpportunityRepo(client *Client) *MyOpportunityRepo {
	return &MyOpportunityRepo{client: client}
}

// CountByStatus counts the actions of one kind in one verification state per
// opportunity in a single grouped query.
func (r *MyOpportunityRepo) CountByStatus(ctx context.Context, opportunityIDs []string, action domain.MyOpportunityAction, status domain.VerificationStatus) (map[string]int, error) {
	counts := make(map[string]int, len(opportunityIDs))
	if len(opportunityIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		OpportunityID string
		N             int
	}
	err := countByStatus(r.client.conn(ctx), opportunityIDs, action, status).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.OpportunityID] = row.N
	}
	return counts, nil
}

func countByStatus(db *gorm.DB, opportunityIDs []string, action domain.MyOpportunityAction, status domain.VerificationStatus) *gorm.DB {
	return db.Model(&myOpportunityRow{}).
		Select("opportunity_id, COUNT(*) AS n").
		Where("opportunity_id IN ? AND action = ? AND verification_status = ?", opportunityIDs, string(action), string(status)).
		Group("opportunity_id")
}

// ListAggregatedByViewed returns published opportunity ids, most viewed first.
func (r *MyOpportunityRepo) ListAggregatedByViewed(ctx context.Context, statusIDs []string) ([]string, error) {
	return r.aggregate(r.client.conn(ctx).Where("my_opportunities.action = ?", string(domain.MyOpportunityActionViewed)), statusIDs)
}

// ListAggregatedByCompleted returns published opportunity ids, most completed first.
func (r *MyOpportunityRepo) ListAggregatedByCompleted(ctx context.Context, statusIDs []string) ([]string, error) {
	return r.aggregate(r.client.conn(ctx).Where("my_opportunities.action = ? AND my_opportunities.verification_status = ?",
		string(domain.MyOpportunityActionVerification), string(domain.VerificationStatusCompleted)), statusIDs)
}

func (r *MyOpportunityRepo) aggregate(db *gorm.DB, statusIDs []string) ([]string, error) {
	var ids []string
	err := db.Model(&myOpportunityRow{}).
		Joins("JOIN opportunities ON opportunities.id = my_opportunities.opportunity_id").
		Joins(joinOrganizations).
		Where("opportunities.status_id IN ? AND organizations.status = ?", statusIDs, string(domain.OrganizationStatusActive)).
		Group("my_opportunities.opportunity_id").
		Order("COUNT(*) DESC, my_opportunities.opportunity_id").
		Pluck("my_opportunities.opportunity_id", &ids).Error
	return ids, err
}
