package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yoma-opportunity/internal/domain"
	"gorm.io/gorm"
)

// OrganizationRepo reads organizations and their administrators.
type OrganizationRepo struct {
	client *Client
}

func NewOrganizationRepo(client *Client) *OrganizationRepo {
	return &OrganizationRepo{client: client}
}

func (r *OrganizationRepo) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	var row organizationRow
	err := r.client.conn(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("organization with id '%s' does not exist: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetByIDForUpdate reads the organization and holds a row lock until the
// surrounding transaction ends.
func (r *OrganizationRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Organization, error) {
	var row organizationRow
	err := forUpdate(r.client.conn(ctx)).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("organization with id '%s' does not exist: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *OrganizationRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []organizationRow
	if err := r.client.conn(ctx).Where("id IN ?", ids).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Organization, len(rows))
	for i := range rows {
		out[i] = *rows[i].toDomain()
	}
	return out, nil
}

// Contains returns the ids of organizations whose name contains value.
func (r *OrganizationRepo) Contains(ctx context.Context, value string) ([]string, error) {
	var ids []string
	err := r.client.conn(ctx).Model(&organizationRow{}).
		Where("name ILIKE ?", containsPattern(strings.TrimSpace(value))).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *OrganizationRepo) IsAdmin(ctx context.Context, userID, organizationID string) (bool, error) {
	var n int64
	err := r.client.conn(ctx).Model(&organizationAdminRow{}).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		Count(&n).Error
	return n > 0, err
}

// AdminsOf returns the ids of the organizations userID administers.
func (r *OrganizationRepo) AdminsOf(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.client.conn(ctx).Model(&organizationAdminRow{}).
		Where("user_id = ?", userID).
		Order("organization_id").
		Pluck("organization_id", &ids).Error
	return ids, err
}

func (r *OrganizationRepo) ListAdmins(ctx context.Context, organizationID string) ([]domain.UserInfo, error) {
	var rows []userRow
	err := r.client.conn(ctx).
		Joins("JOIN organization_admins ON organization_admins.user_id = users.id").
		Where("organization_admins.organization_id = ?", organizationID).
		Order("users.email").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserInfo, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// UpdateRewardCumulative stores the running reward totals of an organization.
func (r *OrganizationRepo) UpdateRewardCumulative(ctx context.Context, id string, zlto, yoma *float64) error {
	return r.client.conn(ctx).Model(&organizationRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"zlto_reward_cumulative": zlto,
			"yoma_reward_cumulative": yoma,
		}).Error
}
