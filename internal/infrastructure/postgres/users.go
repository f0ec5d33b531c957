package postgres

import (
	"context"

	"github.com/yoma-opportunity/internal/domain"
)

type UserRepo struct {
	client *Client
}

func NewUserRepo(client *Client) *UserRepo {
	return &UserRepo{client: client}
}

func (r *UserRepo) ListByRole(ctx context.Context, role string) ([]domain.UserInfo, error) {
	var rows []userRow
	if err := r.client.conn(ctx).Where("role = ?", role).Order("email").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.UserInfo, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}
