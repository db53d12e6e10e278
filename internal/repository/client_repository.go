package repository

import (
	"context"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// CountByAccountManager counts the clients managed by userID
func (r *ClientRepository) CountByAccountManager(ctx context.Context, userID uuid.UUID) (int64, error) {
	return countOwned(r.db.WithContext(ctx).Model(&domain.Client{}), "account_manager", userID)
}
