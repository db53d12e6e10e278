package repository

import (
	"context"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// CountClaimedBy counts the leads claimed by userID
func (r *LeadRepository) CountClaimedBy(ctx context.Context, userID uuid.UUID) (int64, error) {
	return countOwned(r.db.WithContext(ctx).Model(&domain.Lead{}), "claimed_by", userID)
}
