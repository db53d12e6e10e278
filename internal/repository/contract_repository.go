package repository

import (
	"context"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/policy"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// ListVisible returns the newest contracts the access predicate admits
func (r *ContractRepository) ListVisible(ctx context.Context, access policy.RecordAccess, limit int) ([]domain.Contract, error) {
	var contracts []domain.Contract
	query := access.Apply(r.db.WithContext(ctx).Model(&domain.Contract{}), "requested_by")
	err := query.Order("created_at DESC").Limit(limit).Find(&contracts).Error
	return contracts, err
}

// CountByStatus counts the contracts requested by userID per status
func (r *ContractRepository) CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.ContractStatus]int64, error) {
	return countByStatus[domain.ContractStatus](r.db.WithContext(ctx).Model(&domain.Contract{}), "requested_by", userID)
}

// CountNotInStatuses counts the contracts requested by userID outside the given statuses
func (r *ContractRepository) CountNotInStatuses(ctx context.Context, userID uuid.UUID, statuses []domain.ContractStatus) (int64, error) {
	return countOwned(r.db.WithContext(ctx).Model(&domain.Contract{}), "requested_by", userID, statusNotIn(statuses))
}
