package repository

import (
	"context"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/policy"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

func (r *ProposalRepository) Create(ctx context.Context, proposal *domain.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	var proposal domain.Proposal
	err := r.db.WithContext(ctx).First(&proposal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListVisible returns the newest proposals the access predicate admits
func (r *ProposalRepository) ListVisible(ctx context.Context, access policy.RecordAccess, limit int) ([]domain.Proposal, error) {
	var proposals []domain.Proposal
	query := access.Apply(r.db.WithContext(ctx).Model(&domain.Proposal{}), "requested_by")
	err := query.Order("created_at DESC").Limit(limit).Find(&proposals).Error
	return proposals, err
}

// CountByStatus counts the proposals requested by userID per status
func (r *ProposalRepository) CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.ProposalStatus]int64, error) {
	return countByStatus[domain.ProposalStatus](r.db.WithContext(ctx).Model(&domain.Proposal{}), "requested_by", userID)
}

// CountInStatuses counts the proposals requested by userID in any of the given statuses
func (r *ProposalRepository) CountInStatuses(ctx context.Context, userID uuid.UUID, statuses []domain.ProposalStatus) (int64, error) {
	return countOwned(r.db.WithContext(ctx).Model(&domain.Proposal{}), "requested_by", userID, statusIn(statuses))
}
