package repository

import (
	"context"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityLogRepository appends and reads activity log entries.
// Entries are never updated or deleted.
type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Recent returns the latest entries for userID, newest first
func (r *ActivityLogRepository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ActivityLog, error) {
	var entries []domain.ActivityLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
