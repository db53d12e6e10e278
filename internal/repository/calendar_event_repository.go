package repository

import (
	"context"
	"time"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CalendarEventRepository struct {
	db *gorm.DB
}

func NewCalendarEventRepository(db *gorm.DB) *CalendarEventRepository {
	return &CalendarEventRepository{db: db}
}

// Upcoming returns the next scheduled events for userID at or after now, soonest first
func (r *CalendarEventRepository) Upcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]domain.CalendarEvent, error) {
	var events []domain.CalendarEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status = ?", domain.EventStatusScheduled).
		Where("scheduled_date >= ?", now.UTC()).
		Order("scheduled_date ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
