package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type statusCountRow struct {
	Status string
	Count  int64
}

// countByStatus groups rows owned by ownerID by their status column
func countByStatus[S ~string](query *gorm.DB, ownerColumn string, ownerID uuid.UUID) (map[S]int64, error) {
	var rows []statusCountRow
	err := query.
		Where(ownerColumn+" = ?", ownerID).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[S]int64, len(rows))
	for _, row := range rows {
		counts[S(row.Status)] = row.Count
	}
	return counts, nil
}

// countOwned counts rows owned by ownerID, optionally restricted by an extra predicate
func countOwned(query *gorm.DB, ownerColumn string, ownerID uuid.UUID, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var count int64
	err := query.
		Where(ownerColumn+" = ?", ownerID).
		Scopes(scopes...).
		Count(&count).Error
	return count, err
}

func statusIn[S ~string](statuses []S) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status IN ?", statuses)
	}
}

func statusNotIn[S ~string](statuses []S) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status NOT IN ?", statuses)
	}
}
