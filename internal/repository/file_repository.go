package repository

import (
	"context"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/filequery"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileRepository reads file metadata.
//
// Index recommendations:
// - CREATE INDEX idx_files_uploaded_by ON files(uploaded_by);
// - CREATE INDEX idx_files_entity_type_created ON files(entity_type, created_at DESC);
type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// List returns one page of files matching the plan, newest first
func (r *FileRepository) List(ctx context.Context, plan filequery.Plan) ([]domain.File, error) {
	var files []domain.File
	err := plan.List(r.db.WithContext(ctx).Model(&domain.File{})).Find(&files).Error
	return files, err
}

// Count returns the number of files matching the plan including the entity type filter
func (r *FileRepository) Count(ctx context.Context, plan filequery.Plan) (int64, error) {
	var count int64
	err := plan.Count(r.db.WithContext(ctx).Model(&domain.File{})).Count(&count).Error
	return count, err
}

// Facets returns per-entity-type counts over the plan's base predicate.
// Types with no matching files are absent.
func (r *FileRepository) Facets(ctx context.Context, plan filequery.Plan) (map[domain.FileEntityType]int64, error) {
	var rows []struct {
		EntityType domain.FileEntityType
		Count      int64
	}
	if err := plan.Facet(r.db.WithContext(ctx).Model(&domain.File{})).Scan(&rows).Error; err != nil {
		return nil, err
	}

	facets := make(map[domain.FileEntityType]int64, len(rows))
	for _, row := range rows {
		facets[row.EntityType] = row.Count
	}
	return facets, nil
}
