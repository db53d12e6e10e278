package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/filequery"
	applog "github.com/ecoroute/crm-api/internal/logger"
	"github.com/ecoroute/crm-api/internal/mapper"
	"github.com/ecoroute/crm-api/internal/metrics"
	"github.com/ecoroute/crm-api/internal/policy"
	"github.com/ecoroute/crm-api/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DefaultPresignTTL is the lifetime of download links when none is configured
const DefaultPresignTTL = 900 * time.Second

type FileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)
	List(ctx context.Context, plan filequery.Plan) ([]domain.File, error)
	Count(ctx context.Context, plan filequery.Plan) (int64, error)
	Facets(ctx context.Context, plan filequery.Plan) (map[domain.FileEntityType]int64, error)
}

// ActivityRecorder accepts activity entries without blocking the caller
type ActivityRecorder interface {
	Record(entry domain.ActivityLog)
}

// FileService lists and hands out files under the principal's visibility scope
type FileService struct {
	files      FileStore
	storage    storage.Storage
	activity   ActivityRecorder
	presignTTL time.Duration
	logger     *zap.Logger
}

// NewFileService creates a new FileService instance with all required dependencies
func NewFileService(
	files FileStore,
	store storage.Storage,
	activity ActivityRecorder,
	presignTTL time.Duration,
	logger *zap.Logger,
) *FileService {
	if presignTTL <= 0 {
		presignTTL = DefaultPresignTTL
	}
	return &FileService{
		files:      files,
		storage:    store,
		activity:   activity,
		presignTTL: presignTTL,
		logger:     logger,
	}
}

// List returns one page of visible files, the filtered total and the
// per-category facets. Facets ignore the entity type filter.
func (s *FileService) List(ctx context.Context, principal domain.Principal, params filequery.Params) (*domain.FileListResponse, error) {
	plan := filequery.NewPlan(policy.ResolveFileAccess(principal), params)

	var (
		files  []domain.File
		total  int64
		facets map[domain.FileEntityType]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer metrics.ObserveSince(metrics.FileQueryDuration.WithLabelValues("list"), time.Now())
		files, err = s.files.List(gctx, plan)
		return err
	})
	g.Go(func() (err error) {
		defer metrics.ObserveSince(metrics.FileQueryDuration.WithLabelValues("count"), time.Now())
		total, err = s.files.Count(gctx, plan)
		return err
	})
	g.Go(func() (err error) {
		defer metrics.ObserveSince(metrics.FileQueryDuration.WithLabelValues("facet"), time.Now())
		facets, err = s.files.Facets(gctx, plan)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return &domain.FileListResponse{
		Success: true,
		Data:    mapper.ToFileDTOs(files),
		Pagination: domain.Pagination{
			Total:      total,
			Page:       params.Page,
			Limit:      params.Limit,
			TotalPages: filequery.TotalPages(total, params.Limit),
		},
		Facets: domain.FileFacets{EntityType: facets},
	}, nil
}

// GetByID returns file metadata when the principal may see the file and records the view
func (s *FileService) GetByID(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.FileDTO, error) {
	file, err := s.authorizedFile(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	s.activity.Record(domain.ActivityLog{
		UserID:     principal.ID,
		Action:     domain.ActivityActionFileViewed,
		EntityType: "file",
		EntityID:   file.ID,
		Details:    file.FileName,
	})

	dto := mapper.ToFileDTO(file)
	return &dto, nil
}

// DownloadURL issues a time-limited link to the file and records the download
func (s *FileService) DownloadURL(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.DownloadURLDTO, error) {
	file, err := s.authorizedFile(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.PresignURL(ctx, file.StoragePath, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create download url: %w", err)
	}

	s.activity.Record(domain.ActivityLog{
		UserID:     principal.ID,
		Action:     domain.ActivityActionFileDownloaded,
		EntityType: "file",
		EntityID:   file.ID,
		Details:    file.FileName,
	})

	return &domain.DownloadURLDTO{
		URL:       url,
		ExpiresIn: int(s.presignTTL / time.Second),
		FileName:  file.FileName,
	}, nil
}

func (s *FileService) authorizedFile(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.File, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	if err := policy.AuthorizeFile(principal, file); err != nil {
		applog.WithPrincipal(s.logger, principal).Info("file access denied",
			zap.String("file_id", id.String()))
		return nil, ErrAccessDenied
	}
	return file, nil
}
