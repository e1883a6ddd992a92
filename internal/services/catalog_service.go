// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/scentdb-backend/internal/models"
	"github.com/javajoker/scentdb-backend/internal/normalize"
	"github.com/javajoker/scentdb-backend/internal/utils"
)

var ErrNotFound = errors.New("not found")

var perfumeSortFields = []string{"name", "year", "created_at", "updated_at"}

// CatalogService serves the reconciled catalog to readers.
type CatalogService struct {
	db  *gorm.DB
	key normalize.Func
}

type PerfumeListParams struct {
	utils.PaginationParams
	Brand  string
	Gender *models.Gender
}

// NewCatalogService looks names up with key, which must match the reconciler's.
func NewCatalogService(db *gorm.DB, key normalize.Func) *CatalogService {
	if key == nil {
		key = normalize.Key
	}
	return &CatalogService{db: db, key: key}
}

func (s *CatalogService) GetPerfume(ctx context.Context, id uuid.UUID) (*models.Perfume, error) {
	var perfume models.Perfume
	err := s.db.WithContext(ctx).
		Preload("Brand").
		Preload("Perfumers.Perfumer").
		Preload("Notes.Note").
		Preload("Sources.Source").
		Where("id = ?", id).
		First(&perfume).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &perfume, nil
}

func (s *CatalogService) GetBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	var brand models.Brand
	err := s.db.WithContext(ctx).Where("name_norm = ?", s.key(name)).First(&brand).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &brand, nil
}

func (s *CatalogService) ListPerfumes(ctx context.Context, params PerfumeListParams) ([]models.Perfume, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Perfume{})

	if params.Brand != "" {
		brandIDs := s.db.Model(&models.Brand{}).Select("id").Where("name_norm = ?", s.key(params.Brand))
		query = query.Where("perfumes.brand_id IN (?)", brandIDs)
	}
	if params.Gender != nil {
		query = query.Where("perfumes.gender = ?", *params.Gender)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count perfumes: %w", err)
	}

	var perfumes []models.Perfume
	query = utils.ApplySort(query, params.PaginationParams, perfumeSortFields, "perfumes.")
	query = utils.ApplyPagination(query, params.PaginationParams)
	if err := query.Preload("Brand").Find(&perfumes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list perfumes: %w", err)
	}

	return perfumes, total, nil
}
