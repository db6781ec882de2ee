package repository

import (
	"context"

	"github.com/laptop-tracker/internal/domain"
	"gorm.io/gorm"
)

// LocationRepository определяет интерфейс для работы с геометками
type LocationRepository interface {
	Create(ctx context.Context, loc *domain.Location) error
	LastByLaptopID(ctx context.Context, laptopID int64) (*domain.Location, error)
	HistoryByLaptopID(ctx context.Context, laptopID int64, from, to string, limit int) ([]domain.Location, error)
	DeleteByLaptopID(ctx context.Context, laptopID int64) error
	DeleteAll(ctx context.Context) error
}

type locationRepository struct {
	db *gorm.DB
}

// NewLocationRepository создаёт новый экземпляр репозитория
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Create(ctx context.Context, loc *domain.Location) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *locationRepository) LastByLaptopID(ctx context.Context, laptopID int64) (*domain.Location, error) {
	var loc domain.Location
	err := r.db.WithContext(ctx).
		Where("laptop_id = ?", laptopID).
		Order("recorded_at DESC").
		First(&loc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

// HistoryByLaptopID возвращает метки по убыванию recorded_at.
// Границы from/to включительные и сравниваются как строки RFC3339.
func (r *locationRepository) HistoryByLaptopID(ctx context.Context, laptopID int64, from, to string, limit int) ([]domain.Location, error) {
	query := r.db.WithContext(ctx).Where("laptop_id = ?", laptopID)
	if from != "" {
		query = query.Where("recorded_at >= ?", from)
	}
	if to != "" {
		query = query.Where("recorded_at <= ?", to)
	}

	var locations []domain.Location
	err := query.Order("recorded_at DESC").Limit(limit).Find(&locations).Error
	return locations, err
}

func (r *locationRepository) DeleteByLaptopID(ctx context.Context, laptopID int64) error {
	return r.db.WithContext(ctx).
		Where("laptop_id = ?", laptopID).
		Delete(&domain.Location{}).Error
}

func (r *locationRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Location{}).Error
}
