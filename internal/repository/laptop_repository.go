package repository

import (
	"context"

	"github.com/laptop-tracker/internal/domain"
	"gorm.io/gorm"
)

// LaptopRepository определяет интерфейс для работы с устройствами
type LaptopRepository interface {
	Create(ctx context.Context, laptop *domain.Laptop) error
	GetByDeviceID(ctx context.Context, deviceID string) (*domain.Laptop, error)
	FirstByEmployeeID(ctx context.Context, employeeID int64) (*domain.Laptop, error)
	ListByEmployeeID(ctx context.Context, employeeID int64) ([]domain.Laptop, error)
	Rebind(ctx context.Context, laptopID, employeeID int64) error
	DeleteByEmployeeID(ctx context.Context, employeeID int64) error
	DeleteAll(ctx context.Context) error
}

type laptopRepository struct {
	db *gorm.DB
}

// NewLaptopRepository создаёт новый экземпляр репозитория
func NewLaptopRepository(db *gorm.DB) LaptopRepository {
	return &laptopRepository{db: db}
}

func (r *laptopRepository) Create(ctx context.Context, laptop *domain.Laptop) error {
	return r.db.WithContext(ctx).Create(laptop).Error
}

func (r *laptopRepository) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Laptop, error) {
	var laptop domain.Laptop
	err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&laptop).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrLaptopNotFound
		}
		return nil, err
	}
	return &laptop, nil
}

func (r *laptopRepository) FirstByEmployeeID(ctx context.Context, employeeID int64) (*domain.Laptop, error) {
	var laptop domain.Laptop
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("id ASC").First(&laptop).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrLaptopNotFound
		}
		return nil, err
	}
	return &laptop, nil
}

func (r *laptopRepository) ListByEmployeeID(ctx context.Context, employeeID int64) ([]domain.Laptop, error) {
	var laptops []domain.Laptop
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Find(&laptops).Error
	return laptops, err
}

// Rebind переключает устройство на другого сотрудника
func (r *laptopRepository) Rebind(ctx context.Context, laptopID, employeeID int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Laptop{}).
		Where("id = ?", laptopID).
		Update("employee_id", employeeID).Error
}

func (r *laptopRepository) DeleteByEmployeeID(ctx context.Context, employeeID int64) error {
	return r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Delete(&domain.Laptop{}).Error
}

func (r *laptopRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Laptop{}).Error
}
