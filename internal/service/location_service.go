package service

import (
	"context"
	"errors"
	"time"

	"github.com/laptop-tracker/internal/domain"
	"github.com/laptop-tracker/internal/repository"
)

// Формат recorded_at: RFC3339 с миллисекундами в UTC. Строки в этом
// формате упорядочены лексикографически, что и использует фильтр истории.
const recordedAtFormat = "2006-01-02T15:04:05.000Z07:00"

// Лимит записей истории по умолчанию
const DefaultHistoryLimit = 100

// LastLocation - последняя позиция сотрудника с оценкой свежести
type LastLocation struct {
	Location         *domain.Location
	IsOnline         bool
	AgeSeconds       *int64
	ThresholdSeconds int
}

// LocationService принимает геометки от устройств и отвечает на
// запросы о позициях. Привязку устройства он дописывает, но никогда
// не перевешивает на другого сотрудника.
type LocationService interface {
	Report(ctx context.Context, deviceID, employeeCode string, latitude, longitude float64) error
	LastLocation(ctx context.Context, employeeID int64) (*LastLocation, error)
	History(ctx context.Context, employeeID int64, from, to string, limit int) ([]domain.Location, error)
}

type locationService struct {
	empRepo          repository.EmployeeRepository
	laptopRepo       repository.LaptopRepository
	locRepo          repository.LocationRepository
	thresholdSeconds int
	now              func() time.Time
}

// NewLocationService создаёт новый экземпляр сервиса
func NewLocationService(
	empRepo repository.EmployeeRepository,
	laptopRepo repository.LaptopRepository,
	locRepo repository.LocationRepository,
	thresholdSeconds int,
) LocationService {
	return &locationService{
		empRepo:          empRepo,
		laptopRepo:       laptopRepo,
		locRepo:          locRepo,
		thresholdSeconds: thresholdSeconds,
		now:              time.Now,
	}
}

// Report сохраняет геометку. Неизвестный код сотрудника возвращается
// как ErrUnknownEmployeeCode - сигнал клиенту пройти регистрацию заново.
// Временная метка клиента игнорируется: recorded_at ставит сервер.
func (s *locationService) Report(ctx context.Context, deviceID, employeeCode string, latitude, longitude float64) error {
	emp, err := s.empRepo.GetByCode(ctx, employeeCode)
	if errors.Is(err, domain.ErrEmployeeNotFound) {
		return domain.ErrUnknownEmployeeCode
	}
	if err != nil {
		return err
	}

	laptop, err := s.laptopRepo.GetByDeviceID(ctx, deviceID)
	if errors.Is(err, domain.ErrLaptopNotFound) {
		laptop = &domain.Laptop{DeviceID: deviceID, EmployeeID: emp.ID}
		if err := s.laptopRepo.Create(ctx, laptop); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	loc := &domain.Location{
		LaptopID:   laptop.ID,
		Latitude:   latitude,
		Longitude:  longitude,
		RecordedAt: s.now().UTC().Format(recordedAtFormat),
	}
	return s.locRepo.Create(ctx, loc)
}

// LastLocation возвращает последнюю метку сотрудника и признак
// онлайна: метка не старше настроенного порога. Это проверка
// свежести данных, а не живости устройства.
func (s *locationService) LastLocation(ctx context.Context, employeeID int64) (*LastLocation, error) {
	offline := &LastLocation{ThresholdSeconds: s.thresholdSeconds}

	laptop, err := s.laptopRepo.FirstByEmployeeID(ctx, employeeID)
	if errors.Is(err, domain.ErrLaptopNotFound) {
		return offline, nil
	}
	if err != nil {
		return nil, err
	}

	loc, err := s.locRepo.LastByLaptopID(ctx, laptop.ID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return offline, nil
	}

	recordedAt, err := time.Parse(time.RFC3339, loc.RecordedAt)
	if err != nil {
		return nil, err
	}
	age := int64(s.now().Sub(recordedAt) / time.Second)

	return &LastLocation{
		Location:         loc,
		IsOnline:         age <= int64(s.thresholdSeconds),
		AgeSeconds:       &age,
		ThresholdSeconds: s.thresholdSeconds,
	}, nil
}

// History возвращает срез истории меток, новые первыми. Сотрудник
// без устройства получает пустой список, а не ошибку.
func (s *locationService) History(ctx context.Context, employeeID int64, from, to string, limit int) ([]domain.Location, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	laptop, err := s.laptopRepo.FirstByEmployeeID(ctx, employeeID)
	if errors.Is(err, domain.ErrLaptopNotFound) {
		return []domain.Location{}, nil
	}
	if err != nil {
		return nil, err
	}

	return s.locRepo.HistoryByLaptopID(ctx, laptop.ID, from, to, limit)
}
