package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/laptop-tracker/internal/domain"
	"github.com/laptop-tracker/internal/repository"
	"gorm.io/gorm"
)

// Число попыток сгенерировать уникальный код сотрудника, прежде
// чем Provision вернёт ошибку
const codeGenAttempts = 5

// ProvisionResult - результат регистрации устройства
type ProvisionResult struct {
	EmployeeID   int64
	EmployeeCode string
}

// PurgeResult - итог зачистки подразделения
type PurgeResult struct {
	DepartmentName string
	KeptByName     int
	KeptByCode     int
	Deleted        int
}

// DirectoryService владеет жизненным циклом справочника:
// подразделения, сотрудники и привязки устройств. Никакой другой
// компонент строки справочника не удаляет.
type DirectoryService interface {
	Provision(ctx context.Context, deviceID, employeeName, departmentName string) (*ProvisionResult, error)
	DeleteEmployees(ctx context.Context, employeeCodes []string) (int, error)
	DeleteDepartment(ctx context.Context, name string) (bool, error)
	PurgeDepartmentExcept(ctx context.Context, departmentName string, keepNames, keepCodes []string) (*PurgeResult, error)
	StartupPurge(ctx context.Context, codes []string)
	Reset(ctx context.Context) error
	Seed(ctx context.Context) error
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	ListEmployees(ctx context.Context, departmentID int64) ([]domain.Employee, error)
}

type directoryService struct {
	deptRepo   repository.DepartmentRepository
	empRepo    repository.EmployeeRepository
	laptopRepo repository.LaptopRepository
	locRepo    repository.LocationRepository
	logger     *slog.Logger
}

// NewDirectoryService создаёт новый экземпляр сервиса
func NewDirectoryService(
	deptRepo repository.DepartmentRepository,
	empRepo repository.EmployeeRepository,
	laptopRepo repository.LaptopRepository,
	locRepo repository.LocationRepository,
	logger *slog.Logger,
) DirectoryService {
	return &directoryService{
		deptRepo:   deptRepo,
		empRepo:    empRepo,
		laptopRepo: laptopRepo,
		locRepo:    locRepo,
		logger:     logger,
	}
}

// Provision регистрирует устройство: находит или создаёт подразделение,
// всегда заводит нового сотрудника со свежим кодом и привязывает к нему
// устройство. Повторная регистрация того же deviceId перевешивает
// существующую запись устройства на нового сотрудника, дубликат не создаётся.
func (s *directoryService) Provision(ctx context.Context, deviceID, employeeName, departmentName string) (*ProvisionResult, error) {
	dept, err := s.deptRepo.GetByName(ctx, departmentName)
	if err != nil {
		if !errors.Is(err, domain.ErrDepartmentNotFound) {
			return nil, err
		}
		dept = &domain.Department{Name: departmentName}
		if err := s.deptRepo.Create(ctx, dept); err != nil {
			return nil, err
		}
	}

	emp, err := s.createEmployeeWithCode(ctx, employeeName, dept.ID)
	if err != nil {
		return nil, err
	}

	laptop, err := s.laptopRepo.GetByDeviceID(ctx, deviceID)
	switch {
	case errors.Is(err, domain.ErrLaptopNotFound):
		laptop = &domain.Laptop{DeviceID: deviceID, EmployeeID: emp.ID}
		if err := s.laptopRepo.Create(ctx, laptop); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := s.laptopRepo.Rebind(ctx, laptop.ID, emp.ID); err != nil {
			return nil, err
		}
	}

	return &ProvisionResult{EmployeeID: emp.ID, EmployeeCode: emp.EmployeeCode}, nil
}

// createEmployeeWithCode создаёт сотрудника, повторяя генерацию кода
// при нарушении уникальности в хранилище
func (s *directoryService) createEmployeeWithCode(ctx context.Context, fullName string, departmentID int64) (*domain.Employee, error) {
	var lastErr error
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		emp := &domain.Employee{
			FullName:     fullName,
			DepartmentID: departmentID,
			EmployeeCode: generateEmployeeCode(),
		}
		err := s.empRepo.Create(ctx, emp)
		if err == nil {
			return emp, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrCodeExhausted, lastErr)
}

// generateEmployeeCode возвращает код формата E + 6 случайных цифр
func generateEmployeeCode() string {
	return fmt.Sprintf("E%d", 100000+rand.Intn(900000))
}

// DeleteEmployees удаляет сотрудников по кодам. Неизвестные коды
// пропускаются; возвращается число фактически удалённых.
func (s *directoryService) DeleteEmployees(ctx context.Context, employeeCodes []string) (int, error) {
	deleted := 0
	for _, code := range employeeCodes {
		emp, err := s.empRepo.GetByCode(ctx, code)
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		if err := s.cascadeDeleteEmployee(ctx, emp.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// DeleteDepartment каскадно удаляет подразделение со всеми сотрудниками.
// Отсутствующее подразделение не ошибка: возвращается deleted=false.
func (s *directoryService) DeleteDepartment(ctx context.Context, name string) (bool, error) {
	dept, err := s.deptRepo.GetByName(ctx, name)
	if errors.Is(err, domain.ErrDepartmentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	employees, err := s.empRepo.GetByDepartmentID(ctx, dept.ID)
	if err != nil {
		return false, err
	}
	for _, emp := range employees {
		if err := s.cascadeDeleteEmployee(ctx, emp.ID); err != nil {
			return false, err
		}
	}

	if err := s.deptRepo.Delete(ctx, dept.ID); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeDepartmentExcept удаляет всех сотрудников подразделения, кроме
// попавших в списки-исключения: по подстроке имени (без учёта регистра)
// или по точному коду. В счётчиках kept возвращаются размеры переданных
// списков, как их прислал вызывающий.
func (s *directoryService) PurgeDepartmentExcept(ctx context.Context, departmentName string, keepNames, keepCodes []string) (*PurgeResult, error) {
	dept, err := s.deptRepo.GetByName(ctx, departmentName)
	if err != nil {
		return nil, err
	}

	employees, err := s.empRepo.GetByDepartmentID(ctx, dept.ID)
	if err != nil {
		return nil, err
	}

	keepNamesLC := make([]string, 0, len(keepNames))
	for _, n := range keepNames {
		keepNamesLC = append(keepNamesLC, strings.ToLower(n))
	}
	keepCodesSet := make(map[string]struct{}, len(keepCodes))
	for _, c := range keepCodes {
		keepCodesSet[c] = struct{}{}
	}

	deleted := 0
	for _, emp := range employees {
		if s.shouldKeep(&emp, keepNamesLC, keepCodesSet) {
			continue
		}
		if err := s.cascadeDeleteEmployee(ctx, emp.ID); err != nil {
			return nil, err
		}
		deleted++
	}

	return &PurgeResult{
		DepartmentName: departmentName,
		KeptByName:     len(keepNamesLC),
		KeptByCode:     len(keepCodesSet),
		Deleted:        deleted,
	}, nil
}

func (s *directoryService) shouldKeep(emp *domain.Employee, keepNamesLC []string, keepCodes map[string]struct{}) bool {
	nameLC := strings.ToLower(emp.FullName)
	for _, kn := range keepNamesLC {
		if strings.Contains(nameLC, kn) {
			return true
		}
	}
	_, ok := keepCodes[emp.EmployeeCode]
	return ok
}

// StartupPurge удаляет сотрудников из стартового списка кодов.
// Лучшая попытка: ошибки логируются и не мешают запуску сервиса.
func (s *directoryService) StartupPurge(ctx context.Context, codes []string) {
	if len(codes) == 0 {
		return
	}
	deleted, err := s.DeleteEmployees(ctx, codes)
	if err != nil {
		s.logger.Warn("startup purge incomplete", slog.Any("error", err), slog.Int("deleted", deleted))
		return
	}
	if deleted > 0 {
		s.logger.Info("startup purge", slog.Int("deleted", deleted))
	}
}

// Reset удаляет все геометки, устройства и сотрудников.
// Подразделения остаются.
func (s *directoryService) Reset(ctx context.Context) error {
	if err := s.locRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.laptopRepo.DeleteAll(ctx); err != nil {
		return err
	}
	return s.empRepo.DeleteAll(ctx)
}

// Начальные данные пустого справочника
var (
	seedDepartments = []string{
		"HR", "ICT", "ADMIN", "Commercial",
		"Merchandising", "Audit", "Account", "Supplychain",
	}
	seedEmployees = []struct {
		name string
		dept string
		code string
	}{
		{"Alice HR", "HR", "E1001"},
		{"Bob ICT", "ICT", "E1002"},
		{"Carol Admin", "ADMIN", "E1003"},
		{"Dave Commercial", "Commercial", "E1004"},
	}
)

// Seed наполняет пустой справочник стартовыми подразделениями и
// примерами сотрудников
func (s *directoryService) Seed(ctx context.Context) error {
	deptCount, err := s.deptRepo.Count(ctx)
	if err != nil {
		return err
	}
	if deptCount == 0 {
		for _, name := range seedDepartments {
			if err := s.deptRepo.Create(ctx, &domain.Department{Name: name}); err != nil {
				return err
			}
		}
	}

	empCount, err := s.empRepo.Count(ctx)
	if err != nil {
		return err
	}
	if empCount == 0 {
		for _, seed := range seedEmployees {
			dept, err := s.deptRepo.GetByName(ctx, seed.dept)
			if errors.Is(err, domain.ErrDepartmentNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			emp := &domain.Employee{
				FullName:     seed.name,
				DepartmentID: dept.ID,
				EmployeeCode: seed.code,
			}
			if err := s.empRepo.Create(ctx, emp); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *directoryService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.deptRepo.List(ctx)
}

func (s *directoryService) ListEmployees(ctx context.Context, departmentID int64) ([]domain.Employee, error) {
	return s.empRepo.GetByDepartmentID(ctx, departmentID)
}

// cascadeDeleteEmployee удаляет зависимые строки снизу вверх:
// геометки, затем устройства, затем самого сотрудника. Порядок
// сохраняет ссылочную целостность при сбое на любом шаге.
func (s *directoryService) cascadeDeleteEmployee(ctx context.Context, employeeID int64) error {
	laptops, err := s.laptopRepo.ListByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}
	for _, laptop := range laptops {
		if err := s.locRepo.DeleteByLaptopID(ctx, laptop.ID); err != nil {
			return err
		}
	}
	if err := s.laptopRepo.DeleteByEmployeeID(ctx, employeeID); err != nil {
		return err
	}
	if err := s.empRepo.Delete(ctx, employeeID); err != nil {
		// Параллельное удаление того же сотрудника уже прошло
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return nil
		}
		return err
	}
	return nil
}
