package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrProvisioningUnreachable возвращается, когда ни один шаг цепочки
// регистрации не достиг работающего бэкенда
var ErrProvisioningUnreachable = errors.New("provisioning unreachable")

// provisionStep - шаг цепочки регистрации. Шаги выполняются строго
// по порядку до первого успеха.
type provisionStep int

const (
	// Регистрация на настроенном бэкенде как есть
	stepConfiguredBackend provisionStep = iota
	// Повторное обнаружение бэкенда и вторая попытка
	stepRediscover
	// Прямой перебор локальных портов с bootstrap-токеном
	stepPortScan
	// Сброс токена на bootstrap и финальная попытка на настроенном URL
	stepBootstrapToken
)

func (s provisionStep) String() string {
	switch s {
	case stepConfiguredBackend:
		return "configured-backend"
	case stepRediscover:
		return "rediscover"
	case stepPortScan:
		return "port-scan"
	case stepBootstrapToken:
		return "bootstrap-token"
	default:
		return "unknown"
	}
}

// Provision проводит устройство через цепочку регистрации. Успех
// любого шага сохраняет новый код сотрудника и принятые настройки
// в override-файл.
func (a *Agent) Provision(ctx context.Context, employeeName, departmentName string) error {
	for step := stepConfiguredBackend; step <= stepBootstrapToken; step++ {
		if a.runProvisionStep(ctx, step, employeeName, departmentName) {
			a.logger.Info("provisioned",
				slog.String("step", step.String()),
				slog.String("employeeCode", a.cfg.EmployeeCode),
			)
			return nil
		}
	}
	return ErrProvisioningUnreachable
}

func (a *Agent) runProvisionStep(ctx context.Context, step provisionStep, employeeName, departmentName string) bool {
	switch step {
	case stepConfiguredBackend:
		return a.provisionAt(ctx, a.cfg.BackendBaseURL, employeeName, departmentName)

	case stepRediscover:
		if !a.Discover(ctx) {
			return false
		}
		return a.provisionAt(ctx, a.cfg.BackendBaseURL, employeeName, departmentName)

	case stepPortScan:
		for i := 0; i < a.discoveryPorts; i++ {
			baseURL := fmt.Sprintf("http://%s:%d/api", a.discoveryHost, a.discoveryPort+i)
			result, err := a.client.Provision(ctx, baseURL, a.deviceID, employeeName, departmentName)
			if err != nil {
				continue
			}
			a.cfg.BackendBaseURL = baseURL
			a.cfg.ClientToken = bootstrapClientToken
			a.adoptIdentity(result.EmployeeCode, employeeName, departmentName)
			return true
		}
		return false

	case stepBootstrapToken:
		a.cfg.ClientToken = bootstrapClientToken
		return a.provisionAt(ctx, a.cfg.BackendBaseURL, employeeName, departmentName)
	}
	return false
}

// provisionAt выполняет одну попытку регистрации на заданном URL
func (a *Agent) provisionAt(ctx context.Context, baseURL, employeeName, departmentName string) bool {
	result, err := a.client.Provision(ctx, baseURL, a.deviceID, employeeName, departmentName)
	if err != nil {
		a.logger.Warn("provision attempt failed",
			slog.String("backend", baseURL),
			slog.Any("error", err),
		)
		return false
	}
	a.adoptIdentity(result.EmployeeCode, employeeName, departmentName)
	return true
}

// adoptIdentity фиксирует новую личность в конфигурации и сохраняет её
func (a *Agent) adoptIdentity(employeeCode, employeeName, departmentName string) {
	a.cfg.EmployeeCode = employeeCode
	a.cfg.EmployeeName = employeeName
	a.cfg.DepartmentName = departmentName
	a.saveConfig()
}
