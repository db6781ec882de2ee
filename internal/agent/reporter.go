package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"
)

// Agent - однопоточный цикл отправки геометок. Итерация всегда
// завершается (успехом или залогированной ошибкой) до начала
// следующей паузы; сетевые сбои никогда не останавливают процесс.
type Agent struct {
	cfg      *Config
	store    *ConfigStore
	client   *Client
	locator  Locator
	deviceID string
	logger   *slog.Logger

	discoveryHost  string
	discoveryPort  int
	discoveryPorts int

	locationNoticeShown bool
}

// New создаёт агент с диапазоном обнаружения по умолчанию
func New(cfg *Config, store *ConfigStore, client *Client, locator Locator, deviceID string, logger *slog.Logger) *Agent {
	return &Agent{
		cfg:            cfg,
		store:          store,
		client:         client,
		locator:        locator,
		deviceID:       deviceID,
		logger:         logger,
		discoveryHost:  defaultDiscoveryHost,
		discoveryPort:  defaultDiscoveryPort,
		discoveryPorts: defaultDiscoveryPorts,
	}
}

// Run запускает бесконечный цикл отправки с фиксированным интервалом.
// Возвращается только по отмене контекста.
func (a *Agent) Run(ctx context.Context) error {
	a.Discover(ctx)

	interval := time.Duration(a.cfg.IntervalSeconds) * time.Second
	for {
		a.iterate(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// RunOnce выполняет одну итерацию цикла: обнаружение, при
// необходимости регистрацию и одну отправку
func (a *Agent) RunOnce(ctx context.Context) error {
	a.Discover(ctx)
	return a.iterate(ctx)
}

// iterate - одна итерация: координаты, отправка, восстановление
// личности при отказе. Ошибка возвращается только для RunOnce;
// сам цикл её лишь логирует.
func (a *Agent) iterate(ctx context.Context) error {
	if a.cfg.EmployeeCode == "" {
		if err := a.Provision(ctx, a.bestKnownName(), a.bestKnownDepartment()); err != nil {
			// Не фатально: следующий цикл начнёт с обнаружения
			a.logger.Warn("provision failed, will retry next cycle", slog.Any("error", err))
			return err
		}
	}

	fix, err := a.locator.Current(ctx)
	if err != nil {
		if errors.Is(err, ErrLocationDenied) {
			a.notifyLocationDenied()
			return err
		}
		a.logger.Warn("location unavailable", slog.Any("error", err))
		return err
	}

	err = a.client.Report(ctx, a.cfg.BackendBaseURL, a.cfg.ClientToken, a.deviceID, a.cfg.EmployeeCode, fix.Latitude, fix.Longitude)
	if err == nil {
		a.logger.Info("location sent",
			slog.Float64("latitude", fix.Latitude),
			slog.Float64("longitude", fix.Longitude),
		)
		return nil
	}

	a.logger.Warn("send failed", slog.Any("error", err))

	if IsUnknownIdentity(err) {
		return a.recoverIdentity(ctx)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// Транспортная ошибка: бэкенд недоступен, ищем заново
		a.Discover(ctx)
	}
	return err
}

// recoverIdentity немедленно регистрируется заново с лучшими
// известными именем и подразделением. Новый код сохраняется, цикл
// продолжается без участия оператора.
func (a *Agent) recoverIdentity(ctx context.Context) error {
	name := a.bestKnownName()
	dept := a.bestKnownDepartment()

	result, err := a.client.Provision(ctx, a.cfg.BackendBaseURL, a.deviceID, name, dept)
	if err != nil {
		a.logger.Warn("re-provision failed", slog.Any("error", err))
		return err
	}

	a.adoptIdentity(result.EmployeeCode, name, dept)
	a.logger.Info("re-provisioned", slog.String("employeeCode", result.EmployeeCode))
	return nil
}

// bestKnownName: конфигурация, затем окружение, затем имя машины
func (a *Agent) bestKnownName() string {
	if a.cfg.EmployeeName != "" {
		return a.cfg.EmployeeName
	}
	if name := os.Getenv("LAPTOP_TRACKER_NAME"); name != "" {
		return name
	}
	return a.deviceID
}

// bestKnownDepartment: конфигурация, затем окружение, затем Unassigned
func (a *Agent) bestKnownDepartment() string {
	if a.cfg.DepartmentName != "" {
		return a.cfg.DepartmentName
	}
	if dept := os.Getenv("LAPTOP_TRACKER_DEPT"); dept != "" {
		return dept
	}
	return "Unassigned"
}

// notifyLocationDenied показывает уведомление об отказе в геолокации
// один раз за время жизни процесса
func (a *Agent) notifyLocationDenied() {
	if a.locationNoticeShown {
		return
	}
	a.locationNoticeShown = true
	a.logger.Error("location access denied; enable location services for this device")
}

// saveConfig сохраняет override; ошибка сохранения не мешает работе
func (a *Agent) saveConfig() {
	if err := a.store.SaveOverride(a.cfg); err != nil {
		a.logger.Warn("failed to save local config", slog.Any("error", err))
	}
}
