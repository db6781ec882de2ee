package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// Диапазон портов, перебираемых при поиске локального бэкенда
const (
	defaultDiscoveryHost  = "localhost"
	defaultDiscoveryPort  = 4000
	defaultDiscoveryPorts = 11
)

// Discover ищет работающий бэкенд: сначала health настроенного URL,
// затем последовательный перебор локальных портов. Первый ответивший
// порт становится новым базовым URL и сохраняется в override. Если
// никто не ответил, конфигурация не меняется и агент продолжит
// попытки в следующем цикле.
//
// Перебор намеренно последовательный: поведение детерминировано и
// не создаёт шквала запросов.
func (a *Agent) Discover(ctx context.Context) bool {
	if err := a.client.Health(ctx, a.cfg.BackendBaseURL); err == nil {
		return true
	}

	for i := 0; i < a.discoveryPorts; i++ {
		baseURL := fmt.Sprintf("http://%s:%d/api", a.discoveryHost, a.discoveryPort+i)
		if err := a.client.Health(ctx, baseURL); err != nil {
			continue
		}

		a.cfg.BackendBaseURL = baseURL
		a.saveConfig()
		a.logger.Info("backend discovered", slog.String("backend", baseURL))
		return true
	}

	a.logger.Warn("no backend reachable", slog.String("configured", a.cfg.BackendBaseURL))
	return false
}
