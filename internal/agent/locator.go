package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrLocationDenied означает, что платформа отказала в доступе к
// геолокации. Агент показывает уведомление один раз и продолжает цикл.
var ErrLocationDenied = errors.New("location access denied")

// Fix - полученные координаты
type Fix struct {
	Latitude  float64
	Longitude float64
}

// Locator получает текущие координаты устройства
type Locator interface {
	Current(ctx context.Context) (Fix, error)
}

// StaticLocator всегда возвращает фиксированные координаты.
// Используется для стационарных машин и в тестах.
type StaticLocator struct {
	Fix Fix
}

func (l StaticLocator) Current(ctx context.Context) (Fix, error) {
	return l.Fix, nil
}

// HTTPLocator запрашивает координаты у геолокационного HTTP-сервиса,
// отвечающего JSON с полями latitude и longitude
type HTTPLocator struct {
	Endpoint string
	HTTP     *http.Client
}

func (l *HTTPLocator) Current(ctx context.Context) (Fix, error) {
	httpClient := l.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Endpoint, nil)
	if err != nil {
		return Fix{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Fix{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return Fix{}, ErrLocationDenied
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Fix{}, fmt.Errorf("locate failed: status %d", resp.StatusCode)
	}

	var parsed struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&parsed); err != nil {
		return Fix{}, err
	}
	if parsed.Latitude == nil || parsed.Longitude == nil {
		return Fix{}, errors.New("locate response missing coordinates")
	}
	return Fix{Latitude: *parsed.Latitude, Longitude: *parsed.Longitude}, nil
}
