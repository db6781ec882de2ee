package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError - структурированный ответ бэкенда с ошибкой
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// IsUnknownIdentity сообщает, отверг ли сервер код сотрудника.
// Решение принимается по полю code; подстрока в сообщении остаётся
// запасным вариантом для старых серверов без машинных кодов.
func IsUnknownIdentity(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != "" {
		return apiErr.Code == "unknown_employee_code"
	}
	return apiErr.Status == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unknown employee code")
}

// ProvisionResult - ответ бэкенда на регистрацию
type ProvisionResult struct {
	EmployeeID   int64  `json:"employeeId"`
	EmployeeCode string `json:"employeeCode"`
}

// locationPayload - тело запроса с геометкой
type locationPayload struct {
	DeviceID     string  `json:"deviceId"`
	EmployeeCode string  `json:"employeeCode"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// Client - тонкий HTTP-клиент бэкенда. Базовый URL передаётся в
// каждый вызов: обнаружение бэкенда меняет его между вызовами.
// Повторов внутри вызова нет - ими управляет цикл агента.
type Client struct {
	http *http.Client
}

// NewClient создаёт клиент поверх переданного http.Client;
// nil означает транспорт по умолчанию
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{http: httpClient}
}

// Health проверяет доступность бэкенда по health-эндпоинту
func (c *Client) Health(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

// Provision регистрирует устройство и возвращает новый код сотрудника
func (c *Client) Provision(ctx context.Context, baseURL, deviceID, employeeName, departmentName string) (*ProvisionResult, error) {
	body := map[string]string{
		"deviceId":       deviceID,
		"employeeName":   employeeName,
		"departmentName": departmentName,
	}
	resp, err := c.postJSON(ctx, strings.TrimSuffix(baseURL, "/")+"/provision", "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiErrorFrom(resp)
	}

	var result ProvisionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Report отправляет одну геометку
func (c *Client) Report(ctx context.Context, baseURL, clientToken, deviceID, employeeCode string, latitude, longitude float64) error {
	payload := locationPayload{
		DeviceID:     deviceID,
		EmployeeCode: employeeCode,
		Latitude:     latitude,
		Longitude:    longitude,
	}
	resp, err := c.postJSON(ctx, strings.TrimSuffix(baseURL, "/")+"/location", clientToken, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFrom(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) postJSON(ctx context.Context, url, clientToken string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if clientToken != "" {
		req.Header.Set("x-client-token", clientToken)
	}
	return c.http.Do(req)
}

// apiErrorFrom разбирает тело ответа с ошибкой; не-JSON тело
// целиком попадает в Message
func apiErrorFrom(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}

	var parsed struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && (parsed.Message != "" || parsed.Code != "") {
		apiErr.Message = parsed.Message
		apiErr.Code = parsed.Code
		return apiErr
	}

	apiErr.Message = string(data)
	return apiErr
}
