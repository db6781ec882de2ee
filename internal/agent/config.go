package agent

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Общеизвестный клиентский токен для первичной настройки
const bootstrapClientToken = "dev_client_token"

// Config - локальная конфигурация агента. Базовый файл лежит рядом
// с бинарником, override-файл в каталоге данных пользователя
// переписывается после каждой успешной регистрации или обнаружения
// бэкенда.
type Config struct {
	BackendBaseURL  string   `json:"backendBaseUrl"`
	EmployeeCode    string   `json:"employeeCode"`
	ClientToken     string   `json:"clientToken"`
	IntervalSeconds int      `json:"intervalSeconds"`
	EmployeeName    string   `json:"employeeName"`
	DepartmentName  string   `json:"departmentName"`
	LocateURL       string   `json:"locateUrl,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		BackendBaseURL:  "http://202.4.116.106:4000/api",
		ClientToken:     bootstrapClientToken,
		IntervalSeconds: 60,
		LocateURL:       "https://ipapi.co/json/",
	}
}

// ConfigStore читает и сохраняет локальную конфигурацию агента
type ConfigStore struct {
	baseDir string
}

// NewConfigStore создаёт хранилище конфигурации. Пустой baseDir
// означает каталог данных пользователя.
func NewConfigStore(baseDir string) *ConfigStore {
	if baseDir == "" {
		baseDir = defaultLocalDir()
	}
	return &ConfigStore{baseDir: baseDir}
}

// LocalDir возвращает каталог локальных данных агента
func (s *ConfigStore) LocalDir() string {
	return s.baseDir
}

// OverridePath возвращает путь к override-файлу
func (s *ConfigStore) OverridePath() string {
	return filepath.Join(s.baseDir, "appsettings.override.json")
}

// Load собирает конфигурацию: значения по умолчанию, затем базовый
// файл, затем override. Повреждённые файлы пропускаются: агент
// обязан стартовать с тем, что есть.
func (s *ConfigStore) Load() *Config {
	cfg := DefaultConfig()

	if exe, err := os.Executable(); err == nil {
		applyFile(cfg, filepath.Join(filepath.Dir(exe), "appsettings.json"))
	}
	applyFile(cfg, s.OverridePath())

	return cfg
}

// applyFile накладывает непустые поля из JSON-файла
func applyFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var over Config
	if err := json.Unmarshal(data, &over); err != nil {
		return
	}
	if over.BackendBaseURL != "" {
		cfg.BackendBaseURL = over.BackendBaseURL
	}
	if over.EmployeeCode != "" {
		cfg.EmployeeCode = over.EmployeeCode
	}
	if over.ClientToken != "" {
		cfg.ClientToken = over.ClientToken
	}
	if over.IntervalSeconds > 0 {
		cfg.IntervalSeconds = over.IntervalSeconds
	}
	if over.EmployeeName != "" {
		cfg.EmployeeName = over.EmployeeName
	}
	if over.DepartmentName != "" {
		cfg.DepartmentName = over.DepartmentName
	}
	if over.LocateURL != "" {
		cfg.LocateURL = over.LocateURL
	}
	if over.Latitude != nil {
		cfg.Latitude = over.Latitude
	}
	if over.Longitude != nil {
		cfg.Longitude = over.Longitude
	}
}

// SaveOverride атомарно переписывает override-файл: запись во
// временный файл и переименование
func (s *ConfigStore) SaveOverride(cfg *Config) error {
	if err := os.MkdirAll(s.baseDir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.OverridePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.OverridePath())
}

// defaultLocalDir возвращает каталог данных агента в профиле пользователя
func defaultLocalDir() string {
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		return filepath.Join(local, "LaptopTracker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".laptoptracker")
}
