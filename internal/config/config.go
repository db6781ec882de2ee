package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config содержит настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Tracker  TrackerConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port string
}

// DatabaseConfig - настройки подключения к БД.
// По умолчанию используется SQLite-файл в каталоге данных
// пользователя; Driver=postgres переключает на PostgreSQL.
type DatabaseConfig struct {
	Driver   string
	File     string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// AuthConfig - секреты и учётные данные
type AuthConfig struct {
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	ClientToken   string
}

// BootstrapClientToken - общеизвестный токен по умолчанию,
// принимается всегда в дополнение к настроенному (упрощает
// первичную настройку клиентов)
const BootstrapClientToken = "dev_client_token"

// AcceptedClientTokens возвращает множество допустимых клиентских токенов
func (c *AuthConfig) AcceptedClientTokens() map[string]struct{} {
	return map[string]struct{}{
		c.ClientToken:        {},
		BootstrapClientToken: {},
	}
}

// TrackerConfig - параметры предметной логики
type TrackerConfig struct {
	OnlineThresholdSeconds int
	StartupDeleteCodes     []string
}

// Коды сотрудников, удаляемые при каждом старте сервиса
var defaultDeleteCodes = []string{"E845628"}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "4000"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			File:     getEnv("DB_FILE", defaultDBFile()),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "laptoptracker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "dev_secret"),
			AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
			ClientToken:   getEnv("CLIENT_TOKEN", BootstrapClientToken),
		},
		Tracker: TrackerConfig{
			OnlineThresholdSeconds: getEnvInt("ONLINE_THRESHOLD_SECONDS", 3600),
			StartupDeleteCodes:     startupDeleteCodes(),
		},
	}
}

// startupDeleteCodes объединяет коды по умолчанию со списком из DELETE_CODES
func startupDeleteCodes() []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0, len(defaultDeleteCodes))
	for _, c := range defaultDeleteCodes {
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	for _, c := range strings.Split(os.Getenv("DELETE_CODES"), ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes
}

// defaultDBFile возвращает путь к файлу БД в каталоге данных пользователя
func defaultDBFile() string {
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		return filepath.Join(local, "LaptopTracker", "tracker.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "tracker.db")
	}
	return filepath.Join(home, ".laptoptracker", "tracker.db")
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt возвращает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
