package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/laptop-tracker/internal/config"
	"github.com/laptop-tracker/internal/handler"
	"github.com/laptop-tracker/internal/repository"
	"github.com/laptop-tracker/internal/service"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations
var embedMigrations embed.FS

// Число дополнительных портов, которые пробуются при занятом базовом
const bindRetries = 10

func main() {
	// Инициализация логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg := config.Load()

	// Подключение к БД
	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to get sql.DB", slog.Any("error", err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Запуск миграций
	if err := runMigrations(sqlDB, cfg.Database.Driver); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация репозиториев
	deptRepo := repository.NewDepartmentRepository(db)
	empRepo := repository.NewEmployeeRepository(db)
	laptopRepo := repository.NewLaptopRepository(db)
	locRepo := repository.NewLocationRepository(db)

	// Инициализация сервисов
	dirService := service.NewDirectoryService(deptRepo, empRepo, laptopRepo, locRepo, logger)
	locService := service.NewLocationService(empRepo, laptopRepo, locRepo, cfg.Tracker.OnlineThresholdSeconds)
	authService, err := service.NewAuthService(cfg.Auth)
	if err != nil {
		logger.Error("failed to init auth service", slog.Any("error", err))
		os.Exit(1)
	}

	// Начальные данные и стартовая зачистка до приёма трафика
	ctx := context.Background()
	if err := dirService.Seed(ctx); err != nil {
		logger.Error("failed to seed directory", slog.Any("error", err))
		os.Exit(1)
	}
	dirService.StartupPurge(ctx, cfg.Tracker.StartupDeleteCodes)

	// Инициализация хендлеров
	authHandler := handler.NewAuthHandler(authService, logger)
	dirHandler := handler.NewDirectoryHandler(dirService, logger)
	locHandler := handler.NewLocationHandler(locService, logger)

	// Настройка роутера
	router := handler.NewRouter(authHandler, dirHandler, locHandler, authService, cfg.Auth.AcceptedClientTokens(), logger)
	httpHandler := router.Setup()

	// Занятый порт не фатален: пробуем следующие по порядку
	ln, port, err := listenWithRetry(cfg.Server.Port, logger)
	if err != nil {
		logger.Error("could not bind listener", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("could not gracefully shutdown the server", slog.Any("error", err))
		}
		close(done)
	}()

	logger.Info("server is starting", slog.Int("port", port))
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		logger.Error("could not serve", slog.Int("port", port), slog.Any("error", err))
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}

// listenWithRetry пытается занять настроенный порт, при конфликте
// сдвигаясь на следующий, не более bindRetries раз
func listenWithRetry(portStr string, logger *slog.Logger) (net.Listener, int, error) {
	base, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	var lastErr error
	for i := 0; i <= bindRetries; i++ {
		port := base + i
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, port, nil
		}
		lastErr = err
		logger.Info("port in use, trying next", slog.Int("port", port))
	}
	return nil, 0, lastErr
}

func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	if cfg.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return gorm.Open(sqlite.Open(cfg.File+"?_foreign_keys=on"), gormCfg)
	}

	var db *gorm.DB
	var err error
	for i := 0; i < 30; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
		if err == nil {
			sqlDB, _ := db.DB()
			if sqlDB.Ping() == nil {
				return db, nil
			}
		}
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("failed to connect to database after 30 attempts: %w", err)
}

func runMigrations(db *sql.DB, driver string) error {
	goose.SetBaseFS(embedMigrations)

	dialect := "postgres"
	if driver == "sqlite" {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations/"+driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
