package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/laptop-tracker/internal/agent"
)

var cli struct {
	ProvisionAndExit bool     `help:"Provision this device and exit."`
	Once             bool     `help:"Send a single location report and exit."`
	Name             string   `help:"Employee full name."`
	Dept             string   `help:"Department name."`
	Backend          string   `help:"Backend base URL override."`
	Token            string   `help:"Client token override."`
	Lat              *float64 `help:"Fixed latitude (skips geolocation lookup)."`
	Lon              *float64 `help:"Fixed longitude (skips geolocation lookup)."`
	ConfigDir        string   `help:"Local data directory override."`
}

func main() {
	cmd := kong.Parse(&cli, kong.Name("tracker-agent"), kong.Description("Laptop location reporting agent."))

	store := agent.NewConfigStore(cli.ConfigDir)
	logger := newLogger(store.LocalDir())

	cfg := store.Load()
	if cli.Name != "" {
		cfg.EmployeeName = cli.Name
	}
	if cli.Dept != "" {
		cfg.DepartmentName = cli.Dept
	}
	if cli.Backend != "" {
		cfg.BackendBaseURL = cli.Backend
	}
	if cli.Token != "" {
		cfg.ClientToken = cli.Token
	}
	if cli.Lat != nil && cli.Lon != nil {
		cfg.Latitude = cli.Lat
		cfg.Longitude = cli.Lon
	}

	deviceID, err := os.Hostname()
	if err != nil || deviceID == "" {
		logger.Error("cannot determine device id", slog.Any("error", err))
		cmd.Exit(1)
	}

	a := agent.New(cfg, store, agent.NewClient(nil), newLocator(cfg), deviceID, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting tracker agent",
		slog.String("deviceId", deviceID),
		slog.String("backend", cfg.BackendBaseURL),
	)

	switch {
	case cli.ProvisionAndExit:
		a.Discover(ctx)
		if err := a.Provision(ctx, name(cfg, deviceID), dept(cfg)); err != nil {
			logger.Error("provision failed", slog.Any("error", err))
			cmd.Exit(1)
		}
	case cli.Once:
		if err := a.RunOnce(ctx); err != nil {
			cmd.Exit(1)
		}
	default:
		if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("agent stopped", slog.Any("error", err))
			cmd.Exit(1)
		}
	}
}

func name(cfg *agent.Config, deviceID string) string {
	if cfg.EmployeeName != "" {
		return cfg.EmployeeName
	}
	return deviceID
}

func dept(cfg *agent.Config) string {
	if cfg.DepartmentName != "" {
		return cfg.DepartmentName
	}
	return "Unassigned"
}

// newLocator выбирает источник координат: фиксированные из
// конфигурации либо геолокационный HTTP-сервис
func newLocator(cfg *agent.Config) agent.Locator {
	if cfg.Latitude != nil && cfg.Longitude != nil {
		return agent.StaticLocator{Fix: agent.Fix{Latitude: *cfg.Latitude, Longitude: *cfg.Longitude}}
	}
	return &agent.HTTPLocator{Endpoint: cfg.LocateURL, HTTP: http.DefaultClient}
}

// newLogger пишет в stderr и, по возможности, в client.log в каталоге
// данных агента
func newLogger(localDir string) *slog.Logger {
	var w io.Writer = os.Stderr
	if err := os.MkdirAll(localDir, 0o700); err == nil {
		f, err := os.OpenFile(filepath.Join(localDir, "client.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err == nil {
			w = io.MultiWriter(os.Stderr, f)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
