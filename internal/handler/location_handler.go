package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/laptop-tracker/internal/domain"
	"github.com/laptop-tracker/internal/dto"
	"github.com/laptop-tracker/internal/service"
)

// LocationHandler принимает геометки и отвечает на запросы о позициях
type LocationHandler struct {
	locService service.LocationService
	validator  *validator.Validate
	logger     *slog.Logger
}

func NewLocationHandler(locService service.LocationService, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{
		locService: locService,
		validator:  validator.New(),
		logger:     logger,
	}
}

func (h *LocationHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req dto.ReportLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error(), domain.CodeValidation)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation error", "Missing required fields", domain.CodeValidation)
		return
	}

	err := h.locService.Report(r.Context(), req.DeviceID, req.EmployeeCode, *req.Latitude, *req.Longitude)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Location stored"})
}

func (h *LocationHandler) LastLocation(w http.ResponseWriter, r *http.Request, employeeID int64) {
	last, err := h.locService.LastLocation(r.Context(), employeeID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := dto.LastLocationResponse{
		IsOnline:         last.IsOnline,
		AgeSeconds:       last.AgeSeconds,
		ThresholdSeconds: last.ThresholdSeconds,
		ServerTime:       time.Now().UTC().Format(time.RFC3339),
	}
	if last.Location != nil {
		resp.Location = &dto.LocationResponse{
			Latitude:   last.Location.Latitude,
			Longitude:  last.Location.Longitude,
			RecordedAt: last.Location.RecordedAt,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *LocationHandler) History(w http.ResponseWriter, r *http.Request, employeeID int64) {
	q := r.URL.Query()
	limit := service.DefaultHistoryLimit
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	locations, err := h.locService.History(r.Context(), employeeID, q.Get("from"), q.Get("to"), limit)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := dto.LocationHistoryResponse{Locations: make([]dto.LocationResponse, 0, len(locations))}
	for _, loc := range locations {
		resp.Locations = append(resp.Locations, dto.LocationResponse{
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			RecordedAt: loc.RecordedAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
