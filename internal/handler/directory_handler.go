package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/laptop-tracker/internal/domain"
	"github.com/laptop-tracker/internal/dto"
	"github.com/laptop-tracker/internal/service"
)

// DirectoryHandler обслуживает справочник: подразделения, сотрудников,
// регистрацию устройств и административные удаления
type DirectoryHandler struct {
	dirService service.DirectoryService
	validator  *validator.Validate
	logger     *slog.Logger
}

func NewDirectoryHandler(dirService service.DirectoryService, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		dirService: dirService,
		validator:  validator.New(),
		logger:     logger,
	}
}

func (h *DirectoryHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.dirService.ListDepartments(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := make([]dto.DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		resp = append(resp, dto.DepartmentResponse{ID: d.ID, Name: d.Name})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *DirectoryHandler) ListDepartmentEmployees(w http.ResponseWriter, r *http.Request, departmentID int64) {
	employees, err := h.dirService.ListEmployees(r.Context(), departmentID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := make([]dto.EmployeeResponse, 0, len(employees))
	for _, e := range employees {
		resp = append(resp, dto.EmployeeResponse{
			ID:           e.ID,
			FullName:     e.FullName,
			EmployeeCode: e.EmployeeCode,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// Provision регистрирует устройство за новым сотрудником. Токен не
// требуется: это осознанное упрощение первичной настройки.
func (h *DirectoryHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req dto.ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error(), domain.CodeValidation)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation error", "Missing required fields", domain.CodeValidation)
		return
	}

	result, err := h.dirService.Provision(r.Context(), req.DeviceID, req.EmployeeName, req.DepartmentName)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ProvisionResponse{
		EmployeeID:   result.EmployeeID,
		EmployeeCode: result.EmployeeCode,
	})
}

func (h *DirectoryHandler) DeleteEmployees(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteEmployeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error(), domain.CodeValidation)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation error", "employeeCodes array required", domain.CodeValidation)
		return
	}

	deleted, err := h.dirService.DeleteEmployees(r.Context(), req.EmployeeCodes)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.DeleteEmployeesResponse{Deleted: deleted})
}

func (h *DirectoryHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error(), domain.CodeValidation)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation error", "department name required", domain.CodeValidation)
		return
	}

	deleted, err := h.dirService.DeleteDepartment(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := dto.DeleteDepartmentResponse{Deleted: deleted}
	if !deleted {
		resp.Message = "department not found"
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *DirectoryHandler) PurgeDepartment(w http.ResponseWriter, r *http.Request) {
	var req dto.PurgeDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error(), domain.CodeValidation)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation error", "departmentName required", domain.CodeValidation)
		return
	}

	result, err := h.dirService.PurgeDepartmentExcept(r.Context(), req.DepartmentName, req.KeepNames, req.KeepCodes)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.PurgeDepartmentResponse{
		DepartmentName: result.DepartmentName,
		KeptByName:     result.KeptByName,
		KeptByCode:     result.KeptByCode,
		Deleted:        result.Deleted,
	})
}

func (h *DirectoryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.dirService.Reset(r.Context()); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Reset completed"})
}
