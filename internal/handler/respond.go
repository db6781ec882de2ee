package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/laptop-tracker/internal/domain"
	"github.com/laptop-tracker/internal/dto"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, errText, message, code string) {
	respondJSON(w, status, dto.ErrorResponse{
		Error:   errText,
		Message: message,
		Code:    code,
	})
}

// handleServiceError переводит бизнес-ошибки в HTTP-статусы.
// Всё незнакомое уходит как 500 без дополнительной обработки.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownEmployeeCode):
		// Текст сообщения сохраняется ради старых клиентов,
		// новые ориентируются на поле code
		respondError(w, http.StatusBadRequest, "unknown employee code", "Unknown employee code", domain.CodeUnknownEmployee)
	case errors.Is(err, domain.ErrDepartmentNotFound):
		respondError(w, http.StatusNotFound, "not found", "department not found", domain.CodeNotFound)
	case errors.Is(err, domain.ErrEmployeeNotFound):
		respondError(w, http.StatusNotFound, "not found", "employee not found", domain.CodeNotFound)
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "unauthorized", "Invalid credentials", domain.CodeAuth)
	default:
		logger.Error("internal error", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error", "", "")
	}
}
