package domain

import "errors"

// Определение бизнес-ошибок
var (
	ErrDepartmentNotFound  = errors.New("department not found")
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrLaptopNotFound      = errors.New("laptop not found")
	ErrUnknownEmployeeCode = errors.New("unknown employee code")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrCodeExhausted       = errors.New("could not generate unique employee code")
)

// Коды ошибок для поля code в теле ответа. Клиент-репортёр
// принимает решение о повторной регистрации по коду, а не по
// тексту сообщения.
const (
	CodeUnknownEmployee = "unknown_employee_code"
	CodeValidation      = "validation_error"
	CodeAuth            = "auth_error"
	CodeNotFound        = "not_found"
)
