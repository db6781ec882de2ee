package dto

// LoginRequest - запрос на вход администратора
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse - ответ с bearer-токеном
type LoginResponse struct {
	Token string `json:"token"`
}

// ProvisionRequest - запрос на регистрацию устройства за сотрудником
type ProvisionRequest struct {
	DeviceID       string `json:"deviceId" validate:"required,min=1,max=200"`
	EmployeeName   string `json:"employeeName" validate:"required,min=1,max=200"`
	DepartmentName string `json:"departmentName" validate:"required,min=1,max=200"`
}

// ProvisionResponse - результат регистрации
type ProvisionResponse struct {
	EmployeeID   int64  `json:"employeeId"`
	EmployeeCode string `json:"employeeCode"`
}

// ReportLocationRequest - геометка от клиента.
// Timestamp клиента игнорируется: время фиксирует сервер.
type ReportLocationRequest struct {
	DeviceID     string   `json:"deviceId" validate:"required,min=1,max=200"`
	EmployeeCode string   `json:"employeeCode" validate:"required,min=1,max=20"`
	Latitude     *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Timestamp    *string  `json:"timestamp"`
}

// DepartmentResponse - подразделение в списке
type DepartmentResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EmployeeResponse - сотрудник в списке подразделения
type EmployeeResponse struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	EmployeeCode string `json:"employee_code"`
}

// LocationResponse - одна геометка в ответах
type LocationResponse struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	RecordedAt string  `json:"recorded_at"`
}

// LastLocationResponse - последняя известная позиция сотрудника.
// Location равен null, если у сотрудника нет устройства или меток.
type LastLocationResponse struct {
	Location         *LocationResponse `json:"location"`
	IsOnline         bool              `json:"isOnline"`
	AgeSeconds       *int64            `json:"ageSeconds"`
	ThresholdSeconds int               `json:"thresholdSeconds"`
	ServerTime       string            `json:"serverTime"`
}

// LocationHistoryResponse - история геометок
type LocationHistoryResponse struct {
	Locations []LocationResponse `json:"locations"`
}

// DeleteEmployeesRequest - запрос на удаление сотрудников по кодам
type DeleteEmployeesRequest struct {
	EmployeeCodes []string `json:"employeeCodes" validate:"required,min=1,dive,required"`
}

// DeleteEmployeesResponse - количество фактически удалённых
type DeleteEmployeesResponse struct {
	Deleted int `json:"deleted"`
}

// DeleteDepartmentRequest - запрос на каскадное удаление подразделения
type DeleteDepartmentRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// DeleteDepartmentResponse - результат удаления подразделения
type DeleteDepartmentResponse struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message,omitempty"`
}

// PurgeDepartmentRequest - зачистка подразделения с исключениями
type PurgeDepartmentRequest struct {
	DepartmentName string   `json:"departmentName" validate:"required,min=1,max=200"`
	KeepNames      []string `json:"keepNames"`
	KeepCodes      []string `json:"keepCodes"`
}

// PurgeDepartmentResponse - итог зачистки. KeptByName и KeptByCode
// сообщают размеры переданных списков-исключений, а не число
// совпадений (поведение сохранено намеренно).
type PurgeDepartmentResponse struct {
	DepartmentName string `json:"departmentName"`
	KeptByName     int    `json:"keptByName"`
	KeptByCode     int    `json:"keptByCode"`
	Deleted        int    `json:"deleted"`
}

// MessageResponse - простой ответ с сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse - ответ health-эндпоинтов
type StatusResponse struct {
	Status string `json:"status"`
	Time   string `json:"time,omitempty"`
}

// ErrorResponse - стандартный ответ с ошибкой. Code - машинный
// код для клиентов, Message - человекочитаемое описание.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
