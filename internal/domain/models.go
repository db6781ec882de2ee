package domain

// Department представляет подразделение организации
type Department struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"type:varchar(200);uniqueIndex;not null"`

	Employees []Employee `json:"employees,omitempty" gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (Department) TableName() string {
	return "departments"
}

// Employee представляет сотрудника, привязанного к подразделению.
// EmployeeCode генерируется сервером и служит идентификатором
// сотрудника для клиентов-репортёров.
type Employee struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	FullName     string `json:"full_name" gorm:"type:varchar(200);not null"`
	DepartmentID int64  `json:"department_id" gorm:"not null;index"`
	EmployeeCode string `json:"employee_code" gorm:"type:varchar(20);uniqueIndex;not null"`

	Department *Department `json:"-" gorm:"foreignKey:DepartmentID"`
}

// TableName задаёт имя таблицы для GORM
func (Employee) TableName() string {
	return "employees"
}

// Laptop представляет зарегистрированное устройство.
// DeviceID присылает сам клиент (обычно имя машины); на один
// DeviceID существует не более одной записи.
type Laptop struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID   string `json:"device_id" gorm:"type:varchar(200);uniqueIndex;not null"`
	EmployeeID int64  `json:"employee_id" gorm:"not null;index"`

	Employee *Employee `json:"-" gorm:"foreignKey:EmployeeID"`
}

// TableName задаёт имя таблицы для GORM
func (Laptop) TableName() string {
	return "laptops"
}

// Location представляет одну геометку устройства.
// RecordedAt хранится строкой в формате RFC3339 (UTC), поэтому
// фильтрация по диапазону работает как сравнение строк.
type Location struct {
	ID         int64   `json:"-" gorm:"primaryKey;autoIncrement"`
	LaptopID   int64   `json:"-" gorm:"not null;index"`
	Latitude   float64 `json:"latitude" gorm:"not null"`
	Longitude  float64 `json:"longitude" gorm:"not null"`
	RecordedAt string  `json:"recorded_at" gorm:"type:varchar(40);not null"`

	Laptop *Laptop `json:"-" gorm:"foreignKey:LaptopID"`
}

// TableName задаёт имя таблицы для GORM
func (Location) TableName() string {
	return "locations"
}
