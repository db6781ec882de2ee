package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/laptop-tracker/internal/domain"
	"gorm.io/gorm"
)

type fakeDeptRepo struct {
	byID   map[int64]*domain.Department
	nextID int64
}

func newFakeDeptRepo() *fakeDeptRepo {
	return &fakeDeptRepo{byID: make(map[int64]*domain.Department), nextID: 1}
}

func (f *fakeDeptRepo) Create(ctx context.Context, dept *domain.Department) error {
	dept.ID = f.nextID
	f.nextID++
	f.byID[dept.ID] = dept
	return nil
}

func (f *fakeDeptRepo) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	for _, d := range f.byID {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, domain.ErrDepartmentNotFound
}

func (f *fakeDeptRepo) List(ctx context.Context) ([]domain.Department, error) {
	var out []domain.Department
	for _, d := range f.byID {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDeptRepo) Delete(ctx context.Context, id int64) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeDeptRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

type fakeEmpRepo struct {
	byID   map[int64]*domain.Employee
	nextID int64

	// Число ближайших вызовов Create, которые вернут нарушение
	// уникальности независимо от кода
	failCreates int
}

func newFakeEmpRepo() *fakeEmpRepo {
	return &fakeEmpRepo{byID: make(map[int64]*domain.Employee), nextID: 1}
}

func (f *fakeEmpRepo) Create(ctx context.Context, emp *domain.Employee) error {
	if f.failCreates > 0 {
		f.failCreates--
		return gorm.ErrDuplicatedKey
	}
	for _, e := range f.byID {
		if e.EmployeeCode == emp.EmployeeCode {
			return gorm.ErrDuplicatedKey
		}
	}
	emp.ID = f.nextID
	f.nextID++
	f.byID[emp.ID] = emp
	return nil
}

func (f *fakeEmpRepo) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEmployeeNotFound
}

func (f *fakeEmpRepo) GetByCode(ctx context.Context, code string) (*domain.Employee, error) {
	for _, e := range f.byID {
		if e.EmployeeCode == code {
			return e, nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

func (f *fakeEmpRepo) GetByDepartmentID(ctx context.Context, departmentID int64) ([]domain.Employee, error) {
	var out []domain.Employee
	for _, e := range f.byID {
		if e.DepartmentID == departmentID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeEmpRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrEmployeeNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEmpRepo) DeleteAll(ctx context.Context) error {
	f.byID = make(map[int64]*domain.Employee)
	return nil
}

func (f *fakeEmpRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

type fakeLaptopRepo struct {
	byID   map[int64]*domain.Laptop
	nextID int64
}

func newFakeLaptopRepo() *fakeLaptopRepo {
	return &fakeLaptopRepo{byID: make(map[int64]*domain.Laptop), nextID: 1}
}

func (f *fakeLaptopRepo) Create(ctx context.Context, laptop *domain.Laptop) error {
	laptop.ID = f.nextID
	f.nextID++
	f.byID[laptop.ID] = laptop
	return nil
}

func (f *fakeLaptopRepo) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Laptop, error) {
	for _, l := range f.byID {
		if l.DeviceID == deviceID {
			return l, nil
		}
	}
	return nil, domain.ErrLaptopNotFound
}

func (f *fakeLaptopRepo) FirstByEmployeeID(ctx context.Context, employeeID int64) (*domain.Laptop, error) {
	var found *domain.Laptop
	for _, l := range f.byID {
		if l.EmployeeID == employeeID && (found == nil || l.ID < found.ID) {
			found = l
		}
	}
	if found == nil {
		return nil, domain.ErrLaptopNotFound
	}
	return found, nil
}

func (f *fakeLaptopRepo) ListByEmployeeID(ctx context.Context, employeeID int64) ([]domain.Laptop, error) {
	var out []domain.Laptop
	for _, l := range f.byID {
		if l.EmployeeID == employeeID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLaptopRepo) Rebind(ctx context.Context, laptopID, employeeID int64) error {
	if l, ok := f.byID[laptopID]; ok {
		l.EmployeeID = employeeID
	}
	return nil
}

func (f *fakeLaptopRepo) DeleteByEmployeeID(ctx context.Context, employeeID int64) error {
	for id, l := range f.byID {
		if l.EmployeeID == employeeID {
			delete(f.byID, id)
		}
	}
	return nil
}

func (f *fakeLaptopRepo) DeleteAll(ctx context.Context) error {
	f.byID = make(map[int64]*domain.Laptop)
	return nil
}

type fakeLocationRepo struct {
	byID   map[int64]*domain.Location
	nextID int64
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{byID: make(map[int64]*domain.Location), nextID: 1}
}

func (f *fakeLocationRepo) Create(ctx context.Context, loc *domain.Location) error {
	loc.ID = f.nextID
	f.nextID++
	f.byID[loc.ID] = loc
	return nil
}

func (f *fakeLocationRepo) LastByLaptopID(ctx context.Context, laptopID int64) (*domain.Location, error) {
	locs, _ := f.HistoryByLaptopID(ctx, laptopID, "", "", 1)
	if len(locs) == 0 {
		return nil, nil
	}
	return &locs[0], nil
}

func (f *fakeLocationRepo) HistoryByLaptopID(ctx context.Context, laptopID int64, from, to string, limit int) ([]domain.Location, error) {
	var out []domain.Location
	for _, loc := range f.byID {
		if loc.LaptopID != laptopID {
			continue
		}
		if from != "" && loc.RecordedAt < from {
			continue
		}
		if to != "" && loc.RecordedAt > to {
			continue
		}
		out = append(out, *loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt > out[j].RecordedAt })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLocationRepo) DeleteByLaptopID(ctx context.Context, laptopID int64) error {
	for id, loc := range f.byID {
		if loc.LaptopID == laptopID {
			delete(f.byID, id)
		}
	}
	return nil
}

func (f *fakeLocationRepo) DeleteAll(ctx context.Context) error {
	f.byID = make(map[int64]*domain.Location)
	return nil
}

type fixture struct {
	deptRepo   *fakeDeptRepo
	empRepo    *fakeEmpRepo
	laptopRepo *fakeLaptopRepo
	locRepo    *fakeLocationRepo
	dir        DirectoryService
	loc        *locationService
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	f := &fixture{
		deptRepo:   newFakeDeptRepo(),
		empRepo:    newFakeEmpRepo(),
		laptopRepo: newFakeLaptopRepo(),
		locRepo:    newFakeLocationRepo(),
	}
	f.dir = NewDirectoryService(f.deptRepo, f.empRepo, f.laptopRepo, f.locRepo, logger)
	f.loc = NewLocationService(f.empRepo, f.laptopRepo, f.locRepo, 3600).(*locationService)
	return f
}

func TestGenerateEmployeeCode(t *testing.T) {
	re := regexp.MustCompile(`^E[1-9]\d{5}$`)
	for i := 0; i < 100; i++ {
		code := generateEmployeeCode()
		if !re.MatchString(code) {
			t.Fatalf("code %q does not match E + 6 digits", code)
		}
	}
}

func TestProvisionRetriesOnDuplicateCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.empRepo.failCreates = codeGenAttempts - 1
	res, err := f.dir.Provision(ctx, "dev-1", "Jane Doe", "Eng")
	if err != nil {
		t.Fatalf("provision after collisions: %v", err)
	}
	if res.EmployeeCode == "" {
		t.Fatal("empty employee code")
	}
}

func TestProvisionCodeExhausted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.empRepo.failCreates = codeGenAttempts
	_, err := f.dir.Provision(ctx, "dev-1", "Jane Doe", "Eng")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrCodeExhausted) {
		t.Fatalf("got %v, want ErrCodeExhausted", err)
	}
}

func TestCascadeCoversAllDevices(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.dir.Provision(ctx, "dev-1", "Jane Doe", "Eng")
	if err != nil {
		t.Fatal(err)
	}
	// Второе устройство того же сотрудника, появившееся через Report
	if err := f.loc.Report(ctx, "dev-2", res.EmployeeCode, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := f.loc.Report(ctx, "dev-1", res.EmployeeCode, 3, 4); err != nil {
		t.Fatal(err)
	}

	deleted, err := f.dir.DeleteEmployees(ctx, []string{res.EmployeeCode})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if len(f.empRepo.byID) != 0 || len(f.laptopRepo.byID) != 0 || len(f.locRepo.byID) != 0 {
		t.Errorf("orphans left: %d employees, %d laptops, %d locations",
			len(f.empRepo.byID), len(f.laptopRepo.byID), len(f.locRepo.byID))
	}
}

func TestDeleteEmployeesSkipsUnknownCodes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	deleted, err := f.dir.DeleteEmployees(ctx, []string{"E000001", "E000002"})
	if err != nil {
		t.Fatalf("unknown codes must not fail: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestReportNeverRebindsDevice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.dir.Provision(ctx, "dev-1", "Jane Doe", "Eng")
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.dir.Provision(ctx, "dev-2", "John Roe", "Eng")
	if err != nil {
		t.Fatal(err)
	}

	// Метка с чужим кодом: устройство dev-1 остаётся за первым сотрудником
	if err := f.loc.Report(ctx, "dev-1", second.EmployeeCode, 1, 2); err != nil {
		t.Fatal(err)
	}
	laptop, err := f.laptopRepo.GetByDeviceID(ctx, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if laptop.EmployeeID != first.EmployeeID {
		t.Errorf("device rebound to %d, want %d", laptop.EmployeeID, first.EmployeeID)
	}
}

func TestLastLocationStalenessBoundary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.dir.Provision(ctx, "dev-1", "Jane Doe", "Eng")
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.loc.now = func() time.Time { return base }
	if err := f.loc.Report(ctx, "dev-1", res.EmployeeCode, 1, 2); err != nil {
		t.Fatal(err)
	}

	// Ровно на пороге метка ещё онлайн
	f.loc.now = func() time.Time { return base.Add(3600 * time.Second) }
	last, err := f.loc.LastLocation(ctx, res.EmployeeID)
	if err != nil {
		t.Fatal(err)
	}
	if !last.IsOnline {
		t.Error("age == threshold must be online")
	}
	if last.AgeSeconds == nil || *last.AgeSeconds != 3600 {
		t.Errorf("ageSeconds = %v, want 3600", last.AgeSeconds)
	}

	// Секундой позже - офлайн
	f.loc.now = func() time.Time { return base.Add(3601 * time.Second) }
	last, err = f.loc.LastLocation(ctx, res.EmployeeID)
	if err != nil {
		t.Fatal(err)
	}
	if last.IsOnline {
		t.Error("age > threshold must be offline")
	}
}

func TestReportTimestampFormat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.dir.Provision(ctx, "dev-1", "Jane Doe", "Eng")
	if err != nil {
		t.Fatal(err)
	}
	f.loc.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 30, 45, 123_000_000, time.FixedZone("PKT", 5*3600))
	}
	if err := f.loc.Report(ctx, "dev-1", res.EmployeeCode, 1, 2); err != nil {
		t.Fatal(err)
	}

	locs, err := f.loc.History(ctx, res.EmployeeID, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(locs) != 1 {
		t.Fatalf("got %d locations", len(locs))
	}
	// Всегда UTC с миллисекундами, независимо от зоны сервера
	if locs[0].RecordedAt != "2026-03-01T07:30:45.123Z" {
		t.Errorf("recorded_at = %q", locs[0].RecordedAt)
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.dir.Provision(ctx, "dev-1", "Jane Doe", "Eng")
	if err != nil {
		t.Fatal(err)
	}
	laptop, err := f.laptopRepo.GetByDeviceID(ctx, "dev-1")
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultHistoryLimit+20; i++ {
		f.locRepo.Create(ctx, &domain.Location{
			LaptopID:   laptop.ID,
			RecordedAt: base.Add(time.Duration(i) * time.Minute).UTC().Format(recordedAtFormat),
		})
	}

	locs, err := f.loc.History(ctx, res.EmployeeID, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(locs) != DefaultHistoryLimit {
		t.Errorf("got %d locations, want %d", len(locs), DefaultHistoryLimit)
	}
}

func TestPurgeKeepsByNameSubstringAndExactCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	alice, err := f.dir.Provision(ctx, "dev-1", "Alice Smith", "Eng")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := f.dir.Provision(ctx, "dev-2", "Bob Jones", "Eng")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.dir.Provision(ctx, "dev-3", "Carol White", "Eng"); err != nil {
		t.Fatal(err)
	}

	res, err := f.dir.PurgeDepartmentExcept(ctx, "Eng", []string{"ALICE"}, []string{bob.EmployeeCode})
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", res.Deleted)
	}
	if _, err := f.empRepo.GetByCode(ctx, alice.EmployeeCode); err != nil {
		t.Error("substring match is case-insensitive, Alice must survive")
	}
	if _, err := f.empRepo.GetByCode(ctx, bob.EmployeeCode); err != nil {
		t.Error("exact code match, Bob must survive")
	}
	if len(f.empRepo.byID) != 2 {
		t.Errorf("got %d employees, want 2", len(f.empRepo.byID))
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.dir.Seed(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.dir.Seed(ctx); err != nil {
		t.Fatal(err)
	}

	if len(f.deptRepo.byID) != len(seedDepartments) {
		t.Errorf("got %d departments, want %d", len(f.deptRepo.byID), len(seedDepartments))
	}
	if len(f.empRepo.byID) != len(seedEmployees) {
		t.Errorf("got %d employees, want %d", len(f.empRepo.byID), len(seedEmployees))
	}
}

func TestResetKeepsDepartments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.dir.Provision(ctx, "dev-1", "Jane Doe", "Eng")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.loc.Report(ctx, "dev-1", res.EmployeeCode, 1, 2); err != nil {
		t.Fatal(err)
	}

	if err := f.dir.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.empRepo.byID) != 0 || len(f.laptopRepo.byID) != 0 || len(f.locRepo.byID) != 0 {
		t.Error("reset left rows behind")
	}
	if len(f.deptRepo.byID) != 1 {
		t.Error("reset must keep departments")
	}
}
