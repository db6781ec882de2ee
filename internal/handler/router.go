package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/laptop-tracker/internal/domain"
	"github.com/laptop-tracker/internal/middleware"
	"github.com/laptop-tracker/internal/service"
)

// Router настраивает маршруты API под базовым путём /api
type Router struct {
	mux             *http.ServeMux
	logger          *slog.Logger
	authHandler     *AuthHandler
	dirHandler      *DirectoryHandler
	locHandler      *LocationHandler
	authService     service.AuthService
	acceptedClients map[string]struct{}
}

// NewRouter создаёт новый роутер
func NewRouter(
	authHandler *AuthHandler,
	dirHandler *DirectoryHandler,
	locHandler *LocationHandler,
	authService service.AuthService,
	acceptedClients map[string]struct{},
	logger *slog.Logger,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		logger:          logger,
		authHandler:     authHandler,
		dirHandler:      dirHandler,
		locHandler:      locHandler,
		authService:     authService,
		acceptedClients: acceptedClients,
	}
}

// Setup настраивает все маршруты
func (r *Router) Setup() http.Handler {
	bearer := middleware.RequireAuth(func(token string) error {
		_, err := r.authService.VerifyToken(token)
		return err
	})
	clientToken := middleware.RequireClientToken(r.acceptedClients)

	r.mux.HandleFunc("/api/auth/login", r.loginRouter)
	r.mux.Handle("/api/departments", bearer(http.HandlerFunc(r.departmentsRouter)))
	r.mux.Handle("/api/departments/", bearer(http.HandlerFunc(r.departmentsRouter)))
	r.mux.Handle("/api/employees/", bearer(http.HandlerFunc(r.employeesRouter)))
	r.mux.Handle("/api/admin/", bearer(http.HandlerFunc(r.adminRouter)))
	r.mux.Handle("/api/location", clientToken(http.HandlerFunc(r.locationRouter)))
	r.mux.Handle("/api/reset", clientToken(http.HandlerFunc(r.resetRouter)))
	r.mux.HandleFunc("/api/provision", r.provisionRouter)

	// Health check
	r.mux.HandleFunc("/api/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.mux.HandleFunc("/api", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","time":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
	})

	// Применяем middleware
	handler := middleware.ContentType(r.mux)
	handler = middleware.Logger(r.logger)(handler)
	handler = middleware.Recoverer(r.logger)(handler)

	return handler
}

func (r *Router) loginRouter(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.authHandler.Login(w, req)
}

// departmentsRouter обрабатывает все запросы к /api/departments
func (r *Router) departmentsRouter(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, "/api/departments")
	path = strings.Trim(path, "/")

	// GET /api/departments - список подразделений
	if path == "" {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		r.dirHandler.ListDepartments(w, req)
		return
	}

	parts := strings.Split(path, "/")

	// GET /api/departments/{id}/employees
	if len(parts) == 2 && parts[1] == "employees" {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid department id", err.Error(), domain.CodeValidation)
			return
		}
		r.dirHandler.ListDepartmentEmployees(w, req, id)
		return
	}

	respondError(w, http.StatusNotFound, "not found", "", domain.CodeNotFound)
}

// employeesRouter обрабатывает все запросы к /api/employees/
func (r *Router) employeesRouter(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, "/api/employees")
	path = strings.Trim(path, "/")

	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		respondError(w, http.StatusNotFound, "not found", "", domain.CodeNotFound)
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid employee id", err.Error(), domain.CodeValidation)
		return
	}

	if req.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	switch parts[1] {
	case "last-location":
		r.locHandler.LastLocation(w, req, id)
	case "locations":
		r.locHandler.History(w, req, id)
	default:
		respondError(w, http.StatusNotFound, "not found", "", domain.CodeNotFound)
	}
}

// adminRouter обрабатывает все запросы к /api/admin/
func (r *Router) adminRouter(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	switch strings.TrimPrefix(req.URL.Path, "/api/admin/") {
	case "delete-employees":
		r.dirHandler.DeleteEmployees(w, req)
	case "delete-department":
		r.dirHandler.DeleteDepartment(w, req)
	case "purge-department-except":
		r.dirHandler.PurgeDepartment(w, req)
	default:
		respondError(w, http.StatusNotFound, "not found", "", domain.CodeNotFound)
	}
}

func (r *Router) locationRouter(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.locHandler.Report(w, req)
}

func (r *Router) provisionRouter(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.dirHandler.Provision(w, req)
}

func (r *Router) resetRouter(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.dirHandler.Reset(w, req)
}

func methodNotAllowed(w http.ResponseWriter) {
	respondError(w, http.StatusMethodNotAllowed, "method not allowed", "", "")
}
