package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"callboard/internal/auth"
	"callboard/internal/config"
	"callboard/internal/database"
	"callboard/internal/directory"
	"callboard/internal/pbx"
	"callboard/internal/reporting"
	"callboard/internal/state"
	"callboard/internal/websocket"
)

// StateResolver answers point queries about one operator's call state.
// Satisfied by *state.Engine.
type StateResolver interface {
	Resolve(ctx context.Context, extension string) (state.OperatorCallState, error)
}

// Directory lists the PBX-wide endpoint and queue inventory. Satisfied
// by *directory.Service.
type Directory interface {
	ListEndpoints() ([]directory.Endpoint, error)
	ListQueues() ([]directory.Queue, error)
}

// Store is the slice of the repository the handlers use. Satisfied by
// *database.Repository.
type Store interface {
	ListOperators() ([]database.Operator, error)
	CreateOperator(o *database.Operator) error
	DeleteOperator(id int) error
	GetUserByUsername(username string) (*database.User, error)
	RecentCalls(limit int, from, to time.Time) ([]database.Call, error)
	CallsByOperator(extension string, limit int, from, to time.Time) ([]database.Call, error)
}

// Server is the REST and WebSocket surface of the dashboard backend.
type Server struct {
	config *config.Config
	store  Store
	engine StateResolver
	dir    Directory
	hub    *websocket.Hub
	tokens *auth.Service
}

// NewServer assembles the API server.
func NewServer(cfg *config.Config, store Store, engine StateResolver, dir Directory, hub *websocket.Hub, tokens *auth.Service) *Server {
	return &Server{
		config: cfg,
		store:  store,
		engine: engine,
		dir:    dir,
		hub:    hub,
		tokens: tokens,
	}
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Post("/api/v1/login", s.handleLogin)
	r.Get("/ws", s.hub.HandleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(s.tokens.Middleware)

		r.Get("/api/v1/operators", s.handleOperatorList)
		r.Post("/api/v1/operators", s.handleOperatorCreate)
		r.Delete("/api/v1/operators/{id}", s.handleOperatorDelete)
		r.Get("/api/v1/operators/{extension}/state", s.handleOperatorState)

		r.Get("/api/v1/endpoints", s.handleEndpoints)
		r.Get("/api/v1/queues", s.handleQueues)
		r.Get("/api/v1/calls", s.handleCalls)
		r.Get("/api/v1/reports/summary", s.handleReportSummary)
	})

	return r
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := s.config.API.Address()
	log.Printf("[API] Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.API.EnableCORS {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[API] PANIC RECOVERED: %v", rec)
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, `{"error": "Internal Server Error"}`)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByUsername(req.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"username":  user.Username,
		"role":      user.Role,
		"full_name": user.FullName,
	})
}

func (s *Server) handleOperatorList(w http.ResponseWriter, r *http.Request) {
	operators, err := s.store.ListOperators()
	if err != nil {
		writeError(w, err)
		return
	}
	if operators == nil {
		operators = []database.Operator{}
	}
	writeJSON(w, http.StatusOK, operators)
}

func (s *Server) handleOperatorCreate(w http.ResponseWriter, r *http.Request) {
	var o database.Operator
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if o.Name == "" || o.Extension == "" {
		http.Error(w, "name and extension are required", http.StatusBadRequest)
		return
	}

	if err := s.store.CreateOperator(&o); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleOperatorDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid operator id", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteOperator(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleOperatorState(w http.ResponseWriter, r *http.Request) {
	extension := chi.URLParam(r, "extension")
	if extension == "" {
		http.Error(w, "extension is required", http.StatusBadRequest)
		return
	}

	st, err := s.engine.Resolve(r.Context(), extension)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := s.dir.ListEndpoints()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, endpoints)
}

func (s *Server) handleQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := s.dir.ListQueues()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queues)
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	limit, from, to := callWindow(r)

	var (
		calls []database.Call
		err   error
	)
	if extension := r.URL.Query().Get("operator"); extension != "" {
		calls, err = s.store.CallsByOperator(extension, limit, from, to)
	} else {
		calls, err = s.store.RecentCalls(limit, from, to)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if calls == nil {
		calls = []database.Call{}
	}
	writeJSON(w, http.StatusOK, calls)
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	limit, from, to := callWindow(r)

	calls, err := s.store.RecentCalls(limit, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reporting.Summarize(calls))
}

// callWindow reads the limit/from/to query parameters, defaulting to
// the last 24 hours and at most 1000 rows.
func callWindow(r *http.Request) (int, time.Time, time.Time) {
	limit := 1000
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 10000 {
			limit = n
		}
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}
	return limit, from, to
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. Upstream PBX
// failures surface as gateway errors so the dashboard can tell a broken
// backend from a broken PBX.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch pbx.KindOf(err) {
	case pbx.KindValidation:
		status = http.StatusBadRequest
	case pbx.KindAuth:
		status = http.StatusBadGateway
	case pbx.KindNotFound:
		status = http.StatusNotFound
	case pbx.KindTimeout:
		status = http.StatusGatewayTimeout
	case pbx.KindConnection, pbx.KindProtocol:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
