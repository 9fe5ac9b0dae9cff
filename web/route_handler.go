package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"pgbackup/custom_errors"
	"pgbackup/internal/executor"
	"pgbackup/internal/models"
	"pgbackup/internal/scheduler"
	"pgbackup/internal/store"
)

// HttpRouteHandler serves the management API: job CRUD, scheduler status and
// restart, and the utility-existence check.
type HttpRouteHandler struct {
	jobStore  *store.JobStore
	scheduler *scheduler.Scheduler
	executor  *executor.PgDumpExecutor

	UserName     string
	PasswordHash string
	UseAuth      bool
	Port         uint
}

func NewRouteHandler(
	jobStore *store.JobStore,
	sched *scheduler.Scheduler,
	exec *executor.PgDumpExecutor,
	userName string,
	passwordHash string,
	useAuth bool,
	port uint,
) HttpRouteHandler {
	return HttpRouteHandler{
		jobStore:     jobStore,
		scheduler:    sched,
		executor:     exec,
		UserName:     userName,
		PasswordHash: passwordHash,
		UseAuth:      useAuth,
		Port:         port,
	}
}

// Routes builds the request mux; Serve uses it, tests hit it directly.
func (handler *HttpRouteHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", handler.authMiddleware(handler.handleJobs))
	mux.HandleFunc("/jobs/", handler.authMiddleware(handler.handleJobByID))
	mux.HandleFunc("/status", handler.authMiddleware(handler.handleStatus))
	mux.HandleFunc("/restart", handler.authMiddleware(handler.handleRestart))
	mux.HandleFunc("/utility/", handler.authMiddleware(handler.handleUtilityExists))
	return mux
}

func (handler *HttpRouteHandler) Serve() error {
	addr := fmt.Sprintf(":%d", handler.Port)
	log.Printf("management api listening on %s", addr)
	return http.ListenAndServe(addr, handler.Routes())
}

// handleJobs serves GET /jobs (list, optional ?server= filter) and
// POST /jobs (create a schedule).
func (handler *HttpRouteHandler) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var serverID int64
		if param := strings.TrimSpace(r.URL.Query().Get("server")); param != "" {
			id, err := strconv.ParseInt(param, 10, 64)
			if err != nil {
				http.Error(w, "invalid server id", http.StatusBadRequest)
				return
			}
			serverID = id
		}
		writeJSON(w, http.StatusOK, handler.jobStore.List(serverID))

	case http.MethodPost:
		var job models.BackupJob
		if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
			http.Error(w, "invalid job payload", http.StatusBadRequest)
			return
		}

		created, err := handler.jobStore.Add(r.Context(), job)
		if err != nil {
			if custom_errors.IsValidation(err) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			log.Printf("failed to add job: %v", err)
			http.Error(w, "failed to save job", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobByID serves GET /jobs/{id} and DELETE /jobs/{id}.
func (handler *HttpRouteHandler) handleJobByID(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/jobs/"), 10, 64)
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := handler.jobStore.Get(jobID)
		if err != nil {
			if errors.Is(err, custom_errors.ErrNotFound) {
				http.Error(w, "job not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load job", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, job)

	case http.MethodDelete:
		if err := handler.jobStore.Remove(r.Context(), jobID); err != nil {
			log.Printf("failed to remove job %d: %v", jobID, err)
			http.Error(w, "failed to remove job", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (handler *HttpRouteHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, handler.scheduler.Status())
}

func (handler *HttpRouteHandler) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handler.scheduler.Restart()
	writeJSON(w, http.StatusOK, map[string]bool{"running": handler.scheduler.Running()})
}

// handleUtilityExists serves GET /utility/{scope} and reports whether the
// dump binary for that scope is reachable.
func (handler *HttpRouteHandler) handleUtilityExists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	scope := models.BackupScope(strings.TrimPrefix(r.URL.Path, "/utility/"))
	switch scope {
	case models.ScopeObjects, models.ScopeServer, models.ScopeGlobals:
	default:
		http.Error(w, "unknown backup scope", http.StatusBadRequest)
		return
	}

	utility := handler.executor.Utility(scope)
	if err := executor.UtilityExists(utility); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"exists": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exists": true, "utility": utility})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
