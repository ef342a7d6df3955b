package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/outreach/internal/action"
	"github.com/foxzi/outreach/internal/pipeline"
)

// Version is stamped by the build, exposed through /health
var Version = "dev"

// ActionRequest is the request body for POST /api/v1/actions
type ActionRequest struct {
	UserID        string          `json:"userId"`
	Mode          string          `json:"mode"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	UserConfirmed bool            `json:"userConfirmed,omitempty"`
}

// LogResponse is the response for GET /api/v1/actions/log
type LogResponse struct {
	Entries []action.LogEntry `json:"entries"`
	Count   int               `json:"count"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleExecuteAction handles POST /api/v1/actions. Action-level failures
// (validation, mode, state conflicts) come back as 200 with success=false:
// they are results, not transport errors.
func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" {
		s.sendError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.Mode == "" {
		s.sendError(w, http.StatusBadRequest, "mode is required")
		return
	}
	if req.Type == "" {
		s.sendError(w, http.StatusBadRequest, "type is required")
		return
	}

	result := s.executor.Execute(r.Context(),
		action.Request{
			Type:          action.Type(req.Type),
			Payload:       req.Payload,
			UserConfirmed: req.UserConfirmed,
		},
		action.Context{
			UserID: req.UserID,
			Mode:   action.Mode(req.Mode),
		})

	s.sendJSON(w, http.StatusOK, result)
}

// handleActionLog handles GET /api/v1/actions/log
func (s *Server) handleActionLog(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		s.sendError(w, http.StatusBadRequest, "userId is required")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.audit.Recent(userID, limit)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "failed to read action log")
		return
	}

	s.sendJSON(w, http.StatusOK, LogResponse{Entries: entries, Count: len(entries)})
}

// handleActionStats handles GET /api/v1/actions/stats
func (s *Server) handleActionStats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		s.sendError(w, http.StatusBadRequest, "userId is required")
		return
	}

	stats, err := s.audit.GetStats(userID)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "failed to read action stats")
		return
	}

	s.sendJSON(w, http.StatusOK, stats)
}

// handleRunStatus handles GET /api/v1/campaigns/{id}/run
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.manager.GetStatus(id)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoRun) {
			s.sendError(w, http.StatusNotFound, err.Error())
			return
		}
		s.sendError(w, http.StatusInternalServerError, "failed to read run status")
		return
	}

	s.sendJSON(w, http.StatusOK, run)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
