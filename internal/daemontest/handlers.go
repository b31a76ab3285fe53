package daemontest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bargom/hldclient/pkg/models"
)

func (d *Daemon) getHealth(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	h := d.health
	d.mu.Unlock()

	code := http.StatusOK
	if h.Status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, h)
}

func (d *Daemon) listSessions(w http.ResponseWriter, r *http.Request) {
	leafOnly, _ := strconv.ParseBool(r.URL.Query().Get("leafOnly"))
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("includeArchived"))

	d.mu.Lock()
	parents := make(map[string]bool)
	for _, s := range d.sessions {
		if s.ParentSessionID != nil {
			parents[*s.ParentSessionID] = true
		}
	}
	out := make([]models.Session, 0, len(d.order))
	for _, id := range d.order {
		s := d.sessions[id]
		if !includeArchived && s.Archived != nil && *s.Archived {
			continue
		}
		if leafOnly && parents[s.ID] {
			continue
		}
		out = append(out, s)
	}
	d.mu.Unlock()

	respondJSON(w, http.StatusOK, models.SessionsResponse{Data: out})
}

func (d *Daemon) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := d.Session(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "HLD-3001", "session not found")
		return
	}
	respondJSON(w, http.StatusOK, models.SessionResponse{Data: s})
}

func (d *Daemon) createSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "HLD-1001", "invalid request body")
		return
	}
	if err := d.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "HLD-1002", "query is required")
		return
	}

	now := d.Now()
	s := models.Session{
		ID:              uuid.NewString(),
		RunID:           uuid.NewString(),
		Status:          models.SessionStatusStarting,
		Query:           req.Query,
		Title:           req.Title,
		Model:           req.Model,
		WorkingDir:      req.WorkingDir,
		CreatedAt:       now,
		LastActivityAt:  now,
		AutoAcceptEdits: req.AutoAcceptEdits,
	}
	d.AddSession(s)

	respondJSON(w, http.StatusCreated, models.CreateSessionResponse{
		Data: models.CreateSessionResult{SessionID: s.ID, RunID: s.RunID},
	})
}

func (d *Daemon) archiveSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d.mu.Lock()
	s, ok := d.sessions[id]
	if ok {
		archived := true
		s.Archived = &archived
		d.sessions[id] = s
	}
	d.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "HLD-3001", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Daemon) listApprovals(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")

	d.mu.Lock()
	out := make([]models.Approval, 0, len(d.approvals))
	for _, a := range d.approvals {
		if sessionID != "" && a.SessionID != sessionID {
			continue
		}
		out = append(out, a)
	}
	d.mu.Unlock()

	sortApprovals(out)
	respondJSON(w, http.StatusOK, models.ApprovalsResponse{Data: out})
}

func (d *Daemon) decideApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.DecideApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "HLD-1001", "invalid request body")
		return
	}
	if err := d.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "HLD-1002", "decision must be approve or deny")
		return
	}

	d.mu.Lock()
	a, ok := d.approvals[id]
	conflict := ok && a.Status != models.ApprovalStatusPending
	if ok && !conflict {
		now := d.Now()
		a.RespondedAt = &now
		a.Comment = req.Comment
		a.Status = models.ApprovalStatusApproved
		if req.Decision == models.DecisionDeny {
			a.Status = models.ApprovalStatusDenied
		}
		d.approvals[id] = a
	}
	d.mu.Unlock()

	switch {
	case !ok:
		respondError(w, http.StatusNotFound, "HLD-3002", "approval not found")
	case conflict:
		respondError(w, http.StatusConflict, "HLD-3003", "approval already decided")
	default:
		respondJSON(w, http.StatusOK, models.DecideApprovalResponse{
			Data: models.DecideApprovalResult{Success: true},
		})
	}
}

// sortApprovals orders approvals oldest first.
func sortApprovals(approvals []models.Approval) {
	sort.Slice(approvals, func(i, j int) bool {
		if !approvals[i].CreatedAt.Equal(approvals[j].CreatedAt) {
			return approvals[i].CreatedAt.Before(approvals[j].CreatedAt)
		}
		return approvals[i].ID < approvals[j].ID
	})
}
