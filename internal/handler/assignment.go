package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/bywater/internal/assign"
	"github.com/dukerupert/bywater/internal/household"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/push"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type AssignmentHandler struct {
	assignments *store.AssignmentStore
	tasks       *store.TaskStore
	children    *store.ChildStore
	hub         *websocket.Hub
	notifier    *push.Notifier
	logger      *slog.Logger
}

func NewAssignmentHandler(as *store.AssignmentStore, ts *store.TaskStore, cs *store.ChildStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignments: as, tasks: ts, children: cs, hub: hub, notifier: notifier, logger: logger}
}

func (h *AssignmentHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

func parseOptionalID(r *http.Request, key string) *int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	f := store.ListFilter{
		ChildID:  parseOptionalID(r, "child_id"),
		TaskID:   parseOptionalID(r, "task_id"),
		Status:   r.URL.Query().Get("status"),
		FromDate: r.URL.Query().Get("from"),
		ToDate:   r.URL.Query().Get("to"),
	}

	assignments, err := h.assignments.List(householdID, f)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list assignments")
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	a, err := h.assignments.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get assignment")
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Complete marks the assignment done exactly once. A repeat call answers
// 409 so double-taps on two devices stay harmless.
func (h *AssignmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	completion, err := h.assignments.Complete(id, householdID, time.Now())
	if err != nil {
		writeAppError(w, h.logger, err, "failed to complete assignment")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("assignment", "completed", id, map[string]any{
		"points_earned": completion.PointsEarned,
	}))

	if h.notifier != nil {
		if a, err := h.assignments.GetByID(id, householdID); err == nil && a != nil {
			if task, err := h.tasks.GetByID(a.TaskID, householdID); err == nil && task != nil {
				h.notifier.AssignmentCompleted(householdID, task.Name, completion.PointsEarned)
			}
		}
	}

	writeJSON(w, http.StatusCreated, completion)
}

type reassignRequest struct {
	ChildID int64 `json:"child_id"`
}

func (h *AssignmentHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	ok, err := h.children.Exists(req.ChildID, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to check child")
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child not found"})
		return
	}

	a, err := h.assignments.Reassign(id, householdID, req.ChildID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to reassign")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("assignment", "reassigned", id, nil))
	writeJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.assignments.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get assignment")
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
		return
	}

	if err := h.assignments.Delete(id, householdID); err != nil {
		writeAppError(w, h.logger, err, "failed to delete assignment")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("assignment", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// GetCompletion returns the completion row for an assignment.
func (h *AssignmentHandler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	c, err := h.assignments.CompletionForAssignment(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get completion")
		return
	}
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "completion not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ListCompletions reports completion history over a date window,
// defaulting to the last 30 days.
func (h *AssignmentHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	to := time.Now().UTC().AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -31)
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(assign.DateFormat, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be YYYY-MM-DD"})
			return
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(assign.DateFormat, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be YYYY-MM-DD"})
			return
		}
		to = t.AddDate(0, 0, 1) // inclusive end of day
	}

	completions, err := h.assignments.ListCompletions(householdID, parseOptionalID(r, "child_id"), from, to)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list completions")
		return
	}
	if completions == nil {
		completions = []model.TaskCompletion{}
	}
	writeJSON(w, http.StatusOK, completions)
}
