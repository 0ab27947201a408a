package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/assign"
	"github.com/dukerupert/bywater/internal/household"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type TaskHandler struct {
	tasks       *store.TaskStore
	children    *store.ChildStore
	assignments *store.AssignmentStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, cs *store.ChildStore, as *store.AssignmentStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, children: cs, assignments: as, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type taskRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	RuleType    string     `json:"rule_type"`
	RuleConfig  string     `json:"rule_config"`
	Deadline    *time.Time `json:"deadline"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	task, err := h.tasks.Create(householdID, req.Name, req.Description, req.Points, req.RuleType, req.RuleConfig, req.Deadline)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to create task")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "created", task.ID, nil))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	tasks, err := h.tasks.List(householdID, r.URL.Query().Get("rule_type"))
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.tasks.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get task")
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.tasks.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get task")
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	task, err := h.tasks.Update(id, householdID, req.Name, req.Description, req.Points, req.RuleType, req.RuleConfig, req.Deadline)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to update task")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "updated", id, nil))
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.tasks.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get task")
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	if err := h.tasks.Deactivate(id, householdID); err != nil {
		writeAppError(w, h.logger, err, "failed to delete task")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type generateRequest struct {
	Start string `json:"start"` // YYYY-MM-DD inclusive
	End   string `json:"end"`   // YYYY-MM-DD inclusive
}

// Generate materializes assignment slots for the task over the requested
// window. Safe to call repeatedly; slots that already exist are left alone.
func (h *TaskHandler) Generate(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.tasks.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get task")
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	start, err := time.Parse(assign.DateFormat, req.Start)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(assign.DateFormat, req.End)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be YYYY-MM-DD"})
		return
	}

	childIDs, err := h.children.ListActiveIDs(householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list children")
		return
	}

	created, err := h.assignments.GenerateForWindow(*task, childIDs, start, end)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to generate assignments")
		return
	}

	if created > 0 {
		h.broadcast(householdID, websocket.NewMessage("assignment", "generated", task.ID, map[string]any{"created": created}))
	}
	writeJSON(w, http.StatusOK, map[string]int64{"created": created})
}
