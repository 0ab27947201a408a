package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/bywater/internal/household"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/push"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

// CandidateHandler covers the single-task marketplace: offering a task to a
// set of children, recording accept/decline responses, and the derived
// open / failed / expired views.
type CandidateHandler struct {
	candidates *store.CandidateStore
	tasks      *store.TaskStore
	hub        *websocket.Hub
	notifier   *push.Notifier
	logger     *slog.Logger
}

func NewCandidateHandler(cs *store.CandidateStore, ts *store.TaskStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *CandidateHandler {
	return &CandidateHandler{candidates: cs, tasks: ts, hub: hub, notifier: notifier, logger: logger}
}

func (h *CandidateHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type offerRequest struct {
	ChildIDs []int64 `json:"child_ids"`
}

// Offer puts a single task up for grabs by the given children.
func (h *CandidateHandler) Offer(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	taskID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.ChildIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child_ids is required"})
		return
	}

	if err := h.candidates.OfferTo(taskID, householdID, req.ChildIDs); err != nil {
		writeAppError(w, h.logger, err, "failed to offer task")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "offered", taskID, nil))

	if h.notifier != nil {
		if task, err := h.tasks.GetByID(taskID, householdID); err == nil && task != nil {
			h.notifier.TaskOffered(task, req.ChildIDs)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// Candidates lists who a task was offered to.
func (h *CandidateHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	taskID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	candidates, err := h.candidates.Candidates(taskID, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list candidates")
		return
	}
	if candidates == nil {
		candidates = []model.TaskCandidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

// Responses lists the accept/decline responses recorded for a task.
func (h *CandidateHandler) Responses(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	taskID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	responses, err := h.candidates.Responses(taskID, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list responses")
		return
	}
	if responses == nil {
		responses = []model.TaskResponse{}
	}
	writeJSON(w, http.StatusOK, responses)
}

type respondRequest struct {
	ChildID  int64  `json:"child_id"`
	Response string `json:"response"`
}

// Respond records a candidate's accept or decline. The first accept claims
// the task; a later accept answers 409.
func (h *CandidateHandler) Respond(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	taskID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.candidates.Respond(taskID, householdID, req.ChildID, req.Response, time.Now()); err != nil {
		writeAppError(w, h.logger, err, "failed to record response")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "responded", taskID, map[string]any{
		"child_id": req.ChildID,
		"response": req.Response,
	}))

	if req.Response == model.ResponseAccepted {
		h.broadcast(householdID, websocket.NewMessage("task", "claimed", taskID, map[string]any{
			"child_id": req.ChildID,
		}))
		h.notifyClaimed(taskID, householdID, req.ChildID)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CandidateHandler) notifyClaimed(taskID, householdID, winnerID int64) {
	if h.notifier == nil {
		return
	}
	task, err := h.tasks.GetByID(taskID, householdID)
	if err != nil || task == nil {
		return
	}
	candidates, err := h.candidates.Candidates(taskID, householdID)
	if err != nil {
		return
	}
	var losers []int64
	for _, c := range candidates {
		if c.ChildID != winnerID {
			losers = append(losers, c.ChildID)
		}
	}
	h.notifier.TaskClaimed(task, losers)
}

// Undo removes a child's response. The offer goes back to unanswered for
// that child; a claim created by an earlier accept is never retracted.
func (h *CandidateHandler) Undo(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	taskID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	childID, err := strconv.ParseInt(r.PathValue("child_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid child_id"})
		return
	}

	if err := h.candidates.Undo(taskID, householdID, childID); err != nil {
		writeAppError(w, h.logger, err, "failed to undo response")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "response_undone", taskID, map[string]any{
		"child_id": childID,
	}))
	w.WriteHeader(http.StatusNoContent)
}

// OpenForChild lists the unclaimed single tasks still waiting on this
// child's answer, soonest deadline first.
func (h *CandidateHandler) OpenForChild(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	tasks, err := h.candidates.OpenForChild(householdID, childID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list open tasks")
		return
	}
	if tasks == nil {
		tasks = []model.OfferedTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Failed lists unclaimed tasks every candidate declined.
func (h *CandidateHandler) Failed(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	tasks, err := h.candidates.Failed(householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list failed offers")
		return
	}
	if tasks == nil {
		tasks = []model.OfferedTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Expired lists unclaimed tasks whose deadline has passed.
func (h *CandidateHandler) Expired(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	tasks, err := h.candidates.Expired(householdID, time.Now())
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list expired offers")
		return
	}
	if tasks == nil {
		tasks = []model.OfferedTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}
