package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/household"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type ChildHandler struct {
	children *store.ChildStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewChildHandler(cs *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{children: cs, hub: hub, logger: logger}
}

func (h *ChildHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type childRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
	SortOrder   int    `json:"sort_order"`
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	child, err := h.children.Create(householdID, req.Name, req.Color, req.AvatarEmoji, req.SortOrder)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to create child")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("child", "created", child.ID, nil))
	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	children, err := h.children.List(householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list children")
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.children.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get child")
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	child, err := h.children.Update(id, householdID, req.Name, req.Color, req.AvatarEmoji, req.SortOrder)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to update child")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("child", "updated", id, nil))
	writeJSON(w, http.StatusOK, child)
}

func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.children.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get child")
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	if err := h.children.Deactivate(id, householdID); err != nil {
		writeAppError(w, h.logger, err, "failed to delete child")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("child", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
