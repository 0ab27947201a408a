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

type RewardHandler struct {
	rewards  *store.RewardStore
	children *store.ChildStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, cs *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, children: cs, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PointCost   int    `json:"point_cost"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	reward, err := h.rewards.Create(householdID, req.Title, req.Description, req.PointCost)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to create reward")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	rewards, err := h.rewards.List(householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.rewards.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get reward")
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	reward, err := h.rewards.Update(id, householdID, req.Title, req.Description, req.PointCost)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to update reward")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("reward", "updated", id, nil))
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.rewards.GetByID(id, householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get reward")
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	if err := h.rewards.Deactivate(id, householdID); err != nil {
		writeAppError(w, h.logger, err, "failed to delete reward")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("reward", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type redeemRequest struct {
	ChildID int64 `json:"child_id"`
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req redeemRequest
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

	redemption, err := h.rewards.Redeem(id, householdID, req.ChildID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to redeem reward")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("reward", "redeemed", id, map[string]any{
		"child_id":     req.ChildID,
		"points_spent": redemption.PointsSpent,
	}))
	writeJSON(w, http.StatusCreated, redemption)
}

// Points reports each active child's earned/spent/balance totals.
func (h *RewardHandler) Points(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	balances, err := h.rewards.PointBalances(householdID)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get point balances")
		return
	}
	if balances == nil {
		balances = []model.PointBalance{}
	}
	writeJSON(w, http.StatusOK, balances)
}
