package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bywater/internal/household"
	"github.com/dukerupert/bywater/internal/push"
	"github.com/dukerupert/bywater/internal/store"
)

type PushHandler struct {
	pushes *store.PushStore
	svc    *push.Service
	logger *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushes: ps, svc: svc, logger: logger}
}

type subscribeRequest struct {
	ChildID    *int64 `json:"child_id"`
	Endpoint   string `json:"endpoint"`
	P256dhKey  string `json:"p256dh_key"`
	AuthKey    string `json:"auth_key"`
	DeviceName string `json:"device_name"`
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint, p256dh_key and auth_key are required"})
		return
	}

	sub, err := h.pushes.CreateSubscription(householdID, req.ChildID, req.Endpoint, req.P256dhKey, req.AuthKey, req.DeviceName)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to create subscription")
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	householdID := household.ID(r.Context())

	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint is required"})
		return
	}

	if err := h.pushes.DeleteByEndpoint(householdID, req.Endpoint); err != nil {
		writeAppError(w, h.logger, err, "failed to delete subscription")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VAPIDKey exposes the public key browsers need to subscribe.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.svc.VAPIDPublicKey()})
}
