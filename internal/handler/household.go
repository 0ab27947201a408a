package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

type HouseholdHandler struct {
	households *store.HouseholdStore
	logger     *slog.Logger
}

func NewHouseholdHandler(hs *store.HouseholdStore, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{households: hs, logger: logger}
}

type householdRequest struct {
	Name string `json:"name"`
}

func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req householdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	hh, err := h.households.Create(req.Name)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to create household")
		return
	}

	writeJSON(w, http.StatusCreated, hh)
}

func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	households, err := h.households.List()
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list households")
		return
	}
	if households == nil {
		households = []model.Household{}
	}
	writeJSON(w, http.StatusOK, households)
}

func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	hh, err := h.households.GetByID(id)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to get household")
		return
	}
	if hh == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "household not found"})
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

func (h *HouseholdHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req householdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	hh, err := h.households.Rename(id, req.Name)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to rename household")
		return
	}
	if hh == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "household not found"})
		return
	}
	writeJSON(w, http.StatusOK, hh)
}
