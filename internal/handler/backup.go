package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bywater/internal/backup"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

// BackupHandler exposes the backup manager over the API. Backups cover the
// whole database, so these routes sit outside the household scope.
type BackupHandler struct {
	manager *backup.Manager
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backups: bs, logger: logger}
}

func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return
	}

	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err, "backup failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backups.List(20)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		writeAppError(w, h.logger, err, "failed to download backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=backup-%d.db.enc", id))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("stream backup download", "error", err)
	}
}
