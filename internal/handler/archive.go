package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/CaseMark/iolta-manager-demo/internal/archive"
	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

type ArchiveHandler struct {
	manager *archive.Manager
	audit   *store.AuditStore
	logger  *slog.Logger
}

func NewArchiveHandler(m *archive.Manager, as *store.AuditStore, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{manager: m, audit: as, logger: logger}
}

func (h *ArchiveHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

type archiveRequest struct {
	Passphrase string `json:"passphrase"`
}

// Run uploads an encrypted snapshot of the ledger database.
func (h *ArchiveHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Passphrase) < 8 {
		writeError(w, http.StatusBadRequest, "passphrase must be at least 8 characters")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	key, err := h.manager.ArchiveLedger(r.Context(), ac.OrgID, req.Passphrase)
	if err != nil {
		if errors.Is(err, archive.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "archive storage not configured")
			return
		}
		h.logger.Error("archive ledger", "error", err)
		writeError(w, http.StatusInternalServerError, "archive failed")
		return
	}

	h.audit.Record(ac.OrgID, ac.UserID, "archive", 0, "created", key)
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.manager.List(r.Context(), auth.OrgID(r.Context()))
	if err != nil {
		if errors.Is(err, archive.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "archive storage not configured")
			return
		}
		h.logger.Error("list archives", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type restoreRequest struct {
	Key        string `json:"key"`
	Passphrase string `json:"passphrase"`
}

// Restore downloads and decrypts an archive, returning the plaintext as a
// file download. The wrong passphrase fails closed.
func (h *ArchiveHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Key == "" || req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "key and passphrase are required")
		return
	}

	data, err := h.manager.Restore(r.Context(), req.Key, req.Passphrase)
	if err != nil {
		if errors.Is(err, archive.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "archive storage not configured")
			return
		}
		h.logger.Warn("restore archive", "error", err, "key", req.Key)
		writeError(w, http.StatusUnprocessableEntity, "restore failed; check the key and passphrase")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="restored.db"`)
	w.Write(data)
}

type deleteArchiveRequest struct {
	Key string `json:"key"`
}

func (h *ArchiveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.manager.Delete(r.Context(), req.Key); err != nil {
		if errors.Is(err, archive.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "archive storage not configured")
			return
		}
		h.logger.Error("delete archive", "error", err, "key", req.Key)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	h.audit.Record(ac.OrgID, ac.UserID, "archive", 0, "deleted", req.Key)
	w.WriteHeader(http.StatusNoContent)
}
