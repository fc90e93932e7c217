package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
	"github.com/CaseMark/iolta-manager-demo/internal/websocket"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, hub: hub, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.All(auth.OrgID(r.Context()))
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update upserts the submitted keys; keys not present are left alone.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	orgID := auth.OrgID(r.Context())
	for key, value := range req {
		if key == "" {
			writeError(w, http.StatusBadRequest, "empty setting key")
			return
		}
		if err := h.settings.Set(orgID, key, value); err != nil {
			h.logger.Error("set setting", "error", err, "key", key)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}

	h.hub.Broadcast(orgID, websocket.NewMessage("settings", "updated", 0, nil))

	settings, err := h.settings.All(orgID)
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
