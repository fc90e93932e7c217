package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
	"github.com/CaseMark/iolta-manager-demo/internal/websocket"
)

type MatterHandler struct {
	matters *store.MatterStore
	clients *store.ClientStore
	txns    *store.TransactionStore
	audit   *store.AuditStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewMatterHandler(ms *store.MatterStore, cs *store.ClientStore, ts *store.TransactionStore, as *store.AuditStore, hub *websocket.Hub, logger *slog.Logger) *MatterHandler {
	return &MatterHandler{matters: ms, clients: cs, txns: ts, audit: as, hub: hub, logger: logger}
}

type matterRequest struct {
	ClientID     int64  `json:"client_id"`
	Name         string `json:"name"`
	MatterNumber string `json:"matter_number"`
}

func (h *MatterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req matterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.ClientID == 0 {
		writeError(w, http.StatusBadRequest, "client_id and name are required")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	client, err := h.clients.GetByID(req.ClientID)
	if err != nil {
		h.logger.Error("get client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}
	if client == nil || client.OrgID != ac.OrgID {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	matter, err := h.matters.Create(ac.OrgID, req.ClientID, req.Name, req.MatterNumber)
	if err != nil {
		h.logger.Error("create matter", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create matter")
		return
	}

	h.audit.Record(ac.OrgID, ac.UserID, "matter", matter.ID, "created", matter.Name)
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("matter", "created", matter.ID, map[string]any{"client_id": matter.ClientID}))
	writeJSON(w, http.StatusCreated, matter)
}

func (h *MatterHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgID(r.Context())

	var (
		matters []model.Matter
		err     error
	)
	if clientParam := r.URL.Query().Get("client_id"); clientParam != "" {
		var client *model.Client
		id, perr := parseInt64(clientParam)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid client_id")
			return
		}
		client, err = h.clients.GetByID(id)
		if err == nil {
			if client == nil || client.OrgID != orgID {
				writeError(w, http.StatusNotFound, "client not found")
				return
			}
			matters, err = h.matters.ListByClient(id)
		}
	} else {
		matters, err = h.matters.List(orgID)
	}
	if err != nil {
		h.logger.Error("list matters", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list matters")
		return
	}
	if matters == nil {
		matters = []model.Matter{}
	}
	writeJSON(w, http.StatusOK, matters)
}

func (h *MatterHandler) load(w http.ResponseWriter, r *http.Request) *model.Matter {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	matter, err := h.matters.GetByID(id)
	if err != nil {
		h.logger.Error("get matter", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get matter")
		return nil
	}
	if matter == nil || matter.OrgID != auth.OrgID(r.Context()) {
		writeError(w, http.StatusNotFound, "matter not found")
		return nil
	}
	return matter
}

func (h *MatterHandler) Get(w http.ResponseWriter, r *http.Request) {
	matter := h.load(w, r)
	if matter == nil {
		return
	}

	balance, err := h.txns.MatterBalance(matter.ID)
	if err != nil {
		h.logger.Error("matter balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matter":  matter,
		"balance": balance,
	})
}

func (h *MatterHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}

	var req matterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	matter, err := h.matters.Update(existing.ID, req.Name, req.MatterNumber)
	if err != nil {
		h.logger.Error("update matter", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update matter")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	h.audit.Record(ac.OrgID, ac.UserID, "matter", matter.ID, "updated", matter.Name)
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("matter", "updated", matter.ID, nil))
	writeJSON(w, http.StatusOK, matter)
}

// Close marks a matter closed. A matter with a remaining balance or active
// holds stays open until the funds are disbursed.
func (h *MatterHandler) Close(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}

	balance, err := h.txns.MatterBalance(existing.ID)
	if err != nil {
		h.logger.Error("matter balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	if balance.Balance != 0 || balance.Held != 0 {
		writeError(w, http.StatusConflict, "matter still holds trust funds")
		return
	}

	matter, err := h.matters.Close(existing.ID)
	if err != nil {
		h.logger.Error("close matter", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to close matter")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	h.audit.Record(ac.OrgID, ac.UserID, "matter", matter.ID, "closed", matter.Name)
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("matter", "closed", matter.ID, nil))
	writeJSON(w, http.StatusOK, matter)
}

func (h *MatterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	matter := h.load(w, r)
	if matter == nil {
		return
	}

	balance, err := h.txns.MatterBalance(matter.ID)
	if err != nil {
		h.logger.Error("matter balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	if balance.Balance != 0 {
		writeError(w, http.StatusConflict, "matter still holds trust funds")
		return
	}

	if err := h.matters.Delete(matter.ID); err != nil {
		h.logger.Error("delete matter", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete matter")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	h.audit.Record(ac.OrgID, ac.UserID, "matter", matter.ID, "deleted", matter.Name)
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("matter", "deleted", matter.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}
