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

type ClientHandler struct {
	clients *store.ClientStore
	txns    *store.TransactionStore
	audit   *store.AuditStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewClientHandler(cs *store.ClientStore, ts *store.TransactionStore, as *store.AuditStore, hub *websocket.Hub, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{clients: cs, txns: ts, audit: as, hub: hub, logger: logger}
}

type clientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Status  string `json:"status"`
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	client, err := h.clients.Create(ac.OrgID, req.Name, req.Email, req.Phone, req.Address)
	if err != nil {
		h.logger.Error("create client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create client")
		return
	}

	h.audit.Record(ac.OrgID, ac.UserID, "client", client.ID, "created", client.Name)
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("client", "created", client.ID, nil))
	writeJSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(auth.OrgID(r.Context()))
	if err != nil {
		h.logger.Error("list clients", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

// load fetches a client and enforces that it belongs to the caller's
// organization. Cross-org IDs read as not found.
func (h *ClientHandler) load(w http.ResponseWriter, r *http.Request) *model.Client {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	client, err := h.clients.GetByID(id)
	if err != nil {
		h.logger.Error("get client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return nil
	}
	if client == nil || client.OrgID != auth.OrgID(r.Context()) {
		writeError(w, http.StatusNotFound, "client not found")
		return nil
	}
	return client
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	client := h.load(w, r)
	if client == nil {
		return
	}

	balance, err := h.txns.ClientBalance(client.ID)
	if err != nil {
		h.logger.Error("client balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"client":        client,
		"balance_cents": balance,
	})
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Status == "" {
		req.Status = existing.Status
	}
	if req.Status != model.ClientActive && req.Status != model.ClientInactive {
		writeError(w, http.StatusBadRequest, "status must be active or inactive")
		return
	}

	client, err := h.clients.Update(existing.ID, req.Name, req.Email, req.Phone, req.Address, req.Status)
	if err != nil {
		h.logger.Error("update client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update client")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	h.audit.Record(ac.OrgID, ac.UserID, "client", client.ID, "updated", client.Name)
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("client", "updated", client.ID, nil))
	writeJSON(w, http.StatusOK, client)
}

// Delete removes a client and its matters, transactions, and holds. A
// client holding trust funds cannot be deleted.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	client := h.load(w, r)
	if client == nil {
		return
	}

	balance, err := h.txns.ClientBalance(client.ID)
	if err != nil {
		h.logger.Error("client balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	if balance != 0 {
		writeError(w, http.StatusConflict, "client still holds trust funds")
		return
	}

	if err := h.clients.Delete(client.ID); err != nil {
		h.logger.Error("delete client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete client")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	h.audit.Record(ac.OrgID, ac.UserID, "client", client.ID, "deleted", client.Name)
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("client", "deleted", client.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}
