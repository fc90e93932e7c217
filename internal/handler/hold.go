package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
	"github.com/CaseMark/iolta-manager-demo/internal/websocket"
)

type HoldHandler struct {
	holds   *store.HoldStore
	matters *store.MatterStore
	audit   *store.AuditStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewHoldHandler(hs *store.HoldStore, ms *store.MatterStore, as *store.AuditStore, hub *websocket.Hub, logger *slog.Logger) *HoldHandler {
	return &HoldHandler{holds: hs, matters: ms, audit: as, hub: hub, logger: logger}
}

type holdRequest struct {
	MatterID  int64      `json:"matter_id"`
	Amount    string     `json:"amount"`
	Reason    string     `json:"reason"`
	ReleaseAt *time.Time `json:"release_at"`
}

func (h *HoldHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}
	amount, err := model.ParseCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	matter, err := h.matters.GetByID(req.MatterID)
	if err != nil {
		h.logger.Error("get matter", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get matter")
		return
	}
	if matter == nil || matter.OrgID != ac.OrgID {
		writeError(w, http.StatusNotFound, "matter not found")
		return
	}

	hold, err := h.holds.Create(ac.OrgID, req.MatterID, amount, req.Reason, req.ReleaseAt)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			writeError(w, http.StatusUnprocessableEntity, "hold exceeds available funds")
			return
		}
		h.logger.Error("create hold", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create hold")
		return
	}

	h.audit.Record(ac.OrgID, ac.UserID, "hold", hold.ID, "created",
		model.FormatCents(hold.AmountCents)+" "+hold.Reason)
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("hold", "created", hold.ID, map[string]any{"matter_id": hold.MatterID}))
	writeJSON(w, http.StatusCreated, hold)
}

func (h *HoldHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgID(r.Context())

	var (
		holds []model.Hold
		err   error
	)
	if matterParam := r.URL.Query().Get("matter_id"); matterParam != "" {
		id, perr := parseInt64(matterParam)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid matter_id")
			return
		}
		matter, merr := h.matters.GetByID(id)
		if merr != nil {
			h.logger.Error("get matter", "error", merr)
			writeError(w, http.StatusInternalServerError, "failed to get matter")
			return
		}
		if matter == nil || matter.OrgID != orgID {
			writeError(w, http.StatusNotFound, "matter not found")
			return
		}
		holds, err = h.holds.ListByMatter(id)
	} else {
		holds, err = h.holds.ListByOrg(orgID)
	}
	if err != nil {
		h.logger.Error("list holds", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list holds")
		return
	}
	if holds == nil {
		holds = []model.Hold{}
	}
	writeJSON(w, http.StatusOK, holds)
}

// Release marks a hold released, returning its amount to the matter's
// available balance. Releasing an already-released hold is a no-op.
func (h *HoldHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	existing, err := h.holds.GetByID(id)
	if err != nil {
		h.logger.Error("get hold", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get hold")
		return
	}
	if existing == nil || existing.OrgID != ac.OrgID {
		writeError(w, http.StatusNotFound, "hold not found")
		return
	}

	hold, err := h.holds.Release(id)
	if err != nil {
		h.logger.Error("release hold", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to release hold")
		return
	}

	h.audit.Record(ac.OrgID, ac.UserID, "hold", hold.ID, "released",
		model.FormatCents(hold.AmountCents))
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("hold", "released", hold.ID, map[string]any{"matter_id": hold.MatterID}))
	writeJSON(w, http.StatusOK, hold)
}
