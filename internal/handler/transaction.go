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

type TransactionHandler struct {
	txns    *store.TransactionStore
	matters *store.MatterStore
	audit   *store.AuditStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewTransactionHandler(ts *store.TransactionStore, ms *store.MatterStore, as *store.AuditStore, hub *websocket.Hub, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{txns: ts, matters: ms, audit: as, hub: hub, logger: logger}
}

var validTxTypes = map[string]bool{
	model.TxDeposit:      true,
	model.TxDisbursement: true,
	model.TxInterest:     true,
}

type transactionRequest struct {
	MatterID    int64      `json:"matter_id"`
	Type        string     `json:"type"`
	Amount      string     `json:"amount"`
	Payee       string     `json:"payee"`
	Reference   string     `json:"reference"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if !validTxTypes[req.Type] {
		writeError(w, http.StatusBadRequest, "type must be deposit, disbursement, or interest")
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
	if matter.Status != model.MatterOpen {
		writeError(w, http.StatusConflict, "matter is closed")
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	tx, err := h.txns.Create(ac.OrgID, req.MatterID, req.Type, amount, strings.TrimSpace(req.Payee), req.Reference, req.Description, occurredAt)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			writeError(w, http.StatusUnprocessableEntity, "insufficient available funds")
			return
		}
		h.logger.Error("create transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	h.audit.Record(ac.OrgID, ac.UserID, "transaction", tx.ID, "created",
		tx.Type+" "+model.FormatCents(tx.AmountCents))
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("transaction", "created", tx.ID, map[string]any{"matter_id": tx.MatterID}))
	writeJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgID(r.Context())

	var (
		txns []model.Transaction
		err  error
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
		txns, err = h.txns.ListByMatter(id)
	} else {
		txns, err = h.txns.ListByOrg(orgID)
	}
	if err != nil {
		h.logger.Error("list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *TransactionHandler) load(w http.ResponseWriter, r *http.Request) *model.Transaction {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	tx, err := h.txns.GetByID(id)
	if err != nil {
		h.logger.Error("get transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get transaction")
		return nil
	}
	if tx == nil || tx.OrgID != auth.OrgID(r.Context()) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return nil
	}
	return tx
}

type clearedRequest struct {
	Cleared bool `json:"cleared"`
}

// SetCleared toggles the bank-cleared flag used by reconciliation.
func (h *TransactionHandler) SetCleared(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}

	var req clearedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	tx, err := h.txns.SetCleared(existing.ID, req.Cleared)
	if err != nil {
		h.logger.Error("set cleared", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("transaction", "updated", tx.ID, map[string]any{"matter_id": tx.MatterID}))
	writeJSON(w, http.StatusOK, tx)
}

// Delete removes a transaction. Deleting a deposit that later disbursements
// rely on would let the ledger go negative, so the resulting balance is
// checked before the row goes away.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tx := h.load(w, r)
	if tx == nil {
		return
	}

	if tx.Type != model.TxDisbursement {
		balance, err := h.txns.MatterBalance(tx.MatterID)
		if err != nil {
			h.logger.Error("matter balance", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to compute balance")
			return
		}
		if balance.Available < tx.AmountCents {
			writeError(w, http.StatusConflict, "removing this transaction would overdraw the matter")
			return
		}
	}

	if err := h.txns.Delete(tx.ID); err != nil {
		h.logger.Error("delete transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	h.audit.Record(ac.OrgID, ac.UserID, "transaction", tx.ID, "deleted",
		tx.Type+" "+model.FormatCents(tx.AmountCents))
	h.hub.Broadcast(ac.OrgID, websocket.NewMessage("transaction", "deleted", tx.ID, map[string]any{"matter_id": tx.MatterID}))
	w.WriteHeader(http.StatusNoContent)
}
