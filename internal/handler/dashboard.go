package handler

import (
	"log/slog"
	"net/http"

	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

type DashboardHandler struct {
	txns   *store.TransactionStore
	audit  *store.AuditStore
	logger *slog.Logger
}

func NewDashboardHandler(ts *store.TransactionStore, as *store.AuditStore, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{txns: ts, audit: as, logger: logger}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.txns.DashboardStats(auth.OrgID(r.Context()))
	if err != nil {
		h.logger.Error("dashboard stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.ListRecent(auth.OrgID(r.Context()), 25)
	if err != nil {
		h.logger.Error("recent activity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	if entries == nil {
		entries = []model.AuditLog{}
	}
	writeJSON(w, http.StatusOK, entries)
}
