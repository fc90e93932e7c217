package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/archive"
	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/export"
	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/report"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

type ReportHandler struct {
	builder *report.Builder
	orgs    *store.OrganizationStore
	history *store.ReportHistoryStore
	archive *archive.Manager
	logger  *slog.Logger
}

func NewReportHandler(b *report.Builder, os *store.OrganizationStore, hs *store.ReportHistoryStore, am *archive.Manager, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{builder: b, orgs: os, history: hs, archive: am, logger: logger}
}

type reportRequest struct {
	Kind        string `json:"kind"`
	Format      string `json:"format"`
	ClientID    int64  `json:"client_id,omitempty"`
	MatterID    int64  `json:"matter_id,omitempty"`
	BankBalance string `json:"bank_balance,omitempty"`

	// When set and archive storage is configured, the rendered file is
	// also encrypted and uploaded before the download is streamed.
	ArchivePassphrase string `json:"archive_passphrase,omitempty"`
}

// Generate builds the requested report and streams it as a download. Each
// generated file is recorded in the organization's report history.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	renderer, err := export.ForFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ac, _ := auth.FromContext(r.Context())
	org, err := h.orgs.GetByID(ac.OrgID)
	if err != nil || org == nil {
		h.logger.Error("get organization", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load organization")
		return
	}

	now := time.Now().UTC()
	var doc *export.Document
	switch req.Kind {
	case model.ReportClientLedger:
		if req.ClientID == 0 {
			writeError(w, http.StatusBadRequest, "client_id is required")
			return
		}
		doc, err = h.builder.ClientLedger(org, req.ClientID, now)
	case model.ReportMatterLedger:
		if req.MatterID == 0 {
			writeError(w, http.StatusBadRequest, "matter_id is required")
			return
		}
		doc, err = h.builder.MatterLedger(org, req.MatterID, now)
	case model.ReportTrustSummary:
		doc, err = h.builder.TrustSummary(org, now)
	case model.ReportReconciliation:
		var bank model.Cents
		bank, err = model.ParseCents(req.BankBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bank_balance is required")
			return
		}
		doc, err = h.builder.Reconciliation(org, bank, now)
	default:
		writeError(w, http.StatusBadRequest, "unknown report kind")
		return
	}
	if err != nil {
		h.logger.Error("build report", "error", err, "kind", req.Kind)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	data, err := renderer.Render(doc)
	if err != nil {
		h.logger.Error("render report", "error", err, "format", req.Format)
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", req.Kind, now.Format("2006-01-02"), renderer.Extension())
	if _, err := h.history.Record(ac.OrgID, req.Kind, req.Format, filename, ac.UserID); err != nil {
		h.logger.Warn("record report history", "error", err)
	}

	if req.ArchivePassphrase != "" {
		key, err := h.archive.ArchiveReport(r.Context(), ac.OrgID, filename, data, req.ArchivePassphrase)
		if err != nil {
			if errors.Is(err, archive.ErrNotConfigured) {
				writeError(w, http.StatusServiceUnavailable, "archive storage not configured")
				return
			}
			h.logger.Error("archive report", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to archive report")
			return
		}
		h.logger.Info("report archived", "key", key)
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.List(auth.OrgID(r.Context()), 50)
	if err != nil {
		h.logger.Error("report history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list report history")
		return
	}
	if entries == nil {
		entries = []model.ReportHistory{}
	}
	writeJSON(w, http.StatusOK, entries)
}
