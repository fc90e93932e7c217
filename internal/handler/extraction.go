package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CaseMark/iolta-manager-demo/internal/extraction"
)

type ExtractionHandler struct {
	client *extraction.Client
	logger *slog.Logger
}

func NewExtractionHandler(c *extraction.Client, logger *slog.Logger) *ExtractionHandler {
	return &ExtractionHandler{client: c, logger: logger}
}

type extractRequest struct {
	Text   string   `json:"text"`
	Fields []string `json:"fields"`
}

// Extract pulls the requested fields out of pasted document text. The
// response map contains only the fields the model actually found.
func (h *ExtractionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" || len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "text and fields are required")
		return
	}

	fields, err := h.client.ExtractFields(r.Context(), req.Text, req.Fields)
	if err != nil {
		h.writeExtractionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

type ocrRequest struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// OCR submits a scanned document and blocks until recognition finishes or
// the poll budget runs out.
func (h *ExtractionHandler) OCR(w http.ResponseWriter, r *http.Request) {
	var req ocrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Content) == 0 {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	job, err := h.client.SubmitOCR(r.Context(), req.Filename, req.Content)
	if err != nil {
		h.writeExtractionError(w, err)
		return
	}

	result, err := h.client.WaitOCR(r.Context(), job.ID)
	if err != nil {
		h.writeExtractionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ExtractionHandler) writeExtractionError(w http.ResponseWriter, err error) {
	if errors.Is(err, extraction.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "extraction service not configured")
		return
	}
	var apiErr *extraction.APIError
	if errors.As(err, &apiErr) {
		h.logger.Warn("extraction API error", "status", apiErr.StatusCode)
		writeError(w, http.StatusBadGateway, "extraction service error")
		return
	}
	h.logger.Error("extraction", "error", err)
	writeError(w, http.StatusInternalServerError, "extraction failed")
}
