package model

import "time"

type ReportHistory struct {
	ID          int64     `json:"id"`
	OrgID       int64     `json:"org_id"`
	Kind        string    `json:"kind"`
	Format      string    `json:"format"`
	Filename    string    `json:"filename"`
	GeneratedBy int64     `json:"generated_by"`
	GeneratedAt time.Time `json:"generated_at"`
}

const (
	ReportClientLedger   = "client_ledger"
	ReportMatterLedger   = "matter_ledger"
	ReportTrustSummary   = "trust_summary"
	ReportReconciliation = "reconciliation"
)

const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatTXT  = "txt"
)
