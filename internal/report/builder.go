// Package report assembles ledger data into the documents the app exports:
// client ledgers, matter ledgers, the firm-wide trust summary, and the
// three-way reconciliation.
package report

import (
	"fmt"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/export"
	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

type Builder struct {
	clients *store.ClientStore
	matters *store.MatterStore
	txns    *store.TransactionStore
	holds   *store.HoldStore
}

func NewBuilder(cs *store.ClientStore, ms *store.MatterStore, ts *store.TransactionStore, hs *store.HoldStore) *Builder {
	return &Builder{clients: cs, matters: ms, txns: ts, holds: hs}
}

var txColumns = []export.Column{
	{Name: "Date"},
	{Name: "Type"},
	{Name: "Payee / Source"},
	{Name: "Reference"},
	{Name: "Amount", Align: export.AlignRight},
	{Name: "Balance", Align: export.AlignRight},
}

// ledgerRows renders transactions oldest-first with a running balance.
// ListByMatter already orders by occurred_at ascending.
func ledgerRows(txns []model.Transaction) ([][]string, model.Cents) {
	rows := make([][]string, 0, len(txns))
	var balance model.Cents
	for _, tx := range txns {
		balance += tx.Signed()
		rows = append(rows, []string{
			tx.OccurredAt.Format("2006-01-02"),
			tx.Type,
			tx.Payee,
			tx.Reference,
			model.FormatCents(tx.Signed()),
			model.FormatCents(balance),
		})
	}
	return rows, balance
}

// ClientLedger builds the full trust ledger for one client: a section per
// matter with its running-balance transaction table, then client totals.
func (b *Builder) ClientLedger(org *model.Organization, clientID int64, now time.Time) (*export.Document, error) {
	client, err := b.clients.GetByID(clientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("client %d not found", clientID)
	}

	matters, err := b.matters.ListByClient(clientID)
	if err != nil {
		return nil, fmt.Errorf("list matters: %w", err)
	}

	doc := &export.Document{
		Title:       "Client Trust Ledger",
		Subtitle:    client.Name,
		Firm:        org.Name,
		GeneratedAt: now,
	}

	var totalBalance, totalHeld model.Cents
	for _, m := range matters {
		txns, err := b.txns.ListByMatter(m.ID)
		if err != nil {
			return nil, fmt.Errorf("list transactions for matter %d: %w", m.ID, err)
		}
		bal, err := b.txns.MatterBalance(m.ID)
		if err != nil {
			return nil, fmt.Errorf("matter balance %d: %w", m.ID, err)
		}
		totalBalance += bal.Balance
		totalHeld += bal.Held

		sec := export.Section{
			Heading: fmt.Sprintf("%s (%s)", m.Name, m.MatterNumber),
			Lines: []string{
				fmt.Sprintf("Status: %s", m.Status),
				fmt.Sprintf("Balance: %s    Held: %s    Available: %s",
					model.FormatCents(bal.Balance), model.FormatCents(bal.Held), model.FormatCents(bal.Available)),
			},
		}
		if len(txns) > 0 {
			rows, _ := ledgerRows(txns)
			sec.Table = &export.Table{Columns: txColumns, Rows: rows}
		} else {
			sec.Lines = append(sec.Lines, "No transactions.")
		}
		doc.Sections = append(doc.Sections, sec)
	}

	doc.Sections = append(doc.Sections, export.Section{
		Heading: "Client Totals",
		Lines: []string{
			fmt.Sprintf("Matters: %d", len(matters)),
			fmt.Sprintf("Total balance: %s", model.FormatCents(totalBalance)),
			fmt.Sprintf("Total held: %s", model.FormatCents(totalHeld)),
			fmt.Sprintf("Total available: %s", model.FormatCents(totalBalance-totalHeld)),
		},
	})
	return doc, nil
}

// MatterLedger builds the running-balance ledger for one matter, including
// its active holds.
func (b *Builder) MatterLedger(org *model.Organization, matterID int64, now time.Time) (*export.Document, error) {
	m, err := b.matters.GetByID(matterID)
	if err != nil {
		return nil, fmt.Errorf("load matter: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("matter %d not found", matterID)
	}
	client, err := b.clients.GetByID(m.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	txns, err := b.txns.ListByMatter(matterID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	bal, err := b.txns.MatterBalance(matterID)
	if err != nil {
		return nil, fmt.Errorf("matter balance: %w", err)
	}
	holds, err := b.holds.ListByMatter(matterID)
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}

	subtitle := m.Name
	if client != nil {
		subtitle = fmt.Sprintf("%s / %s", client.Name, m.Name)
	}
	doc := &export.Document{
		Title:       "Matter Trust Ledger",
		Subtitle:    subtitle,
		Firm:        org.Name,
		GeneratedAt: now,
	}

	summary := export.Section{
		Heading: "Position",
		Lines: []string{
			fmt.Sprintf("Matter number: %s    Status: %s", m.MatterNumber, m.Status),
			fmt.Sprintf("Deposits: %s    Interest: %s    Disbursed: %s",
				model.FormatCents(bal.Deposits), model.FormatCents(bal.Interest), model.FormatCents(bal.Disbursed)),
			fmt.Sprintf("Balance: %s    Held: %s    Available: %s",
				model.FormatCents(bal.Balance), model.FormatCents(bal.Held), model.FormatCents(bal.Available)),
		},
	}
	doc.Sections = append(doc.Sections, summary)

	txSec := export.Section{Heading: "Transactions"}
	if len(txns) > 0 {
		rows, _ := ledgerRows(txns)
		txSec.Table = &export.Table{Columns: txColumns, Rows: rows}
	} else {
		txSec.Lines = []string{"No transactions."}
	}
	doc.Sections = append(doc.Sections, txSec)

	var active [][]string
	for _, h := range holds {
		if h.Status != model.HoldActive {
			continue
		}
		release := ""
		if h.ReleaseAt != nil {
			release = h.ReleaseAt.Format("2006-01-02")
		}
		active = append(active, []string{
			h.CreatedAt.Format("2006-01-02"),
			h.Reason,
			release,
			model.FormatCents(h.AmountCents),
		})
	}
	if len(active) > 0 {
		doc.Sections = append(doc.Sections, export.Section{
			Heading: "Active Holds",
			Table: &export.Table{
				Columns: []export.Column{
					{Name: "Placed"},
					{Name: "Reason"},
					{Name: "Release Date"},
					{Name: "Amount", Align: export.AlignRight},
				},
				Rows: active,
			},
		})
	}
	return doc, nil
}

// TrustSummary builds the firm-wide position: one row per client with
// balance, held, and available amounts, plus aggregate stats.
func (b *Builder) TrustSummary(org *model.Organization, now time.Time) (*export.Document, error) {
	clients, err := b.clients.List(org.ID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	stats, err := b.txns.DashboardStats(org.ID)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		matters, err := b.matters.ListByClient(c.ID)
		if err != nil {
			return nil, fmt.Errorf("list matters for client %d: %w", c.ID, err)
		}
		var balance, held model.Cents
		for _, m := range matters {
			bal, err := b.txns.MatterBalance(m.ID)
			if err != nil {
				return nil, fmt.Errorf("matter balance %d: %w", m.ID, err)
			}
			balance += bal.Balance
			held += bal.Held
		}
		rows = append(rows, []string{
			c.Name,
			fmt.Sprintf("%d", len(matters)),
			model.FormatCents(balance),
			model.FormatCents(held),
			model.FormatCents(balance - held),
		})
	}

	return &export.Document{
		Title:       "Trust Account Summary",
		Subtitle:    "All clients",
		Firm:        org.Name,
		GeneratedAt: now,
		Sections: []export.Section{
			{
				Heading: "Totals",
				Lines: []string{
					fmt.Sprintf("Total held in trust: %s", model.FormatCents(stats.TotalHeld)),
					fmt.Sprintf("Total available: %s", model.FormatCents(stats.TotalAvailable)),
					fmt.Sprintf("Active holds: %s", model.FormatCents(stats.ActiveHolds)),
					fmt.Sprintf("Active clients: %d    Open matters: %d", stats.ActiveClients, stats.OpenMatters),
				},
			},
			{
				Heading: "By Client",
				Table: &export.Table{
					Columns: []export.Column{
						{Name: "Client"},
						{Name: "Matters", Align: export.AlignRight},
						{Name: "Balance", Align: export.AlignRight},
						{Name: "Held", Align: export.AlignRight},
						{Name: "Available", Align: export.AlignRight},
					},
					Rows: rows,
				},
			},
		},
	}, nil
}

// Reconciliation builds the three-way reconciliation: the adjusted bank
// balance, the book (ledger) balance, and the sum of individual client
// ledgers must all agree. Uncleared transactions are listed as outstanding
// items adjusting the bank figure.
func (b *Builder) Reconciliation(org *model.Organization, bankBalance model.Cents, now time.Time) (*export.Document, error) {
	txns, err := b.txns.ListByOrg(org.ID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var outstanding model.Cents
	var outRows [][]string
	for _, tx := range txns {
		if tx.Cleared {
			continue
		}
		outstanding += tx.Signed()
		outRows = append(outRows, []string{
			tx.OccurredAt.Format("2006-01-02"),
			tx.Type,
			tx.Payee,
			model.FormatCents(tx.Signed()),
		})
	}
	adjustedBank := bankBalance + outstanding

	stats, err := b.txns.DashboardStats(org.ID)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	bookBalance := stats.TotalHeld

	// Sum of client ledgers, computed independently of the org aggregate.
	clients, err := b.clients.List(org.ID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	var clientTotal model.Cents
	for _, c := range clients {
		bal, err := b.txns.ClientBalance(c.ID)
		if err != nil {
			return nil, fmt.Errorf("client balance %d: %w", c.ID, err)
		}
		clientTotal += bal
	}

	status := "BALANCED"
	if adjustedBank != bookBalance || bookBalance != clientTotal {
		status = "OUT OF BALANCE"
	}

	doc := &export.Document{
		Title:       "Three-Way Reconciliation",
		Subtitle:    fmt.Sprintf("As of %s", now.Format("January 2, 2006")),
		Firm:        org.Name,
		GeneratedAt: now,
		Sections: []export.Section{
			{
				Heading: "Comparison",
				Lines: []string{
					fmt.Sprintf("Bank statement balance: %s", model.FormatCents(bankBalance)),
					fmt.Sprintf("Outstanding items: %s", model.FormatCents(outstanding)),
					fmt.Sprintf("Adjusted bank balance: %s", model.FormatCents(adjustedBank)),
					fmt.Sprintf("Book balance: %s", model.FormatCents(bookBalance)),
					fmt.Sprintf("Sum of client ledgers: %s", model.FormatCents(clientTotal)),
					fmt.Sprintf("Result: %s", status),
				},
			},
		},
	}

	if len(outRows) > 0 {
		doc.Sections = append(doc.Sections, export.Section{
			Heading: "Outstanding Items",
			Table: &export.Table{
				Columns: []export.Column{
					{Name: "Date"},
					{Name: "Type"},
					{Name: "Payee / Source"},
					{Name: "Amount", Align: export.AlignRight},
				},
				Rows: outRows,
			},
		})
	}
	return doc, nil
}
