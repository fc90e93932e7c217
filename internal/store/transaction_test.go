package store

import (
	"errors"
	"testing"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
)

// newTestMatter seeds an org, client, and matter; returns the matter plus
// the stores under test.
func newTestMatter(t *testing.T) (*model.Matter, *TransactionStore, *HoldStore) {
	t.Helper()
	db := setupTestDB(t)
	os := NewOrganizationStore(db)
	cs := NewClientStore(db)
	ms := NewMatterStore(db)

	org, err := os.Create("Doe Law", "doe-law", nil)
	if err != nil {
		t.Fatalf("create org: %v", err)
	}
	client, err := cs.Create(org.ID, "Acme Corp", "ap@acme.test", "", "")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	matter, err := ms.Create(org.ID, client.ID, "Acme v. Widgets", "2026-001")
	if err != nil {
		t.Fatalf("create matter: %v", err)
	}
	return matter, NewTransactionStore(db), NewHoldStore(db)
}

func TestTransactionBalanceMath(t *testing.T) {
	matter, ts, _ := newTestMatter(t)
	now := time.Now()

	mustTx := func(txType string, amount model.Cents) {
		t.Helper()
		if _, err := ts.Create(matter.OrgID, matter.ID, txType, amount, "", "", "", now); err != nil {
			t.Fatalf("create %s: %v", txType, err)
		}
	}

	mustTx(model.TxDeposit, 500000)   // $5,000.00
	mustTx(model.TxInterest, 125)     // $1.25
	mustTx(model.TxDisbursement, 150000)

	b, err := ts.MatterBalance(matter.ID)
	if err != nil {
		t.Fatalf("matter balance: %v", err)
	}
	if b.Deposits != 500000 || b.Interest != 125 || b.Disbursed != 150000 {
		t.Errorf("components = %+v", b)
	}
	if want := model.Cents(350125); b.Balance != want {
		t.Errorf("balance = %d, want %d", b.Balance, want)
	}
	if b.Available != b.Balance {
		t.Errorf("available = %d, want %d with no holds", b.Available, b.Balance)
	}
}

func TestTransactionInsufficientFunds(t *testing.T) {
	matter, ts, _ := newTestMatter(t)
	now := time.Now()

	if _, err := ts.Create(matter.OrgID, matter.ID, model.TxDeposit, 10000, "", "", "", now); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err := ts.Create(matter.OrgID, matter.ID, model.TxDisbursement, 10001, "Payee", "", "", now)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	// Exactly the available balance is fine.
	if _, err := ts.Create(matter.OrgID, matter.ID, model.TxDisbursement, 10000, "Payee", "", "", now); err != nil {
		t.Fatalf("full disbursement: %v", err)
	}

	b, _ := ts.MatterBalance(matter.ID)
	if b.Balance != 0 {
		t.Errorf("balance = %d, want 0", b.Balance)
	}
}

func TestTransactionRejectsNonPositiveAmount(t *testing.T) {
	matter, ts, _ := newTestMatter(t)
	if _, err := ts.Create(matter.OrgID, matter.ID, model.TxDeposit, 0, "", "", "", time.Now()); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := ts.Create(matter.OrgID, matter.ID, model.TxDeposit, -500, "", "", "", time.Now()); err == nil {
		t.Error("expected error for negative amount")
	}
}

func TestHoldReducesAvailable(t *testing.T) {
	matter, ts, hs := newTestMatter(t)
	now := time.Now()

	if _, err := ts.Create(matter.OrgID, matter.ID, model.TxDeposit, 100000, "", "", "", now); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	hold, err := hs.Create(matter.OrgID, matter.ID, 40000, "disputed fees", nil)
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}

	b, _ := ts.MatterBalance(matter.ID)
	if b.Balance != 100000 {
		t.Errorf("balance = %d, want 100000", b.Balance)
	}
	if b.Available != 60000 {
		t.Errorf("available = %d, want 60000", b.Available)
	}

	// Disbursing more than available but less than balance must fail.
	if _, err := ts.Create(matter.OrgID, matter.ID, model.TxDisbursement, 70000, "", "", "", now); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}

	// Releasing frees the funds.
	released, err := hs.Release(hold.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != model.HoldReleased || released.ReleasedAt == nil {
		t.Errorf("released hold = %+v", released)
	}
	b, _ = ts.MatterBalance(matter.ID)
	if b.Available != 100000 {
		t.Errorf("available after release = %d, want 100000", b.Available)
	}
}

func TestHoldCannotExceedBalance(t *testing.T) {
	matter, ts, hs := newTestMatter(t)

	if _, err := ts.Create(matter.OrgID, matter.ID, model.TxDeposit, 5000, "", "", "", time.Now()); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := hs.Create(matter.OrgID, matter.ID, 6000, "too big", nil); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestSetCleared(t *testing.T) {
	matter, ts, _ := newTestMatter(t)
	tx, err := ts.Create(matter.OrgID, matter.ID, model.TxDeposit, 1000, "", "", "", time.Now())
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if tx.Cleared {
		t.Error("new transaction should be uncleared")
	}
	got, err := ts.SetCleared(tx.ID, true)
	if err != nil {
		t.Fatalf("set cleared: %v", err)
	}
	if !got.Cleared {
		t.Error("cleared flag not set")
	}
}

func TestDashboardStats(t *testing.T) {
	matter, ts, hs := newTestMatter(t)
	now := time.Now()

	ts.Create(matter.OrgID, matter.ID, model.TxDeposit, 200000, "", "", "", now)
	ts.Create(matter.OrgID, matter.ID, model.TxDisbursement, 50000, "", "", "", now)
	hs.Create(matter.OrgID, matter.ID, 30000, "retainer", nil)

	stats, err := ts.DashboardStats(matter.OrgID)
	if err != nil {
		t.Fatalf("dashboard stats: %v", err)
	}
	if stats.TotalHeld != 150000 {
		t.Errorf("total held = %d, want 150000", stats.TotalHeld)
	}
	if stats.ActiveHolds != 30000 {
		t.Errorf("active holds = %d, want 30000", stats.ActiveHolds)
	}
	if stats.TotalAvailable != 120000 {
		t.Errorf("available = %d, want 120000", stats.TotalAvailable)
	}
	if stats.ActiveClients != 1 || stats.OpenMatters != 1 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.Uncleared != 2 {
		t.Errorf("uncleared = %d, want 2", stats.Uncleared)
	}
}
