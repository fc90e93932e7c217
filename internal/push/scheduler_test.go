package push

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/database"
	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Payload
	fail error
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, payload)
	return nil
}

func setupScheduler(t *testing.T) (*Scheduler, *fakeSender, *store.PushStore, *store.HoldStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	orgs := store.NewOrganizationStore(db)
	org, err := orgs.Create("Firm", "firm", nil)
	if err != nil {
		t.Fatalf("create org: %v", err)
	}
	clients := store.NewClientStore(db)
	c, err := clients.Create(org.ID, "Acme Corp", "", "", "")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	matters := store.NewMatterStore(db)
	m, err := matters.Create(org.ID, c.ID, "Acquisition", "M-100")
	if err != nil {
		t.Fatalf("create matter: %v", err)
	}
	txns := store.NewTransactionStore(db)
	if _, err := txns.Create(org.ID, m.ID, model.TxDeposit, 500000, "Acme Corp", "", "", time.Now().AddDate(0, 0, -30)); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	pushStore := store.NewPushStore(db)
	holdStore := store.NewHoldStore(db)

	fake := &fakeSender{}
	sched := NewScheduler(nil, pushStore, holdStore, matters, slog.New(slog.DiscardHandler))
	sched.service = fake
	return sched, fake, pushStore, holdStore, org.ID, m.ID
}

func TestSchedulerNotifiesDueHold(t *testing.T) {
	sched, fake, pushStore, holdStore, orgID, matterID := setupScheduler(t)

	if _, err := pushStore.Subscribe(orgID, "https://push.example/sub1", "p256dh", "auth"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	release := time.Now().UTC().Add(-time.Hour)
	if _, err := holdStore.Create(orgID, matterID, 100000, "Settlement escrow", &release); err != nil {
		t.Fatalf("create hold: %v", err)
	}

	sched.tick(time.Now().UTC())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(fake.sent))
	}
	if fake.sent[0].Title != "Hold Ready for Release" {
		t.Errorf("title = %q", fake.sent[0].Title)
	}
	if fake.sent[0].Body != "$1,000.00 hold on Acquisition has reached its release date" {
		t.Errorf("body = %q", fake.sent[0].Body)
	}
}

func TestSchedulerDedupesAcrossTicks(t *testing.T) {
	sched, fake, pushStore, holdStore, orgID, matterID := setupScheduler(t)

	if _, err := pushStore.Subscribe(orgID, "https://push.example/sub1", "p256dh", "auth"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	release := time.Now().UTC().Add(-time.Hour)
	if _, err := holdStore.Create(orgID, matterID, 50000, "Escrow", &release); err != nil {
		t.Fatalf("create hold: %v", err)
	}

	sched.tick(time.Now().UTC())
	sched.tick(time.Now().UTC())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sent) != 1 {
		t.Errorf("sent %d notifications across two ticks, want 1", len(fake.sent))
	}
}

func TestSchedulerExpiredSubscriptionRemoved(t *testing.T) {
	sched, fake, pushStore, holdStore, orgID, matterID := setupScheduler(t)

	if _, err := pushStore.Subscribe(orgID, "https://push.example/stale", "p256dh", "auth"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	release := time.Now().UTC().Add(-time.Hour)
	if _, err := holdStore.Create(orgID, matterID, 50000, "Escrow", &release); err != nil {
		t.Fatalf("create hold: %v", err)
	}

	fake.fail = ErrExpired
	sched.tick(time.Now().UTC())

	subs, err := pushStore.ListByOrg(orgID)
	if err != nil {
		t.Fatalf("list subs: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected expired subscription to be deleted, %d remain", len(subs))
	}
}

func TestSchedulerNoSubscriptionsStillMarksSent(t *testing.T) {
	sched, _, pushStore, holdStore, orgID, matterID := setupScheduler(t)

	release := time.Now().UTC().Add(-time.Hour)
	hold, err := holdStore.Create(orgID, matterID, 50000, "Escrow", &release)
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}

	sched.tick(time.Now().UTC())

	sent, err := pushStore.WasSent(orgID, model.NotifTypeHoldRelease, "hold-"+itoa(hold.ID))
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if !sent {
		t.Error("expected notification marked sent")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestSchedulerStartStop(t *testing.T) {
	sched, _, _, _, _, _ := setupScheduler(t)
	sched.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	sched.Stop()

	// Double stop should not panic.
	sched.Stop()
}
