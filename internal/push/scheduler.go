package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

// sender sends one notification. Satisfied by *Service; tests substitute a
// fake so no push service is contacted.
type sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Scheduler watches for holds whose release date has arrived and notifies
// each organization's subscribed browsers.
type Scheduler struct {
	mu       sync.RWMutex
	service  sender
	push     *store.PushStore
	holds    *store.HoldStore
	matters  *store.MatterStore
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a hold-release notification scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, holdStore *store.HoldStore, matterStore *store.MatterStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		holds:    holdStore,
		matters:  matterStore,
		logger:   logger,
		interval: 60 * time.Second,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	due, err := s.holds.ListDueForRelease(now)
	if err != nil {
		s.logger.Error("list due holds", "error", err)
		return
	}

	for _, hold := range due {
		s.notifyHoldDue(&hold)
	}
}

// notifyHoldDue sends one reminder per hold. The sent-notification table
// dedupes across ticks and restarts.
func (s *Scheduler) notifyHoldDue(hold *model.Hold) {
	refID := fmt.Sprintf("hold-%d", hold.ID)

	sent, err := s.push.WasSent(hold.OrgID, model.NotifTypeHoldRelease, refID)
	if err != nil {
		s.logger.Error("check sent notification", "error", err, "hold_id", hold.ID)
		return
	}
	if sent {
		return
	}

	matterName := fmt.Sprintf("matter %d", hold.MatterID)
	if m, err := s.matters.GetByID(hold.MatterID); err == nil && m != nil {
		matterName = m.Name
	}

	payload := Payload{
		Title: "Hold Ready for Release",
		Body:  fmt.Sprintf("%s hold on %s has reached its release date", model.FormatCents(hold.AmountCents), matterName),
		URL:   fmt.Sprintf("/matters/%d", hold.MatterID),
		Tag:   refID,
	}

	subs, err := s.push.ListByOrg(hold.OrgID)
	if err != nil {
		s.logger.Error("list subscriptions", "error", err, "org_id", hold.OrgID)
		return
	}

	for i := range subs {
		if err := s.service.Send(&subs[i], payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.DeleteByEndpoint(subs[i].Endpoint)
			} else {
				s.logger.Warn("send hold reminder", "error", err, "hold_id", hold.ID)
			}
		}
	}

	if err := s.push.MarkSent(hold.OrgID, model.NotifTypeHoldRelease, refID); err != nil {
		s.logger.Error("mark notification sent", "error", err, "hold_id", hold.ID)
	}
}
