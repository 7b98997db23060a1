package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dadam-app/dadam/internal/model"
	"github.com/dadam-app/dadam/internal/store"
)

// reminderHour is the local hour (in the app's canonical timezone) from which
// schedule reminders for the day may go out.
const reminderHour = 9

// Scheduler periodically looks for schedules marked remind on today's date
// and pushes a reminder to every subscription in the schedule's family. The
// sent log's uniqueness constraint keeps a reminder from going out twice,
// even across restarts.
type Scheduler struct {
	mu        sync.RWMutex
	service   *Service
	push      *store.PushStore
	schedules *store.ScheduleStore
	loc       *time.Location
	logger    *slog.Logger
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewScheduler(svc *Service, pushStore *store.PushStore, scheduleStore *store.ScheduleStore, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:   svc,
		push:      pushStore,
		schedules: scheduleStore,
		loc:       loc,
		logger:    logger.With("component", "push-scheduler"),
		interval:  60 * time.Second,
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
				s.tick(ctx)
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

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().In(s.loc)
	if now.Hour() < reminderHour {
		return
	}
	today := now.Format(model.DateLayout)

	reminders, err := s.schedules.ListRemindersForDate(today)
	if err != nil {
		s.logger.Error("list reminders", "error", err)
		return
	}

	for _, schedule := range reminders {
		sent, err := s.push.WasSent(schedule.ID, today)
		if err != nil {
			s.logger.Error("check sent log", "schedule_id", schedule.ID, "error", err)
			continue
		}
		if sent {
			continue
		}

		// Claim the send before delivering; a concurrent instance losing
		// this insert skips the schedule.
		if err := s.push.MarkSent(schedule.ID, today); err != nil {
			if !errors.Is(err, store.ErrDuplicate) {
				s.logger.Error("mark sent", "schedule_id", schedule.ID, "error", err)
			}
			continue
		}

		s.deliver(ctx, &schedule)
	}
}

func (s *Scheduler) deliver(ctx context.Context, schedule *model.Schedule) {
	var subs []model.PushSubscription
	var err error
	if schedule.FamilyCode != "" {
		subs, err = s.push.ListByFamilyCode(schedule.FamilyCode)
	} else {
		subs, err = s.push.ListByUser(schedule.CreatedBy)
	}
	if err != nil {
		s.logger.Error("list subscriptions", "schedule_id", schedule.ID, "error", err)
		return
	}

	payload := Payload{
		Title: "Today's schedule",
		Body:  fmt.Sprintf("%s is today", schedule.Title),
		URL:   "/schedules",
		Tag:   fmt.Sprintf("schedule-%d", schedule.ID),
	}
	if schedule.Time != nil {
		payload.Body = fmt.Sprintf("%s is today at %s", schedule.Title, *schedule.Time)
	}

	for i := range subs {
		sub := &subs[i]
		backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			err := s.service.Send(sub, payload)
			if errors.Is(err, errTransient) {
				return retry.RetryableError(err)
			}
			return err
		})
		switch {
		case errors.Is(err, ErrExpired):
			if derr := s.push.DeleteByEndpoint(sub.Endpoint); derr != nil {
				s.logger.Error("delete expired subscription", "error", derr)
			}
		case err != nil:
			s.logger.Error("send reminder", "schedule_id", schedule.ID, "error", err)
		}
	}
	s.logger.Info("sent schedule reminder", "schedule_id", schedule.ID, "subscriptions", len(subs))
}
