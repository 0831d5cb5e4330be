// Package scheduler sends hourly due-card reminders.
package scheduler

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron"

	"github.com/example/flashpod/internal/logger"
	"github.com/example/flashpod/internal/stats"
	"github.com/example/flashpod/internal/timezone"
	"github.com/example/flashpod/pkg/models"
)

// Notifier delivers a reminder to a linked chat
type Notifier interface {
	SendReminder(ctx context.Context, chatID int64, due stats.DueInfo) error
}

// DueSource is the part of the study engine reminders read from
type DueSource interface {
	NotifiableUsers(ctx context.Context) ([]models.User, error)
	DueSummary(ctx context.Context, userID int64) (stats.DueInfo, error)
}

// Window is the range of local hours, inclusive, in which reminders go out
type Window struct {
	StartHour int
	EndHour   int
}

// Contains reports whether hour falls in the window. A window whose end is
// before its start wraps past midnight.
func (w Window) Contains(hour int) bool {
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour <= w.EndHour
	}
	return hour >= w.StartHour || hour <= w.EndHour
}

// Scheduler manages periodic tasks
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    DueSource
	notifier  Notifier
	tz        *timezone.Normalizer
	window    Window
	log       *logger.Logger
}

// New creates a new scheduler running in the display zone of tz
func New(source DueSource, notifier Notifier, tz *timezone.Normalizer, window Window, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(tz.Location()),
		source:    source,
		notifier:  notifier,
		tz:        tz,
		window:    window,
		log:       log.With("service", "Scheduler"),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Hour().Do(func() {
		if _, err := s.CheckAndSendReminders(context.Background()); err != nil {
			s.log.Error("Reminder run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("Scheduler started", "start_hour", s.window.StartHour, "end_hour", s.window.EndHour)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("Scheduler stopped")
}

// CheckAndSendReminders sends a reminder to every linked user with cards due
// now, if the current local hour is inside the window. It returns the number
// of reminders sent. A failure for one user does not stop the others.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) (int, error) {
	hour := s.tz.Now().Hour()
	if !s.window.Contains(hour) {
		s.log.Debug("Outside notification window", "hour", hour)
		return 0, nil
	}

	users, err := s.source.NotifiableUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load users: %w", err)
	}

	sent := 0
	for _, u := range users {
		ok, err := s.RunManualCheck(ctx, u)
		if err != nil {
			s.log.Error("Reminder failed", "user_id", u.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	s.log.Info("Reminder run finished", "users", len(users), "sent", sent)
	return sent, nil
}

// RunManualCheck sends a reminder to one user regardless of the window.
// It reports whether a reminder was sent.
func (s *Scheduler) RunManualCheck(ctx context.Context, u models.User) (bool, error) {
	if u.TelegramChatID == nil {
		return false, nil
	}
	due, err := s.source.DueSummary(ctx, u.ID)
	if err != nil {
		return false, err
	}
	if due.CardsDueNow == 0 {
		return false, nil
	}
	if err := s.notifier.SendReminder(ctx, *u.TelegramChatID, due); err != nil {
		return false, err
	}
	return true, nil
}
