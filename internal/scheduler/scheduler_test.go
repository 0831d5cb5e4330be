package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashpod/internal/logger"
	"github.com/example/flashpod/internal/stats"
	"github.com/example/flashpod/internal/timezone"
	"github.com/example/flashpod/pkg/models"
)

type fakeSource struct {
	users []models.User
	due   map[int64]stats.DueInfo
	err   error
}

func (f *fakeSource) NotifiableUsers(context.Context) ([]models.User, error) {
	return f.users, f.err
}

func (f *fakeSource) DueSummary(_ context.Context, userID int64) (stats.DueInfo, error) {
	if userID == 99 {
		return stats.DueInfo{}, errors.New("boom")
	}
	return f.due[userID], nil
}

type sent struct {
	chatID int64
	count  int
}

type fakeNotifier struct {
	sent []sent
	fail map[int64]bool
}

func (f *fakeNotifier) SendReminder(_ context.Context, chatID int64, due stats.DueInfo) error {
	if f.fail[chatID] {
		return errors.New("blocked by user")
	}
	f.sent = append(f.sent, sent{chatID, due.CardsDueNow})
	return nil
}

func chat(id int64) *int64 { return &id }

func newTestScheduler(t *testing.T, localHour int, src DueSource, n Notifier) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	now := time.Date(2024, 1, 10, localHour, 15, 0, 0, loc)
	tz := timezone.New("Europe/Berlin", nil).WithClock(func() time.Time { return now })
	return New(src, n, tz, Window{StartHour: 8, EndHour: 21}, logger.NewNop())
}

func TestWindowContains(t *testing.T) {
	day := Window{StartHour: 8, EndHour: 21}
	assert.True(t, day.Contains(8))
	assert.True(t, day.Contains(21))
	assert.False(t, day.Contains(7))
	assert.False(t, day.Contains(22))

	night := Window{StartHour: 22, EndHour: 2}
	assert.True(t, night.Contains(23))
	assert.True(t, night.Contains(1))
	assert.False(t, night.Contains(12))
}

func TestCheckAndSendReminders(t *testing.T) {
	src := &fakeSource{
		users: []models.User{
			{ID: 1, TelegramChatID: chat(100)},
			{ID: 2, TelegramChatID: chat(200)}, // nothing due
			{ID: 3},                            // not linked
			{ID: 4, TelegramChatID: chat(400)}, // send fails
			{ID: 99, TelegramChatID: chat(990)},
			{ID: 5, TelegramChatID: chat(500)},
		},
		due: map[int64]stats.DueInfo{
			1: {CardsDueNow: 3},
			3: {CardsDueNow: 1},
			4: {CardsDueNow: 2},
			5: {CardsDueNow: 7},
		},
	}
	n := &fakeNotifier{fail: map[int64]bool{400: true}}
	s := newTestScheduler(t, 9, src, n)

	count, err := s.CheckAndSendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []sent{{100, 3}, {500, 7}}, n.sent)
}

func TestCheckOutsideWindowSendsNothing(t *testing.T) {
	src := &fakeSource{users: []models.User{{ID: 1, TelegramChatID: chat(100)}}, due: map[int64]stats.DueInfo{1: {CardsDueNow: 1}}}
	n := &fakeNotifier{}
	s := newTestScheduler(t, 23, src, n)

	count, err := s.CheckAndSendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, n.sent)

	// Manual checks ignore the window.
	ok, err := s.RunManualCheck(context.Background(), src.users[0])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckReportsUserLoadFailure(t *testing.T) {
	s := newTestScheduler(t, 10, &fakeSource{err: errors.New("db down")}, &fakeNotifier{})
	_, err := s.CheckAndSendReminders(context.Background())
	assert.ErrorContains(t, err, "db down")
}
