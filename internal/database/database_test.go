package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/pkg/models"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *Store
	user  *models.User
	deck  *models.Deck
	cards []models.Card
}

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := Connect(TypeSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func newFixture(t *testing.T, cards int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: newStore(t)}
	f.user = &models.User{Username: "ada", NotificationsEnabled: true}
	require.NoError(t, f.store.Users.Create(ctx, f.store.DB, f.user))
	f.deck = &models.Deck{UserID: f.user.ID, Name: "Spanish"}
	require.NoError(t, f.store.Decks.CreateDeck(ctx, f.store.DB, f.deck))
	for i := 0; i < cards; i++ {
		c := models.Card{DeckID: f.deck.ID, FrontContent: "front", BackContent: "back", DisplayOrder: i + 1}
		require.NoError(t, f.store.Cards.Create(ctx, f.store.DB, &c))
		f.cards = append(f.cards, c)
	}
	require.NoError(t, f.store.Decks.RefreshCardCount(ctx, f.store.DB, f.deck.ID))
	return f
}

func (f *fixture) review(t *testing.T, cardID int64, quality int, at time.Time) *models.CardReview {
	t.Helper()
	next := at.AddDate(0, 0, 1)
	r := &models.CardReview{
		CardID:         cardID,
		UserID:         f.user.ID,
		ReviewedAt:     at,
		Quality:        quality,
		EaseFactor:     2.5,
		IntervalDays:   1,
		NextReviewDate: &next,
	}
	require.NoError(t, f.store.Reviews.Create(context.Background(), f.store.DB, r))
	return r
}

func TestConnectRejectsUnknownType(t *testing.T) {
	_, err := Connect("oracle", "")
	assert.Error(t, err)
}

func TestCardsAndCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)

	deck, err := f.store.Decks.GetOwnedDeck(ctx, f.store.DB, f.user.ID, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, deck.CardCount)

	require.NoError(t, f.store.Cards.Deactivate(ctx, f.store.DB, f.cards[1].ID))
	require.NoError(t, f.store.Decks.RefreshCardCount(ctx, f.store.DB, f.deck.ID))

	ids, err := f.store.Cards.ActiveIDsByDeck(ctx, f.store.DB, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.cards[0].ID, f.cards[2].ID}, ids)

	deck, err = f.store.Decks.GetOwnedDeck(ctx, f.store.DB, f.user.ID, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deck.CardCount)

	next, err := f.store.Cards.NextDisplayOrder(ctx, f.store.DB, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestOwnershipIsChecked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	_, err := f.store.Decks.GetOwnedDeck(ctx, f.store.DB, f.user.ID+1, f.deck.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.store.Cards.GetOwned(ctx, f.store.DB, f.user.ID+1, f.cards[0].ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	card, err := f.store.Cards.GetOwned(ctx, f.store.DB, f.user.ID, f.cards[0].ID)
	require.NoError(t, err)
	assert.True(t, card.IsActive)
}

func TestPodMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	pod := &models.Pod{UserID: f.user.ID, Name: "Languages"}
	require.NoError(t, f.store.Decks.CreatePod(ctx, f.store.DB, pod))

	pd, err := f.store.Decks.AddDeckToPod(ctx, f.store.DB, pod.ID, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pd.DisplayOrder)

	_, err = f.store.Decks.AddDeckToPod(ctx, f.store.DB, pod.ID, f.deck.ID)
	assert.True(t, errors.Is(err, apperr.ErrStateConflict))

	got, err := f.store.Decks.GetOwnedPod(ctx, f.store.DB, f.user.ID, pod.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DeckCount)
	assert.Equal(t, 2, got.TotalCardCount)

	ids, err := f.store.Cards.ActiveIDsByPod(ctx, f.store.DB, pod.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	cards, err := f.store.Cards.ListActiveByPodWithDeck(ctx, f.store.DB, pod.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Spanish", cards[0].DeckName)

	ok, err := f.store.Decks.SetPodDeckOrder(ctx, f.store.DB, pod.ID, f.deck.ID, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.store.Decks.SetPodDeckOrder(ctx, f.store.DB, pod.ID, f.deck.ID+1, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := f.store.Decks.ListPodDecks(ctx, f.store.DB, pod.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, f.deck.ID, entries[0].ID)
	assert.Equal(t, 4, entries[0].DisplayOrder)

	require.NoError(t, f.store.Decks.RemoveDeckFromPod(ctx, f.store.DB, pod.ID, f.deck.ID))
	got, err = f.store.Decks.GetOwnedPod(ctx, f.store.DB, f.user.ID, pod.ID)
	require.NoError(t, err)
	assert.Zero(t, got.DeckCount)
	assert.Zero(t, got.TotalCardCount)
	err = f.store.Decks.RemoveDeckFromPod(ctx, f.store.DB, pod.ID, f.deck.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	pods, err := f.store.Decks.ListPodsByUser(ctx, f.store.DB, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, pods, 1)
	decks, err := f.store.Decks.ListDecksByUser(ctx, f.store.DB, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, decks, 1)
}

func TestCardUpdateAndOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	card := f.cards[0]
	card.FrontContent, card.Tags, card.DisplayOrder = "hola", "greeting", 7
	require.NoError(t, f.store.Cards.Update(ctx, f.store.DB, &card))

	got, err := f.store.Cards.GetOwned(ctx, f.store.DB, f.user.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "hola", got.FrontContent)
	assert.Equal(t, "greeting", got.Tags)
	assert.Equal(t, 7, got.DisplayOrder)

	ok, err := f.store.Cards.SetDisplayOrder(ctx, f.store.DB, f.deck.ID, f.cards[1].ID, 9)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.store.Cards.SetDisplayOrder(ctx, f.store.DB, f.deck.ID+1, f.cards[1].ID, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := f.store.Cards.ActiveIDsByDeck(ctx, f.store.DB, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{card.ID, f.cards[1].ID}, ids)

	missing := models.Card{ID: 999, FrontContent: "x", BackContent: "y"}
	err = f.store.Cards.Update(ctx, f.store.DB, &missing)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLatestByCards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	a, b := f.cards[0].ID, f.cards[1].ID

	f.review(t, a, 2, t0)
	newest := f.review(t, a, 4, t0.Add(time.Hour))
	first := f.review(t, b, 3, t0)
	tie := f.review(t, b, 5, t0)

	latest, err := f.store.Reviews.LatestByCards(ctx, f.store.DB, f.user.ID, []int64{a, b, f.cards[2].ID})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, newest.ID, latest[a].ID)
	assert.Greater(t, tie.ID, first.ID)
	assert.Equal(t, tie.ID, latest[b].ID, "ties on reviewed_at go to the later row")
	assert.Nil(t, latest[f.cards[2].ID])

	require.NotNil(t, latest[a].NextReviewDate)
	assert.True(t, latest[a].NextReviewDate.Equal(t0.Add(25*time.Hour)))

	one, err := f.store.Reviews.Latest(ctx, f.store.DB, f.user.ID, f.cards[2].ID)
	require.NoError(t, err)
	assert.Nil(t, one)
}

func TestReviewQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	a, b := f.cards[0].ID, f.cards[1].ID

	f.review(t, a, 1, t0.AddDate(0, 0, -40))
	f.review(t, a, 4, t0)
	f.review(t, b, 2, t0.Add(time.Minute))

	since, err := f.store.Reviews.ListByCardsSince(ctx, f.store.DB, f.user.ID, []int64{a, b}, t0.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Len(t, since, 2)

	history, err := f.store.Reviews.History(ctx, f.store.DB, f.user.ID, a)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 4, history[0].Quality, "newest first")

	learned, err := f.store.Reviews.CountLearned(ctx, f.store.DB, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, learned)

	total, err := f.store.Reviews.CountByUser(ctx, f.store.DB, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	none, err := f.store.Reviews.ListByCardsSince(ctx, f.store.DB, f.user.ID, nil, t0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOneActiveSessionPerScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	deckID := f.deck.ID

	first := &models.StudySession{UserID: f.user.ID, DeckID: &deckID, StartedAt: t0, SessionType: "review", Mode: models.ModeBasic}
	require.NoError(t, f.store.Sessions.Create(ctx, f.store.DB, first))

	second := &models.StudySession{UserID: f.user.ID, DeckID: &deckID, StartedAt: t0, SessionType: "review", Mode: models.ModeBasic}
	err := f.store.Sessions.Create(ctx, f.store.DB, second)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	active, err := f.store.Sessions.FindActive(ctx, f.store.DB, f.user.ID, models.DeckScope(deckID))
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, models.ModeBasic, active.Mode)

	end := t0.Add(30 * time.Minute)
	active.EndedAt = &end
	active.CardsStudied, active.CardsCorrect = 5, 4
	require.NoError(t, f.store.Sessions.Update(ctx, f.store.DB, active))

	require.NoError(t, f.store.Sessions.Create(ctx, f.store.DB, second))

	done, err := f.store.Sessions.ListCompletedByUser(ctx, f.store.DB, f.user.ID)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, 5, done[0].CardsStudied)
	require.NotNil(t, done[0].EndedAt)
	assert.True(t, done[0].EndedAt.Equal(end))
}

func TestSessionNeedsExactlyOneScope(t *testing.T) {
	f := newFixture(t, 0)
	s := &models.StudySession{UserID: f.user.ID, StartedAt: t0, SessionType: "review", Mode: models.ModeBasic}
	err := f.store.Sessions.Create(context.Background(), f.store.DB, s)
	assert.Error(t, err)
	assert.False(t, IsUniqueViolation(err))
}

func TestTelegramLinking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	other := &models.User{Username: "bob", NotificationsEnabled: true}
	require.NoError(t, f.store.Users.Create(ctx, f.store.DB, other))

	require.NoError(t, f.store.Users.LinkTelegramChat(ctx, f.store.DB, f.user.ID, 555))
	require.NoError(t, f.store.Users.LinkTelegramChat(ctx, f.store.DB, other.ID, 555))

	u, err := f.store.Users.GetByTelegramChatID(ctx, f.store.DB, 555)
	require.NoError(t, err)
	assert.Equal(t, other.ID, u.ID)

	users, err := f.store.Users.ListNotifiable(ctx, f.store.DB)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, other.ID, users[0].ID)

	require.NoError(t, f.store.Users.SetNotifications(ctx, f.store.DB, other.ID, false))
	users, err = f.store.Users.ListNotifiable(ctx, f.store.DB)
	require.NoError(t, err)
	assert.Empty(t, users)

	err = f.store.Users.LinkTelegramChat(ctx, f.store.DB, 999, 1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLinkCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	other := &models.User{Username: "bob", NotificationsEnabled: true}
	require.NoError(t, f.store.Users.Create(ctx, f.store.DB, other))

	stale := &models.TelegramLinkCode{Code: "stale", UserID: other.ID, ExpiresAt: t0, CreatedAt: t0.Add(-time.Minute)}
	first := &models.TelegramLinkCode{Code: "first", UserID: f.user.ID, ExpiresAt: t0.Add(time.Hour), CreatedAt: t0.Add(-time.Minute)}
	require.NoError(t, f.store.Users.CreateLinkCode(ctx, f.store.DB, stale))
	require.NoError(t, f.store.Users.CreateLinkCode(ctx, f.store.DB, first))

	// Issuing drops the user's earlier code and every expired one.
	second := &models.TelegramLinkCode{Code: "second", UserID: f.user.ID, ExpiresAt: t0.Add(time.Hour), CreatedAt: t0}
	require.NoError(t, f.store.Users.CreateLinkCode(ctx, f.store.DB, second))
	for _, code := range []string{"stale", "first"} {
		_, err := f.store.Users.TakeLinkCode(ctx, f.store.DB, code)
		assert.True(t, errors.Is(err, apperr.ErrNotFound), code)
	}

	lc, err := f.store.Users.TakeLinkCode(ctx, f.store.DB, "second")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, lc.UserID)
	assert.True(t, lc.ExpiresAt.Equal(t0.Add(time.Hour)))

	_, err = f.store.Users.TakeLinkCode(ctx, f.store.DB, "second")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestWithTxCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), sqlx.NewDb(db, "sqlmock"), func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE users SET username = 'x'")
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), sqlx.NewDb(db, "sqlmock"), func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("UPDATE users SET username = 'x'"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), sqlx.NewDb(db, "sqlmock"), func(tx *sqlx.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
