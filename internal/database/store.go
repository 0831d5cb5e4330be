package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Store bundles the connection pool with the repositories that run on it
type Store struct {
	DB       *sqlx.DB
	Users    *UserRepository
	Decks    *DeckRepository
	Cards    *CardRepository
	Reviews  *ReviewRepository
	Sessions *SessionRepository
}

// NewStore wires every repository to db
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		DB:       db,
		Users:    NewUserRepository(),
		Decks:    NewDeckRepository(),
		Cards:    NewCardRepository(),
		Reviews:  NewReviewRepository(),
		Sessions: NewSessionRepository(),
	}
}

// InTx runs fn in a transaction on the store's pool
func (s *Store) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return WithTx(ctx, s.DB, fn)
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
