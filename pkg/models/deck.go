package models

import "time"

// Deck groups cards for one owner
type Deck struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	CardCount   int       `json:"card_count" db:"card_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Pod is a named collection of decks studied together as one unit
type Pod struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	IsPublic       bool      `json:"is_public" db:"is_public"`
	DeckCount      int       `json:"deck_count" db:"deck_count"`
	TotalCardCount int       `json:"total_card_count" db:"total_card_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// PodDeck places a deck inside a pod. (pod_id, deck_id) is unique.
type PodDeck struct {
	ID           int64     `json:"id" db:"id"`
	PodID        int64     `json:"pod_id" db:"pod_id"`
	DeckID       int64     `json:"deck_id" db:"deck_id"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	AddedAt      time.Time `json:"added_at" db:"added_at"`
}

// PodDeckEntry is a deck as it sits in a pod
type PodDeckEntry struct {
	Deck
	DisplayOrder int `json:"display_order" db:"display_order"`
}
