package models

import "time"

// Card is a single front/back entry owned by exactly one deck.
// Removing a card deactivates it; rows are never physically deleted.
type Card struct {
	ID           int64     `json:"id" db:"id"`
	DeckID       int64     `json:"deck_id" db:"deck_id"`
	FrontContent string    `json:"front_content" db:"front_content"`
	BackContent  string    `json:"back_content" db:"back_content"`
	Tags         string    `json:"tags" db:"tags"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PodCard is a card listed through a pod, with the deck it comes from
type PodCard struct {
	Card
	DeckName string `json:"source_deck_name" db:"deck_name"`
}
