package models

import "github.com/google/uuid"

// Item is a single guessable entry on the board.
type Item struct {
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Category is a named set of items a match is played over.
type Category struct {
	ID       uuid.UUID `json:"id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Name     string    `json:"name"`
	Items    []Item    `json:"items"`
	IsPublic bool      `json:"is_public"`
}
