package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchRecord is the terminal outcome of a finished match, as handed to the
// result reporter. Winner/Loser are usernames; the ID is minted when the
// match ends so retries stay idempotent downstream.
type MatchRecord struct {
	ID           uuid.UUID `json:"id"`
	GameCode     string    `json:"game_code"`
	CategoryName string    `json:"category_name"`
	Winner       string    `json:"winner"`
	Loser        string    `json:"loser"`
	Forfeit      bool      `json:"forfeit"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
}
