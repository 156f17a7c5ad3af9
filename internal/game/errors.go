package game

import "errors"

// Validation rejections surfaced to the originating connection as alerts.
// None of these ever mutates registry state.
var (
	ErrAlreadyInGame     = errors.New("you're already in a game")
	ErrGameNotFound      = errors.New("that game doesn't exist")
	ErrGameFull          = errors.New("game reached max players")
	ErrGameNotWaiting    = errors.New("game has already started")
	ErrNotEnoughPlayers  = errors.New("game needs two players to start")
	ErrNotEnoughItems    = errors.New("category needs at least two items")
	ErrGameNotInProgress = errors.New("game is not in progress")
	ErrNotInGame         = errors.New("you're not in that game")
)
