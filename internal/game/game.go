package game

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/D34dlyK1ss/whoisit/internal/models"
)

// Status is the lifecycle phase of a game. Transitions are one-way:
// waiting -> playing -> ended.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// Player is a lightweight membership record keyed by username, the identity
// the rest of the match state uses. ConnID is a weak reference into the
// connection registry; removing a player never tears down the connection.
type Player struct {
	Username string `json:"username"`
	ConnID   string `json:"-"`
}

// Game is a single lobby/match keyed by its public join code.
type Game struct {
	Code           string
	Status         Status
	Players        []*Player
	Category       models.Category
	TriesPerPlayer int

	// secrets maps username -> the item assigned to that player. A guess by
	// one player is evaluated against the opponent's entry.
	secrets   map[string]string
	triesLeft map[string]int

	StartedAt time.Time
	EndedAt   time.Time
	Winner    string
	Loser     string
}

func newGame(code string, category models.Category, tries int) *Game {
	return &Game{
		Code:           code,
		Status:         StatusWaiting,
		Category:       category,
		TriesPerPlayer: tries,
		secrets:        make(map[string]string),
		triesLeft:      make(map[string]int),
	}
}

func (g *Game) player(username string) *Player {
	for _, p := range g.Players {
		if p.Username == username {
			return p
		}
	}
	return nil
}

func (g *Game) opponent(username string) *Player {
	for _, p := range g.Players {
		if p.Username != username {
			return p
		}
	}
	return nil
}

func (g *Game) removePlayer(username string) {
	for i, p := range g.Players {
		if p.Username == username {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return
		}
	}
}

// assignSecrets draws two distinct items and assigns one to each player.
// Rejection-sampling keeps the draw uniform over distinct pairs.
func (g *Game) assignSecrets() {
	items := g.Category.Items
	a := rand.IntN(len(items))
	b := rand.IntN(len(items))
	for b == a {
		b = rand.IntN(len(items))
	}
	g.secrets[g.Players[0].Username] = items[a].Name
	g.secrets[g.Players[1].Username] = items[b].Name
}

// evaluateGuess compares a guess against the opponent's secret, trimmed and
// case-insensitive.
func (g *Game) evaluateGuess(username, guess string) bool {
	opp := g.opponent(username)
	if opp == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(g.secrets[opp.Username]))
}

func (g *Game) usernames() []string {
	names := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		names = append(names, p.Username)
	}
	return names
}

// snapshot is the client-facing view of a game. Secrets are never included;
// each player learns only their own assigned item, via the start payload.
func (g *Game) snapshot() map[string]interface{} {
	return map[string]interface{}{
		"id":       g.Code,
		"status":   string(g.Status),
		"players":  g.usernames(),
		"category": g.Category,
		"tries":    g.TriesPerPlayer,
	}
}
