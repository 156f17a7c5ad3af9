package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/D34dlyK1ss/whoisit/internal/chat"
	"github.com/D34dlyK1ss/whoisit/internal/ident"
	"github.com/D34dlyK1ss/whoisit/internal/models"
)

const gameCodeLength = 8

// DefaultLobbyTTL is how long a waiting game with no seated players survives
// before it is reclaimed. Joined lobbies are deleted when the last player
// leaves, so the timer only has to cover games nobody ever joined.
const DefaultLobbyTTL = 10 * time.Minute

// Sender delivers an outbound message to a connection by id. Unknown ids are
// a silent no-op; the registry never learns whether a send landed.
type Sender interface {
	Send(connID string, msg map[string]interface{})
}

// ResultReporter persists a finished match. Implementations must not block
// match teardown; failures are theirs to log.
type ResultReporter interface {
	Report(ctx context.Context, rec models.MatchRecord)
}

// Registry owns every open game and the presence index. All mutations run
// under one mutex, so commands against the same game are totally ordered and
// a username is never in two games at once.
type Registry struct {
	log      *logrus.Logger
	sender   Sender
	reporter ResultReporter

	lobbyTTL time.Duration

	mu       sync.Mutex
	games    map[string]*Game
	presence map[string]string // username -> game code
}

// NewRegistry builds an empty registry. sender and reporter are required;
// tests inject fakes.
func NewRegistry(log *logrus.Logger, sender Sender, reporter ResultReporter) *Registry {
	return &Registry{
		log:      log,
		sender:   sender,
		reporter: reporter,
		lobbyTTL: DefaultLobbyTTL,
		games:    make(map[string]*Game),
		presence: make(map[string]string),
	}
}

// CreateGame opens a new waiting game and returns its join code. The owner
// is not seated yet; they join like anyone else.
func (r *Registry) CreateGame(owner string, category models.Category, tries int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.presence[owner]; busy {
		return "", ErrAlreadyInGame
	}
	if tries < 1 {
		tries = 1
	}

	code := ident.New(gameCodeLength)
	for _, taken := r.games[code]; taken; _, taken = r.games[code] {
		code = ident.New(gameCodeLength)
	}

	r.games[code] = newGame(code, category, tries)
	time.AfterFunc(r.lobbyTTL, func() { r.reclaimEmptyLobby(code) })
	r.log.WithFields(logrus.Fields{"game": code, "owner": owner}).Info("game created")
	return code, nil
}

// reclaimEmptyLobby deletes a waiting game nobody joined. Firing after the
// lobby was joined, finished, or already deleted is a harmless no-op.
func (r *Registry) reclaimEmptyLobby(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[code]
	if !ok || g.Status != StatusWaiting || len(g.Players) > 0 {
		return
	}
	delete(r.games, code)
	r.log.WithField("game", code).Info("game deleted, nobody joined")
}

// Join seats a player in a waiting game and notifies everyone: the joiner
// gets a joinGame confirmation, sitting players get updatePlayers plus a
// system chat notice.
func (r *Registry) Join(code, username, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.presence[username]; busy {
		return ErrAlreadyInGame
	}
	g, ok := r.games[code]
	if !ok {
		return ErrGameNotFound
	}
	if g.Status != StatusWaiting {
		return ErrGameNotWaiting
	}
	if len(g.Players) >= 2 {
		return ErrGameFull
	}

	g.Players = append(g.Players, &Player{Username: username, ConnID: connID})
	r.presence[username] = code

	r.sender.Send(connID, map[string]interface{}{
		"method": "joinGame",
		"game":   g.snapshot(),
	})
	for _, p := range g.Players {
		if p.Username == username {
			continue
		}
		r.sender.Send(p.ConnID, map[string]interface{}{
			"method":  "updatePlayers",
			"players": g.usernames(),
		})
		r.sender.Send(p.ConnID, map[string]interface{}{
			"method":   "updateChat",
			"type":     "system",
			"username": username,
			"text":     username + " joined the game",
		})
	}
	return nil
}

// Start moves a full waiting game to playing. Both players receive the full
// board; each additionally receives their own assigned item and try count.
// Exactly two seated players are required.
func (r *Registry) Start(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[code]
	if !ok {
		return ErrGameNotFound
	}
	if g.Status != StatusWaiting {
		return ErrGameNotWaiting
	}
	if len(g.Players) != 2 {
		return ErrNotEnoughPlayers
	}
	if len(g.Category.Items) < 2 {
		return ErrNotEnoughItems
	}

	g.assignSecrets()
	for _, p := range g.Players {
		g.triesLeft[p.Username] = g.TriesPerPlayer
	}
	g.Status = StatusPlaying
	g.StartedAt = time.Now()

	for _, p := range g.Players {
		r.sender.Send(p.ConnID, map[string]interface{}{
			"method": "updateGame",
			"game":   g.snapshot(),
			"secret": g.secrets[p.Username],
		})
		r.sender.Send(p.ConnID, map[string]interface{}{
			"method": "updateTries",
			"nTries": g.triesLeft[p.Username],
		})
	}
	r.log.WithField("game", code).Info("game started")
	return nil
}

// Guess evaluates one guess. The try counter is decremented before anything
// else, and a correct guess wins even on the try that exhausts the counter.
func (r *Registry) Guess(code, username, guess string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[code]
	if !ok {
		return ErrGameNotFound
	}
	if g.Status != StatusPlaying {
		return ErrGameNotInProgress
	}
	p := g.player(username)
	if p == nil {
		return ErrNotInGame
	}

	g.triesLeft[username]--

	if g.evaluateGuess(username, guess) {
		r.endMatch(g, username, g.opponent(username).Username, false)
		return nil
	}
	if g.triesLeft[username] > 0 {
		r.sender.Send(p.ConnID, map[string]interface{}{
			"method": "updateTries",
			"nTries": g.triesLeft[username],
		})
		return nil
	}
	r.endMatch(g, g.opponent(username).Username, username, false)
	return nil
}

// Chat sanitizes and relays a message to every member of the game.
func (r *Registry) Chat(code, from, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[code]
	if !ok {
		return ErrGameNotFound
	}
	if g.player(from) == nil {
		return ErrNotInGame
	}

	clean := chat.Sanitize(text)
	for _, p := range g.Players {
		r.sender.Send(p.ConnID, map[string]interface{}{
			"method":   "updateChat",
			"type":     "user",
			"username": from,
			"text":     clean,
		})
	}
	return nil
}

// Leave removes a player. In a waiting game the seat is simply vacated (the
// game is deleted once empty); leaving mid-match is a forfeit and the
// remaining player wins; leaving an ended game is a no-op. The presence
// entry is cleared on every branch.
func (r *Registry) Leave(code, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(code, username)
}

// HandleDisconnect runs the leave flow for whatever game the user occupies,
// if any. Called by the connection registry teardown path.
func (r *Registry) HandleDisconnect(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.presence[username]
	if !ok {
		return
	}
	if err := r.leaveLocked(code, username); err != nil {
		r.log.WithFields(logrus.Fields{"game": code, "user": username}).
			Debugf("disconnect cleanup: %v", err)
	}
}

func (r *Registry) leaveLocked(code, username string) error {
	delete(r.presence, username)

	g, ok := r.games[code]
	if !ok {
		return ErrGameNotFound
	}
	if g.player(username) == nil {
		return ErrNotInGame
	}

	switch g.Status {
	case StatusWaiting:
		g.removePlayer(username)
		if len(g.Players) == 0 {
			delete(r.games, code)
			r.log.WithField("game", code).Info("game deleted, last player left")
			return nil
		}
		for _, p := range g.Players {
			r.sender.Send(p.ConnID, map[string]interface{}{
				"method":  "updatePlayers",
				"players": g.usernames(),
			})
			r.sender.Send(p.ConnID, map[string]interface{}{
				"method":   "updateChat",
				"type":     "system",
				"username": username,
				"text":     username + " left the game",
			})
		}
	case StatusPlaying:
		opp := g.opponent(username)
		r.endMatch(g, opp.Username, username, true)
	case StatusEnded:
		// terminal, nothing to do
	}
	return nil
}

// endMatch performs the one-way transition to ended, notifies both sides,
// hands the record to the reporter and drops the game. The in-memory outcome
// is authoritative whether or not the report ever lands.
func (r *Registry) endMatch(g *Game, winner, loser string, forfeit bool) {
	g.Status = StatusEnded
	g.EndedAt = time.Now()
	g.Winner = winner
	g.Loser = loser

	if p := g.player(winner); p != nil {
		r.sender.Send(p.ConnID, map[string]interface{}{"method": "gameWon"})
	}
	if p := g.player(loser); p != nil {
		r.sender.Send(p.ConnID, map[string]interface{}{"method": "gameLost"})
	}

	rec := models.MatchRecord{
		ID:           uuid.New(),
		GameCode:     g.Code,
		CategoryName: g.Category.Name,
		Winner:       winner,
		Loser:        loser,
		Forfeit:      forfeit,
		StartedAt:    g.StartedAt,
		EndedAt:      g.EndedAt,
	}
	go r.reporter.Report(context.Background(), rec)

	delete(r.presence, winner)
	delete(r.presence, loser)
	delete(r.games, g.Code)

	r.log.WithFields(logrus.Fields{
		"game":    g.Code,
		"winner":  winner,
		"loser":   loser,
		"forfeit": forfeit,
	}).Info("game ended")
}

// GameFor reports which game code a username currently occupies.
func (r *Registry) GameFor(username string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.presence[username]
	return code, ok
}

// OpenGames returns the number of games currently registered.
func (r *Registry) OpenGames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}
