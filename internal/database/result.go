package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/D34dlyK1ss/whoisit/internal/models"
)

// RecordMatchResult inserts the finished-match row and bumps both players'
// aggregate counters in one transaction. The insert is keyed on the record
// id, so a redelivered queue message is a no-op.
func RecordMatchResult(ctx context.Context, rec models.MatchRecord) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		insert := `
		INSERT INTO match_results (id, game_code, category_name, winner, loser, forfeit, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
		`
		tag, err := tx.Exec(ctx, insert,
			rec.ID, rec.GameCode, rec.CategoryName,
			rec.Winner, rec.Loser, rec.Forfeit,
			rec.StartedAt, rec.EndedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// already recorded, skip the counter bumps too
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET wins = wins + 1 WHERE username=$1`, rec.Winner); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE users SET losses = losses + 1 WHERE username=$1`, rec.Loser)
		return err
	})
	if err != nil {
		return fmt.Errorf("record match result: %w", err)
	}
	return nil
}

// LeaderboardEntry is one row of the win-count ranking.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

// GetLeaderboard returns the top players by win count.
func GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `
	SELECT username, wins, losses
	FROM users
	ORDER BY wins DESC, losses ASC, username
	LIMIT $1
	`
	rows, err := DB.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Wins, &e.Losses); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MatchHistoryEntry is one finished match as shown on a profile.
type MatchHistoryEntry struct {
	GameCode     string    `json:"gameCode"`
	CategoryName string    `json:"categoryName"`
	Opponent     string    `json:"opponent"`
	Won          bool      `json:"won"`
	Forfeit      bool      `json:"forfeit"`
	EndedAt      time.Time `json:"endedAt"`
}

// GetMatchHistory returns a user's most recent finished matches.
func GetMatchHistory(ctx context.Context, userID uuid.UUID, limit int) ([]MatchHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
	SELECT m.game_code, m.category_name, m.winner, m.loser, m.forfeit, m.ended_at
	FROM match_results m
	JOIN users u ON u.username IN (m.winner, m.loser)
	WHERE u.id = $1
	ORDER BY m.ended_at DESC
	LIMIT $2
	`
	user, err := GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := DB.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []MatchHistoryEntry
	for rows.Next() {
		var gameCode, categoryName, winner, loser string
		var forfeit bool
		var endedAt time.Time
		if err := rows.Scan(&gameCode, &categoryName, &winner, &loser, &forfeit, &endedAt); err != nil {
			return nil, err
		}
		entry := MatchHistoryEntry{
			GameCode:     gameCode,
			CategoryName: categoryName,
			Forfeit:      forfeit,
			EndedAt:      endedAt,
			Won:          winner == user.Username,
		}
		if entry.Won {
			entry.Opponent = loser
		} else {
			entry.Opponent = winner
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}
