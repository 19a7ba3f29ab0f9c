// Package store persists leaderboard standings and finished-match history.
// A postgres-backed implementation is used when DATABASE_URL is set; the
// in-memory one covers tests and single-node dev runs.
package store

import (
	"context"
	"math"
	"time"
)

type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	Wins        int    `json:"wins"`
	GamesPlayed int    `json:"gamesPlayed"`
	WinRate     int    `json:"winRate"` // percent, derived
}

type MatchRecord struct {
	ID      string    `json:"id"`
	Winner  string    `json:"winner"`
	Players []string  `json:"players"`
	EndedAt time.Time `json:"endedAt"`
}

type Store interface {
	RecordWin(ctx context.Context, playerID string) error
	RecordGamePlayed(ctx context.Context, playerID string) error
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	RecordMatch(ctx context.Context, rec MatchRecord) error
	MatchHistory(ctx context.Context, limit int) ([]MatchRecord, error)
}

func winRate(wins, played int) int {
	if played == 0 {
		return 0
	}
	return int(math.Round(float64(wins) / float64(played) * 100))
}
