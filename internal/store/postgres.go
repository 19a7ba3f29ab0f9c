package store

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type leaderboardRow struct {
	PlayerID    string `gorm:"primaryKey;type:varchar(64)"`
	Wins        int    `gorm:"default:0"`
	GamesPlayed int    `gorm:"default:0"`
	LastWinAt   time.Time
}

func (leaderboardRow) TableName() string { return "leaderboard" }

type matchRow struct {
	ID      string `gorm:"primaryKey;type:varchar(64)"`
	Winner  string `gorm:"index;type:varchar(64)"`
	Players string // JSON array of player ids
	EndedAt time.Time `gorm:"index"`
}

func (matchRow) TableName() string { return "match_history" }

type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&leaderboardRow{}, &matchRow{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) RecordWin(ctx context.Context, playerID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"wins":         gorm.Expr("leaderboard.wins + 1"),
			"games_played": gorm.Expr("leaderboard.games_played + 1"),
			"last_win_at":  now,
		}),
	}).Create(&leaderboardRow{PlayerID: playerID, Wins: 1, GamesPlayed: 1, LastWinAt: now}).Error
}

func (s *Postgres) RecordGamePlayed(ctx context.Context, playerID string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"games_played": gorm.Expr("leaderboard.games_played + 1"),
		}),
	}).Create(&leaderboardRow{PlayerID: playerID, GamesPlayed: 1}).Error
}

func (s *Postgres) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := s.db.WithContext(ctx).
		Order("wins DESC, games_played ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeaderboardEntry{
			PlayerID:    r.PlayerID,
			Wins:        r.Wins,
			GamesPlayed: r.GamesPlayed,
			WinRate:     winRate(r.Wins, r.GamesPlayed),
		})
	}
	return out, nil
}

func (s *Postgres) RecordMatch(ctx context.Context, rec MatchRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	row := matchRow{ID: rec.ID, Winner: rec.Winner, Players: string(players), EndedAt: rec.EndedAt}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Postgres) MatchHistory(ctx context.Context, limit int) ([]MatchRecord, error) {
	var rows []matchRow
	err := s.db.WithContext(ctx).
		Order("ended_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]MatchRecord, 0, len(rows))
	for _, r := range rows {
		rec := MatchRecord{ID: r.ID, Winner: r.Winner, EndedAt: r.EndedAt}
		if r.Players != "" {
			if err := json.Unmarshal([]byte(r.Players), &rec.Players); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
