package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory keeps standings in process memory. Contents are lost on restart.
type Memory struct {
	mu      sync.Mutex
	wins    map[string]int
	played  map[string]int
	order   []string // first-seen order, stable sort tiebreak
	matches []MatchRecord
}

func NewMemory() *Memory {
	return &Memory{
		wins:   make(map[string]int),
		played: make(map[string]int),
	}
}

func (s *Memory) touch(playerID string) {
	if _, seen := s.played[playerID]; !seen {
		if _, seen := s.wins[playerID]; !seen {
			s.order = append(s.order, playerID)
		}
	}
}

func (s *Memory) RecordWin(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(playerID)
	s.wins[playerID]++
	s.played[playerID]++
	return nil
}

func (s *Memory) RecordGamePlayed(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(playerID)
	s.played[playerID]++
	return nil
}

func (s *Memory) Leaderboard(_ context.Context, limit int) ([]LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LeaderboardEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, LeaderboardEntry{
			PlayerID:    id,
			Wins:        s.wins[id],
			GamesPlayed: s.played[id],
			WinRate:     winRate(s.wins[id], s.played[id]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Wins > out[j].Wins })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Memory) RecordMatch(_ context.Context, rec MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.ID == rec.ID {
			return nil
		}
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now()
	}
	s.matches = append(s.matches, rec)
	return nil
}

func (s *Memory) MatchHistory(_ context.Context, limit int) ([]MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MatchRecord, len(s.matches))
	copy(out, s.matches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
