package game

import (
	"fmt"
	"math"
	"math/rand"
)

var botNames = []string{
	"TrashMaster", "GorbKing", "JunkLord", "ScrapGod",
	"WasteWarrior", "RubbishRuler", "DebrisDuke", "LitterLord",
}

var botAvatars = []string{
	"Garbage Bot", "Junk Warrior", "Scrap Knight", "Trash Titan",
}

// NewBots spawns n synthetic opponents spread on a circle around the arena
// center, the same layout the lobby uses to pad out a match.
func NewBots(n int, rng *rand.Rand) []Player {
	const (
		radius  = 350.0
		centerX = ArenaStart / 2
		centerY = ArenaStart / 2
	)
	bots := make([]Player, 0, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		bots = append(bots, Player{
			ID:       fmt.Sprintf("bot_%d", i),
			Name:     botNames[i%len(botNames)],
			Wallet:   fmt.Sprintf("bot_wallet_%d", i),
			Health:   MaxHealth,
			Shields:  50,
			Position: clampPosition(Position{X: centerX + radius*math.Cos(angle), Y: centerY + radius*math.Sin(angle)}),
			Alive:    true,
			Avatar:   botAvatars[i%len(botAvatars)],
			Level:    rng.Intn(10) + 1,
			XP:       rng.Intn(1000),
		})
	}
	return bots
}

// IsBot reports whether an id belongs to a synthetic player.
func IsBot(id string) bool {
	return len(id) > 4 && id[:4] == "bot_"
}

// StepBots random-walks every bot still in the match, keeping them inside
// the arena square. Used by the waiting-phase ticker.
func StepBots(m Match, rng *rand.Rand) Match {
	next := cloneMatch(m)
	for i, p := range next.Players {
		if !IsBot(p.ID) || !p.Alive {
			continue
		}
		next.Players[i].Position = clampPosition(Position{
			X: p.Position.X + (rng.Float64()-0.5)*40,
			Y: p.Position.Y + (rng.Float64()-0.5)*40,
		})
	}
	return next
}
