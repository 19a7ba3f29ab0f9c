package game

import (
	"errors"
	"time"
)

var ErrUnknownPlayer = errors.New("unknown player")
var ErrUnknownUpgrade = errors.New("unknown upgrade")
var ErrInsufficientFunds = errors.New("insufficient balance")
var ErrMatchOver = errors.New("match already over")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseBattle    Phase = "battle"
	PhaseShrinking Phase = "shrinking"
	PhaseFinal     Phase = "final"
)

// TiePolicy decides what happens when the match timer expires and more than
// one alive player shares the maximum health.
type TiePolicy string

const (
	// TieFirstAlive picks the first alive contender in join order.
	TieFirstAlive TiePolicy = "first-alive-by-id"
	// TieSplitPool reports every contender as a winner; the prize is split.
	TieSplitPool TiePolicy = "split-pool"
)

const (
	ArenaStart = 1000.0
	ArenaFloor = 200.0
	MaxHealth  = 100
	MaxShields = 100
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Player struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Wallet       string   `json:"publicKey"`
	Health       int      `json:"health"`
	Shields      int      `json:"shields"`
	Position     Position `json:"position"`
	Eliminations int      `json:"eliminations"`
	Alive        bool     `json:"isAlive"`
	Avatar       string   `json:"avatar"`
	Level        int      `json:"level"`
	XP           int      `json:"xp"`
}

type KillFeedEntry struct {
	Killer string `json:"killer"`
	Victim string `json:"victim"`
	At     int64  `json:"timestamp"`
}

type Upgrade struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        int    `json:"cost"`
	Description string `json:"description"`
}

type Rules struct {
	ShrinkStep    float64   `json:"shrinkStep"`
	ArenaFloor    float64   `json:"arenaFloor"`
	MatchDuration int       `json:"matchDuration"` // seconds
	TiePolicy     TiePolicy `json:"tiePolicy"`
}

func DefaultRules() Rules {
	return Rules{
		ShrinkStep:    100,
		ArenaFloor:    ArenaFloor,
		MatchDuration: 300,
		TiePolicy:     TieFirstAlive,
	}
}

// Match is the authoritative view of one play session. Players keep join
// order; the alive count is always derived from them, never stored.
type Match struct {
	ID            string          `json:"id"`
	Players       []Player        `json:"players"`
	ArenaSize     float64         `json:"arenaSize"`
	Phase         Phase           `json:"currentPhase"`
	TimeRemaining int             `json:"timeRemaining"`
	KillFeed      []KillFeedEntry `json:"killFeed"`
	Upgrades      []Upgrade       `json:"upgrades"`
	Rules         Rules           `json:"rules"`
}

func NewMatch(id string, players []Player, rules Rules) Match {
	return Match{
		ID:            id,
		Players:       players,
		ArenaSize:     ArenaStart,
		Phase:         PhaseWaiting,
		TimeRemaining: rules.MatchDuration,
		KillFeed:      []KillFeedEntry{},
		Upgrades:      DefaultUpgrades(),
		Rules:         rules,
	}
}

func DefaultUpgrades() []Upgrade {
	return []Upgrade{
		{ID: "shield", Name: "Shield Boost", Cost: 50, Description: "+25 shields"},
		{ID: "health", Name: "Health Pack", Cost: 75, Description: "+50 health"},
		{ID: "speed", Name: "Speed Boost", Cost: 100, Description: "+20% movement"},
		{ID: "damage", Name: "Damage Boost", Cost: 150, Description: "+30% damage"},
	}
}

type CommandType string

const (
	CmdJoin           CommandType = "Join"
	CmdLeave          CommandType = "Leave"
	CmdMove           CommandType = "Move"
	CmdSetHealth      CommandType = "SetHealth"
	CmdEliminate      CommandType = "Eliminate"
	CmdBuyUpgrade     CommandType = "BuyUpgrade"
	CmdShrink         CommandType = "Shrink"
	CmdStartBattle    CommandType = "StartBattle"
	CmdResolveTimeout CommandType = "ResolveTimeout"
)

type Command struct {
	Type      CommandType
	Player    Player // Join only
	PlayerID  string
	KillerID  string
	Position  Position
	Health    int
	UpgradeID string
	Now       int64 // unix ms; zero means time.Now
}

type EventType string

const (
	EvtPlayerJoined     EventType = "PlayerJoined"
	EvtPlayerLeft       EventType = "PlayerLeft"
	EvtPlayerMoved      EventType = "PlayerMoved"
	EvtPlayerDamaged    EventType = "PlayerDamaged"
	EvtPlayerEliminated EventType = "PlayerEliminated"
	EvtArenaShrunk      EventType = "ArenaShrunk"
	EvtPhaseChanged     EventType = "PhaseChanged"
	EvtMatchEnded       EventType = "MatchEnded"
)

type Event struct {
	Type      EventType
	PlayerID  string
	KillerID  string
	ArenaSize float64
	Phase     Phase
	Winners   []string
}

// Apply runs one command against a match and returns the resulting events
// and state. The input match is not mutated; player and kill-feed slices are
// copied before any write.
func Apply(m Match, cmd Command) ([]Event, Match, error) {
	if m.Phase == PhaseFinal && cmd.Type != CmdLeave {
		return nil, m, ErrMatchOver
	}

	now := cmd.Now
	if now == 0 {
		now = time.Now().UnixMilli()
	}

	switch cmd.Type {
	case CmdJoin:
		return applyJoin(m, cmd.Player)

	case CmdLeave:
		return applyLeave(m, cmd.PlayerID)

	case CmdMove:
		next := cloneMatch(m)
		i := indexOf(next.Players, cmd.PlayerID)
		if i < 0 {
			return nil, m, ErrUnknownPlayer
		}
		next.Players[i].Position = clampPosition(cmd.Position)
		return []Event{{Type: EvtPlayerMoved, PlayerID: cmd.PlayerID}}, next, nil

	case CmdSetHealth:
		next := cloneMatch(m)
		i := indexOf(next.Players, cmd.PlayerID)
		if i < 0 {
			return nil, m, ErrUnknownPlayer
		}
		next.Players[i].Health = clamp(cmd.Health, 0, MaxHealth)
		return []Event{{Type: EvtPlayerDamaged, PlayerID: cmd.PlayerID}}, next, nil

	case CmdEliminate:
		return applyEliminate(m, cmd.PlayerID, cmd.KillerID, now)

	case CmdBuyUpgrade:
		return applyUpgrade(m, cmd.PlayerID, cmd.UpgradeID)

	case CmdShrink:
		return applyShrink(m)

	case CmdStartBattle:
		next := cloneMatch(m)
		next.Phase = PhaseBattle
		next.TimeRemaining = next.Rules.MatchDuration
		return []Event{{Type: EvtPhaseChanged, Phase: PhaseBattle}}, next, nil

	case CmdResolveTimeout:
		return applyTimeout(m)

	default:
		return nil, m, ErrUnsupportedCommand
	}
}

func applyJoin(m Match, p Player) ([]Event, Match, error) {
	next := cloneMatch(m)
	// One record per wallet identity: a rejoin replaces the stale entry
	// instead of appending a duplicate.
	for i, existing := range next.Players {
		if existing.ID == p.ID || (p.Wallet != "" && existing.Wallet == p.Wallet) {
			p.Position = clampPosition(p.Position)
			next.Players[i] = p
			return []Event{{Type: EvtPlayerJoined, PlayerID: p.ID}}, next, nil
		}
	}
	p.Position = clampPosition(p.Position)
	next.Players = append(next.Players, p)
	return []Event{{Type: EvtPlayerJoined, PlayerID: p.ID}}, next, nil
}

func applyLeave(m Match, id string) ([]Event, Match, error) {
	i := indexOf(m.Players, id)
	if i < 0 {
		return nil, m, ErrUnknownPlayer
	}
	next := cloneMatch(m)
	next.Players = append(next.Players[:i:i], next.Players[i+1:]...)
	events := []Event{{Type: EvtPlayerLeft, PlayerID: id}}
	return endIfDecided(next, events)
}

func applyEliminate(m Match, victimID, killerID string, now int64) ([]Event, Match, error) {
	i := indexOf(m.Players, victimID)
	if i < 0 {
		return nil, m, ErrUnknownPlayer
	}
	// Idempotent: a second elimination of the same player changes nothing
	// and must not append a duplicate kill-feed entry.
	if !m.Players[i].Alive {
		return nil, m, nil
	}
	next := cloneMatch(m)
	next.Players[i].Alive = false
	next.Players[i].Health = 0
	if k := indexOf(next.Players, killerID); k >= 0 {
		next.Players[k].Eliminations++
	}
	next.KillFeed = append(next.KillFeed, KillFeedEntry{Killer: killerID, Victim: victimID, At: now})
	events := []Event{{Type: EvtPlayerEliminated, PlayerID: victimID, KillerID: killerID}}
	return endIfDecided(next, events)
}

func applyUpgrade(m Match, playerID, upgradeID string) ([]Event, Match, error) {
	i := indexOf(m.Players, playerID)
	if i < 0 {
		return nil, m, ErrUnknownPlayer
	}
	next := cloneMatch(m)
	switch upgradeID {
	case "shield":
		next.Players[i].Shields = clamp(next.Players[i].Shields+25, 0, MaxShields)
	case "health":
		next.Players[i].Health = clamp(next.Players[i].Health+50, 0, MaxHealth)
	case "speed", "damage":
		// Movement and damage multipliers are applied by the client loop.
	default:
		return nil, m, ErrUnknownUpgrade
	}
	return []Event{{Type: EvtPlayerDamaged, PlayerID: playerID}}, next, nil
}

func applyShrink(m Match) ([]Event, Match, error) {
	size := m.ArenaSize - m.Rules.ShrinkStep
	if size < m.Rules.ArenaFloor {
		size = m.Rules.ArenaFloor
	}
	if size == m.ArenaSize {
		return nil, m, nil
	}
	next := cloneMatch(m)
	next.ArenaSize = size
	if next.Phase == PhaseBattle {
		next.Phase = PhaseShrinking
	}
	return []Event{{Type: EvtArenaShrunk, ArenaSize: size}}, next, nil
}

// applyTimeout forces an end-of-match decision when the countdown expires:
// highest health among the alive set wins, ties resolved by Rules.TiePolicy.
func applyTimeout(m Match) ([]Event, Match, error) {
	alive := aliveOf(m.Players)
	if len(alive) == 0 {
		next := cloneMatch(m)
		next.Phase = PhaseFinal
		return []Event{{Type: EvtMatchEnded}}, next, nil
	}

	best := 0
	for _, p := range alive {
		if p.Health > best {
			best = p.Health
		}
	}
	var winners []string
	for _, p := range alive {
		if p.Health == best {
			winners = append(winners, p.ID)
		}
	}
	if m.Rules.TiePolicy == TieFirstAlive && len(winners) > 1 {
		winners = winners[:1]
	}

	next := cloneMatch(m)
	next.Phase = PhaseFinal
	next.TimeRemaining = 0
	return []Event{{Type: EvtMatchEnded, Winners: winners}}, next, nil
}

// endIfDecided appends a MatchEnded event when exactly one player is left
// alive after a battle has started.
func endIfDecided(m Match, events []Event) ([]Event, Match, error) {
	if m.Phase == PhaseWaiting || m.Phase == PhaseFinal {
		return events, m, nil
	}
	alive := aliveOf(m.Players)
	if len(alive) != 1 {
		return events, m, nil
	}
	m.Phase = PhaseFinal
	events = append(events, Event{Type: EvtMatchEnded, Winners: []string{alive[0].ID}})
	return events, m, nil
}

// AliveCount derives the alive-player count from the roster. There is no
// shadow counter to drift out of sync.
func AliveCount(m Match) int {
	return len(aliveOf(m.Players))
}

// FindPlayer returns a copy of the player with the given id.
func FindPlayer(m Match, id string) (Player, bool) {
	if i := indexOf(m.Players, id); i >= 0 {
		return m.Players[i], true
	}
	return Player{}, false
}

func ContainsEvent(events []Event, t EventType) bool {
	for _, e := range events {
		if e.Type == t {
			return true
		}
	}
	return false
}

func aliveOf(players []Player) []Player {
	var out []Player
	for _, p := range players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func indexOf(players []Player, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampPosition(p Position) Position {
	if p.X < 0 {
		p.X = 0
	}
	if p.X > ArenaStart {
		p.X = ArenaStart
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.Y > ArenaStart {
		p.Y = ArenaStart
	}
	return p
}

func cloneMatch(m Match) Match {
	next := m
	next.Players = append([]Player(nil), m.Players...)
	next.KillFeed = append([]KillFeedEntry(nil), m.KillFeed...)
	return next
}
