package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/protocol"
)

var ErrNotConnected = errors.New("wallet not connected")
var ErrNoMatch = errors.New("no active match")
var ErrMatchmakingInactive = errors.New("matchmaking not running")
var ErrNotSpectating = errors.New("not spectating")

// Transaction is one entry of the client-local audit log.
type Transaction struct {
	Type      string    `json:"type"` // entry | upgrade | reward | bet
	Amount    float64   `json:"amount"`
	Signature string    `json:"signature,omitempty"`
	At        time.Time `json:"timestamp"`
}

// maxTransactions caps the audit log at the most recent entries.
const maxTransactions = 20

// Bet is one spectator wager on a match participant.
type Bet struct {
	PlayerID string    `json:"playerId"`
	Amount   float64   `json:"amount"`
	Odds     float64   `json:"odds"`
	At       time.Time `json:"timestamp"`
}

// ChatEntry is one line of the spectator chat log.
type ChatEntry struct {
	PlayerID string `json:"playerId"`
	Message  string `json:"message"`
	At       int64  `json:"timestamp"`
}

// maxChatEntries caps the chat log at the most recent lines.
const maxChatEntries = 50

// Bracket pairs for the mock tournament view.
type BracketMatch struct {
	ID      string `json:"id"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Winner  string `json:"winner,omitempty"`
}

type Bracket struct {
	Round   int            `json:"round"`
	Matches []BracketMatch `json:"matches"`
}

type Tournament struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	EntryFee  float64       `json:"entryFee"`
	PrizePool float64       `json:"prizePool"`
	Players   []game.Player `json:"players"`
	Brackets  []Bracket     `json:"brackets"`
	StartTime time.Time     `json:"startTime"`
	Status    string        `json:"status"` // registration | active | completed
}

// Session is the local source of truth for which screen is shown and what
// the match looks like. The roster inside the match is the only copy of
// player state; the local player is a lookup, never a duplicate record.
//
// Session methods are not safe for concurrent use; drive it from one
// goroutine, typically the one consuming Channel events.
type Session struct {
	screen     game.Screen
	selfID     string
	self       game.Player // template used when (re)joining matches
	balance    float64
	match      *game.Match
	tournament *Tournament
	txs        []Transaction
	bets       []Bet
	chat       []ChatEntry

	matchmaking bool
	progress    float64

	rng *rand.Rand
	log *zap.Logger
}

func NewSession(self game.Player, balance float64, log *zap.Logger) *Session {
	self.Alive = true
	if self.Health == 0 {
		self.Health = game.MaxHealth
	}
	if self.Shields == 0 {
		self.Shields = 50
	}
	if self.Level == 0 {
		self.Level = 1
	}
	return &Session{
		screen:  game.ScreenLobby,
		selfID:  self.ID,
		self:    self,
		balance: balance,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log,
	}
}

func (s *Session) Screen() game.Screen { return s.screen }
func (s *Session) Balance() float64    { return s.balance }

// Match returns a copy of the current match view.
func (s *Session) Match() (game.Match, bool) {
	if s.match == nil {
		return game.Match{}, false
	}
	return *s.match, true
}

// Self looks the local player up in the match roster; outside a match it
// falls back to the join template.
func (s *Session) Self() game.Player {
	if s.match != nil {
		if p, ok := game.FindPlayer(*s.match, s.selfID); ok {
			return p
		}
	}
	return s.self
}

// SetScreen validates the change against the transition table.
func (s *Session) SetScreen(to game.Screen) error {
	next, err := game.Transition(s.screen, to)
	if err != nil {
		return err
	}
	s.screen = next
	return nil
}

// JoinMatch pays the entry fee and starts matchmaking.
func (s *Session) JoinMatch(entryFee float64) error {
	if s.selfID == "" {
		return ErrNotConnected
	}
	if s.balance < entryFee {
		return game.ErrInsufficientFunds
	}
	if err := s.StartMatchmaking(); err != nil {
		return err
	}
	s.balance -= entryFee
	s.recordTx(Transaction{Type: "entry", Amount: entryFee, At: time.Now()})
	return nil
}

// StartMatchmaking moves to the matchmaking screen and resets the ramp.
func (s *Session) StartMatchmaking() error {
	if err := s.SetScreen(game.ScreenMatchmaking); err != nil {
		return err
	}
	s.matchmaking = true
	s.progress = 0
	return nil
}

// AdvanceMatchmaking applies one fixed-tick increment of the progress ramp.
// When the ramp completes it builds a match of the local player plus seven
// bots and moves to the battle screen; the return reports completion.
func (s *Session) AdvanceMatchmaking() (bool, error) {
	if !s.matchmaking {
		return false, ErrMatchmakingInactive
	}
	s.progress += s.rng.Float64() * 20
	if s.progress < 100 {
		return false, nil
	}
	s.progress = 100
	s.matchmaking = false

	players := append([]game.Player{s.self}, game.NewBots(7, s.rng)...)
	m := game.NewMatch(fmt.Sprintf("match_%d", time.Now().UnixMilli()), players, game.DefaultRules())
	m.Phase = game.PhaseBattle
	s.match = &m
	if err := s.SetScreen(game.ScreenBattle); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) CancelMatchmaking() error {
	if !s.matchmaking {
		return ErrMatchmakingInactive
	}
	s.matchmaking = false
	s.progress = 0
	return s.SetScreen(game.ScreenLobby)
}

// MatchmakingProgress reports the ramp in [0,100].
func (s *Session) MatchmakingProgress() float64 { return s.progress }

// LeaveMatch drops the match view and returns to the lobby.
func (s *Session) LeaveMatch() error {
	if err := s.SetScreen(game.ScreenLobby); err != nil {
		return err
	}
	s.match = nil
	return nil
}

// BuyUpgrade checks the balance, applies the upgrade effect to the local
// player, and logs the spend. Insufficient balance is an explicit error,
// not a silent no-op.
func (s *Session) BuyUpgrade(upgradeID string) error {
	if s.match == nil {
		return ErrNoMatch
	}
	var cost float64 = -1
	for _, u := range s.match.Upgrades {
		if u.ID == upgradeID {
			cost = float64(u.Cost)
		}
	}
	if cost < 0 {
		return game.ErrUnknownUpgrade
	}
	if s.balance < cost {
		return game.ErrInsufficientFunds
	}
	_, next, err := game.Apply(*s.match, game.Command{Type: game.CmdBuyUpgrade, PlayerID: s.selfID, UpgradeID: upgradeID})
	if err != nil {
		return err
	}
	s.match = &next
	s.balance -= cost
	s.recordTx(Transaction{Type: "upgrade", Amount: cost, At: time.Now()})
	return nil
}

// RecordReward logs a claimed payout and credits the balance.
func (s *Session) RecordReward(amount float64, signature string) {
	s.balance += amount
	s.recordTx(Transaction{Type: "reward", Amount: amount, Signature: signature, At: time.Now()})
}

// JoinTournament registers for a mock 32-player tournament.
func (s *Session) JoinTournament(id, name string, entryFee float64) error {
	if s.selfID == "" {
		return ErrNotConnected
	}
	if s.balance < entryFee {
		return game.ErrInsufficientFunds
	}
	if err := s.SetScreen(game.ScreenTournament); err != nil {
		return err
	}
	s.balance -= entryFee
	s.recordTx(Transaction{Type: "entry", Amount: entryFee, At: time.Now()})
	s.tournament = &Tournament{
		ID:        id,
		Name:      name,
		EntryFee:  entryFee,
		PrizePool: entryFee * 32,
		Players:   append([]game.Player{s.self}, game.NewBots(31, s.rng)...),
		StartTime: time.Now().Add(time.Hour),
		Status:    "registration",
	}
	return nil
}

// Spectate switches to the spectator view of the given match.
func (s *Session) Spectate(m game.Match) error {
	if err := s.SetScreen(game.ScreenSpectator); err != nil {
		return err
	}
	s.match = &m
	return nil
}

// PlaceBet wagers on a match participant while spectating. Odds are quoted
// at placement time and pay out when the match ends.
func (s *Session) PlaceBet(playerID string, amount float64) error {
	if s.screen != game.ScreenSpectator {
		return ErrNotSpectating
	}
	if s.match == nil {
		return ErrNoMatch
	}
	p, ok := game.FindPlayer(*s.match, playerID)
	if !ok {
		return game.ErrUnknownPlayer
	}
	if !p.Alive {
		return game.ErrUnknownPlayer
	}
	if amount <= 0 || s.balance < amount {
		return game.ErrInsufficientFunds
	}
	s.balance -= amount
	s.bets = append(s.bets, Bet{
		PlayerID: playerID,
		Amount:   amount,
		Odds:     1 + s.rng.Float64()*3,
		At:       time.Now(),
	})
	s.recordTx(Transaction{Type: "bet", Amount: amount, At: time.Now()})
	return nil
}

// Bets returns the open wagers, placement order.
func (s *Session) Bets() []Bet {
	out := make([]Bet, len(s.bets))
	copy(out, s.bets)
	return out
}

// Chat returns the spectator chat log, oldest first.
func (s *Session) Chat() []ChatEntry {
	out := make([]ChatEntry, len(s.chat))
	copy(out, s.chat)
	return out
}

func (s *Session) recordChat(entry ChatEntry) {
	s.chat = append(s.chat, entry)
	if len(s.chat) > maxChatEntries {
		s.chat = s.chat[len(s.chat)-maxChatEntries:]
	}
}

func (s *Session) Tournament() (Tournament, bool) {
	if s.tournament == nil {
		return Tournament{}, false
	}
	return *s.tournament, true
}

// Transactions returns the audit log, most recent last.
func (s *Session) Transactions() []Transaction {
	out := make([]Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

func (s *Session) recordTx(tx Transaction) {
	s.txs = append(s.txs, tx)
	if len(s.txs) > maxTransactions {
		s.txs = s.txs[len(s.txs)-maxTransactions:]
	}
}

// ApplyEvent reconciles one inbound relay event into the local match view
// and re-evaluates the win/loss rule afterwards.
func (s *Session) ApplyEvent(event string, data json.RawMessage) error {
	if s.match == nil {
		return nil // lobby-only traffic for other matches is filtered upstream
	}
	env := protocol.Envelope{Event: event, Data: data}

	switch event {
	case protocol.EvtLobbyPlayers:
		var players []game.Player
		if err := json.Unmarshal(data, &players); err != nil {
			return err
		}
		s.match.Players = players

	case protocol.EvtPlayerUpdated:
		p, err := protocol.DecodePayload[protocol.PlayerUpdate](env)
		if err != nil {
			return err
		}
		s.applyCmd(game.Command{Type: game.CmdSetHealth, PlayerID: p.PlayerID, Health: p.Health})

	case protocol.EvtPlayerMoved:
		p, err := protocol.DecodePayload[protocol.PlayerMove](env)
		if err != nil {
			return err
		}
		s.applyCmd(game.Command{Type: game.CmdMove, PlayerID: p.PlayerID, Position: game.Position{X: p.X, Y: p.Y}})

	case protocol.EvtPlayerEliminated:
		p, err := protocol.DecodePayload[protocol.PlayerEliminated](env)
		if err != nil {
			return err
		}
		s.applyCmd(game.Command{Type: game.CmdEliminate, PlayerID: p.PlayerID, KillerID: p.KillerID})

	case protocol.EvtArenaShrinking:
		p, err := protocol.DecodePayload[protocol.ArenaShrinking](env)
		if err != nil {
			return err
		}
		size := p.NewSize
		if size < s.match.Rules.ArenaFloor {
			size = s.match.Rules.ArenaFloor
		}
		s.match.ArenaSize = size
		s.match.TimeRemaining = p.TimeRemaining
		if s.match.Phase == game.PhaseBattle {
			s.match.Phase = game.PhaseShrinking
		}

	case protocol.EvtChatMessage:
		p, err := protocol.DecodePayload[protocol.ChatMessage](env)
		if err != nil {
			return err
		}
		s.recordChat(ChatEntry{PlayerID: p.PlayerID, Message: p.Message, At: p.At})

	case protocol.EvtMatchEnded:
		p, err := protocol.DecodePayload[protocol.MatchEnded](env)
		if err != nil {
			return err
		}
		s.match.Phase = game.PhaseFinal
		return s.settle(p.Winners)
	}

	return s.evaluateOutcome()
}

// applyCmd feeds a reconciliation command through the engine; unknown
// players are tolerated because events can arrive before the roster sync.
func (s *Session) applyCmd(cmd game.Command) {
	_, next, err := game.Apply(*s.match, cmd)
	if err != nil {
		s.log.Debug("event dropped during reconcile", zap.String("type", string(cmd.Type)), zap.Error(err))
		return
	}
	s.match = &next
}

func (s *Session) evaluateOutcome() error {
	if s.screen != game.ScreenBattle {
		return nil
	}
	outcome, decided := game.Outcome(*s.match, s.selfID)
	if !decided {
		return nil
	}
	return s.SetScreen(outcome)
}

func (s *Session) settle(winners []string) error {
	s.settleBets(winners)
	if s.screen != game.ScreenBattle {
		return nil
	}
	for _, id := range winners {
		if id == s.selfID {
			return s.SetScreen(game.ScreenVictory)
		}
	}
	return s.SetScreen(game.ScreenDefeat)
}

// settleBets pays out wagers on winners at their quoted odds and clears the
// book; losing bets were debited at placement.
func (s *Session) settleBets(winners []string) {
	if len(s.bets) == 0 {
		return
	}
	won := make(map[string]bool, len(winners))
	for _, id := range winners {
		won[id] = true
	}
	for _, b := range s.bets {
		if !won[b.PlayerID] {
			continue
		}
		payout := b.Amount * b.Odds
		s.balance += payout
		s.recordTx(Transaction{Type: "reward", Amount: payout, At: time.Now()})
	}
	s.bets = nil
}
