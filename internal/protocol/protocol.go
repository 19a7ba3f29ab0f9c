// Package protocol defines the JSON envelope spoken on the realtime channel
// and the event names both sides recognize.
package protocol

import "encoding/json"

// Envelope is the wire frame: {event, matchId, data}. Older clients omit
// matchId and inline extra fields next to event; DecodeEnvelope tolerates
// both shapes, so MatchID may be empty on inbound frames.
type Envelope struct {
	Event   string          `json:"event"`
	MatchID string          `json:"matchId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const (
	EvtJoinLobby        = "joinLobby"
	EvtLeaveLobby       = "leaveLobby"
	EvtLobbyPlayers     = "lobbyPlayers"
	EvtPlayerUpdated    = "player-updated"
	EvtPlayerMoved      = "player-moved"
	EvtPlayerEliminated = "player-eliminated"
	EvtArenaShrinking   = "arena-shrinking"
	EvtChatMessage      = "chat-message"
	EvtStartBattle      = "startBattle"
	EvtMatchEnded       = "match-ended"
	EvtLeaderboard      = "leaderboard"
	EvtMatchHistory     = "matchHistory"
	EvtError            = "error"
)

// Payload shapes carried inside Data.

type JoinLobby struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
	Wallet   string `json:"publicKey,omitempty"`
}

type LeaveLobby struct {
	PlayerID string `json:"playerId"`
}

type PlayerUpdate struct {
	PlayerID string `json:"playerId"`
	Health   int    `json:"health"`
}

type PlayerMove struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type PlayerEliminated struct {
	PlayerID string `json:"playerId"`
	KillerID string `json:"killerId"`
}

type ArenaShrinking struct {
	NewSize       float64 `json:"newSize"`
	TimeRemaining int     `json:"timeRemaining"`
}

type ChatMessage struct {
	PlayerID string `json:"playerId"`
	Message  string `json:"message"`
	At       int64  `json:"timestamp,omitempty"`
}

type MatchEnded struct {
	Winners []string `json:"winners"`
}

type Error struct {
	Message string `json:"message"`
}
