package game

import "errors"

var ErrBadTransition = errors.New("illegal screen transition")

// Screen is which view the client is on. Transitions go through an explicit
// table; anything not listed is rejected.
type Screen string

const (
	ScreenLobby       Screen = "lobby"
	ScreenMatchmaking Screen = "matchmaking"
	ScreenBattle      Screen = "battle"
	ScreenVictory     Screen = "victory"
	ScreenDefeat      Screen = "defeat"
	ScreenSpectator   Screen = "spectator"
	ScreenTournament  Screen = "tournament"
)

var screenTransitions = map[Screen][]Screen{
	ScreenLobby:       {ScreenMatchmaking, ScreenBattle, ScreenSpectator, ScreenTournament},
	ScreenMatchmaking: {ScreenBattle, ScreenLobby},
	ScreenBattle:      {ScreenVictory, ScreenDefeat, ScreenSpectator, ScreenLobby},
	ScreenVictory:     {ScreenLobby},
	ScreenDefeat:      {ScreenLobby, ScreenSpectator},
	ScreenSpectator:   {ScreenLobby},
	ScreenTournament:  {ScreenLobby, ScreenBattle},
}

func CanTransition(from, to Screen) bool {
	for _, next := range screenTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a screen change against the table.
func Transition(from, to Screen) (Screen, error) {
	if from == to {
		return from, nil
	}
	if !CanTransition(from, to) {
		return from, ErrBadTransition
	}
	return to, nil
}

// Outcome evaluates the win/loss rule for a local player: victory when they
// are the single remaining alive player, defeat as soon as they leave the
// alive set. The second return reports whether the match is decided for
// this player at all.
func Outcome(m Match, localID string) (Screen, bool) {
	local, found := FindPlayer(m, localID)
	if !found || !local.Alive {
		return ScreenDefeat, true
	}
	if AliveCount(m) == 1 {
		return ScreenVictory, true
	}
	// Timer expiry names its winners in the MatchEnded event; with several
	// players still alive the roster alone cannot decide.
	return "", false
}
