package game

import (
	"errors"
	"testing"
)

func TestTransition_Table(t *testing.T) {
	cases := []struct {
		name    string
		from    Screen
		to      Screen
		wantErr bool
	}{
		{"lobby to matchmaking", ScreenLobby, ScreenMatchmaking, false},
		{"matchmaking to battle", ScreenMatchmaking, ScreenBattle, false},
		{"matchmaking cancel back to lobby", ScreenMatchmaking, ScreenLobby, false},
		{"battle to victory", ScreenBattle, ScreenVictory, false},
		{"battle to defeat", ScreenBattle, ScreenDefeat, false},
		{"defeat to spectator", ScreenDefeat, ScreenSpectator, false},
		{"victory back to lobby", ScreenVictory, ScreenLobby, false},
		{"battle straight to tournament rejected", ScreenBattle, ScreenTournament, true},
		{"victory to battle rejected", ScreenVictory, ScreenBattle, true},
		{"spectator to tournament rejected", ScreenSpectator, ScreenTournament, true},
		{"self transition is a no-op", ScreenBattle, ScreenBattle, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.from, tc.to)
			if tc.wantErr {
				if !errors.Is(err, ErrBadTransition) {
					t.Fatalf("want ErrBadTransition, got %v", err)
				}
				if got != tc.from {
					t.Fatalf("rejected transition must keep screen %v, got %v", tc.from, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got != tc.to {
				t.Fatalf("screen: got %v, want %v", got, tc.to)
			}
		})
	}
}

func TestOutcome_WinAndLoss(t *testing.T) {
	m := testMatch(alivePlayer("p1"), alivePlayer("p2"))
	m.Phase = PhaseBattle
	m.Players[1].Alive = false

	if got, decided := Outcome(m, "p1"); !decided || got != ScreenVictory {
		t.Fatalf("local p1: got (%v,%v), want victory", got, decided)
	}
	if got, decided := Outcome(m, "p2"); !decided || got == ScreenVictory {
		t.Fatalf("local p2: got (%v,%v), want non-victory", got, decided)
	}
}

func TestOutcome_UndecidedWhileManyAlive(t *testing.T) {
	m := testMatch(alivePlayer("p1"), alivePlayer("p2"), alivePlayer("p3"))
	m.Phase = PhaseBattle
	if _, decided := Outcome(m, "p1"); decided {
		t.Fatalf("expected undecided outcome with three alive")
	}
}
