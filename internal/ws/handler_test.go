package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/hub"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/protocol"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/room"
)

func decode(t *testing.T, frame string) protocol.Envelope {
	t.Helper()
	env, err := protocol.DecodeEnvelope([]byte(frame))
	require.NoError(t, err)
	return env
}

func TestToRoomMsg_JoinLobby(t *testing.T) {
	env := decode(t, `{"event":"joinLobby","matchId":"ABC123","data":{"playerId":"alice","publicKey":"pk1"}}`)
	msg, ok := toRoomMsg(env)
	require.True(t, ok)

	fc, ok := msg.(room.FromClient)
	require.True(t, ok)
	require.Equal(t, game.CmdJoin, fc.Cmd.Type)
	require.Equal(t, "alice", fc.Cmd.Player.ID)
	require.Equal(t, "pk1", fc.Cmd.Player.Wallet)
	require.True(t, fc.Cmd.Player.Alive)
	require.Equal(t, game.MaxHealth, fc.Cmd.Player.Health)
}

func TestToRoomMsg_LegacyShapeMove(t *testing.T) {
	// Payload fields beside the event name, no data object.
	env := decode(t, `{"event":"player-moved","playerId":"bob","x":10,"y":20}`)
	msg, ok := toRoomMsg(env)
	require.True(t, ok)

	fc := msg.(room.FromClient)
	require.Equal(t, game.CmdMove, fc.Cmd.Type)
	require.Equal(t, "bob", fc.Cmd.PlayerID)
	require.Equal(t, 10.0, fc.Cmd.Position.X)
}

func TestToRoomMsg_Eliminate(t *testing.T) {
	env := decode(t, `{"event":"player-eliminated","data":{"playerId":"bob","killerId":"alice"}}`)
	msg, ok := toRoomMsg(env)
	require.True(t, ok)

	fc := msg.(room.FromClient)
	require.Equal(t, game.CmdEliminate, fc.Cmd.Type)
	require.Equal(t, "bob", fc.Cmd.PlayerID)
	require.Equal(t, "alice", fc.Cmd.KillerID)
}

func TestToRoomMsg_Chat(t *testing.T) {
	env := decode(t, `{"event":"chat-message","data":{"playerId":"alice","message":"gg"}}`)
	msg, ok := toRoomMsg(env)
	require.True(t, ok)

	chat := msg.(room.Chat)
	require.Equal(t, "alice", chat.PlayerID)
	require.Equal(t, "gg", chat.Message)
}

// A connection that only listens must stay subscribed and keep its player in
// the roster; liveness is the keepalive's job, not a read deadline's.
func TestHandler_IdleClientStaysInMatch(t *testing.T) {
	old := pingInterval
	pingInterval = 25 * time.Millisecond
	t.Cleanup(func() { pingInterval = old })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, room.Timers{}, nil, zap.NewNop())

	alice := game.Player{ID: "alice", Name: "alice", Health: 100, Alive: true}
	state := game.NewMatch("GAME01", []game.Player{alice}, game.DefaultRules())
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.EnsureRoom{Code: "GAME01", State: state, Reply: reply}
	rm := <-reply
	require.NotNil(t, rm)

	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?code=GAME01&player=alice"
	dctx, dcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dcancel()
	conn, _, err := websocket.Dial(dctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	// Stay silent across several ping cycles, then have the room broadcast.
	idle := 8 * pingInterval
	go func() {
		time.Sleep(idle)
		bob := game.Player{ID: "bob", Name: "bob", Health: 100, Alive: true}
		rm.Inbox() <- room.FromClient{Cmd: game.Command{Type: game.CmdJoin, Player: bob}}
	}()

	deadline := time.Now().Add(3 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "idle client never saw the roster broadcast")
		rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
		_, data, err := conn.Read(rctx)
		rcancel()
		require.NoError(t, err)

		env, err := protocol.DecodeEnvelope(data)
		require.NoError(t, err)
		if env.Event != protocol.EvtLobbyPlayers {
			continue
		}
		var players []game.Player
		require.NoError(t, json.Unmarshal(env.Data, &players))
		if len(players) == 2 {
			break
		}
	}

	// The quiet player was never forced out of the roster.
	view := make(chan room.View, 1)
	rm.Inbox() <- room.GetState{Reply: view}
	v := <-view
	_, ok := game.FindPlayer(v.State, "alice")
	require.True(t, ok, "idle player dropped from the roster: %+v", v.State.Players)
}

func TestToRoomMsg_Rejections(t *testing.T) {
	cases := []string{
		`{"event":"teleport","data":{}}`,              // unknown event
		`{"event":"joinLobby","data":{}}`,             // missing player id
		`{"event":"player-updated","data":{"health":5}}`, // missing player id
	}
	for _, frame := range cases {
		env := decode(t, frame)
		if _, ok := toRoomMsg(env); ok {
			t.Fatalf("expected rejection for %s", frame)
		}
	}
}
