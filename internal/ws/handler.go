package ws

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/hub"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/protocol"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/room"
)

// Handler upgrades GET /ws?code=X into a room subscription. Every broadcast
// a client receives belongs to its own room; there is no cross-room fanout.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan room.Frame, 8)
		clientID := randID(6)
		playerID := r.URL.Query().Get("player")

		if !send(rm, room.Join{ClientID: clientID, Outbox: out}) {
			return
		}
		defer func() {
			send(rm, room.Leave{ClientID: clientID})
			if playerID != "" {
				send(rm, room.FromClient{Cmd: game.Command{Type: game.CmdLeave, PlayerID: playerID}})
			}
		}()

		connCtx, connCancel := context.WithCancel(r.Context())
		defer connCancel()

		// Writer goroutine
		go func() {
			for f := range out {
				payload, err := protocol.Encode(f.Event, code, f.Payload)
				if err != nil {
					log.Error("encode broadcast", zap.String("event", f.Event), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(connCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Keepalive goroutine. A client that only listens never writes, so
		// liveness comes from ping/pong rather than a read deadline; a quiet
		// but healthy peer stays in the match.
		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-connCtx.Done():
					return
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(connCtx, pingInterval)
					err := conn.Ping(ctx)
					cancel()
					if err != nil {
						connCancel()
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(connCtx)
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			env, err := protocol.DecodeEnvelope(data)
			if err != nil {
				log.Debug("malformed frame", zap.Error(err))
				writeError(connCtx, conn, code, "bad json")
				continue
			}

			msg, ok := toRoomMsg(env)
			if !ok {
				log.Debug("unknown event", zap.String("event", env.Event))
				writeError(connCtx, conn, code, "unknown event")
				continue
			}
			if !send(rm, msg) {
				return
			}
		}
	}
}

// pingInterval is how often idle connections are probed; tests shorten it.
var pingInterval = 30 * time.Second

// send delivers a message to a room unless the room has already shut down.
func send(rm *room.Room, m room.Msg) bool {
	select {
	case rm.Inbox() <- m:
		return true
	case <-rm.Done():
		return false
	}
}

// toRoomMsg maps an inbound envelope onto a room message.
func toRoomMsg(env protocol.Envelope) (room.Msg, bool) {
	switch env.Event {
	case protocol.EvtJoinLobby:
		p, err := protocol.DecodePayload[protocol.JoinLobby](env)
		if err != nil || p.PlayerID == "" {
			return nil, false
		}
		name := p.Name
		if name == "" {
			name = p.PlayerID
		}
		return room.FromClient{Cmd: game.Command{Type: game.CmdJoin, Player: game.Player{
			ID:       p.PlayerID,
			Name:     name,
			Wallet:   p.Wallet,
			Health:   game.MaxHealth,
			Shields:  50,
			Position: game.Position{X: game.ArenaStart / 2, Y: game.ArenaStart / 2},
			Alive:    true,
			Level:    1,
		}}}, true

	case protocol.EvtLeaveLobby:
		p, err := protocol.DecodePayload[protocol.LeaveLobby](env)
		if err != nil || p.PlayerID == "" {
			return nil, false
		}
		return room.FromClient{Cmd: game.Command{Type: game.CmdLeave, PlayerID: p.PlayerID}}, true

	case protocol.EvtPlayerUpdated:
		p, err := protocol.DecodePayload[protocol.PlayerUpdate](env)
		if err != nil || p.PlayerID == "" {
			return nil, false
		}
		return room.FromClient{Cmd: game.Command{Type: game.CmdSetHealth, PlayerID: p.PlayerID, Health: p.Health}}, true

	case protocol.EvtPlayerMoved:
		p, err := protocol.DecodePayload[protocol.PlayerMove](env)
		if err != nil || p.PlayerID == "" {
			return nil, false
		}
		return room.FromClient{Cmd: game.Command{Type: game.CmdMove, PlayerID: p.PlayerID, Position: game.Position{X: p.X, Y: p.Y}}}, true

	case protocol.EvtPlayerEliminated:
		p, err := protocol.DecodePayload[protocol.PlayerEliminated](env)
		if err != nil || p.PlayerID == "" {
			return nil, false
		}
		return room.FromClient{Cmd: game.Command{Type: game.CmdEliminate, PlayerID: p.PlayerID, KillerID: p.KillerID}}, true

	case protocol.EvtChatMessage:
		p, err := protocol.DecodePayload[protocol.ChatMessage](env)
		if err != nil || p.PlayerID == "" {
			return nil, false
		}
		return room.Chat{PlayerID: p.PlayerID, Message: p.Message}, true

	case protocol.EvtStartBattle:
		return room.FromClient{Cmd: game.Command{Type: game.CmdStartBattle}}, true

	default:
		return nil, false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, matchID, msg string) {
	payload, err := protocol.Encode(protocol.EvtError, matchID, protocol.Error{Message: msg})
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
