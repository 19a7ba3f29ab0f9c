// Package room runs one goroutine per match: a single writer that owns the
// match state, fans broadcasts out to its own subscribers only, and drives
// the per-room bot, shrink, and countdown timers.
package room

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/protocol"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/store"
)

// Timers configures the periodic work a room does. Zero values disable the
// corresponding timer, which tests rely on.
type Timers struct {
	BotTick     time.Duration
	ShrinkEvery time.Duration
	Duration    time.Duration
}

type Room struct {
	inbox   chan Msg
	state   game.Match
	version int
	clients map[string]chan Frame
	timers  Timers
	store   store.Store
	log     *zap.Logger
	rng     *rand.Rand
	ctx     context.Context
	cancel  context.CancelFunc

	botTicker    *time.Ticker
	shrinkTicker *time.Ticker
	deadline     <-chan time.Time
}

func New(parent context.Context, initial game.Match, timers Timers, st store.Store, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]chan Frame),
		timers:  timers,
		store:   st,
		log:     log.With(zap.String("match", initial.ID)),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

// Inbox exposes the message channel to the ws layer, the hub, and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has shut down; senders select against it so a
// message to a dead room cannot block or pile up in the inbox.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	if r.state.Phase == game.PhaseWaiting && r.timers.BotTick > 0 {
		r.botTicker = time.NewTicker(r.timers.BotTick)
	}
	defer r.stopTimers()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-r.botChan():
			r.state = game.StepBots(r.state, r.rng)
			r.version++
			r.broadcast(Frame{Version: r.version, Event: protocol.EvtLobbyPlayers, Payload: r.state.Players})

		case <-r.shrinkChan():
			r.apply(game.Command{Type: game.CmdShrink})

		case <-r.deadline:
			r.deadline = nil
			r.apply(game.Command{Type: game.CmdResolveTimeout})

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox
				select {
				case msg.Outbox <- Frame{Version: r.version, Event: protocol.EvtLobbyPlayers, Payload: r.state.Players}:
				default:
					// Joined with a full outbox - drop, same as broadcast.
					close(msg.Outbox)
					delete(r.clients, msg.ClientID)
					r.log.Debug("dropped slow client", zap.String("client", msg.ClientID))
				}

			case Leave:
				delete(r.clients, msg.ClientID)

			case FromClient:
				r.apply(msg.Cmd)

			case Chat:
				r.version++
				r.broadcast(Frame{Version: r.version, Event: protocol.EvtChatMessage, Payload: protocol.ChatMessage{
					PlayerID: msg.PlayerID,
					Message:  msg.Message,
					At:       time.Now().UnixMilli(),
				}})

			case Publish:
				r.version++
				r.broadcast(Frame{Version: r.version, Event: msg.Event, Payload: msg.Payload})

			case GetState:
				msg.Reply <- View{Version: r.version, NumClients: len(r.clients), State: r.state}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) apply(cmd game.Command) {
	events, next, err := game.Apply(r.state, cmd)
	if err != nil {
		r.log.Debug("command rejected", zap.String("type", string(cmd.Type)), zap.Error(err))
		return
	}
	r.state = next
	for _, evt := range events {
		r.version++
		r.broadcast(r.frameFor(evt))
		r.react(evt)
	}
}

// frameFor maps an engine event onto its wire broadcast.
func (r *Room) frameFor(evt game.Event) Frame {
	f := Frame{Version: r.version}
	switch evt.Type {
	case game.EvtPlayerJoined, game.EvtPlayerLeft:
		f.Event = protocol.EvtLobbyPlayers
		f.Payload = r.state.Players
	case game.EvtPlayerMoved:
		p, _ := game.FindPlayer(r.state, evt.PlayerID)
		f.Event = protocol.EvtPlayerMoved
		f.Payload = protocol.PlayerMove{PlayerID: evt.PlayerID, X: p.Position.X, Y: p.Position.Y}
	case game.EvtPlayerDamaged:
		p, _ := game.FindPlayer(r.state, evt.PlayerID)
		f.Event = protocol.EvtPlayerUpdated
		f.Payload = protocol.PlayerUpdate{PlayerID: evt.PlayerID, Health: p.Health}
	case game.EvtPlayerEliminated:
		f.Event = protocol.EvtPlayerEliminated
		f.Payload = protocol.PlayerEliminated{PlayerID: evt.PlayerID, KillerID: evt.KillerID}
	case game.EvtArenaShrunk:
		f.Event = protocol.EvtArenaShrinking
		f.Payload = protocol.ArenaShrinking{NewSize: evt.ArenaSize, TimeRemaining: r.state.TimeRemaining}
	case game.EvtPhaseChanged:
		f.Event = protocol.EvtLobbyPlayers
		f.Payload = r.state.Players
	case game.EvtMatchEnded:
		f.Event = protocol.EvtMatchEnded
		f.Payload = protocol.MatchEnded{Winners: evt.Winners}
	}
	return f
}

// react handles lifecycle side effects of applied events.
func (r *Room) react(evt game.Event) {
	switch evt.Type {
	case game.EvtPhaseChanged:
		if evt.Phase == game.PhaseBattle {
			r.startBattleTimers()
		}
	case game.EvtMatchEnded:
		r.stopTimers()
		r.record(evt.Winners)
	}
}

func (r *Room) startBattleTimers() {
	if r.botTicker != nil {
		r.botTicker.Stop()
		r.botTicker = nil
	}
	if r.timers.ShrinkEvery > 0 {
		r.shrinkTicker = time.NewTicker(r.timers.ShrinkEvery)
	}
	if r.timers.Duration > 0 {
		r.deadline = time.After(r.timers.Duration)
	}
}

func (r *Room) stopTimers() {
	if r.botTicker != nil {
		r.botTicker.Stop()
		r.botTicker = nil
	}
	if r.shrinkTicker != nil {
		r.shrinkTicker.Stop()
		r.shrinkTicker = nil
	}
	r.deadline = nil
}

func (r *Room) botChan() <-chan time.Time {
	if r.botTicker == nil {
		return nil
	}
	return r.botTicker.C
}

func (r *Room) shrinkChan() <-chan time.Time {
	if r.shrinkTicker == nil {
		return nil
	}
	return r.shrinkTicker.C
}

// record writes the finished match to the store off the actor loop.
func (r *Room) record(winners []string) {
	if r.store == nil {
		return
	}
	st := r.store
	log := r.log
	state := r.state
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		won := make(map[string]bool, len(winners))
		winner := ""
		if len(winners) > 0 {
			winner = winners[0]
		}
		for _, id := range winners {
			won[id] = true
			if game.IsBot(id) {
				continue
			}
			if err := st.RecordWin(ctx, id); err != nil {
				log.Error("record win", zap.Error(err))
			}
		}
		players := make([]string, 0, len(state.Players))
		for _, p := range state.Players {
			players = append(players, p.ID)
			if game.IsBot(p.ID) || won[p.ID] {
				continue
			}
			if err := st.RecordGamePlayed(ctx, p.ID); err != nil {
				log.Error("record game played", zap.Error(err))
			}
		}
		if err := st.RecordMatch(ctx, store.MatchRecord{
			ID:      state.ID,
			Winner:  winner,
			Players: players,
			EndedAt: time.Now(),
		}); err != nil {
			log.Error("record match", zap.Error(err))
		}

		// Push the refreshed standings to whoever is still watching.
		if entries, err := st.Leaderboard(ctx, 10); err != nil {
			log.Error("leaderboard query", zap.Error(err))
		} else {
			r.publish(protocol.EvtLeaderboard, entries)
		}
		if records, err := st.MatchHistory(ctx, 10); err != nil {
			log.Error("match history query", zap.Error(err))
		} else {
			r.publish(protocol.EvtMatchHistory, records)
		}
	}()
}

// publish hands a frame back to the actor loop from another goroutine.
func (r *Room) publish(event string, payload any) {
	select {
	case r.inbox <- Publish{Event: event, Payload: payload}:
	case <-r.ctx.Done():
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) broadcast(f Frame) {
	for id, ch := range r.clients {
		select {
		case ch <- f:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(r.clients, id)
			r.log.Debug("dropped slow client", zap.String("client", id))
		}
	}
}
