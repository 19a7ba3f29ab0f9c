package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/room"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/store"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	State game.Match
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type EnsureRoom struct {
	Code  string
	State game.Match // only used if creation happens
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the code -> room registry. All registry access goes through the
// inbox, so concurrent creates for the same code cannot race.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	timers room.Timers
	store  store.Store
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, timers room.Timers, st store.Store, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		timers: timers,
		store:  st,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if r := h.rooms[msg.Code]; r != nil {
					msg.Reply <- r
					break
				}
				msg.Reply <- h.spawn(msg.Code, msg.State)

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case EnsureRoom:
				if r := h.rooms[msg.Code]; r != nil {
					msg.Reply <- r
					break
				}
				msg.Reply <- h.spawn(msg.Code, msg.State)

			case RemoveRoom:
				if r := h.rooms[msg.Code]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Code)
				}

			case ShutdownHub:
				for _, r := range h.rooms {
					r.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

func (h *Hub) spawn(code string, state game.Match) *room.Room {
	r := room.New(h.ctx, state, h.timers, h.store, h.log)
	h.rooms[code] = r
	h.log.Info("room created", zap.String("code", code))
	return r
}
