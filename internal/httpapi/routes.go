package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/hub"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/payments"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/store"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/ws"
)

func SetupRoutes(h *hub.Hub, st store.Store, claims *payments.Claims, rules game.Rules, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/create-room", CreateRoom(h, rules, log))
	r.Post("/join-room", JoinRoom(h))
	r.Post("/claim-reward", ClaimReward(claims, log))
	r.Get("/leaderboard", Leaderboard(st, log))
	r.Get("/match-history", MatchHistory(st, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	return r
}
