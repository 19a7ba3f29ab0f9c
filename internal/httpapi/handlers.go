package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/hub"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/payments"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/room"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/store"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createRoomRequest struct {
	Player game.Player `json:"player"`
}

// CreateRoom mints a fresh room code and spawns its match actor seeded with
// the creating player.
func CreateRoom(h *hub.Hub, rules game.Rules, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player.ID == "" {
			writeError(w, http.StatusBadRequest, "player is required")
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				log.Error("generate room code", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			reply := make(chan *room.Room, 1)
			h.Inbox() <- hub.GetRoom{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			log.Debug("room code collision, regenerating", zap.String("code", c))
		}

		req.Player.Alive = true
		if req.Player.Health == 0 {
			req.Player.Health = game.MaxHealth
		}
		state := game.NewMatch(code, []game.Player{req.Player}, rules)

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.EnsureRoom{Code: code, State: state, Reply: reply}
		if <-reply == nil {
			writeError(w, http.StatusInternalServerError, "failed to create room")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"matchId": code})
	}
}

type joinRoomRequest struct {
	MatchID string      `json:"matchId"`
	Player  game.Player `json:"player"`
}

// JoinRoom adds a player to an existing room's roster.
func JoinRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MatchID == "" || req.Player.ID == "" {
			writeError(w, http.StatusBadRequest, "matchId and player are required")
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{Code: req.MatchID, Reply: reply}
		rm := <-reply
		if rm == nil {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}

		req.Player.Alive = true
		if req.Player.Health == 0 {
			req.Player.Health = game.MaxHealth
		}
		rm.Inbox() <- room.FromClient{Cmd: game.Command{Type: game.CmdJoin, Player: req.Player}}

		writeJSON(w, http.StatusOK, map[string]any{"success": true, "matchId": req.MatchID})
	}
}

// ClaimReward pays a winner from the treasury, deduplicated per claim key.
// Payment failures come back as an opaque 500; the detail stays in the log.
func ClaimReward(claims *payments.Claims, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req payments.ClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WinnerAddress == "" || req.Amount <= 0 {
			writeError(w, http.StatusBadRequest, "Missing params")
			return
		}

		sig, err := claims.Claim(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, payments.ErrPaymentsDisabled):
				writeError(w, http.StatusServiceUnavailable, "payments disabled")
			case errors.Is(err, payments.ErrClaimInFlight):
				writeError(w, http.StatusConflict, "claim in progress")
			default:
				log.Error("claim reward", zap.String("winner", req.WinnerAddress), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "transaction failed")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true, "signature": sig})
	}
}

func Leaderboard(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := st.Leaderboard(r.Context(), 10)
		if err != nil {
			log.Error("leaderboard query", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func MatchHistory(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := st.MatchHistory(r.Context(), 100)
		if err != nil {
			log.Error("match history query", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "match history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
