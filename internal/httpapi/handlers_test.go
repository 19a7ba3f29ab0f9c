package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/hub"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/payments"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/room"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/store"
)

type fakePayer struct {
	calls int
	fail  error
}

func (f *fakePayer) Pay(_ context.Context, to string, amount float64) (string, error) {
	f.calls++
	if f.fail != nil {
		return "", f.fail
	}
	return fmt.Sprintf("sig-%d", f.calls), nil
}

type testEnv struct {
	srv   *httptest.Server
	hub   *hub.Hub
	store *store.Memory
	payer *fakePayer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := store.NewMemory()
	payer := &fakePayer{}
	h := hub.NewHub(ctx, room.Timers{}, st, zap.NewNop())
	claims := payments.NewClaims(payer, zap.NewNop())

	srv := httptest.NewServer(SetupRoutes(h, st, claims, game.DefaultRules(), zap.NewNop()))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, hub: h, store: st, payer: payer}
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestCreateRoom_ThenJoin(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.post(t, "/create-room", map[string]any{
		"player": map[string]any{"id": "alice", "name": "Alice"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	code, _ := body["matchId"].(string)
	require.Len(t, code, 6)

	resp, body = e.post(t, "/join-room", map[string]any{
		"matchId": code,
		"player":  map[string]any{"id": "bob", "name": "Bob"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, code, body["matchId"])

	// The roster ends up with both players in join order.
	reply := make(chan *room.Room, 1)
	e.hub.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	rm := <-reply
	require.NotNil(t, rm)

	deadline := time.Now().Add(time.Second)
	for {
		view := make(chan room.View, 1)
		rm.Inbox() <- room.GetState{Reply: view}
		v := <-view
		if len(v.State.Players) == 2 {
			require.Equal(t, "alice", v.State.Players[0].ID)
			require.Equal(t, "bob", v.State.Players[1].ID)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("roster never reached 2 players: %+v", v.State.Players)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJoinRoom_UnknownCodeIs404(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.post(t, "/join-room", map[string]any{
		"matchId": "ABC123",
		"player":  map[string]any{"id": "alice"},
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Room not found", body["error"])
}

func TestCreateRoom_RejectsMissingPlayer(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.post(t, "/create-room", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClaimReward_SuccessAndDedupe(t *testing.T) {
	e := newTestEnv(t)

	req := map[string]any{
		"winnerAddress":  "winner-address",
		"amount":         1.5,
		"matchId":        "ABC123",
		"idempotencyKey": "claim-1",
	}
	resp, body := e.post(t, "/claim-reward", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	sig := body["signature"]
	require.NotEmpty(t, sig)

	// Same key: same signature, no second payment.
	resp, body = e.post(t, "/claim-reward", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, sig, body["signature"])
	require.Equal(t, 1, e.payer.calls)
}

func TestClaimReward_MissingParams(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.post(t, "/claim-reward", map[string]any{"amount": 2})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing params", body["error"])
}

func TestClaimReward_OpaqueErrorOnPaymentFailure(t *testing.T) {
	e := newTestEnv(t)
	e.payer.fail = fmt.Errorf("rpc: treasury key rejected by node xyz")

	resp, body := e.post(t, "/claim-reward", map[string]any{
		"winnerAddress": "winner-address",
		"amount":        1,
	})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	// The underlying error text must not leak to the client.
	require.Equal(t, "transaction failed", body["error"])
}

func TestLeaderboardAndHistoryEndpoints(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.RecordWin(ctx, "alice"))
	require.NoError(t, e.store.RecordGamePlayed(ctx, "bob"))
	require.NoError(t, e.store.RecordMatch(ctx, store.MatchRecord{
		ID: "m1", Winner: "alice", Players: []string{"alice", "bob"}, EndedAt: time.Now(),
	}))

	resp, err := http.Get(e.srv.URL + "/leaderboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []store.LeaderboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	require.Equal(t, "alice", entries[0].PlayerID)
	require.Equal(t, 100, entries[0].WinRate)

	resp, err = http.Get(e.srv.URL + "/match-history")
	require.NoError(t, err)
	defer resp.Body.Close()
	var records []store.MatchRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	require.Equal(t, "alice", records[0].Winner)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
