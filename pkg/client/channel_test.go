package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/protocol"
)

// echoServer accepts sockets and echoes every frame back, mimicking the
// relay's rebroadcast from a single client's point of view.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		for {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			typ, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				return
			}
			wctx, wcancel := context.WithTimeout(r.Context(), time.Second)
			_ = conn.Write(wctx, typ, data)
			wcancel()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestChannel_SendAndDispatch(t *testing.T) {
	srv := echoServer(t)
	ch, err := Dial(wsURL(srv), zap.NewNop())
	require.NoError(t, err)
	defer ch.Close()

	got := make(chan protocol.ChatMessage, 1)
	ch.On(protocol.EvtChatMessage, func(data json.RawMessage) {
		var msg protocol.ChatMessage
		if err := json.Unmarshal(data, &msg); err == nil {
			got <- msg
		}
	})

	require.NoError(t, ch.Send(protocol.EvtChatMessage, "ABC123", protocol.ChatMessage{PlayerID: "me", Message: "hello"}))

	select {
	case msg := <-got:
		require.Equal(t, "me", msg.PlayerID)
		require.Equal(t, "hello", msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatalf("handler never fired")
	}
}

func TestChannel_OffStopsDelivery(t *testing.T) {
	srv := echoServer(t)
	ch, err := Dial(wsURL(srv), zap.NewNop())
	require.NoError(t, err)
	defer ch.Close()

	hits := make(chan struct{}, 4)
	id := ch.On(protocol.EvtChatMessage, func(json.RawMessage) { hits <- struct{}{} })

	require.NoError(t, ch.Send(protocol.EvtChatMessage, "m", protocol.ChatMessage{PlayerID: "me", Message: "x"}))
	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatalf("first delivery missing")
	}

	ch.Off(protocol.EvtChatMessage, id)
	require.NoError(t, ch.Send(protocol.EvtChatMessage, "m", protocol.ChatMessage{PlayerID: "me", Message: "y"}))

	select {
	case <-hits:
		t.Fatalf("handler fired after Off")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestChannel_MalformedFramesAreDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		ctx := r.Context()
		// Wait for the client's trigger so its handler is registered
		// before anything comes back.
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
		_ = conn.Write(ctx, websocket.MessageText, []byte("not json"))
		frame, _ := protocol.Encode(protocol.EvtChatMessage, "m", protocol.ChatMessage{PlayerID: "me", Message: "after"})
		_ = conn.Write(ctx, websocket.MessageText, frame)
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	ch, err := Dial(wsURL(srv), zap.NewNop())
	require.NoError(t, err)
	defer ch.Close()

	got := make(chan struct{}, 1)
	ch.On(protocol.EvtChatMessage, func(json.RawMessage) { got <- struct{}{} })
	require.NoError(t, ch.Send(protocol.EvtChatMessage, "m", protocol.ChatMessage{PlayerID: "me", Message: "go"}))

	// The garbage frame must not kill the read loop.
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatalf("valid frame after malformed one never arrived")
	}
}
