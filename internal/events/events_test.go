package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlexZinkM/walletlink/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChatVariants(t *testing.T) {
	tests := []struct {
		data string
		want ChatEvent
	}{
		{`{"type":"loadChat","chatHistory":[{"id":"1","user":{"name":"a"},"content":"hi","timestamp":5}]}`,
			LoadChat{ChatHistory: []ChatMessage{{ID: "1", User: ChatUser{Name: "a"}, Content: "hi", Timestamp: 5}}}},
		{`{"type":"chat","chatMessage":{"id":"2","user":{"name":"b","is_verified":true},"content":"yo","in_reply_to":"1"}}`,
			Chat{ChatMessage: ChatMessage{ID: "2", User: ChatUser{Name: "b", IsVerified: true}, Content: "yo", InReplyTo: "1"}}},
		{`{"type":"userProfile","userInfo":{"id":"u1","name":"me"}}`,
			UserProfile{UserInfo: ChatUser{ID: "u1", Name: "me"}}},
		{`{"type":"onlineUsers","users":[{"name":"a"},{"name":"b"}]}`,
			OnlineUsers{Users: []ChatUser{{Name: "a"}, {Name: "b"}}}},
		{`{"type":"system","message":"slow down","blockTime":1700000000000}`,
			Notice{Kind: "system", Message: "slow down", BlockTime: 1700000000000}},
		{`{"type":"invalidResponse","message":"bad"}`,
			Notice{Kind: "invalidResponse", Message: "bad"}},
	}
	for _, tt := range tests {
		got, err := Decode(Envelope{Event: EventChatStation, Data: json.RawMessage(tt.data)})
		require.NoError(t, err, tt.data)
		assert.Equal(t, tt.want, got)
	}
}

func TestDecodeRejectsUnknown(t *testing.T) {
	_, err := Decode(Envelope{Event: EventChatStation, Data: json.RawMessage(`{"type":"poke"}`)})
	assert.ErrorIs(t, err, ErrUnknownChatType)

	_, err = Decode(Envelope{Event: "weather", Data: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Decode(Envelope{Event: EventChatStation})
	assert.Error(t, err)
}

func TestDecodeStationInfo(t *testing.T) {
	ev, err := Decode(Envelope{
		Event: EventCurrentTrack,
		Data:  json.RawMessage(`{"currentTrack":{"id":"t1","title":"Song","artist":{"id":"a1","name":"Band"}}}`),
	})
	require.NoError(t, err)
	info, ok := ev.(StationInfo)
	require.True(t, ok)
	assert.Equal(t, "a1", info.TipTarget())
	assert.Equal(t, "", StationInfo{}.TipTarget())
}

var upgrader = websocket.Upgrader{}

func TestClientReceivesAndReconnects(t *testing.T) {
	var dials atomic.Int32
	joined := make(chan string, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		n := dials.Add(1)

		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		joined <- env.Event

		if n == 1 {
			// drop the first connection to force a reconnect
			return
		}
		conn.WriteJSON(map[string]any{
			"event": EventStationInfo,
			"data":  map[string]any{"currentTrack": map[string]any{"id": "t9", "title": "Live", "artist": map[string]string{"id": "a9", "name": "DJ"}}},
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	got := make(chan Event, 4)
	c := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), func(ev Event) { got <- ev }, logging.Discard())
	c.minDelay = 10 * time.Millisecond
	c.maxDelay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case ev := <-got:
		assert.Equal(t, "a9", ev.(StationInfo).TipTarget())
	case <-time.After(5 * time.Second):
		t.Fatal("no station event received")
	}
	assert.Equal(t, EventJoinStation, <-joined)
	assert.GreaterOrEqual(t, dials.Load(), int32(2))
	require.NotNil(t, c.NowPlaying())
	assert.Equal(t, "t9", c.NowPlaying().ID)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestEmitWithoutConnection(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1", nil, logging.Discard())
	assert.ErrorIs(t, c.JoinChat("tok", "chat"), ErrNotConnected)
}
