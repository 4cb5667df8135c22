package ws

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelayServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	relay := NewRelayHandler(hub)
	router := gin.New()
	router.GET("/ws", relay.Handle)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialRelay(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func clientCount(hub *Hub) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

func readPayload(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	return payload
}

func TestRelayBroadcastExcludesSender(t *testing.T) {
	hub, url := startRelayServer(t)

	c1 := dialRelay(t, url)
	c2 := dialRelay(t, url)
	c3 := dialRelay(t, url)
	require.Eventually(t, func() bool { return clientCount(hub) == 3 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c1.WriteMessage(websocket.TextMessage, []byte(`{"type":"register","userId":"u1"}`)))
	require.Eventually(t, func() bool {
		_, ok := hub.RegisteredConn("u1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	sent := `{"type":"chat_message","sender":"u2","text":"hello"}`
	require.NoError(t, c2.WriteMessage(websocket.TextMessage, []byte(sent)))

	assert.JSONEq(t, sent, string(readPayload(t, c1)))
	assert.JSONEq(t, sent, string(readPayload(t, c3)))

	// The sender must not hear its own message.
	require.NoError(t, c2.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := c2.ReadMessage()
	require.Error(t, err)
}

func TestRelayVideoSyncForwardedVerbatim(t *testing.T) {
	hub, url := startRelayServer(t)

	c1 := dialRelay(t, url)
	c2 := dialRelay(t, url)
	require.Eventually(t, func() bool { return clientCount(hub) == 2 }, 2*time.Second, 10*time.Millisecond)

	sent := `{"type":"video_sync","action":"seek","position":42.5,"extra":{"nested":true}}`
	require.NoError(t, c2.WriteMessage(websocket.TextMessage, []byte(sent)))

	// Every field past the type tag passes through untouched.
	assert.Equal(t, sent, string(readPayload(t, c1)))
}

func TestRelayMalformedEventDoesNotKillConnection(t *testing.T) {
	hub, url := startRelayServer(t)

	c1 := dialRelay(t, url)
	c2 := dialRelay(t, url)
	require.Eventually(t, func() bool { return clientCount(hub) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c2.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	require.NoError(t, c2.WriteMessage(websocket.TextMessage, []byte(`{"type":"unknown_kind"}`)))

	sent := `{"type":"chat_message","text":"still here"}`
	require.NoError(t, c2.WriteMessage(websocket.TextMessage, []byte(sent)))
	assert.JSONEq(t, sent, string(readPayload(t, c1)))
}

func TestRelayConcurrentSendersShareReceivers(t *testing.T) {
	hub, url := startRelayServer(t)

	c1 := dialRelay(t, url)
	c2 := dialRelay(t, url)
	c3 := dialRelay(t, url)
	require.Eventually(t, func() bool { return clientCount(hub) == 3 }, 2*time.Second, 10*time.Millisecond)

	const perSender = 200

	// Broadcasts run on each sender's read goroutine, so c3 is written to by
	// two goroutines at once. Every frame must still arrive intact.
	recv := func(conn *websocket.Conn, want int) <-chan error {
		done := make(chan error, 1)
		go func() {
			for i := 0; i < want; i++ {
				if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
					done <- err
					return
				}
				if _, _, err := conn.ReadMessage(); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
		return done
	}

	c1Done := recv(c1, perSender)
	c2Done := recv(c2, perSender)
	c3Done := recv(c3, 2*perSender)

	var wg sync.WaitGroup
	for _, sender := range []*websocket.Conn{c1, c2} {
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat_message","text":"burst"}`)); err != nil {
					return
				}
			}
		}(sender)
	}
	wg.Wait()

	require.NoError(t, <-c1Done)
	require.NoError(t, <-c2Done)
	require.NoError(t, <-c3Done)
	require.Equal(t, 3, clientCount(hub))
}

func TestRelayDisconnectFreesIdentity(t *testing.T) {
	hub, url := startRelayServer(t)

	c1 := dialRelay(t, url)
	c2 := dialRelay(t, url)
	require.Eventually(t, func() bool { return clientCount(hub) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c1.WriteMessage(websocket.TextMessage, []byte(`{"type":"register","userId":"u1"}`)))
	require.Eventually(t, func() bool {
		_, ok := hub.RegisteredConn("u1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c1.Close())
	require.Eventually(t, func() bool {
		_, ok := hub.RegisteredConn("u1")
		return !ok && clientCount(hub) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The identity is free for a new connection to claim.
	c4 := dialRelay(t, url)
	require.Eventually(t, func() bool { return clientCount(hub) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, c4.WriteMessage(websocket.TextMessage, []byte(`{"type":"register","userId":"u1"}`)))
	require.Eventually(t, func() bool {
		conn, ok := hub.RegisteredConn("u1")
		return ok && conn != nil
	}, 2*time.Second, 10*time.Millisecond)

	// Messages still flow to the remaining peers only.
	sent := `{"type":"chat_message","text":"after reconnect"}`
	require.NoError(t, c4.WriteMessage(websocket.TextMessage, []byte(sent)))
	assert.JSONEq(t, sent, string(readPayload(t, c2)))
}
