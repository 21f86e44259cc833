package endpoint

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coboard/internal/wire"
)

// echoServer upgrades each request and echoes raw frames back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, buf, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, buf); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *Endpoint {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	ep := New(conn)
	t.Cleanup(ep.Close)
	return ep
}

func TestSendReceiveRoundTrip(t *testing.T) {
	ep := dial(t, echoServer(t))

	msg := wire.Chat{Author: "alice", Text: "hello"}
	require.NoError(t, ep.Send(msg))

	got, err := ep.Receive()
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestConcurrentSendsArriveIntact(t *testing.T) {
	ep := dial(t, echoServer(t))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			op := wire.DrawOp{ID: "op", Kind: wire.KindDraw, Shape: wire.ShapeFree,
				From: wire.Point{X: i}, To: wire.Point{X: i + 1},
				Color: "#000000", Width: 1, Author: "alice", Canvas: "Main"}
			assert.NoError(t, ep.Send(op))
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		got, err := ep.Receive()
		require.NoError(t, err)
		op, ok := got.(wire.DrawOp)
		require.True(t, ok, "frame decoded to %T, want DrawOp", got)
		seen[op.From.X] = true
	}
	assert.Len(t, seen, n, "every message delivered exactly once, none torn")
}

func TestMalformedFrameKeepsStreamUsable(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("junk frame"))
		buf, _ := wire.Encode(wire.Chat{Author: "Server", Text: "still here"})
		_ = conn.WriteMessage(websocket.TextMessage, buf)
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	ep := dial(t, srv)
	_, err := ep.Receive()
	require.ErrorIs(t, err, wire.ErrMalformed)

	got, err := ep.Receive()
	require.NoError(t, err, "stream survives a single bad frame")
	assert.Equal(t, wire.Chat{Author: "Server", Text: "still here"}, got)
}

func TestReceiveAfterPeerCloseReturnsErrClosed(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	ep := dial(t, srv)
	_, err := ep.Receive()
	assert.ErrorIs(t, err, ErrClosed)
}
