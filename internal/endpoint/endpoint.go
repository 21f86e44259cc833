// Package endpoint wraps one websocket connection into the framed,
// bidirectional message channel used by both the host and every
// participant.
package endpoint

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"coboard/internal/wire"
)

// ErrClosed reports that the underlying stream failed or ended. The
// connection is unusable once this is returned.
var ErrClosed = errors.New("endpoint: connection closed")

// Endpoint owns one websocket connection. Send may be called from any
// number of concurrent producers; each message goes out as a single
// frame, so it is delivered atomically and never torn byte-wise.
// Receive must only be driven by one reader goroutine, which is how
// both sides are structured.
type Endpoint struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func New(conn *websocket.Conn) *Endpoint {
	return &Endpoint{conn: conn}
}

// Send encodes and writes one message. An encode failure is the
// caller's bug and leaves the stream usable; a write failure means
// the connection is gone.
func (e *Endpoint) Send(m wire.Message) error {
	buf, err := wire.Encode(m)
	if err != nil {
		return err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := e.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

// Receive blocks for the next complete message. It returns
// wire.ErrMalformed for a frame that does not decode — the stream
// itself is still readable and the caller should keep looping — and
// ErrClosed when the stream fails or ends.
func (e *Endpoint) Receive() (wire.Message, error) {
	_, buf, err := e.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return wire.Decode(buf)
}

// Close shuts the connection down. Safe to call more than once.
func (e *Endpoint) Close() {
	e.closeOnce.Do(func() {
		_ = e.conn.Close()
	})
}

// RemoteAddr identifies the peer, for logs.
func (e *Endpoint) RemoteAddr() string {
	return e.conn.RemoteAddr().String()
}
