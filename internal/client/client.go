// Package client is the participant side of the whiteboard: one
// connection to the host, one reader goroutine, a local board kept
// converged by replication.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"coboard/internal/canvas"
	"coboard/internal/endpoint"
	"coboard/internal/wire"
)

// ErrNameTaken means the host refused our display name. Recoverable:
// reconnect under a different name.
var ErrNameTaken = errors.New("client: display name already taken")

// Client is one remote participant. Handlers should be assigned
// between New and Join; they are invoked from the reader goroutine.
type Client struct {
	name  string
	board *canvas.Board
	log   zerolog.Logger

	ep *endpoint.Endpoint

	// Hooks for the local display layer. Optional. OnDraw and
	// OnSnapshot fire after the op or snapshot has been applied to
	// the board, so a repaint sees the new state.
	OnChat       func(wire.Chat)
	OnDraw       func(wire.DrawOp)
	OnSnapshot   func(canvasName string)
	OnPresence   func(names []string)
	OnDisconnect func(err error)

	mu       sync.Mutex
	presence []string

	disconnectOnce sync.Once
}

func New(name string, board *canvas.Board, log zerolog.Logger) *Client {
	return &Client{
		name:  name,
		board: board,
		log:   log.With().Str("component", "client").Str("name", name).Logger(),
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Board() *canvas.Board { return c.board }

// Presence returns the most recently received participant set.
func (c *Client) Presence() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.presence...)
}

// Join connects to the host, identifies, and consumes the admission
// phase: bootstrap snapshots are applied until the first presence set
// confirms we are registered. On success the reader goroutine takes
// over the connection.
func (c *Client) Join(ctx context.Context, addr string) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("client: connect %s: %w", addr, err)
	}
	c.ep = endpoint.New(conn)

	if err := c.ep.Send(wire.Identity{Name: c.name}); err != nil {
		c.ep.Close()
		return err
	}

	for {
		msg, err := c.ep.Receive()
		if errors.Is(err, wire.ErrMalformed) {
			c.log.Warn().Err(err).Msg("dropping malformed message during join")
			continue
		}
		if err != nil {
			c.ep.Close()
			return fmt.Errorf("client: join: %w", err)
		}

		switch m := msg.(type) {
		case wire.Snapshot:
			// An undecodable snapshot skips just this canvas; the
			// rest of the bootstrap still applies.
			c.applySnapshot(m)
		case wire.DrawOp:
			// Admitted to the relay while our bootstrap reply was
			// still in flight; apply as usual.
			c.applyDraw(m)
		case wire.Chat:
			if m.IsRejection() {
				c.ep.Close()
				return fmt.Errorf("%w: %s", ErrNameTaken, m.Text)
			}
			c.deliverChat(m)
		case wire.Presence:
			// First presence set means admission completed and all
			// bootstrap snapshots precede us in the stream.
			c.setPresence(m.Names)
			c.log.Info().Strs("names", m.Names).Msg("joined whiteboard")
			go c.readLoop()
			return nil
		default:
			c.log.Warn().Type("got", msg).Msg("dropping unexpected message during join")
		}
	}
}

// readLoop is the single reader for this connection. Its only
// suspension point is Receive.
func (c *Client) readLoop() {
	for {
		msg, err := c.ep.Receive()
		if errors.Is(err, wire.ErrMalformed) {
			c.log.Warn().Err(err).Msg("dropping malformed message")
			continue
		}
		if err != nil {
			c.handleDisconnect(err)
			return
		}

		switch m := msg.(type) {
		case wire.DrawOp:
			c.applyDraw(m)
		case wire.Snapshot:
			c.applySnapshot(m)
		case wire.Chat:
			c.deliverChat(m)
		case wire.Presence:
			c.setPresence(m.Names)
		default:
			c.log.Warn().Type("got", msg).Msg("dropping unexpected message type")
		}
	}
}

// Draw consumes one local edit intent: apply to our own canvas first
// (optimistic local-first, with undo history), then send to the host.
// The relay never echoes it back to us.
func (c *Client) Draw(i canvas.Intent) (wire.DrawOp, error) {
	op := i.Op(c.name)
	cv := c.board.Ensure(op.Canvas)
	cv.PushUndo()
	if err := cv.Apply(op); err != nil {
		return wire.DrawOp{}, err
	}
	if err := c.ep.Send(op); err != nil {
		// Already applied locally; local state stays intact even
		// though the host never saw the op.
		return op, err
	}
	return op, nil
}

// Chat sends a chat message. The local display of our own chat is the
// caller's concern, matching the host's local-first convention.
func (c *Client) Chat(text string) error {
	return c.ep.Send(wire.Chat{Author: c.name, Text: text})
}

// Close tears the connection down locally. Canvas state survives.
func (c *Client) Close() {
	if c.ep != nil {
		c.ep.Close()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.disconnectOnce.Do(func() {
		c.log.Warn().Err(err).Msg("disconnected from host")
		c.ep.Close()
		if c.OnDisconnect != nil {
			c.OnDisconnect(err)
		}
	})
}

func (c *Client) applyDraw(m wire.DrawOp) {
	if err := c.board.Apply(m); err != nil {
		c.log.Warn().Err(err).Msg("dropping unplayable draw op")
		return
	}
	if c.OnDraw != nil {
		c.OnDraw(m)
	}
}

func (c *Client) applySnapshot(m wire.Snapshot) {
	if err := c.board.ApplySnapshot(m); err != nil {
		c.log.Warn().Err(err).Str("canvas", m.Canvas).Msg("skipping undecodable snapshot")
		return
	}
	if c.OnSnapshot != nil {
		c.OnSnapshot(m.Canvas)
	}
}

func (c *Client) deliverChat(m wire.Chat) {
	if c.OnChat != nil {
		c.OnChat(m)
	}
}

func (c *Client) setPresence(names []string) {
	c.mu.Lock()
	c.presence = append([]string(nil), names...)
	c.mu.Unlock()
	if c.OnPresence != nil {
		c.OnPresence(names)
	}
}
