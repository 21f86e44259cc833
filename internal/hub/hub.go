// Package hub is the host side of the whiteboard: it admits
// participants, bootstraps late joiners, and relays every draw, chat
// and presence event in a single receipt order. The host is itself a
// participant with its own board.
package hub

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"coboard/internal/canvas"
	"coboard/internal/endpoint"
	"coboard/internal/metrics"
	"coboard/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub sequences and relays all traffic. One reader goroutine per
// admitted participant; relays from any of them are serialized by
// relayMu, which makes the host the sole linearization point.
type Hub struct {
	name  string
	board *canvas.Board
	log   zerolog.Logger

	reg     *Registry
	relayMu sync.Mutex

	// Local display hooks for the excluded UI collaborator. Optional.
	OnChat     func(wire.Chat)
	OnPresence func(names []string)
}

func New(name string, board *canvas.Board, log zerolog.Logger) *Hub {
	return &Hub{
		name:  name,
		board: board,
		log:   log.With().Str("component", "hub").Logger(),
		reg:   NewRegistry(),
	}
}

func (h *Hub) Name() string { return h.name }

func (h *Hub) Board() *canvas.Board { return h.board }

// PresenceNames is the authoritative participant set: the host's own
// name plus every active relay target, sorted.
func (h *Hub) PresenceNames() []string {
	names := append(h.reg.ActiveNames(), h.name)
	sort.Strings(names)
	return names
}

// Router exposes the host's HTTP surface: the websocket upgrade plus
// health and metrics endpoints.
func (h *Hub) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", h.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	go h.admit(endpoint.New(conn))
}

// admit runs the handshake for one raw connection: read exactly one
// identity, reject duplicates, bootstrap, then hand off to the read
// loop. Bootstrap completes before the participant becomes a relay
// target, so a joiner never sees a live op for a canvas it has not
// been snapshotted on.
func (h *Hub) admit(ep *endpoint.Endpoint) {
	msg, err := ep.Receive()
	if err != nil {
		h.log.Warn().Err(err).Str("remote", ep.RemoteAddr()).Msg("connection lost before identity")
		ep.Close()
		return
	}
	ident, ok := msg.(wire.Identity)
	if !ok || ident.Name == "" {
		h.log.Warn().Str("remote", ep.RemoteAddr()).Type("got", msg).Msg("expected identity as first message")
		ep.Close()
		return
	}
	name := ident.Name

	if name == h.name {
		h.reject(ep, name)
		return
	}
	if err := h.reg.Reserve(name); err != nil {
		h.reject(ep, name)
		return
	}

	// Bootstrap: one snapshot per existing canvas, to this
	// participant only.
	for _, sn := range h.board.Snapshots() {
		if err := ep.Send(sn); err != nil {
			h.log.Warn().Err(err).Str("name", name).Msg("connection lost during bootstrap")
			h.reg.Remove(name)
			ep.Close()
			return
		}
		metrics.SnapshotsSent.Inc()
	}

	p := &Participant{Name: name, EP: ep}
	h.reg.Activate(p)
	metrics.AdmissionsTotal.Inc()
	metrics.ParticipantsConnected.Inc()
	h.log.Info().Str("name", name).Str("remote", ep.RemoteAddr()).Msg("participant admitted")

	h.broadcastPresence()
	h.systemChat(name + " has joined the whiteboard.")

	h.readLoop(p)
}

func (h *Hub) reject(ep *endpoint.Endpoint, name string) {
	metrics.AdmissionsRejected.Inc()
	h.log.Info().Str("name", name).Msg("rejecting duplicate display name")
	_ = ep.Send(wire.Chat{
		Author: wire.SystemAuthor,
		Text:   fmt.Sprintf("%s Username '%s' is already taken.", wire.RejectPrefix, name),
	})
	ep.Close()
}

// readLoop drains one participant's connection until it dies. This is
// the only place that participant's messages enter the relay.
func (h *Hub) readLoop(p *Participant) {
	for {
		msg, err := p.EP.Receive()
		if errors.Is(err, wire.ErrMalformed) {
			h.log.Warn().Err(err).Str("name", p.Name).Msg("dropping malformed message")
			continue
		}
		if err != nil {
			break
		}

		switch m := msg.(type) {
		case wire.DrawOp:
			if err := h.board.Apply(m); err != nil {
				h.log.Warn().Err(err).Str("name", p.Name).Msg("dropping unplayable draw op")
				continue
			}
			metrics.DrawOpsRelayed.WithLabelValues(string(m.Kind)).Inc()
			h.relay(m, p.Name)
		case wire.Chat:
			h.deliverChat(m)
			metrics.ChatRelayed.Inc()
			h.relay(m, p.Name)
		default:
			h.log.Warn().Str("name", p.Name).Type("got", msg).Msg("dropping unexpected message type")
		}
	}
	h.cleanup(p.Name)
}

// relay fans one message out to every active participant except the
// author. relayMu serializes concurrent relays: receipt order is lock
// acquisition order, and every recipient observes it. A failed send is
// isolated to its recipient and handed to cleanup afterwards.
func (h *Hub) relay(m wire.Message, exclude string) {
	h.relayMu.Lock()
	var failed []string
	for _, p := range h.reg.Active() {
		if p.Name == exclude {
			continue
		}
		if err := p.EP.Send(m); err != nil {
			metrics.BroadcastErrors.Inc()
			h.log.Warn().Err(err).Str("name", p.Name).Msg("send failed during fan-out")
			failed = append(failed, p.Name)
		}
	}
	h.relayMu.Unlock()

	// Cleanup broadcasts a departure itself, so it must run outside
	// the fan-out above.
	for _, name := range failed {
		go h.cleanup(name)
	}
}

// cleanup tears one participant down. Idempotent: I/O errors on both
// the read and write side can race to report the same death.
func (h *Hub) cleanup(name string) {
	p, removed := h.reg.Remove(name)
	if !removed {
		return
	}
	if p != nil {
		p.EP.Close()
	}
	metrics.ParticipantsConnected.Dec()
	h.log.Info().Str("name", name).Msg("participant disconnected")

	h.broadcastPresence()
	h.systemChat(name + " has left the whiteboard.")
}

func (h *Hub) broadcastPresence() {
	names := h.PresenceNames()
	if h.OnPresence != nil {
		h.OnPresence(names)
	}
	h.relay(wire.Presence{Names: names}, "")
}

func (h *Hub) systemChat(text string) {
	msg := wire.Chat{Author: wire.SystemAuthor, Text: text}
	h.deliverChat(msg)
	h.relay(msg, "")
}

func (h *Hub) deliverChat(m wire.Chat) {
	if h.OnChat != nil {
		h.OnChat(m)
	}
}

// Draw is the host's own edit-intent entry point: apply locally first
// (with undo history, since the host authored it), then relay to
// everyone.
func (h *Hub) Draw(i canvas.Intent) (wire.DrawOp, error) {
	op := i.Op(h.name)
	c := h.board.Ensure(op.Canvas)
	c.PushUndo()
	if err := c.Apply(op); err != nil {
		return wire.DrawOp{}, err
	}
	metrics.DrawOpsRelayed.WithLabelValues(string(op.Kind)).Inc()
	h.relay(op, "")
	return op, nil
}

// Chat sends a chat message authored by the host. Displayed locally
// independent of the relay.
func (h *Hub) Chat(text string) {
	msg := wire.Chat{Author: h.name, Text: text}
	h.deliverChat(msg)
	metrics.ChatRelayed.Inc()
	h.relay(msg, "")
}

// Shutdown closes every participant connection. The HTTP listener is
// owned and shut down by the caller.
func (h *Hub) Shutdown() {
	for _, p := range h.reg.Active() {
		h.cleanup(p.Name)
	}
}
